package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"s3-explorer/internal/model"
	"s3-explorer/internal/service"
	"s3-explorer/pkg/apierror"
)

type BulkHandler struct {
	service *service.BulkService
}

func NewBulkHandler(service *service.BulkService) *BulkHandler {
	return &BulkHandler{service: service}
}

func decodeBulk(r *http.Request) (model.BulkRequest, error) {
	var payload model.BulkRequest
	if err := decodeJSON(r, &payload); err != nil {
		return payload, err
	}
	if len(payload.Files) == 0 && len(payload.Folders) == 0 {
		return payload, apierror.BadRequest("at least one file or folder is required", "files")
	}
	return payload, nil
}

func (h *BulkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBulk(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result := h.service.BulkDelete(r.Context(), actorFromRequest(r), payload.Files, payload.Folders)
	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *BulkHandler) Move(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBulk(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result := h.service.BulkMove(r.Context(), actorFromRequest(r), payload.Files, payload.Folders, payload.Destination)
	writeSuccess(w, http.StatusOK, result, nil)
}

// Download streams the archive as it is built. Once the first byte is out
// the status is fixed, so later failures can only be logged.
func (h *BulkHandler) Download(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBulk(r)
	if err != nil {
		writeError(w, err)
		return
	}

	name := fmt.Sprintf("download-%s.zip", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)

	if err := h.service.BulkDownload(r.Context(), actorFromRequest(r), payload.Files, payload.Folders, w); err != nil {
		slog.Warn("bulk download interrupted", "error", err)
	}
}
