package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"s3-explorer/internal/model"
	"s3-explorer/internal/service"
	"s3-explorer/internal/storage"
	"s3-explorer/internal/util"
	"s3-explorer/pkg/apierror"
)

type BrowserHandler struct {
	browser       *service.BrowserService
	trash         *service.TrashService
	maxUploadSize int64
}

func NewBrowserHandler(browser *service.BrowserService, trash *service.TrashService, maxUploadSize int64) *BrowserHandler {
	return &BrowserHandler{browser: browser, trash: trash, maxUploadSize: maxUploadSize}
}

func (h *BrowserHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.browser.List(r.Context(), actorFromRequest(r), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *BrowserHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateFolderRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.browser.CreateFolder(r.Context(), actorFromRequest(r), payload.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, item, nil)
}

// Upload reads a multipart stream: a "path" field naming the destination
// folder, followed by one or more "file" parts. Each file streams straight
// to the store; one file failing does not stop the others.
func (h *BrowserHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.BadRequest("invalid multipart body", ""))
		return
	}

	actor := actorFromRequest(r)
	folder := strings.TrimSpace(r.URL.Query().Get("path"))
	result := model.UploadResult{Uploaded: []model.FileItem{}, Failed: []model.UploadFailure{}}

	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writeError(w, payloadTooLarge())
				return
			}
			writeError(w, apierror.BadRequest("invalid multipart stream", nextErr.Error()))
			return
		}

		switch {
		case part.FormName() == "path":
			value, _ := io.ReadAll(io.LimitReader(part, 4096))
			folder = strings.TrimSpace(string(value))
		case part.FormName() == "file" && strings.TrimSpace(part.FileName()) != "":
			item, uploadErr := h.uploadPart(r, actor, folder, part)
			if uploadErr != nil {
				if isPayloadTooLarge(uploadErr) {
					_ = part.Close()
					writeError(w, payloadTooLarge())
					return
				}
				result.Failed = append(result.Failed, model.UploadFailure{Name: part.FileName(), Reason: uploadFailureReason(uploadErr)})
			} else {
				result.Uploaded = append(result.Uploaded, item)
			}
		}
		_ = part.Close()
	}

	if len(result.Uploaded) == 0 && len(result.Failed) == 0 {
		writeError(w, apierror.BadRequest("no file part in request", "file"))
		return
	}

	status := http.StatusCreated
	if len(result.Uploaded) == 0 {
		status = http.StatusOK
	}
	writeSuccess(w, status, result, nil)
}

func (h *BrowserHandler) uploadPart(r *http.Request, actor model.Actor, folder string, part *multipart.Part) (model.FileItem, error) {
	name, err := util.SanitizeObjectName(part.FileName())
	if err != nil {
		return model.FileItem{}, err
	}

	contentType, body := util.SniffContentType(name, part.Header.Get("Content-Type"), part)
	return h.browser.Upload(r.Context(), actor, storage.JoinKey(folder, name), body, -1, contentType)
}

func uploadFailureReason(err error) string {
	_, body := classifyError(err)
	if body.Details != "" && body.Code == "STORAGE_ERROR" {
		return body.Message + " (" + body.Details + ")"
	}
	return body.Message
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func payloadTooLarge() error {
	return apierror.PayloadTooLarge("request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE")
}

func (h *BrowserHandler) DownloadLink(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		writeError(w, err)
		return
	}

	ttl, err := parseTTL(r.URL.Query().Get("ttl"))
	if err != nil {
		writeError(w, err)
		return
	}

	link, err := h.browser.DownloadLink(r.Context(), actorFromRequest(r), path, ttl)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, link, nil)
}

// parseTTL accepts a Go duration ("15m") or a number of seconds.
func parseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, apierror.BadRequest("ttl must be a duration or a number of seconds", "ttl")
	}
	return ttl, nil
}

func (h *BrowserHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.trash.DeleteFile(r.Context(), actorFromRequest(r), path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func (h *BrowserHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	path, err := requiredQuery(r, "path")
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.trash.DeleteFolder(r.Context(), actorFromRequest(r), path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func (h *BrowserHandler) Move(w http.ResponseWriter, r *http.Request) {
	var payload model.MoveRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(payload.Source) == "" {
		writeError(w, apierror.BadRequest("source is required", "source"))
		return
	}

	result, err := h.browser.Move(r.Context(), actorFromRequest(r), payload.Source, payload.Destination, payload.IsFolder)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *BrowserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query, err := requiredQuery(r, "q")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.browser.Search(r.Context(), actorFromRequest(r), r.URL.Query().Get("path"), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *BrowserHandler) SuggestFolders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folders := h.browser.FolderSuggestions(r.Context(), actorFromRequest(r), query.Get("q"), parseIntOrDefault(query.Get("limit"), 0))

	writeSuccess(w, http.StatusOK, map[string]any{"folders": folders}, nil)
}
