package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"s3-explorer/internal/service"
)

type TrashHandler struct {
	service *service.TrashService
}

func NewTrashHandler(service *service.TrashService) *TrashHandler {
	return &TrashHandler{service: service}
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"items": entries}, nil)
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Restore(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Purge(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.EmptyTrash(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *TrashHandler) PurgeExpired(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PurgeExpired(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}
