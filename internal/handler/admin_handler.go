package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"s3-explorer/internal/model"
	"s3-explorer/internal/service"
	"s3-explorer/pkg/apierror"
)

type AdminHandler struct {
	auth    *service.AuthService
	perms   *service.PermissionService
	audit   *service.AuditService
	browser *service.BrowserService
}

func NewAdminHandler(auth *service.AuthService, perms *service.PermissionService, audit *service.AuditService, browser *service.BrowserService) *AdminHandler {
	return &AdminHandler{auth: auth, perms: perms, audit: audit, browser: browser}
}

func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := model.AuditQuery{
		Action:      strings.TrimSpace(query.Get("action")),
		PrincipalID: strings.TrimSpace(query.Get("principal_id")),
		Path:        strings.TrimSpace(query.Get("path")),
		Page:        parseIntOrDefault(query.Get("page"), 1),
		Limit:       parseIntOrDefault(query.Get("limit"), 50),
	}
	if raw := strings.TrimSpace(query.Get("success")); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apierror.BadRequest("success must be true or false", "success"))
			return
		}
		filter.Success = &success
	}

	items, meta, err := h.audit.Query(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.AuditListData{Items: items}, &meta)
}

func (h *AdminHandler) PruneAudit(w http.ResponseWriter, r *http.Request) {
	raw, err := requiredQuery(r, "before")
	if err != nil {
		writeError(w, err)
		return
	}

	before, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		writeError(w, apierror.BadRequest("before must be an RFC 3339 timestamp", "before"))
		return
	}

	removed, err := h.audit.PruneAs(r.Context(), actorFromRequest(r), before)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"removed": removed}, nil)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	users, err := h.auth.ListUsers(r.Context(), actor)
	h.audit.RecordResult(r.Context(), actor, model.ActionUserList, "", err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"users": users}, nil)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	actor := actorFromRequest(r)
	user, err := h.auth.CreateUser(r.Context(), actor, payload)
	h.audit.RecordResult(r.Context(), actor, model.ActionUserCreate, strings.TrimSpace(payload.Username), err)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *AdminHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.perms.ListGrants(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"grants": grants}, nil)
}

func (h *AdminHandler) UpsertGrant(w http.ResponseWriter, r *http.Request) {
	var payload model.GrantRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	grant, err := h.perms.UpsertGrant(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, grant, nil)
}

// DeleteGrant removes the row for ?path=; an absent path means the root row.
func (h *AdminHandler) DeleteGrant(w http.ResponseWriter, r *http.Request) {
	if err := h.perms.DeleteGrant(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), r.URL.Query().Get("path")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.browser.Stats(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}
