package handler

import (
	"net/http"
	"strings"

	"s3-explorer/internal/middleware"
	"s3-explorer/internal/model"
	"s3-explorer/internal/service"
	"s3-explorer/pkg/apierror"
)

type AuthHandler struct {
	service *service.AuthService
	audit   *service.AuditService
}

func NewAuthHandler(service *service.AuthService, audit *service.AuditService) *AuthHandler {
	return &AuthHandler{service: service, audit: audit}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.Username = strings.TrimSpace(payload.Username)
	if payload.Username == "" || payload.Password == "" {
		writeError(w, apierror.BadRequest("username and password are required", ""))
		return
	}

	tokens, err := h.service.Login(r.Context(), payload.Username, payload.Password)

	actor := actorFromRequest(r)
	actor.Username = payload.Username
	if err == nil {
		actor.Principal = model.Principal{
			ID:              tokens.User.ID,
			Username:        tokens.User.Username,
			IsSuperuser:     tokens.User.IsSuperuser,
			IsAuthenticated: true,
		}
	}
	h.audit.RecordResult(r.Context(), actor, model.ActionLogin, "", err)

	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}
