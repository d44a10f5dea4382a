package authhandler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/requestctx"
	"leaveflow/internal/transport/http/api"
	"leaveflow/internal/transport/http/middleware"
	"leaveflow/internal/transport/http/shared"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.LoginResult, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (directory.User, error)
}

type Handler struct {
	Auth  Authenticator
	Users UserLookup
}

func NewHandler(authn Authenticator, users UserLookup) *Handler {
	return &Handler{Auth: authn, Users: users}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	res, err := h.Auth.Login(r.Context(), payload.Username, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}
	if err != nil {
		requestctx.Logger(r.Context(), nil).Error("login failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}
	api.Success(w, res, requestID)
}

// HandleMe returns the caller's directory record, which may carry newer roles than the token.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	record, err := h.Users.GetUser(r.Context(), user.UserID)
	if errors.Is(err, directory.ErrUserNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "user not found", requestID)
		return
	}
	if err != nil {
		requestctx.Logger(r.Context(), nil).Error("load current user failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "directory_error", "failed to load user", requestID)
		return
	}
	api.Success(w, record, requestID)
}
