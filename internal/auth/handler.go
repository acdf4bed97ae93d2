package auth

import (
	"errors"
	"net/http"
	"net/mail"

	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/api"
	"github.com/elskow/auth-infra/internal/authn"
	"github.com/elskow/auth-infra/internal/keys"
	"github.com/elskow/auth-infra/internal/tokens"
	"github.com/elskow/auth-infra/internal/users"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /v1/auth. Unknown emails and wrong passwords get the
// same response so the two are indistinguishable to a caller.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		api.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !isValidEmail(req.Email) {
		api.WriteError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	token, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) || errors.Is(err, users.ErrInvalidPassword) ||
			errors.Is(err, users.ErrValidation) {
			api.WriteError(w, http.StatusForbidden, "authentication failed")
			return
		}
		h.log.Error("login failed", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "login failed")
		return
	}

	api.WriteJSON(w, http.StatusCreated, token.Record())
}

// Retrieve handles GET /v1/auth: it confirms the session exists and
// echoes its representation.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	identity := authn.FromContext(r.Context())
	api.WriteJSON(w, http.StatusOK, identity.Token().Record())
}

// Touch handles PUT /v1/auth: it marks the session as used, extending its
// inactivity window.
func (h *Handler) Touch(w http.ResponseWriter, r *http.Request) {
	token := authn.FromContext(r.Context()).Token()
	if err := h.service.TouchSession(token); err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			api.WriteError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.Error("failed to touch session", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	api.WriteJSON(w, http.StatusOK, token.Record())
}

// Logout handles DELETE /v1/auth.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := authn.FromContext(r.Context()).Token()
	if err := h.service.Logout(token); err != nil {
		h.log.Error("logout failed", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type issueConfirmationRequest struct {
	Email string `json:"email"`
}

// IssueConfirmation handles POST /v1/conf. The token key is delivered out
// of band (logged here; mailed in production), so the response carries no
// body.
func (h *Handler) IssueConfirmation(w http.ResponseWriter, r *http.Request) {
	var req issueConfirmationRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidEmail(req.Email) {
		api.WriteError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	if _, err := h.service.IssueConfirmation(req.Email); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("failed to issue confirmation token", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to issue confirmation token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type redeemConfirmationRequest struct {
	Key string `json:"key"`
}

type redeemConfirmationResponse struct {
	User tokens.ConfirmTokenUser `json:"user"`
}

// RedeemConfirmation handles PUT /v1/conf.
func (h *Handler) RedeemConfirmation(w http.ResponseWriter, r *http.Request) {
	var req redeemConfirmationRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !keys.Valid(req.Key) {
		api.WriteError(w, http.StatusBadRequest, "invalid key format")
		return
	}

	user, err := h.service.RedeemConfirmation(req.Key)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) || errors.Is(err, users.ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "confirmation token not found")
			return
		}
		h.log.Error("failed to redeem confirmation token", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to redeem confirmation token")
		return
	}

	api.WriteJSON(w, http.StatusOK, redeemConfirmationResponse{
		User: tokens.ConfirmTokenUser{ID: user.ID()},
	})
}

func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
