package users

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/auth-infra/internal/api"
	"github.com/elskow/auth-infra/internal/authn"
	"github.com/elskow/auth-infra/internal/tokens"
)

// ConfirmationIssuer issues an account-confirmation token for an email.
// Registration uses it to start the confirmation round trip.
type ConfirmationIssuer interface {
	IssueConfirmation(email string) (*tokens.ConfirmToken, error)
}

type Handler struct {
	service *Service
	issuer  ConfirmationIssuer
	log     *zap.Logger
}

func NewHandler(service *Service, issuer ConfirmationIssuer, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		issuer:  issuer,
		log:     log,
	}
}

type createUserRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Groups   []string `json:"groups,omitempty"`
}

type userResponse struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Groups    []string `json:"groups"`
	Joined    string   `json:"joined,omitempty"`
	Confirmed *string  `json:"confirmed,omitempty"`
	LastLogin *string  `json:"last_login,omitempty"`
	PrevLogin *string  `json:"prev_login,omitempty"`
}

// Create handles POST /v1/users: it registers an account and issues its
// initial confirmation token.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// A caller-supplied group list must keep every default group.
	for _, def := range DefaultGroups {
		if req.Groups == nil {
			break
		}
		if !containsGroup(req.Groups, def) {
			api.WriteError(w, http.StatusBadRequest, "default group missing: "+string(def))
			return
		}
	}

	user, err := h.service.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrUserExists) {
			api.WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		h.log.Error("failed to register user", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	if _, err := h.issuer.IssueConfirmation(user.Email()); err != nil {
		h.log.Error("failed to issue initial confirmation token",
			zap.String("user_id", user.ID()), zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to issue confirmation token")
		return
	}

	api.WriteJSON(w, http.StatusCreated, userToResponse(user))
}

// Retrieve handles GET /v1/users/{id}. Accounts are visible to themselves
// and to admins.
func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}

	user, err := h.service.Get(id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("failed to fetch user", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	api.WriteJSON(w, http.StatusOK, userToResponse(user))
}

type updateUserRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// Update handles PUT /v1/users/{id}: a password change that requires the
// current password alongside the new one.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}

	var req updateUserRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NewPassword == "" {
		api.WriteError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	if req.Password == "" {
		api.WriteError(w, http.StatusBadRequest,
			"setting a new password requires the existing password")
		return
	}

	user, err := h.service.ChangePassword(id, req.Password, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			api.WriteError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, ErrInvalidPassword):
			api.WriteError(w, http.StatusForbidden, "authentication failed")
		case errors.Is(err, ErrValidation):
			api.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error("failed to update user", zap.Error(err))
			api.WriteError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	api.WriteJSON(w, http.StatusOK, userToResponse(user))
}

// Delete handles DELETE /v1/users/{id}, cascading through the account's
// tokens.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error("failed to delete user", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorize allows the account itself and admins through; everyone else
// gets 403.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, id string) bool {
	identity := authn.FromContext(r.Context())
	if identity.UserID() == id || identity.HasPrincipal(string(GroupAdmin)) {
		return true
	}
	api.WriteError(w, http.StatusForbidden, "forbidden")
	return false
}

func userToResponse(u *User) userResponse {
	resp := userResponse{
		ID:        u.ID(),
		Email:     u.Email(),
		Groups:    u.GroupStrings(),
		Confirmed: formatTime(u.Confirmed()),
		LastLogin: formatTime(u.LastLogin()),
		PrevLogin: formatTime(u.PrevLogin()),
	}
	if !u.Joined().IsZero() {
		resp.Joined = u.Joined().Format(time.RFC3339)
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func containsGroup(groups []string, g Group) bool {
	for _, candidate := range groups {
		if candidate == string(g) {
			return true
		}
	}
	return false
}
