package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Handler exposes registration and login over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates the auth HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the auth endpoints on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			core.Error(w, r, http.StatusBadRequest, "A valid email address is required")
		case errors.Is(err, ErrWeakPassword):
			core.Error(w, r, http.StatusBadRequest, "Password must be at least 8 characters")
		case errors.Is(err, ErrEmailAlreadyRegistered):
			core.Error(w, r, http.StatusConflict, "Email is already registered")
		case errors.Is(err, tenant.ErrNoTenantInContext):
			core.Error(w, r, http.StatusBadRequest, "Tenant context is required")
		default:
			core.Error(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	core.JSON(w, http.StatusCreated, user)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, expiresIn, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, tenant.ErrNoTenantInContext):
			core.Error(w, r, http.StatusBadRequest, "Tenant context is required")
		default:
			core.Error(w, r, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	core.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(expiresIn.Seconds()),
	})
}
