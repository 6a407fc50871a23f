package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rbac"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/tenant"
)

// Handler exposes the platform admin API. The login route is open (behind
// the rate limiter); everything else requires permission-derived
// authorities from an admin token.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the admin endpoints on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/login", h.login)

	r.Route("/tenants", func(r chi.Router) {
		r.With(rbac.RequirePermission("tenants.read")).Get("/", h.listTenants)
		r.With(rbac.RequirePermission("tenants.read")).Get("/{id}", h.getTenant)
		r.With(rbac.RequirePermission("tenants.write")).Post("/", h.createTenant)
		r.With(rbac.RequirePermission("tenants.write")).Put("/{id}", h.updateTenant)
		r.With(rbac.RequirePermission("tenants.write")).Post("/{id}/activate", h.setActive(true))
		r.With(rbac.RequirePermission("tenants.write")).Post("/{id}/deactivate", h.setActive(false))
		r.With(rbac.RequirePermission("tenants.write")).Delete("/{id}", h.deleteTenant)
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, expiresIn, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		core.Error(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	core.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(expiresIn.Seconds()),
	})
}

type tenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.CreateTenant(r.Context(), req.ID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTenantID):
			core.Error(w, r, http.StatusBadRequest, "Tenant id may only contain letters, digits, hyphens, and underscores")
		case errors.Is(err, ErrTenantAlreadyExists):
			core.Error(w, r, http.StatusConflict, "Tenant already exists")
		default:
			core.Error(w, r, http.StatusInternalServerError, "Failed to create tenant")
		}
		return
	}

	core.JSON(w, http.StatusCreated, t)
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.svc.ListTenants(r.Context())
	if err != nil {
		core.Error(w, r, http.StatusInternalServerError, "Failed to list tenants")
		return
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	core.JSON(w, http.StatusOK, tenants)
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.tenantError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, t)
}

func (h *Handler) updateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	t, err := h.svc.UpdateTenant(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.tenantError(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, t)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.svc.SetTenantActive(r.Context(), chi.URLParam(r, "id"), active); err != nil {
			h.tenantError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) deleteTenant(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTenant(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.tenantError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tenant.ErrTenantNotFound) {
		core.Error(w, r, http.StatusNotFound, "Tenant not found")
		return
	}
	core.Error(w, r, http.StatusInternalServerError, "Tenant operation failed")
}
