package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Shakvilla/saas-starter-template-shared-schema/core"
	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/rbac"
)

// Handler exposes tenant user management over HTTP. All routes require an
// authenticated tenant principal; mutations additionally require the tenant
// ADMIN role.
type Handler struct {
	storage Storage
}

func NewHandler(storage Storage) *Handler {
	return &Handler{storage: storage}
}

// Routes mounts the user endpoints on a fresh chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(requireAuthenticated)
		r.Get("/", h.list)
		r.Get("/me", h.me)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(rbac.RequireRole("ADMIN"))
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.deactivate)
	})

	return r
}

// requireAuthenticated rejects anonymous requests with 401 but imposes no
// role requirement.
func requireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := rbac.FromContext(r.Context()); !ok {
			core.Error(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.storage.List(r.Context())
	if err != nil {
		core.Error(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []User{}
	}
	core.JSON(w, http.StatusOK, users)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.FromContext(r.Context())

	id, err := uuid.Parse(principal.Subject)
	if err != nil {
		core.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	h.respondWithUser(w, r, id)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	h.respondWithUser(w, r, id)
}

func (h *Handler) respondWithUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	user, err := h.storage.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			core.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		core.Error(w, r, http.StatusInternalServerError, "Failed to load user")
		return
	}
	core.JSON(w, http.StatusOK, user)
}

type updateRequest struct {
	FullName string `json:"full_name"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.storage.UpdateFullName(r.Context(), id, req.FullName)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			core.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		core.Error(w, r, http.StatusInternalServerError, "Failed to update user")
		return
	}
	core.JSON(w, http.StatusOK, user)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := h.storage.SetActive(r.Context(), id, false); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			core.Error(w, r, http.StatusNotFound, "User not found")
			return
		}
		core.Error(w, r, http.StatusInternalServerError, "Failed to deactivate user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
