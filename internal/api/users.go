package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// UpdateRole handles PUT /api/users/{id}.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	var req updateRoleRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	claims := auth.ClaimsFrom(r.Context())
	if claims != nil && claims.UserID == id.String() && req.Role != claims.Role {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	ok, err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("user role updated",
		zap.String("user", auth.ActorFrom(r.Context())),
		zap.String("target_user", user.Name),
		zap.String("role", req.Role),
	)
	jsonResponse(w, http.StatusOK, user)
}
