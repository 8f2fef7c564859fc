package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/store"
)

// CategoriesHandler handles category CRUD endpoints.
type CategoriesHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, req.Name, req.Description)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, category)
}

// Get handles GET /api/categories/{id}.
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if category == nil {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Update handles PUT /api/categories/{id}.
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	var req categoryRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ok, err := store.UpdateCategory(r.Context(), h.DB, id, req.Name, req.Description)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}. Definitions in the category and
// their items go with it.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ok, err := store.DeleteCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "category not found")
		return
	}

	h.Log.Info("category deleted", zap.String("user", auth.ActorFrom(r.Context())), zap.Int64("category_id", id))
	jsonResponse(w, http.StatusOK, message("category deleted"))
}
