package api

import (
	"net/http"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/errs"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// DefinitionsHandler handles item definition CRUD endpoints.
type DefinitionsHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

type definitionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	CategoryID  int64  `json:"categoryId" validate:"required,gt=0"`
	Unit        string `json:"unit" validate:"max=50"`
	Description string `json:"description" validate:"max=1000"`
}

// bindDefinition decodes a definition request and checks that its category exists.
func (h *DefinitionsHandler) bindDefinition(r *http.Request) (model.ItemDefinition, error) {
	var req definitionRequest
	if err := bind(r, &req); err != nil {
		return model.ItemDefinition{}, err
	}

	category, err := store.GetCategory(r.Context(), h.DB, req.CategoryID)
	if err != nil {
		return model.ItemDefinition{}, err
	}
	if category == nil {
		return model.ItemDefinition{}, errs.Validation("category not found")
	}

	return model.ItemDefinition{
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		Unit:        req.Unit,
		Description: req.Description,
	}, nil
}

// List handles GET /api/item-definitions?categoryId=.
func (h *DefinitionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if v := r.URL.Query().Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid categoryId")
			return
		}
		categoryID = id
	}

	defs, err := store.ListItemDefinitions(r.Context(), h.DB, categoryID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, defs)
}

// Create handles POST /api/item-definitions.
func (h *DefinitionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	def, err := h.bindDefinition(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	created, err := store.CreateItemDefinition(r.Context(), h.DB, def)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/item-definitions/{id}.
func (h *DefinitionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	def, err := store.GetItemDefinition(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if def == nil {
		jsonError(w, http.StatusNotFound, "item definition not found")
		return
	}
	jsonResponse(w, http.StatusOK, def)
}

// Update handles PUT /api/item-definitions/{id}.
func (h *DefinitionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	def, err := h.bindDefinition(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	def.ID = id

	ok, err := store.UpdateItemDefinition(r.Context(), h.DB, def)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "item definition not found")
		return
	}

	updated, err := store.GetItemDefinition(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/item-definitions/{id}.
func (h *DefinitionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ok, err := store.DeleteItemDefinition(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "item definition not found")
		return
	}

	h.Log.Info("item definition deleted", zap.String("user", auth.ActorFrom(r.Context())), zap.Int64("definition_id", id))
	jsonResponse(w, http.StatusOK, message("item definition deleted"))
}
