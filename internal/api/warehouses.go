package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// WarehousesHandler handles warehouse CRUD endpoints.
type WarehousesHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

type warehouseRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Location    string `json:"location" validate:"max=500"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
	Description string `json:"description" validate:"max=1000"`
}

func (req warehouseRequest) model() model.Warehouse {
	return model.Warehouse{
		Name:        req.Name,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Description: req.Description,
	}
}

// List handles GET /api/warehouses.
func (h *WarehousesHandler) List(w http.ResponseWriter, r *http.Request) {
	warehouses, err := store.ListWarehouses(r.Context(), h.DB)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, warehouses)
}

// Create handles POST /api/warehouses.
func (h *WarehousesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	warehouse, err := store.CreateWarehouse(r.Context(), h.DB, req.model())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.Log.Info("warehouse created", zap.String("user", auth.ActorFrom(r.Context())), zap.String("warehouse", warehouse.Name))
	jsonResponse(w, http.StatusCreated, warehouse)
}

// Get handles GET /api/warehouses/{id}.
func (h *WarehousesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	warehouse, err := store.GetWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if warehouse == nil {
		jsonError(w, http.StatusNotFound, "warehouse not found")
		return
	}
	jsonResponse(w, http.StatusOK, warehouse)
}

// Update handles PUT /api/warehouses/{id}. Existing audit rows keep the old
// name.
func (h *WarehousesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	var req warehouseRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	wh := req.model()
	wh.ID = id
	ok, err := store.UpdateWarehouse(r.Context(), h.DB, wh)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "warehouse not found")
		return
	}

	warehouse, err := store.GetWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, warehouse)
}

// Delete handles DELETE /api/warehouses/{id}. Items in the warehouse are
// deleted with it.
func (h *WarehousesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ok, err := store.DeleteWarehouse(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "warehouse not found")
		return
	}

	h.Log.Info("warehouse deleted", zap.String("user", auth.ActorFrom(r.Context())), zap.Int64("warehouse_id", id))
	jsonResponse(w, http.StatusOK, message("warehouse deleted"))
}
