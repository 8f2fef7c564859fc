package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/store"
)

// QuickRemarksHandler handles the canned remarks offered to clients.
type QuickRemarksHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

type quickRemarkRequest struct {
	Content string `json:"content" validate:"required,max=200"`
}

// List handles GET /api/quick-remarks, newest first.
func (h *QuickRemarksHandler) List(w http.ResponseWriter, r *http.Request) {
	remarks, err := store.ListQuickRemarks(r.Context(), h.DB)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, remarks)
}

// Create handles POST /api/quick-remarks.
func (h *QuickRemarksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req quickRemarkRequest
	if err := bind(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	remark, err := store.CreateQuickRemark(r.Context(), h.DB, req.Content)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusCreated, remark)
}

// Delete handles DELETE /api/quick-remarks/{id}.
func (h *QuickRemarksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	ok, err := store.DeleteQuickRemark(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "quick remark not found")
		return
	}
	jsonResponse(w, http.StatusOK, message("quick remark deleted"))
}
