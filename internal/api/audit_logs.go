package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/store"
)

// AuditLogsHandler serves the audit trail.
type AuditLogsHandler struct {
	DB  *sqlx.DB
	Log *zap.Logger
}

// List handles GET /api/audit-logs?itemId=, newest first.
func (h *AuditLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.AuditLogFilter
	if v := r.URL.Query().Get("itemId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid itemId")
			return
		}
		f.ItemID = id
	}

	logs, err := store.ListAuditLogs(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	jsonResponse(w, http.StatusOK, logs)
}
