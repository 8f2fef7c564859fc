package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

const auditLogColumns = `id, timestamp, action, item_id, item_short_id, item_name,
        warehouse_id, warehouse_name, user_name, destination`

// AuditLogFilter narrows ListAuditLogs. Zero fields do not filter.
type AuditLogFilter struct {
	ItemID uuid.UUID
}

// InsertAuditLog appends one audit row and sets its id. Rows are never
// updated or deleted afterwards.
func InsertAuditLog(ctx context.Context, db sqlx.ExtContext, entry *model.AuditLog) error {
	result, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO audit_logs (timestamp, action, item_id, item_short_id, item_name,
		                         warehouse_id, warehouse_name, user_name, destination)
		 VALUES (:timestamp, :action, :item_id, :item_short_id, :item_name,
		         :warehouse_id, :warehouse_name, :user_name, :destination)`, entry,
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit log id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListAuditLogs returns audit rows, newest first.
func ListAuditLogs(ctx context.Context, db sqlx.ExtContext, f AuditLogFilter) ([]model.AuditLog, error) {
	query := `SELECT ` + auditLogColumns + ` FROM audit_logs WHERE 1=1`
	var args []any

	if f.ItemID != uuid.Nil {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID.String())
	}

	query += ` ORDER BY timestamp DESC, id DESC`

	logs := []model.AuditLog{}
	if err := sqlx.SelectContext(ctx, db, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	return logs, nil
}

// CountAuditLogs returns the number of audit rows, optionally for one item.
func CountAuditLogs(ctx context.Context, db sqlx.ExtContext, itemID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM audit_logs`
	var args []any
	if itemID != uuid.Nil {
		query += ` WHERE item_id = ?`
		args = append(args, itemID.String())
	}

	var n int
	if err := sqlx.GetContext(ctx, db, &n, query, args...); err != nil {
		return 0, fmt.Errorf("counting audit logs: %w", err)
	}
	return n, nil
}
