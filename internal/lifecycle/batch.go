package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/errs"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// BatchEntry is one item of a batch Inbound.
type BatchEntry struct {
	ShortID string
	Remarks *string
}

// CreateBatch registers several items of one definition in one warehouse.
// Either every item and its Inbound row is written or nothing is.
func (e *Engine) CreateBatch(ctx context.Context, definitionID, warehouseID int64, entries []BatchEntry) ([]model.Item, error) {
	if len(entries) == 0 {
		return nil, errs.Validation("at least one item is required")
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	def, wh, err := resolveMasterData(ctx, tx, definitionID, warehouseID)
	if err != nil {
		return nil, err
	}

	actor := auth.ActorFrom(ctx)
	items := make([]model.Item, 0, len(entries))
	for _, entry := range entries {
		item, err := e.create(ctx, tx, def, wh, entry.ShortID, entry.Remarks, nil, actor)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch inbound: %w", err)
	}

	for range items {
		e.metrics.Transition(string(model.ActionInbound))
	}
	e.metrics.Batch("create", len(items))
	return items, nil
}

// UpdateStatusBatch moves every listed item to status using the transition
// that reaches it: InStock by Return, LoanedOut by Outbound, Disposed by
// Dispose. If the items found do not match the requested ids one for one,
// including repeated ids, the whole batch fails with a not-found error and
// nothing is written.
func (e *Engine) UpdateStatusBatch(ctx context.Context, ids []uuid.UUID, status model.ItemStatus, destination string) ([]model.Item, error) {
	if len(ids) == 0 {
		return nil, errs.Validation("at least one item id is required")
	}
	action, ok := ActionForStatus(status)
	if !ok {
		return nil, errs.Validation("unknown status %q", status)
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	found, err := store.GetItemsByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, errs.NotFound("%d of %d items not found", len(ids)-len(found), len(ids))
	}

	t := Transition{Action: action, Destination: destination}
	actor := auth.ActorFrom(ctx)
	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := e.apply(ctx, tx, id, t, actor)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch status update: %w", err)
	}

	for range items {
		e.metrics.Transition(string(action))
	}
	e.metrics.Batch("update_status", len(items))
	return items, nil
}
