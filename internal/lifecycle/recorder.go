package lifecycle

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// Event is one state-changing event on an item, described after the
// mutation has been applied.
type Event struct {
	Item   *model.Item
	Action model.AuditAction
	Actor  string
	Note   *string
	At     time.Time
}

// Record appends one audit row for ev through db, which is normally the
// transaction that mutated the item. Item and warehouse names are copied
// from the resolved item so the row survives later renames.
func Record(ctx context.Context, db sqlx.ExtContext, ev Event) (*model.AuditLog, error) {
	actor := ev.Actor
	if actor == "" {
		actor = model.UnknownUser
	}

	entry := &model.AuditLog{
		Timestamp:     ev.At.UTC(),
		Action:        ev.Action,
		ItemID:        ev.Item.ID,
		ItemShortID:   ev.Item.ShortID,
		ItemName:      ev.Item.ItemDefinition.Name,
		WarehouseID:   ev.Item.WarehouseID,
		WarehouseName: ev.Item.Warehouse.Name,
		User:          actor,
		Destination:   ev.Note,
	}
	if err := store.InsertAuditLog(ctx, db, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
