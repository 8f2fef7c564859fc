// Package lifecycle moves items through their states. Every state change
// updates the item row and appends its audit row in one transaction.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/errs"
	"github.com/erazemk/auditit/internal/metrics"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// Engine applies lifecycle transitions against the database.
type Engine struct {
	db      *sqlx.DB
	strict  bool
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictTransitions rejects transitions from statuses they do not
// logically start from (for example returning an item that is in stock).
func WithStrictTransitions(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics counts committed transitions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New returns an Engine. Transitions are permissive unless
// WithStrictTransitions(true) is given.
func New(db *sqlx.DB, opts ...Option) *Engine {
	e := &Engine{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateItem describes an Inbound.
type CreateItem struct {
	DefinitionID int64
	WarehouseID  int64
	// ShortID defaults to the last 8 hex characters of the generated id.
	ShortID  string
	Remarks  *string
	PhotoURL *string
}

// Create registers a new item in stock and records its Inbound.
func (e *Engine) Create(ctx context.Context, in CreateItem) (*model.Item, error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	def, wh, err := resolveMasterData(ctx, tx, in.DefinitionID, in.WarehouseID)
	if err != nil {
		return nil, err
	}

	item, err := e.create(ctx, tx, def, wh, in.ShortID, in.Remarks, in.PhotoURL, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing inbound: %w", err)
	}

	e.metrics.Transition(string(model.ActionInbound))
	return item, nil
}

func resolveMasterData(ctx context.Context, tx *sqlx.Tx, definitionID, warehouseID int64) (*model.ItemDefinition, *model.Warehouse, error) {
	def, err := store.GetItemDefinition(ctx, tx, definitionID)
	if err != nil {
		return nil, nil, err
	}
	if def == nil {
		return nil, nil, errs.Validation("item definition not found")
	}

	wh, err := store.GetWarehouse(ctx, tx, warehouseID)
	if err != nil {
		return nil, nil, err
	}
	if wh == nil {
		return nil, nil, errs.Validation("warehouse not found")
	}

	return def, wh, nil
}

func (e *Engine) create(ctx context.Context, tx *sqlx.Tx, def *model.ItemDefinition, wh *model.Warehouse,
	shortID string, remarks, photoURL *string, actor string) (*model.Item, error) {
	now := e.now().UTC()
	id := uuid.New()

	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		shortID = model.ShortIDFromID(id)
	}

	item := &model.Item{
		ID:               id,
		ShortID:          shortID,
		ItemDefinitionID: def.ID,
		WarehouseID:      wh.ID,
		Status:           model.ItemStatusInStock,
		EntryDate:        now,
		LastUpdated:      now,
		Remarks:          remarks,
		PhotoURL:         photoURL,
		ItemDefinition:   *def,
		Warehouse:        *wh,
	}
	if err := store.InsertItem(ctx, tx, item); err != nil {
		return nil, err
	}

	_, err := Record(ctx, tx, Event{Item: item, Action: model.ActionInbound, Actor: actor, At: now})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Apply performs t on an existing item and returns the updated item.
func (e *Engine) Apply(ctx context.Context, id uuid.UUID, t Transition) (*model.Item, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := e.apply(ctx, tx, id, t, auth.ActorFrom(ctx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %s: %w", strings.ToLower(string(t.Action)), err)
	}

	e.metrics.Transition(string(t.Action))
	return item, nil
}

func (t Transition) validate() error {
	switch t.Action {
	case model.ActionOutbound, model.ActionCheck, model.ActionReturn, model.ActionDispose, model.ActionTransfer:
		return nil
	case model.ActionInbound:
		return errs.Validation("inbound creates a new item and cannot be applied to an existing one")
	default:
		return errs.Validation("unknown action %q", t.Action)
	}
}

// apply loads, mutates and records one item inside tx.
func (e *Engine) apply(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, t Transition, actor string) (*model.Item, error) {
	item, err := store.GetItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errs.NotFound("item %s not found", id)
	}

	if e.strict && !Allowed(t.Action, item.Status) {
		return nil, errs.Conflict("cannot %s item %s while it is %s",
			strings.ToLower(string(t.Action)), item.ShortID, item.Status)
	}

	if t.Action == model.ActionTransfer {
		wh, err := store.GetWarehouse(ctx, tx, t.WarehouseID)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, errs.Validation("target warehouse not found")
		}
		item.WarehouseID = wh.ID
		item.Warehouse = *wh
	} else {
		t.apply(item)
	}

	now := e.now().UTC()
	item.LastUpdated = now

	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return nil, err
	}

	_, err = Record(ctx, tx, Event{Item: item, Action: t.Action, Actor: actor, Note: t.note(), At: now})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Outbound lends an item out to destination.
func (e *Engine) Outbound(ctx context.Context, id uuid.UUID, destination string) (*model.Item, error) {
	return e.Apply(ctx, id, Transition{Action: model.ActionOutbound, Destination: destination})
}

// Check confirms an item is physically in stock.
func (e *Engine) Check(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return e.Apply(ctx, id, Transition{Action: model.ActionCheck})
}

// Return brings a lent item back into stock.
func (e *Engine) Return(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return e.Apply(ctx, id, Transition{Action: model.ActionReturn})
}

// Dispose writes an item off. destination is an optional reason or recipient.
func (e *Engine) Dispose(ctx context.Context, id uuid.UUID, destination string) (*model.Item, error) {
	return e.Apply(ctx, id, Transition{Action: model.ActionDispose, Destination: destination})
}

// Transfer moves an item to another warehouse without changing its status.
func (e *Engine) Transfer(ctx context.Context, id uuid.UUID, warehouseID int64, note string) (*model.Item, error) {
	return e.Apply(ctx, id, Transition{Action: model.ActionTransfer, WarehouseID: warehouseID, Note: note})
}

// DetailsUpdate edits the fields of an item that are not part of its lifecycle.
type DetailsUpdate struct {
	// Remarks replaces the remarks when non-nil; an empty string clears them.
	Remarks *string
	// PhotoURL replaces the photo when non-nil.
	PhotoURL *string
	// ClearPhoto removes the photo. Ignored when PhotoURL is set.
	ClearPhoto bool
}

// UpdateDetails applies u without recording an audit row. It returns the
// updated item and the URL of the photo that was replaced or removed, if any.
func (e *Engine) UpdateDetails(ctx context.Context, id uuid.UUID, u DetailsUpdate) (*model.Item, string, error) {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := store.GetItem(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	if item == nil {
		return nil, "", errs.NotFound("item %s not found", id)
	}

	var replaced string
	if u.Remarks != nil {
		item.Remarks = optional(*u.Remarks)
	}
	if u.PhotoURL != nil || u.ClearPhoto {
		if item.PhotoURL != nil {
			replaced = *item.PhotoURL
		}
		item.PhotoURL = u.PhotoURL
	}
	item.LastUpdated = e.now().UTC()

	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("committing item update: %w", err)
	}
	return item, replaced, nil
}
