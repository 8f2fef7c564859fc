package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

type fixture struct {
	warehouse  *model.Warehouse
	definition *model.ItemDefinition
}

func seed(t *testing.T, db *sqlx.DB) fixture {
	t.Helper()
	ctx := context.Background()

	cat, err := CreateCategory(ctx, db, "Electronics", "")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	def, err := CreateItemDefinition(ctx, db, model.ItemDefinition{Name: "Laptop", CategoryID: cat.ID, Unit: "pcs"})
	if err != nil {
		t.Fatalf("CreateItemDefinition: %v", err)
	}
	wh, err := CreateWarehouse(ctx, db, model.Warehouse{Name: "Main", Location: "Building A", Capacity: 100})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	return fixture{warehouse: wh, definition: def}
}

func insertItem(t *testing.T, db *sqlx.DB, f fixture, shortID string, at time.Time) *model.Item {
	t.Helper()

	item := &model.Item{
		ID:               uuid.New(),
		ShortID:          shortID,
		ItemDefinitionID: f.definition.ID,
		WarehouseID:      f.warehouse.ID,
		Status:           model.ItemStatusInStock,
		EntryDate:        at,
		LastUpdated:      at,
	}
	if err := InsertItem(context.Background(), db, item); err != nil {
		t.Fatalf("InsertItem: %v", err)
	}
	return item
}

func strPtr(s string) *string { return &s }
