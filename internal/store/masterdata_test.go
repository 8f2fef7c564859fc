package store

import (
	"context"
	"testing"

	"github.com/erazemk/auditit/internal/db"
	"github.com/erazemk/auditit/internal/model"
)

func TestWarehouseCRUD(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	wh, err := CreateWarehouse(ctx, database, model.Warehouse{Name: "Main", Location: "Ljubljana", Capacity: 50})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	if wh.Name != "Main" || wh.Capacity != 50 {
		t.Errorf("unexpected warehouse %+v", wh)
	}
	if wh.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	wh.Name = "Central"
	ok, err := UpdateWarehouse(ctx, database, *wh)
	if err != nil || !ok {
		t.Fatalf("UpdateWarehouse: %v, %v", ok, err)
	}
	got, _ := GetWarehouse(ctx, database, wh.ID)
	if got.Name != "Central" {
		t.Errorf("expected name 'Central', got %q", got.Name)
	}

	ok, err = UpdateWarehouse(ctx, database, model.Warehouse{ID: 999, Name: "Ghost"})
	if err != nil {
		t.Fatalf("UpdateWarehouse: %v", err)
	}
	if ok {
		t.Error("expected update of missing warehouse to report false")
	}

	list, _ := ListWarehouses(ctx, database)
	if len(list) != 1 {
		t.Errorf("expected 1 warehouse, got %d", len(list))
	}

	ok, _ = DeleteWarehouse(ctx, database, wh.ID)
	if !ok {
		t.Error("expected delete to report true")
	}
	if got, _ := GetWarehouse(ctx, database, wh.ID); got != nil {
		t.Error("expected warehouse to be gone")
	}
}

func TestCategoryDeleteCascades(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	f := seed(t, database)

	if _, err := ListItemDefinitions(ctx, database, 0); err != nil {
		t.Fatalf("ListItemDefinitions: %v", err)
	}

	ok, err := DeleteCategory(ctx, database, f.definition.CategoryID)
	if err != nil || !ok {
		t.Fatalf("DeleteCategory: %v, %v", ok, err)
	}

	if got, _ := GetItemDefinition(ctx, database, f.definition.ID); got != nil {
		t.Error("expected definition to be removed with its category")
	}
}

func TestItemDefinitionsByCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tools, _ := CreateCategory(ctx, database, "Tools", "")
	office, _ := CreateCategory(ctx, database, "Office", "")
	CreateItemDefinition(ctx, database, model.ItemDefinition{Name: "Drill", CategoryID: tools.ID})
	CreateItemDefinition(ctx, database, model.ItemDefinition{Name: "Hammer", CategoryID: tools.ID})
	CreateItemDefinition(ctx, database, model.ItemDefinition{Name: "Stapler", CategoryID: office.ID})

	all, _ := ListItemDefinitions(ctx, database, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 definitions, got %d", len(all))
	}

	byTools, _ := ListItemDefinitions(ctx, database, tools.ID)
	if len(byTools) != 2 {
		t.Errorf("expected 2 tool definitions, got %d", len(byTools))
	}
	for _, d := range byTools {
		if d.Category == nil || d.Category.Name != "Tools" {
			t.Errorf("expected joined category 'Tools', got %+v", d.Category)
		}
	}

	if _, err := CreateItemDefinition(ctx, database, model.ItemDefinition{Name: "Orphan", CategoryID: 999}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestQuickRemarks(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := CreateQuickRemark(ctx, database, "Screen cracked")
	if err != nil {
		t.Fatalf("CreateQuickRemark: %v", err)
	}
	second, _ := CreateQuickRemark(ctx, database, "Missing charger")

	list, _ := ListQuickRemarks(ctx, database)
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("expected newest remark first, got %+v", list)
	}

	ok, _ := DeleteQuickRemark(ctx, database, first.ID)
	if !ok {
		t.Error("expected delete to report true")
	}
	ok, _ = DeleteQuickRemark(ctx, database, first.ID)
	if ok {
		t.Error("expected second delete to report false")
	}
}
