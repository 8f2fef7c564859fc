package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/erazemk/auditit/internal/auth"
	"github.com/erazemk/auditit/internal/db"
	"github.com/erazemk/auditit/internal/errs"
	"github.com/erazemk/auditit/internal/model"
	"github.com/erazemk/auditit/internal/store"
)

// stepClock advances one second per call so timestamps are strictly ordered.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type env struct {
	db         *sqlx.DB
	engine     *Engine
	warehouse  *model.Warehouse
	definition *model.ItemDefinition
}

func setup(t *testing.T, opts ...Option) env {
	t.Helper()
	return setupWithDB(t, db.NewTestDB(t), opts...)
}

// setupFile runs against an on-disk database with a real connection pool.
func setupFile(t *testing.T, opts ...Option) env {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "auditit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.Migrate(context.Background(), database, zap.NewNop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return setupWithDB(t, database, opts...)
}

func setupWithDB(t *testing.T, database *sqlx.DB, opts ...Option) env {
	t.Helper()
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, database, "Electronics", "")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	def, err := store.CreateItemDefinition(ctx, database, model.ItemDefinition{Name: "Laptop", CategoryID: cat.ID})
	if err != nil {
		t.Fatalf("CreateItemDefinition: %v", err)
	}
	wh, err := store.CreateWarehouse(ctx, database, model.Warehouse{Name: "Main"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	clock := &stepClock{t: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	return env{
		db:         database,
		engine:     New(database, opts...),
		warehouse:  wh,
		definition: def,
	}
}

func (e env) create(t *testing.T, ctx context.Context) *model.Item {
	t.Helper()
	item, err := e.engine.Create(ctx, CreateItem{DefinitionID: e.definition.ID, WarehouseID: e.warehouse.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return item
}

func (e env) logs(t *testing.T, id uuid.UUID) []model.AuditLog {
	t.Helper()
	logs, err := store.ListAuditLogs(context.Background(), e.db, store.AuditLogFilter{ItemID: id})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	return logs
}

func (e env) reload(t *testing.T, id uuid.UUID) *model.Item {
	t.Helper()
	item, err := store.GetItem(context.Background(), e.db, id)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item == nil {
		t.Fatalf("item %s disappeared", id)
	}
	return item
}

func TestLendAndReturnScenario(t *testing.T) {
	e := setup(t)
	ctx := auth.WithActor(context.Background(), "alice")

	item := e.create(t, ctx)
	if item.Status != model.ItemStatusInStock {
		t.Errorf("expected InStock after create, got %q", item.Status)
	}
	if !item.EntryDate.Equal(item.LastUpdated) {
		t.Error("expected entry date to equal last updated on create")
	}

	out, err := e.engine.Outbound(ctx, item.ID, "Lab A")
	if err != nil {
		t.Fatalf("Outbound: %v", err)
	}
	if out.Status != model.ItemStatusLoanedOut {
		t.Errorf("expected LoanedOut, got %q", out.Status)
	}
	if out.CurrentDestination == nil || *out.CurrentDestination != "Lab A" {
		t.Errorf("expected destination 'Lab A', got %v", out.CurrentDestination)
	}

	back, err := e.engine.Return(ctx, item.ID)
	if err != nil {
		t.Fatalf("Return: %v", err)
	}
	if back.Status != model.ItemStatusInStock || back.CurrentDestination != nil {
		t.Errorf("expected InStock without destination, got %q %v", back.Status, back.CurrentDestination)
	}

	stored := e.reload(t, item.ID)
	if !stored.EntryDate.Equal(item.EntryDate) {
		t.Error("entry date must not change")
	}
	if !stored.LastUpdated.After(item.LastUpdated) {
		t.Error("expected last updated to advance")
	}

	logs := e.logs(t, item.ID)
	want := []model.AuditAction{model.ActionReturn, model.ActionOutbound, model.ActionInbound}
	if len(logs) != len(want) {
		t.Fatalf("expected %d audit rows, got %d", len(want), len(logs))
	}
	for i, action := range want {
		if logs[i].Action != action {
			t.Errorf("row %d: expected %s, got %s", i, action, logs[i].Action)
		}
		if logs[i].User != "alice" {
			t.Errorf("row %d: expected user 'alice', got %q", i, logs[i].User)
		}
		if logs[i].ItemName != "Laptop" || logs[i].WarehouseName != "Main" {
			t.Errorf("row %d: unexpected snapshot %q/%q", i, logs[i].ItemName, logs[i].WarehouseName)
		}
		if i > 0 && !logs[i-1].Timestamp.After(logs[i].Timestamp) {
			t.Errorf("row %d: timestamps not strictly descending", i)
		}
	}
	if logs[1].Destination == nil || *logs[1].Destination != "Lab A" {
		t.Errorf("expected outbound row destination 'Lab A', got %v", logs[1].Destination)
	}
	if logs[0].Destination != nil {
		t.Errorf("expected return row without destination, got %q", *logs[0].Destination)
	}
}

func TestCreateDefaultsShortID(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	item := e.create(t, ctx)
	if item.ShortID != model.ShortIDFromID(item.ID) {
		t.Errorf("expected short id %q, got %q", model.ShortIDFromID(item.ID), item.ShortID)
	}

	named, err := e.engine.Create(ctx, CreateItem{
		DefinitionID: e.definition.ID,
		WarehouseID:  e.warehouse.ID,
		ShortID:      "  LAP-001 ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if named.ShortID != "LAP-001" {
		t.Errorf("expected trimmed short id 'LAP-001', got %q", named.ShortID)
	}
}

func TestCreateUnknownMasterData(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateItem
	}{
		{"unknown definition", CreateItem{DefinitionID: 999, WarehouseID: e.warehouse.ID}},
		{"unknown warehouse", CreateItem{DefinitionID: e.definition.ID, WarehouseID: 999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.engine.Create(ctx, tt.in)
			if !errors.Is(err, errs.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	items, _ := store.ListItems(ctx, e.db, store.ItemFilter{})
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	if n, _ := store.CountAuditLogs(ctx, e.db, uuid.Nil); n != 0 {
		t.Errorf("expected no audit rows, got %d", n)
	}
}

func TestReturnTwiceIsPermissive(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	for i := 0; i < 2; i++ {
		got, err := e.engine.Return(ctx, item.ID)
		if err != nil {
			t.Fatalf("Return #%d: %v", i+1, err)
		}
		if got.Status != model.ItemStatusInStock || got.CurrentDestination != nil {
			t.Errorf("Return #%d: expected InStock without destination", i+1)
		}
	}

	if logs := e.logs(t, item.ID); len(logs) != 3 {
		t.Errorf("expected 3 audit rows (inbound + 2 returns), got %d", len(logs))
	}
}

func TestCheckClearsDestination(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	if _, err := e.engine.Dispose(ctx, item.ID, "Recycling"); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	got, err := e.engine.Check(ctx, item.ID)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got.Status != model.ItemStatusInStock {
		t.Errorf("expected InStock after check, got %q", got.Status)
	}
	if got.CurrentDestination != nil {
		t.Errorf("expected destination cleared, got %q", *got.CurrentDestination)
	}
}

func TestApplyMissingItem(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	_, err := e.engine.Outbound(ctx, uuid.New(), "Lab A")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if n, _ := store.CountAuditLogs(ctx, e.db, uuid.Nil); n != 0 {
		t.Errorf("expected no audit rows, got %d", n)
	}
}

func TestApplyRejectsInvalidActions(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	for _, action := range []model.AuditAction{model.ActionInbound, "Teleport"} {
		_, err := e.engine.Apply(ctx, item.ID, Transition{Action: action})
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", action, err)
		}
	}
	if logs := e.logs(t, item.ID); len(logs) != 1 {
		t.Errorf("expected only the inbound row, got %d", len(logs))
	}
}

func TestTransfer(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	annex, _ := store.CreateWarehouse(ctx, e.db, model.Warehouse{Name: "Annex"})
	if _, err := e.engine.Outbound(ctx, item.ID, "Lab A"); err != nil {
		t.Fatalf("Outbound: %v", err)
	}

	got, err := e.engine.Transfer(ctx, item.ID, annex.ID, "moved with team")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got.WarehouseID != annex.ID || got.Warehouse.Name != "Annex" {
		t.Errorf("expected warehouse Annex, got %d %q", got.WarehouseID, got.Warehouse.Name)
	}
	if got.Status != model.ItemStatusLoanedOut {
		t.Errorf("transfer must not change status, got %q", got.Status)
	}

	logs := e.logs(t, item.ID)
	if logs[0].Action != model.ActionTransfer {
		t.Fatalf("expected latest row to be a transfer, got %s", logs[0].Action)
	}
	if logs[0].WarehouseID != annex.ID || logs[0].WarehouseName != "Annex" {
		t.Errorf("expected snapshot of new warehouse, got %d %q", logs[0].WarehouseID, logs[0].WarehouseName)
	}
	if logs[0].Destination == nil || *logs[0].Destination != "moved with team" {
		t.Errorf("expected transfer note, got %v", logs[0].Destination)
	}
}

func TestTransferToUnknownWarehouse(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	_, err := e.engine.Transfer(ctx, item.ID, 999, "")
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "target warehouse not found" {
		t.Errorf("unexpected message %q", err.Error())
	}

	stored := e.reload(t, item.ID)
	if stored.WarehouseID != e.warehouse.ID {
		t.Errorf("warehouse changed to %d", stored.WarehouseID)
	}
	if !stored.LastUpdated.Equal(item.LastUpdated) {
		t.Error("last updated changed on failed transfer")
	}
	if logs := e.logs(t, item.ID); len(logs) != 1 {
		t.Errorf("expected no new audit rows, got %d total", len(logs))
	}
}

func TestAuditFailureRollsBackItem(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	_, err := e.db.Exec(`CREATE TRIGGER fail_audit BEFORE INSERT ON audit_logs
		BEGIN SELECT RAISE(ABORT, 'forced audit failure'); END`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	if _, err := e.engine.Outbound(ctx, item.ID, "Lab A"); err == nil {
		t.Fatal("expected outbound to fail")
	}

	stored := e.reload(t, item.ID)
	if stored.Status != model.ItemStatusInStock {
		t.Errorf("expected status to stay InStock, got %q", stored.Status)
	}
	if stored.CurrentDestination != nil {
		t.Errorf("expected no destination, got %q", *stored.CurrentDestination)
	}
	if !stored.LastUpdated.Equal(item.LastUpdated) {
		t.Error("expected last updated to be unchanged")
	}
}

func TestUnknownUserWithoutActor(t *testing.T) {
	e := setup(t)
	item := e.create(t, context.Background())

	logs := e.logs(t, item.ID)
	if logs[0].User != model.UnknownUser {
		t.Errorf("expected %q, got %q", model.UnknownUser, logs[0].User)
	}
}

func TestSnapshotSurvivesRename(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	e.warehouse.Name = "Renamed"
	if _, err := store.UpdateWarehouse(ctx, e.db, *e.warehouse); err != nil {
		t.Fatalf("UpdateWarehouse: %v", err)
	}

	logs := e.logs(t, item.ID)
	if logs[0].WarehouseName != "Main" {
		t.Errorf("expected snapshot 'Main', got %q", logs[0].WarehouseName)
	}
}

func TestStrictTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare []Transition
		apply   Transition
		wantErr bool
	}{
		{"return in-stock item", nil, Transition{Action: model.ActionReturn}, true},
		{"outbound in-stock item", nil, Transition{Action: model.ActionOutbound, Destination: "Lab"}, false},
		{"outbound lent item", []Transition{{Action: model.ActionOutbound}}, Transition{Action: model.ActionOutbound}, true},
		{"return lent item", []Transition{{Action: model.ActionOutbound}}, Transition{Action: model.ActionReturn}, false},
		{"check lent item", []Transition{{Action: model.ActionOutbound}}, Transition{Action: model.ActionCheck}, false},
		{"check disposed item", []Transition{{Action: model.ActionDispose}}, Transition{Action: model.ActionCheck}, true},
		{"dispose disposed item", []Transition{{Action: model.ActionDispose}}, Transition{Action: model.ActionDispose}, true},
		{"transfer disposed item", []Transition{{Action: model.ActionDispose}}, Transition{Action: model.ActionTransfer}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t, WithStrictTransitions(true))
			ctx := context.Background()
			item := e.create(t, ctx)

			for _, p := range tt.prepare {
				if _, err := e.engine.Apply(ctx, item.ID, p); err != nil {
					t.Fatalf("preparing %s: %v", p.Action, err)
				}
			}
			before := len(e.logs(t, item.ID))

			apply := tt.apply
			if apply.Action == model.ActionTransfer {
				apply.WarehouseID = e.warehouse.ID
			}
			_, err := e.engine.Apply(ctx, item.ID, apply)

			if tt.wantErr {
				if !errors.Is(err, errs.ErrConflict) {
					t.Fatalf("expected conflict, got %v", err)
				}
				if after := len(e.logs(t, item.ID)); after != before {
					t.Errorf("expected no audit row on conflict, got %d new", after-before)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestUpdateDetailsWritesNoAuditRow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	photo := "/photos/old.jpg"
	item, err := e.engine.Create(ctx, CreateItem{
		DefinitionID: e.definition.ID,
		WarehouseID:  e.warehouse.ID,
		PhotoURL:     &photo,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	remarks := "scratched lid"
	newPhoto := "/photos/new.jpg"
	got, replaced, err := e.engine.UpdateDetails(ctx, item.ID, DetailsUpdate{Remarks: &remarks, PhotoURL: &newPhoto})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if replaced != photo {
		t.Errorf("expected replaced photo %q, got %q", photo, replaced)
	}
	if got.Remarks == nil || *got.Remarks != remarks {
		t.Errorf("expected remarks %q, got %v", remarks, got.Remarks)
	}
	if got.PhotoURL == nil || *got.PhotoURL != newPhoto {
		t.Errorf("expected photo %q, got %v", newPhoto, got.PhotoURL)
	}

	got, replaced, err = e.engine.UpdateDetails(ctx, item.ID, DetailsUpdate{ClearPhoto: true})
	if err != nil {
		t.Fatalf("UpdateDetails: %v", err)
	}
	if replaced != newPhoto || got.PhotoURL != nil {
		t.Errorf("expected photo %q removed, got replaced=%q photo=%v", newPhoto, replaced, got.PhotoURL)
	}
	if got.Remarks == nil {
		t.Error("remarks must be kept when not given")
	}

	if logs := e.logs(t, item.ID); len(logs) != 1 {
		t.Errorf("expected only the inbound row, got %d", len(logs))
	}

	if _, _, err := e.engine.UpdateDetails(ctx, uuid.New(), DetailsUpdate{}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestConcurrentTransitionsSerialize(t *testing.T) {
	e := setupFile(t)
	ctx := context.Background()
	item := e.create(t, ctx)

	const n = 40
	var wg sync.WaitGroup
	errc := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = e.engine.Outbound(ctx, item.ID, "Lab")
			} else {
				_, err = e.engine.Return(ctx, item.ID)
			}
			errc <- err
		}(i)
	}
	wg.Wait()
	close(errc)

	for err := range errc {
		if err != nil {
			t.Errorf("transition failed: %v", err)
		}
	}

	count, err := store.CountAuditLogs(ctx, e.db, item.ID)
	if err != nil {
		t.Fatalf("CountAuditLogs: %v", err)
	}
	if count != n+1 {
		t.Errorf("expected %d audit rows, got %d", n+1, count)
	}

	// The item must reflect whichever transition committed last.
	got := e.reload(t, item.ID)
	latest := e.logs(t, item.ID)[0]
	want := model.ItemStatusInStock
	if latest.Action == model.ActionOutbound {
		want = model.ItemStatusLoanedOut
	}
	if got.Status != want {
		t.Errorf("item is %q but the latest audit row is %s", got.Status, latest.Action)
	}
	if !got.LastUpdated.Equal(latest.Timestamp) {
		t.Errorf("last updated %v does not match latest audit row %v", got.LastUpdated, latest.Timestamp)
	}
}
