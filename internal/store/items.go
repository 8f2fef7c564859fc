package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

const itemSelect = `SELECT i.id, i.short_id, i.item_definition_id, i.warehouse_id, i.status,
        i.entry_date, i.last_updated, i.remarks, i.photo_url, i.current_destination,
        d.id AS "definition.id", d.name AS "definition.name",
        d.category_id AS "definition.category_id", d.unit AS "definition.unit",
        d.description AS "definition.description", d.created_at AS "definition.created_at",
        c.id AS "definition.category.id", c.name AS "definition.category.name",
        c.description AS "definition.category.description",
        w.id AS "warehouse.id", w.name AS "warehouse.name", w.location AS "warehouse.location",
        w.capacity AS "warehouse.capacity", w.description AS "warehouse.description",
        w.created_at AS "warehouse.created_at"
 FROM items i
 JOIN item_definitions d ON d.id = i.item_definition_id
 JOIN categories c ON c.id = d.category_id
 JOIN warehouses w ON w.id = i.warehouse_id`

// ItemFilter narrows ListItems. Zero fields do not filter.
type ItemFilter struct {
	WarehouseID int64
	Status      model.ItemStatus
	ID          uuid.UUID
	ShortID     string
}

// InsertItem writes a new item row. The caller assigns the id and timestamps.
func InsertItem(ctx context.Context, db sqlx.ExtContext, item *model.Item) error {
	_, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO items (id, short_id, item_definition_id, warehouse_id, status,
		                    entry_date, last_updated, remarks, photo_url, current_destination)
		 VALUES (:id, :short_id, :item_definition_id, :warehouse_id, :status,
		         :entry_date, :last_updated, :remarks, :photo_url, :current_destination)`, item,
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}
	return nil
}

// UpdateItem writes every mutable column of an item. id, short_id,
// item_definition_id and entry_date never change.
func UpdateItem(ctx context.Context, db sqlx.ExtContext, item *model.Item) error {
	result, err := sqlx.NamedExecContext(ctx, db,
		`UPDATE items
		 SET warehouse_id = :warehouse_id, status = :status, last_updated = :last_updated,
		     remarks = :remarks, photo_url = :photo_url, current_destination = :current_destination
		 WHERE id = :id`, item,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	ok, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("updating item: item %s does not exist", item.ID)
	}
	return nil
}

// GetItem returns an item with its definition, category and warehouse.
func GetItem(ctx context.Context, db sqlx.ExtContext, id uuid.UUID) (*model.Item, error) {
	item := &model.Item{}
	err := sqlx.GetContext(ctx, db, item, itemSelect+` WHERE i.id = ?`, id.String())
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items matching the filter, most recently updated first.
func ListItems(ctx context.Context, db sqlx.ExtContext, f ItemFilter) ([]model.Item, error) {
	query := itemSelect + ` WHERE 1=1`
	var args []any

	if f.WarehouseID > 0 {
		query += ` AND i.warehouse_id = ?`
		args = append(args, f.WarehouseID)
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}
	if f.ID != uuid.Nil {
		query += ` AND i.id = ?`
		args = append(args, f.ID.String())
	}
	if f.ShortID != "" {
		query += ` AND i.short_id = ?`
		args = append(args, f.ShortID)
	}

	query += ` ORDER BY i.last_updated DESC, i.rowid DESC`

	items := []model.Item{}
	if err := sqlx.SelectContext(ctx, db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// GetItemsByIDs returns the items that exist among ids, most recently
// updated first. Missing ids are skipped.
func GetItemsByIDs(ctx context.Context, db sqlx.ExtContext, ids []uuid.UUID) ([]model.Item, error) {
	items := []model.Item{}
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	query, args, err := sqlx.In(itemSelect+` WHERE i.id IN (?) ORDER BY i.last_updated DESC, i.rowid DESC`, keys)
	if err != nil {
		return nil, fmt.Errorf("building item id query: %w", err)
	}

	if err := sqlx.SelectContext(ctx, db, &items, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("getting items by id: %w", err)
	}
	return items, nil
}
