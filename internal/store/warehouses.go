package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

const warehouseColumns = `id, name, location, capacity, description, created_at`

// CreateWarehouse creates a new warehouse.
func CreateWarehouse(ctx context.Context, db sqlx.ExtContext, w model.Warehouse) (*model.Warehouse, error) {
	result, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO warehouses (name, location, capacity, description)
		 VALUES (:name, :location, :capacity, :description)`, w,
	)
	if err != nil {
		return nil, fmt.Errorf("creating warehouse: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting warehouse id: %w", err)
	}

	return GetWarehouse(ctx, db, id)
}

// GetWarehouse returns a warehouse by ID.
func GetWarehouse(ctx context.Context, db sqlx.ExtContext, id int64) (*model.Warehouse, error) {
	w := &model.Warehouse{}
	err := sqlx.GetContext(ctx, db, w,
		`SELECT `+warehouseColumns+` FROM warehouses WHERE id = ?`, id,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting warehouse: %w", err)
	}
	return w, nil
}

// ListWarehouses returns all warehouses ordered by name.
func ListWarehouses(ctx context.Context, db sqlx.ExtContext) ([]model.Warehouse, error) {
	warehouses := []model.Warehouse{}
	err := sqlx.SelectContext(ctx, db, &warehouses,
		`SELECT `+warehouseColumns+` FROM warehouses ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	return warehouses, nil
}

// UpdateWarehouse overwrites a warehouse's editable fields. It reports
// whether the warehouse exists.
func UpdateWarehouse(ctx context.Context, db sqlx.ExtContext, w model.Warehouse) (bool, error) {
	result, err := sqlx.NamedExecContext(ctx, db,
		`UPDATE warehouses
		 SET name = :name, location = :location, capacity = :capacity, description = :description
		 WHERE id = :id`, w,
	)
	if err != nil {
		return false, fmt.Errorf("updating warehouse: %w", err)
	}
	return rowsAffected(result)
}

// DeleteWarehouse deletes a warehouse and, through the foreign key cascade,
// every item stored in it. Audit rows are kept.
func DeleteWarehouse(ctx context.Context, db sqlx.ExtContext, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM warehouses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting warehouse: %w", err)
	}
	return rowsAffected(result)
}
