package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

const definitionSelect = `SELECT d.id, d.name, d.category_id, d.unit, d.description, d.created_at,
        c.id AS "category.id", c.name AS "category.name", c.description AS "category.description"
 FROM item_definitions d
 JOIN categories c ON c.id = d.category_id`

// CreateItemDefinition creates a new item definition.
func CreateItemDefinition(ctx context.Context, db sqlx.ExtContext, def model.ItemDefinition) (*model.ItemDefinition, error) {
	result, err := sqlx.NamedExecContext(ctx, db,
		`INSERT INTO item_definitions (name, category_id, unit, description)
		 VALUES (:name, :category_id, :unit, :description)`, def,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item definition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item definition id: %w", err)
	}

	return GetItemDefinition(ctx, db, id)
}

// GetItemDefinition returns an item definition with its category.
func GetItemDefinition(ctx context.Context, db sqlx.ExtContext, id int64) (*model.ItemDefinition, error) {
	def := &model.ItemDefinition{}
	err := sqlx.GetContext(ctx, db, def, definitionSelect+` WHERE d.id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item definition: %w", err)
	}
	return def, nil
}

// ListItemDefinitions returns item definitions, optionally filtered by category.
func ListItemDefinitions(ctx context.Context, db sqlx.ExtContext, categoryID int64) ([]model.ItemDefinition, error) {
	query := definitionSelect
	var args []any
	if categoryID > 0 {
		query += ` WHERE d.category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY d.name, d.id`

	defs := []model.ItemDefinition{}
	if err := sqlx.SelectContext(ctx, db, &defs, query, args...); err != nil {
		return nil, fmt.Errorf("listing item definitions: %w", err)
	}
	return defs, nil
}

// UpdateItemDefinition overwrites a definition's editable fields. It reports
// whether the definition exists.
func UpdateItemDefinition(ctx context.Context, db sqlx.ExtContext, def model.ItemDefinition) (bool, error) {
	result, err := sqlx.NamedExecContext(ctx, db,
		`UPDATE item_definitions
		 SET name = :name, category_id = :category_id, unit = :unit, description = :description
		 WHERE id = :id`, def,
	)
	if err != nil {
		return false, fmt.Errorf("updating item definition: %w", err)
	}
	return rowsAffected(result)
}

// DeleteItemDefinition deletes a definition and every item of that kind.
func DeleteItemDefinition(ctx context.Context, db sqlx.ExtContext, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM item_definitions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item definition: %w", err)
	}
	return rowsAffected(result)
}
