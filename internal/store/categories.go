package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db sqlx.ExtContext, name, description string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, description) VALUES (?, ?)`,
		name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db sqlx.ExtContext, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := sqlx.GetContext(ctx, db, c,
		`SELECT id, name, description FROM categories WHERE id = ?`, id,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db sqlx.ExtContext) ([]model.Category, error) {
	categories := []model.Category{}
	err := sqlx.SelectContext(ctx, db, &categories,
		`SELECT id, name, description FROM categories ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category. It reports whether the category exists.
func UpdateCategory(ctx context.Context, db sqlx.ExtContext, id int64, name, description string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ? WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return false, fmt.Errorf("updating category: %w", err)
	}
	return rowsAffected(result)
}

// DeleteCategory deletes a category together with its definitions and their items.
func DeleteCategory(ctx context.Context, db sqlx.ExtContext, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting category: %w", err)
	}
	return rowsAffected(result)
}
