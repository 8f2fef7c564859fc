package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

// CreateQuickRemark stores a canned remark.
func CreateQuickRemark(ctx context.Context, db sqlx.ExtContext, content string) (*model.QuickRemark, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO quick_remarks (content) VALUES (?)`, content,
	)
	if err != nil {
		return nil, fmt.Errorf("creating quick remark: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting quick remark id: %w", err)
	}

	r := &model.QuickRemark{}
	err = sqlx.GetContext(ctx, db, r,
		`SELECT id, content, created_at FROM quick_remarks WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting quick remark: %w", err)
	}
	return r, nil
}

// ListQuickRemarks returns canned remarks, newest first.
func ListQuickRemarks(ctx context.Context, db sqlx.ExtContext) ([]model.QuickRemark, error) {
	remarks := []model.QuickRemark{}
	err := sqlx.SelectContext(ctx, db, &remarks,
		`SELECT id, content, created_at FROM quick_remarks ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quick remarks: %w", err)
	}
	return remarks, nil
}

// DeleteQuickRemark deletes a canned remark. It reports whether it existed.
func DeleteQuickRemark(ctx context.Context, db sqlx.ExtContext, id int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM quick_remarks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting quick remark: %w", err)
	}
	return rowsAffected(result)
}
