package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/auditit/internal/model"
)

const userColumns = `id, name, dingtalk_id, password_hash, role, created_at`

// CreateUser creates a local account with a password hash.
func CreateUser(ctx context.Context, db sqlx.ExtContext, name, passwordHash, role string) (*model.User, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, password_hash, role) VALUES (?, ?, ?, ?)`,
		id.String(), name, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// UpsertDingTalkUser creates or refreshes the user bound to a DingTalk id.
// The display name is always refreshed; the role is only ever raised to admin,
// never lowered, so local role changes survive the next login.
func UpsertDingTalkUser(ctx context.Context, db sqlx.ExtContext, dingTalkID, name, role string) (*model.User, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, dingtalk_id, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT (dingtalk_id) WHERE dingtalk_id IS NOT NULL DO UPDATE
		 SET name = excluded.name,
		     role = CASE WHEN excluded.role = 'admin' THEN 'admin' ELSE users.role END`,
		uuid.New().String(), name, dingTalkID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting dingtalk user: %w", err)
	}

	return GetUserByDingTalkID(ctx, db, dingTalkID)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db sqlx.ExtContext, id uuid.UUID) (*model.User, error) {
	return getUser(ctx, db, `id = ?`, id.String())
}

// GetUserByName returns the local account with the given name.
func GetUserByName(ctx context.Context, db sqlx.ExtContext, name string) (*model.User, error) {
	return getUser(ctx, db, `name = ? AND password_hash IS NOT NULL`, name)
}

// GetUserByDingTalkID returns the user bound to a DingTalk id.
func GetUserByDingTalkID(ctx context.Context, db sqlx.ExtContext, dingTalkID string) (*model.User, error) {
	return getUser(ctx, db, `dingtalk_id = ?`, dingTalkID)
}

func getUser(ctx context.Context, db sqlx.ExtContext, where string, arg any) (*model.User, error) {
	u := &model.User{}
	err := sqlx.GetContext(ctx, db, u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by name.
func ListUsers(ctx context.Context, db sqlx.ExtContext) ([]model.User, error) {
	users := []model.User{}
	err := sqlx.SelectContext(ctx, db, &users,
		`SELECT `+userColumns+` FROM users ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role. It reports whether the user exists.
func UpdateUserRole(ctx context.Context, db sqlx.ExtContext, id uuid.UUID, role string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, id.String(),
	)
	if err != nil {
		return false, fmt.Errorf("updating user role: %w", err)
	}
	return rowsAffected(result)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db sqlx.ExtContext, id uuid.UUID, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id.String(),
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}
