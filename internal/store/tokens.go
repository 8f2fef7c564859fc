package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokeToken adds a token's JTI to the revocation list and drops
// revocations whose tokens have expired anyway.
func RevokeToken(ctx context.Context, db sqlx.ExtContext, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	_, _ = db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().UTC(),
	)

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, db sqlx.ExtContext, jti string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, db, &count,
		`SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti,
	)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}
