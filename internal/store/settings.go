package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetJWTSecret returns the signing secret stored in the database, generating
// and storing one on first use. INSERT OR IGNORE followed by a re-read keeps
// concurrent first starts on the same secret.
func GetJWTSecret(ctx context.Context, db sqlx.ExtContext) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('jwt_secret', ?)`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = sqlx.GetContext(ctx, db, &secret,
		`SELECT value FROM settings WHERE key = 'jwt_secret'`,
	)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}
