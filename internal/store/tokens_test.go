package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/auditit/internal/db"
)

func TestRevokeAndCheckToken(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, database, "test-jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected token not to be revoked")
	}

	if err := RevokeToken(ctx, database, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, _ = IsTokenRevoked(ctx, database, "test-jti-1")
	if !revoked {
		t.Error("expected token to be revoked")
	}

	revoked, _ = IsTokenRevoked(ctx, database, "test-jti-2")
	if revoked {
		t.Error("expected different token not to be revoked")
	}
}

func TestRevokeTokenCleansExpired(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	RevokeToken(ctx, database, "old", time.Now().Add(-time.Hour))
	RevokeToken(ctx, database, "new", time.Now().Add(time.Hour))

	if revoked, _ := IsTokenRevoked(ctx, database, "old"); revoked {
		t.Error("expected expired revocation to be cleaned up")
	}
}

func TestGetJWTSecretStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}

	second, _ := GetJWTSecret(ctx, database)
	if first != second {
		t.Error("expected secret to be stable across calls")
	}
}
