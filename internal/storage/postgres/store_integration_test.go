package postgres

import (
	"context"
	"testing"
	"time"
)

func TestStore_Integration_PingAndMigrationStatus(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version < 1 || count < 1 {
		t.Fatalf("expected at least one applied migration, got version=%d count=%d", version, count)
	}
}
