package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_Integration_UpDownUp(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	versionAfterUp, countAfterUp, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("status after up: %v", err)
	}
	if countAfterUp == 0 {
		t.Fatal("expected applied migrations after up")
	}

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}

	_, countAfterDown, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("status after down: %v", err)
	}
	if countAfterDown != countAfterUp-1 {
		t.Fatalf("expected one migration rolled back, got %d -> %d", countAfterUp, countAfterDown)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up again: %v", err)
	}

	versionFinal, countFinal, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("final status: %v", err)
	}
	if versionFinal != versionAfterUp || countFinal != countAfterUp {
		t.Fatalf("expected schema to converge, got version=%d count=%d", versionFinal, countFinal)
	}
}
