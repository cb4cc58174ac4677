package app

import "testing"

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AdminAddr != ":8080" {
		t.Errorf("expected AdminAddr :8080, got %s", cfg.AdminAddr)
	}
	if cfg.PublicAddr != ":8081" {
		t.Errorf("expected PublicAddr :8081, got %s", cfg.PublicAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.OutboxPollInterval <= 0 {
		t.Error("expected OutboxPollInterval to be > 0")
	}
	if cfg.OutboxBatchSize <= 0 {
		t.Error("expected OutboxBatchSize to be > 0")
	}
	if cfg.OutboxMaxAttempts <= 0 {
		t.Error("expected OutboxMaxAttempts to be > 0")
	}
	if cfg.OutboxRetryDelay < 0 {
		t.Error("expected OutboxRetryDelay to be >= 0")
	}
	if cfg.KafkaBrokers != "" {
		t.Errorf("expected empty KafkaBrokers by default, got %s", cfg.KafkaBrokers)
	}
}

func TestConfig_Copy(t *testing.T) {
	original := DefaultConfig()
	clone := original

	clone.AdminAddr = ":8090"

	if original.AdminAddr != ":8080" {
		t.Error("original config was modified")
	}
	if clone.AdminAddr != ":8090" {
		t.Error("copy was not modified")
	}
}
