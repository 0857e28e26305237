package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "DB_BUSY_TIMEOUT", "GATEWAY_QUEUE_SIZE", "QUOTA_RETENTION_DAYS", "MAINTENANCE_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "market.db" || cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.Gateway.QueueSize != 1024 || cfg.Maintenance.QuotaRetentionDays != 7 || !cfg.Maintenance.Enabled {
		t.Errorf("Unexpected defaults %+v %+v", cfg.Gateway, cfg.Maintenance)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("GATEWAY_QUEUE_SIZE", "16")
	t.Setenv("MAINTENANCE_INTERVAL", "10m")
	t.Setenv("MAINTENANCE_ENABLED", "false")
	t.Setenv("MARKET_TIMEZONE", "Europe/Brussels")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/test.db" || cfg.Gateway.QueueSize != 16 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.Maintenance.Interval != 10*time.Minute || cfg.Maintenance.Enabled {
		t.Errorf("Unexpected maintenance config %+v", cfg.Maintenance)
	}
	if cfg.Market.Timezone != "Europe/Brussels" {
		t.Errorf("Expected timezone override, got %q", cfg.Market.Timezone)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DB_PING_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("Expected an invalid duration to fail")
	}
}
