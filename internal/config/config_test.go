package config

import "testing"

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			File:    FileConfig{Path: "data/pizza-index.json"},
		},
		Scheduler: SchedulerConfig{Interval: 1},
		Upstream:  UpstreamConfig{URL: "https://example.com/locations"},
		Export:    ExportConfig{MaxDataPoints: 100},
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config should pass: %v", err)
	}
}

func TestValidateBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}

	cfg = validConfig()
	cfg.Storage.Backend = BackendPostgres
	cfg.Storage.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres backend without dsn should fail validation")
	}

	cfg.Storage.Database.DSN = "postgres://localhost/pizza"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("postgres backend with dsn should pass: %v", err)
	}
}

func TestValidateTelegram(t *testing.T) {
	cfg := validConfig()
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram enabled without credentials should fail validation")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults should succeed: %v", err)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("default backend should be file, got %q", cfg.Storage.Backend)
	}
	if cfg.Scheduler.Interval <= 0 {
		t.Fatal("default interval should be positive")
	}
}
