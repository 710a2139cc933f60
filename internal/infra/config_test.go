package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig succeeded without DATABASE_URL")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedbot")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Errorf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.ScheduleBaseURL != "https://kis.vgltu.ru/schedule" {
		t.Errorf("ScheduleBaseURL = %q", cfg.ScheduleBaseURL)
	}
	if cfg.TelegramBaseURL != "https://api.telegram.org" {
		t.Errorf("TelegramBaseURL = %q", cfg.TelegramBaseURL)
	}
	if cfg.DefaultLocale != "ru" {
		t.Errorf("DefaultLocale = %q", cfg.DefaultLocale)
	}
	if cfg.RenderFormat != "text" {
		t.Errorf("RenderFormat = %q", cfg.RenderFormat)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v", cfg.TickInterval)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.BackoffBase != 30*time.Second || cfg.BackoffCap != 15*time.Minute {
		t.Errorf("backoff = %v/%v", cfg.BackoffBase, cfg.BackoffCap)
	}
	if cfg.LeaseDuration != 5*time.Minute {
		t.Errorf("LeaseDuration = %v", cfg.LeaseDuration)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedbot")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SCHEDULER_TICK_INTERVAL", "30s")
	t.Setenv("DISPATCHER_WORKERS", "8")
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "5")
	t.Setenv("RENDER_FORMAT", "photo")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "production" {
		t.Errorf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.TickInterval != 30*time.Second {
		t.Errorf("TickInterval = %v", cfg.TickInterval)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.RenderFormat != "photo" {
		t.Errorf("RenderFormat = %q", cfg.RenderFormat)
	}
}

func TestLoadConfigClampsAndFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/schedbot")
	t.Setenv("DISPATCHER_WORKERS", "0")
	t.Setenv("DELIVERY_MAX_ATTEMPTS", "-3")
	t.Setenv("SCHEDULER_TICK_INTERVAL", "soon")
	t.Setenv("JOB_LEASE_DURATION", "-5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("WorkerCount = %d, want clamp to 1", cfg.WorkerCount)
	}
	if cfg.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want clamp to 1", cfg.MaxAttempts)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v, want default on unparsable value", cfg.TickInterval)
	}
	if cfg.LeaseDuration != 5*time.Minute {
		t.Errorf("LeaseDuration = %v, want default on non-positive value", cfg.LeaseDuration)
	}
}
