package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	BotToken        string
	TelegramBaseURL string
	ScheduleBaseURL string
	AdminToken      string
	GeoIPDBPath     string
	DefaultLocale   string
	RenderFormat    string

	// Scheduler / dispatcher tuning. Correctness does not depend on these
	// values; they are exposed instead of hardcoded.
	TickInterval  time.Duration
	PollInterval  time.Duration
	WorkerCount   int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
	LeaseDuration time.Duration
	FetchTimeout  time.Duration
	RenderTimeout time.Duration
	SendTimeout   time.Duration
	CacheTTL      time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		BotToken:        os.Getenv("BOT_TOKEN"),
		TelegramBaseURL: getEnv("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		ScheduleBaseURL: getEnv("SCHEDULE_BASE_URL", "https://kis.vgltu.ru/schedule"),
		AdminToken:      os.Getenv("ADMIN_TOKEN"),
		GeoIPDBPath:     os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "ru"),
		RenderFormat:    getEnv("RENDER_FORMAT", "text"),

		TickInterval:  getEnvDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
		PollInterval:  getEnvDuration("DISPATCHER_POLL_INTERVAL", 2*time.Second),
		WorkerCount:   getEnvInt("DISPATCHER_WORKERS", 4),
		MaxAttempts:   getEnvInt("DELIVERY_MAX_ATTEMPTS", 3),
		BackoffBase:   getEnvDuration("DELIVERY_BACKOFF_BASE", 30*time.Second),
		BackoffCap:    getEnvDuration("DELIVERY_BACKOFF_CAP", 15*time.Minute),
		LeaseDuration: getEnvDuration("JOB_LEASE_DURATION", 5*time.Minute),
		FetchTimeout:  getEnvDuration("FETCH_TIMEOUT", 12*time.Second),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 10*time.Second),
		SendTimeout:   getEnvDuration("SEND_TIMEOUT", 30*time.Second),
		CacheTTL:      getEnvDuration("SCHEDULE_CACHE_TTL", 10*time.Minute),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
