package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port         string   `mapstructure:"PORT"`
	Env          string   `mapstructure:"ENV"`
	DatabaseURL  string   `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32    `mapstructure:"DB_MIN_CONNS"`
	AutoMigrate  bool     `mapstructure:"AUTO_MIGRATE"`
	RedisURL     string   `mapstructure:"REDIS_URL"`
	RedisChannel string   `mapstructure:"REDIS_CHANNEL"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	PhoneRegion string `mapstructure:"PHONE_REGION"`

	// Triage policy. A score strictly above HighThreshold is HIGH/SENIOR,
	// strictly above MediumThreshold is MEDIUM, anything else LOW.
	HighThreshold   float64 `mapstructure:"TRIAGE_HIGH_THRESHOLD"`
	MediumThreshold float64 `mapstructure:"TRIAGE_MEDIUM_THRESHOLD"`

	MinutesPerPatient    int     `mapstructure:"MINUTES_PER_PATIENT"`
	AgingPerMinute       float64 `mapstructure:"QUEUE_AGING_PER_MINUTE"`
	DashboardPollSeconds int     `mapstructure:"DASHBOARD_POLL_SECONDS"`
	HistoryLimit         int     `mapstructure:"HISTORY_LIMIT"`

	RiskScorerURL       string        `mapstructure:"RISK_SCORER_URL"`
	SummaryURL          string        `mapstructure:"SUMMARY_URL"`
	CollaboratorTimeout time.Duration `mapstructure:"COLLABORATOR_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "AUTO_MIGRATE",
	"REDIS_URL", "REDIS_CHANNEL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"JWT_SECRET", "SESSION_TTL",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"PHONE_REGION",
	"TRIAGE_HIGH_THRESHOLD", "TRIAGE_MEDIUM_THRESHOLD",
	"MINUTES_PER_PATIENT", "QUEUE_AGING_PER_MINUTE", "DASHBOARD_POLL_SECONDS", "HISTORY_LIMIT",
	"RISK_SCORER_URL", "SUMMARY_URL", "COLLABORATOR_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REDIS_CHANNEL", "queue:events")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("PHONE_REGION", "IN")
	v.SetDefault("TRIAGE_HIGH_THRESHOLD", 0.7)
	v.SetDefault("TRIAGE_MEDIUM_THRESHOLD", 0.4)
	v.SetDefault("MINUTES_PER_PATIENT", 8)
	v.SetDefault("QUEUE_AGING_PER_MINUTE", 0)
	v.SetDefault("DASHBOARD_POLL_SECONDS", 5)
	v.SetDefault("HISTORY_LIMIT", 3)
	v.SetDefault("COLLABORATOR_TIMEOUT", "3s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PollInterval is how often dashboards are told to re-read their queue.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.DashboardPollSeconds) * time.Second
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.MediumThreshold < 0 || c.HighThreshold > 1 || c.MediumThreshold >= c.HighThreshold {
		return fmt.Errorf("triage thresholds must satisfy 0 <= TRIAGE_MEDIUM_THRESHOLD < TRIAGE_HIGH_THRESHOLD <= 1, got %.2f and %.2f",
			c.MediumThreshold, c.HighThreshold)
	}
	if c.MinutesPerPatient <= 0 {
		return fmt.Errorf("MINUTES_PER_PATIENT must be positive, got %d", c.MinutesPerPatient)
	}
	if c.AgingPerMinute < 0 {
		return fmt.Errorf("QUEUE_AGING_PER_MINUTE must not be negative, got %v", c.AgingPerMinute)
	}
	if c.DashboardPollSeconds <= 0 {
		return fmt.Errorf("DASHBOARD_POLL_SECONDS must be positive, got %d", c.DashboardPollSeconds)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit)
	}
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is %q", c.Env)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}
