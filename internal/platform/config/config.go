package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// DefaultAbsenceSweepSchedule fires shortly after midnight Tuesday to
// Saturday, so each run covers the Monday to Friday that just ended.
const DefaultAbsenceSweepSchedule = "5 0 * * 2-6"

type Config struct {
	Addr                       string
	AppBaseURL                 string
	DatabaseURL                string
	RedisURL                   string
	JWTSecret                  string
	TokenTTL                   time.Duration
	DataEncryptionKey          string
	Environment                string
	LogLevel                   string
	SeedTenantName             string
	SeedAdminEmail             string
	SeedAdminPassword          string
	EmailFrom                  string
	EmailEnabled               bool
	SMTPHost                   string
	SMTPPort                   int
	SMTPUser                   string
	SMTPPassword               string
	SMTPUseTLS                 bool
	RunMigrations              bool
	RunSeed                    bool
	RunScheduler               bool
	MaxBodyBytes               int64
	RateLimitPerMinute         int
	WorkDayStart               string
	WorkDayEnd                 string
	WorkTimezone               string
	AbsenceSweepSchedule       string
	SessionCleanupSchedule     string
	LatenessDeductionPerMinute string
	TaxRatePercent             string
	MetricsEnabled             bool
}

// Load reads the process environment, after merging a .env file when one
// exists in the working directory.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}
	return Config{
		Addr:                       getEnv("APP_ADDR", ":8080"),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		RedisURL:                   getEnv("REDIS_URL", ""),
		JWTSecret:                  getEnv("JWT_SECRET", ""),
		TokenTTL:                   getEnvDuration("TOKEN_TTL", 8*time.Hour),
		DataEncryptionKey:          getEnv("DATA_ENCRYPTION_KEY", ""),
		Environment:                getEnv("APP_ENV", "development"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		SeedTenantName:             getEnv("SEED_TENANT_NAME", "Default Tenant"),
		SeedAdminEmail:             getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:          getEnv("SEED_ADMIN_PASSWORD", ""),
		EmailFrom:                  getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:               getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:                   getEnv("SMTP_HOST", ""),
		SMTPPort:                   getEnvInt("SMTP_PORT", 587),
		SMTPUser:                   getEnv("SMTP_USER", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:                 getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:              getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                    getEnvBool("RUN_SEED", true),
		RunScheduler:               getEnvBool("RUN_SCHEDULER", true),
		MaxBodyBytes:               int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:         getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		WorkDayStart:               getEnv("WORK_DAY_START", "09:00"),
		WorkDayEnd:                 getEnv("WORK_DAY_END", "17:00"),
		WorkTimezone:               getEnv("WORK_TIMEZONE", "UTC"),
		AbsenceSweepSchedule:       getEnv("ABSENCE_SWEEP_SCHEDULE", DefaultAbsenceSweepSchedule),
		SessionCleanupSchedule:     getEnv("SESSION_CLEANUP_SCHEDULE", "@hourly"),
		LatenessDeductionPerMinute: getEnv("LATENESS_DEDUCTION_PER_MINUTE", "0"),
		TaxRatePercent:             getEnv("TAX_RATE_PERCENT", "0"),
		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves WorkTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.WorkTimezone))
	if err != nil || c.WorkTimezone == "" {
		return time.UTC
	}
	return loc
}

func (c Config) LatenessRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.LatenessDeductionPerMinute))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c Config) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRatePercent))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if _, err := parseClock(c.WorkDayStart); err != nil {
		return fmt.Errorf("WORK_DAY_START: %w", err)
	}
	if _, err := parseClock(c.WorkDayEnd); err != nil {
		return fmt.Errorf("WORK_DAY_END: %w", err)
	}
	if _, err := time.LoadLocation(c.WorkTimezone); err != nil {
		return fmt.Errorf("WORK_TIMEZONE: %w", err)
	}
	if c.RunScheduler {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.AbsenceSweepSchedule); err != nil {
			return fmt.Errorf("ABSENCE_SWEEP_SCHEDULE: %w", err)
		}
		if _, err := parser.Parse(c.SessionCleanupSchedule); err != nil {
			return fmt.Errorf("SESSION_CLEANUP_SCHEDULE: %w", err)
		}
	}
	if c.LatenessRate().IsNegative() {
		return fmt.Errorf("LATENESS_DEDUCTION_PER_MINUTE must not be negative")
	}
	if rate := c.TaxRate(); rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("TAX_RATE_PERCENT must be between 0 and 100")
	}
	return nil
}

func parseClock(value string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(value))
}
