package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:                "postgres://localhost/hrdesk",
		MaxBodyBytes:               1048576,
		RateLimitPerMinute:         60,
		WorkDayStart:               "09:00",
		WorkDayEnd:                 "17:00",
		WorkTimezone:               "UTC",
		AbsenceSweepSchedule:       DefaultAbsenceSweepSchedule,
		SessionCleanupSchedule:     "@hourly",
		RunScheduler:               true,
		LatenessDeductionPerMinute: "0.5",
		TaxRatePercent:             "10",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: true},
		{name: "production without secret", mutate: func(c *Config) { c.Environment = "production" }, wantErr: true},
		{name: "bad clock", mutate: func(c *Config) { c.WorkDayStart = "9am" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.WorkTimezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad cron", mutate: func(c *Config) { c.AbsenceSweepSchedule = "every day" }, wantErr: true},
		{name: "cron ignored when scheduler off", mutate: func(c *Config) {
			c.RunScheduler = false
			c.AbsenceSweepSchedule = "every day"
		}},
		{name: "tax above 100", mutate: func(c *Config) { c.TaxRatePercent = "101" }, wantErr: true},
		{name: "negative lateness", mutate: func(c *Config) { c.LatenessDeductionPerMinute = "-1" }, wantErr: true},
		{name: "email without host", mutate: func(c *Config) { c.EmailEnabled = true }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("RUN_SEED", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg := Load()
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr override, got %s", cfg.Addr)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.TokenTTL)
	}
	if cfg.RunSeed {
		t.Fatal("expected RUN_SEED=false")
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.RateLimitPerMinute)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{WorkTimezone: "Nowhere/Unknown"}
	if cfg.Location() != time.UTC {
		t.Fatal("expected UTC fallback")
	}
}
