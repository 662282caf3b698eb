package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "2.5")
	v, err := envFloat("TEST_FLOAT", 0)
	if err != nil || v != 2.5 {
		t.Fatalf("expected 2.5, got %v (%v)", v, err)
	}
	t.Setenv("TEST_FLOAT", "fast")
	if _, err := envFloat("TEST_FLOAT", 0); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
}

func TestEnvDurationInvalid(t *testing.T) {
	t.Setenv("TEST_DUR_BAD", "five-seconds")
	_, err := envDuration("TEST_DUR_BAD", 0)
	if err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
	if got := err.Error(); got != `TEST_DUR_BAD="five-seconds" is not a valid duration` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("NOUKI_PORT", "abc")
	t.Setenv("NOUKI_REPLY_DELAY_MIN", "soon")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with multiple invalid vars")
	}
	got := err.Error()
	for _, want := range []string{"NOUKI_PORT", "abc", "NOUKI_REPLY_DELAY_MIN"} {
		if !strings.Contains(got, want) {
			t.Fatalf("error should mention %s, got: %s", want, got)
		}
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.ManagerProvider != ProviderAuto {
		t.Fatalf("expected provider auto, got %q", cfg.ManagerProvider)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info level, got %s", cfg.SlogLevel())
	}
}

func TestLoadFixedDelay(t *testing.T) {
	t.Setenv("NOUKI_REPLY_DELAY_MIN", "1s")
	t.Setenv("NOUKI_REPLY_DELAY_MAX", "1s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ReplyDelayMin != time.Second || cfg.ReplyDelayMax != time.Second {
		t.Fatalf("expected fixed 1s delay, got %s..%s", cfg.ReplyDelayMin, cfg.ReplyDelayMax)
	}
}

func TestValidate(t *testing.T) {
	base, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Port = 70000 }, "NOUKI_PORT"},
		{"body size", func(c *Config) { c.MaxRequestBodyBytes = 0 }, "NOUKI_MAX_REQUEST_BODY_BYTES"},
		{"delay order", func(c *Config) { c.ReplyDelayMax = c.ReplyDelayMin - time.Millisecond }, "NOUKI_REPLY_DELAY_MAX"},
		{"provider", func(c *Config) { c.ManagerProvider = "anthropic" }, "NOUKI_MANAGER_PROVIDER"},
		{"rate limit", func(c *Config) { c.RateLimitRPS = 0 }, "NOUKI_RATE_LIMIT_RPS"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "NOUKI_LOG_LEVEL"},
		{"sessions", func(c *Config) { c.MaxSessions = 0 }, "NOUKI_MAX_SESSIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}

	disabled := base
	disabled.RateLimitEnabled = false
	disabled.RateLimitRPS = 0
	if err := disabled.Validate(); err != nil {
		t.Fatalf("rate limit settings are ignored when disabled: %v", err)
	}
}
