// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Manager provider names accepted by NOUKI_MANAGER_PROVIDER.
const (
	ProviderAuto   = "auto"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Chat settings.
	ReplyDelayMin      time.Duration // Artificial delay before a simulation reply.
	ReplyDelayMax      time.Duration // Upper bound; equal to min for a fixed delay.
	MaxSessions        int
	SessionIdleTimeout time.Duration

	// Manager persona settings.
	ManagerProvider string // "auto", "openai", "ollama", "gemini", or "none"
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ManagerModel    string
	OllamaURL       string
	OllamaModel     string
	GeminiAPIKey    string
	GeminiModel     string

	// Rate limiting (per client IP).
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.
}

// Load reads configuration from environment variables with sensible defaults.
// Every malformed variable is reported, not just the first.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Port:                l.intVar("NOUKI_PORT", 8080),
		ReadTimeout:         l.durationVar("NOUKI_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        l.durationVar("NOUKI_WRITE_TIMEOUT", 90*time.Second),
		ShutdownTimeout:     l.durationVar("NOUKI_SHUTDOWN_TIMEOUT", 10*time.Second),
		ReplyDelayMin:       l.durationVar("NOUKI_REPLY_DELAY_MIN", 800*time.Millisecond),
		ReplyDelayMax:       l.durationVar("NOUKI_REPLY_DELAY_MAX", 1600*time.Millisecond),
		MaxSessions:         l.intVar("NOUKI_MAX_SESSIONS", 1000),
		SessionIdleTimeout:  l.durationVar("NOUKI_SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ManagerProvider:     strings.ToLower(envStr("NOUKI_MANAGER_PROVIDER", ProviderAuto)),
		OpenAIAPIKey:        envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       envStr("NOUKI_OPENAI_BASE_URL", ""),
		ManagerModel:        envStr("NOUKI_MANAGER_MODEL", "gpt-4o-mini"),
		OllamaURL:           envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:         envStr("OLLAMA_MODEL", "qwen2.5:3b"),
		GeminiAPIKey:        envStr("GEMINI_API_KEY", ""),
		GeminiModel:         envStr("GEMINI_MODEL", "gemini-2.5-flash"),
		RateLimitEnabled:    l.boolVar("NOUKI_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:        l.floatVar("NOUKI_RATE_LIMIT_RPS", 5),
		RateLimitBurst:      l.intVar("NOUKI_RATE_LIMIT_BURST", 20),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        l.boolVar("NOUKI_OTEL_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "nouki"),
		LogLevel:            envStr("NOUKI_LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(l.intVar("NOUKI_MAX_REQUEST_BODY_BYTES", 64*1024)),
	}
	if len(l.errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(l.errs...))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: NOUKI_PORT must be between 1 and 65535")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: NOUKI_MAX_REQUEST_BODY_BYTES must be positive")
	}
	if c.ReplyDelayMin < 0 {
		return fmt.Errorf("config: NOUKI_REPLY_DELAY_MIN must not be negative")
	}
	if c.ReplyDelayMax < c.ReplyDelayMin {
		return fmt.Errorf("config: NOUKI_REPLY_DELAY_MAX (%s) is below NOUKI_REPLY_DELAY_MIN (%s)", c.ReplyDelayMax, c.ReplyDelayMin)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("config: NOUKI_MAX_SESSIONS must be positive")
	}
	switch c.ManagerProvider {
	case ProviderAuto, ProviderOpenAI, ProviderOllama, ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("config: NOUKI_MANAGER_PROVIDER %q is not one of auto, openai, ollama, gemini, none", c.ManagerProvider)
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: NOUKI_RATE_LIMIT_RPS and NOUKI_RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: NOUKI_LOG_LEVEL: %w", err)
	}
	return nil
}

// SlogLevel returns the configured log level. Validate guarantees it parses.
func (c Config) SlogLevel() slog.Level {
	lvl, _ := ParseLogLevel(c.LogLevel)
	return lvl
}

// ParseLogLevel maps debug/info/warn/error onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%q is not a valid log level", s)
	}
	return lvl, nil
}

// loader collects parse errors so Load can report all of them at once.
type loader struct {
	errs []error
}

func (l *loader) intVar(key string, defaultVal int) int {
	v, err := envInt(key, defaultVal)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) boolVar(key string, defaultVal bool) bool {
	v, err := envBool(key, defaultVal)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) floatVar(key string, defaultVal float64) float64 {
	v, err := envFloat(key, defaultVal)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func (l *loader) durationVar(key string, defaultVal time.Duration) time.Duration {
	v, err := envDuration(key, defaultVal)
	if err != nil {
		l.errs = append(l.errs, err)
	}
	return v
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
