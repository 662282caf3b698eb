package manager

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ashita-ai/nouki/internal/model"
)

var (
	//go:embed prompts/persona.md
	personaPrompt string
	//go:embed prompts/shipping_rules.md
	shippingRules string
	//go:embed prompts/production_calendar.md
	productionCalendar string
)

// ApologyMessage is the only failure text users ever see from the proxy.
const ApologyMessage = "申し訳ありません。現在応答を取得できませんでした。時間をおいて再度お試しください。"

var tracer = otel.Tracer("nouki/manager")

// SystemPrompt returns the persona prompt followed by both knowledge documents.
func SystemPrompt() string {
	return strings.Join([]string{
		strings.TrimSpace(personaPrompt),
		strings.TrimSpace(shippingRules),
		strings.TrimSpace(productionCalendar),
	}, "\n\n---\n\n")
}

// Proxy forwards manager-persona conversations to a Provider.
type Proxy struct {
	provider Provider
	system   string
	logger   *slog.Logger
}

// NewProxy creates a proxy. provider may be nil, in which case every call
// fails with ErrNotConfigured.
func NewProxy(provider Provider, logger *slog.Logger) *Proxy {
	return &Proxy{provider: provider, system: SystemPrompt(), logger: logger}
}

// ProviderName returns the configured provider's name, or "none".
func (p *Proxy) ProviderName() string {
	if p.provider == nil {
		return "none"
	}
	return p.provider.Name()
}

// Reply sends the conversation to the provider and returns the first
// choice's text. Errors are returned as-is so callers can tell a missing
// credential apart from an upstream failure.
func (p *Proxy) Reply(ctx context.Context, turns []model.ChatTurn) (string, error) {
	ctx, span := tracer.Start(ctx, "manager.reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("manager.provider", p.ProviderName()),
		attribute.Int("manager.turns", len(turns)),
	)

	if p.provider == nil {
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return "", ErrNotConfigured
	}

	start := time.Now()
	content, err := p.provider.Complete(ctx, p.system, turns)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	p.logger.Debug("manager: reply received",
		"provider", p.provider.Name(),
		"turns", len(turns),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// Answer is Reply with every failure collapsed into ApologyMessage. The
// cause is logged, never shown.
func (p *Proxy) Answer(ctx context.Context, turns []model.ChatTurn) string {
	content, err := p.Reply(ctx, turns)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrNotConfigured) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "manager: completion failed", "provider", p.ProviderName(), "error", err)
		return ApologyMessage
	}
	return content
}
