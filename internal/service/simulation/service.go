// Package simulation turns a free-form shipment request into a simulated
// delivery answer.
//
// The pipeline is extractor → matcher → narrative builder. Each stage is a
// pure function; Service only adds telemetry and the extraction-failure
// sentinel around them.
package simulation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/nouki/internal/fixture"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/telemetry"
)

// ErrNoProjectName is returned when the extractor finds no project name.
var ErrNoProjectName = errors.New("simulation: no project name in request")

// GuidanceMessage is shown to the user instead of a simulation when the
// request has no recognizable project name.
const GuidanceMessage = "案件名を読み取れませんでした。\n" +
	"「案件名: 4CBTY2 8台で出荷シミュレーション」のように、案件名(製品コード)と数量を入力してください。"

var tracer = otel.Tracer("nouki/simulation")

// Service runs the simulation pipeline against a fixture table.
type Service struct {
	table   *fixture.Table
	matcher *Matcher
	logger  *slog.Logger

	runs     metric.Int64Counter
	failures metric.Int64Counter
}

// New creates a simulation service.
func New(table *fixture.Table, logger *slog.Logger) *Service {
	meter := telemetry.Meter("nouki/simulation")
	// Instrument creation only fails on invalid names; fall back to no-ops.
	runs, err := meter.Int64Counter("nouki.simulation.count",
		metric.WithDescription("Simulations answered, by matched profile key"))
	if err != nil {
		logger.Warn("simulation: counter init failed", "error", err)
	}
	failures, err := meter.Int64Counter("nouki.simulation.extraction_failures",
		metric.WithDescription("Requests with no recognizable project name"))
	if err != nil {
		logger.Warn("simulation: counter init failed", "error", err)
	}
	return &Service{
		table:    table,
		matcher:  NewMatcher(table),
		logger:   logger,
		runs:     runs,
		failures: failures,
	}
}

// Table returns the fixture table the service reads from.
func (s *Service) Table() *fixture.Table {
	return s.table
}

// Extract runs only the extractor.
func (s *Service) Extract(text string) model.OrderInfo {
	return ExtractOrderInfo(text)
}

// Simulate runs the full pipeline. A missing project name yields
// ErrNoProjectName; a missing fixture match silently uses the default profile.
func (s *Service) Simulate(ctx context.Context, text string) (model.SimulationResult, error) {
	ctx, span := tracer.Start(ctx, "simulation.simulate")
	defer span.End()

	info := ExtractOrderInfo(text)
	if info.ProjectName == nil {
		if s.failures != nil {
			s.failures.Add(ctx, 1)
		}
		span.SetAttributes(attribute.Bool("simulation.extracted", false))
		return model.SimulationResult{}, ErrNoProjectName
	}

	key, profile, matched := s.matcher.Match(*info.ProjectName)
	result := BuildNarrative(*info.ProjectName, key, profile, info.Quantity)

	span.SetAttributes(
		attribute.Bool("simulation.extracted", true),
		attribute.String("simulation.matched_key", key),
		attribute.Bool("simulation.matched", matched),
	)
	if info.Quantity != nil {
		span.SetAttributes(attribute.Int("simulation.quantity", *info.Quantity))
	}
	if s.runs != nil {
		s.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("matched_key", key)))
	}

	s.logger.Debug("simulation answered",
		"project", result.ProjectName,
		"matched_key", key,
		"quantity_delta", result.QuantityDelta,
		"ship_date", result.ShipDate,
		"trace_id", traceID(ctx),
	)
	return result, nil
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
