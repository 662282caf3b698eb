package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/nouki/internal/ctxutil"
	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

func (s *Server) registerTools() {
	// nouki_simulate runs the full pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("nouki_simulate",
			mcplib.WithDescription(`Simulate a shipment date for a free-form order request.

WHEN TO USE: A customer or colleague asks when an order can ship. Pass their
request text as-is; the project name (product code) and quantity are
extracted from it.

WHAT YOU GET BACK:
- the narrative answer in Japanese (reference data, primary plan,
  alternatives, similar past shipments, decision options)
- a compact JSON summary: matched profile key, ship date, quantity delta

If the text has no recognizable project name the tool fails with guidance
on how to phrase the request. Unknown product codes fall back to a default
profile; check "matched" in the summary.

EXAMPLE: text="案件名: 4CBTY2 8台で出荷シミュレーション"`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("text",
				mcplib.Description("The shipment request in natural language, e.g. 案件名: 4CBTY2 8台で出荷シミュレーション"),
				mcplib.Required(),
			),
		),
		s.handleSimulate,
	)

	// nouki_extract runs only the extractor.
	s.mcpServer.AddTool(
		mcplib.NewTool("nouki_extract",
			mcplib.WithDescription(`Extract the project name and quantity from a request without simulating.

WHEN TO USE: To check how a request will be read before calling
nouki_simulate. Either field may be null.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("text",
				mcplib.Description("The shipment request in natural language"),
				mcplib.Required(),
			),
		),
		s.handleExtract,
	)
}

func (s *Server) handleSimulate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text, msg := requestText(request)
	if msg != "" {
		return errorResult(msg), nil
	}

	result, err := s.sim.Simulate(ctx, text)
	if err != nil {
		if errors.Is(err, simulation.ErrNoProjectName) {
			return errorResult(simulation.GuidanceMessage), nil
		}
		s.logger.Error("mcp: simulate failed",
			"request_id", ctxutil.RequestIDFromContext(ctx),
			"error", err)
		return errorResult(fmt.Sprintf("simulation failed: %v", err)), nil
	}
	s.logger.Debug("mcp: simulate",
		"request_id", ctxutil.RequestIDFromContext(ctx),
		"matched_key", result.MatchedKey)
	return textResult(result.Narrative, marshalIndent(compactResult(result))), nil
}

func (s *Server) handleExtract(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text, msg := requestText(request)
	if msg != "" {
		return errorResult(msg), nil
	}
	return textResult(marshalIndent(s.sim.Extract(text))), nil
}

// requestText returns the validated text argument, or a message describing
// why it is unusable.
func requestText(request mcplib.CallToolRequest) (string, string) {
	text := request.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return "", "text is required"
	}
	if err := model.ValidateMessage(text); err != nil {
		return "", "text: " + err.Error()
	}
	return text, ""
}
