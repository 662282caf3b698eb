package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// shipment-request phrases a request so the extractor can read it.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("shipment-request",
			mcplib.WithPromptDescription("Ask for a shipment simulation for a product code and quantity"),
			mcplib.WithArgument("project",
				mcplib.ArgumentDescription("Project name or product code, e.g. 4CBTY2"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("quantity",
				mcplib.ArgumentDescription("Requested quantity in units; omit to use the profile's default"),
			),
		),
		s.handleShipmentRequestPrompt,
	)

	// assistant-setup explains the tools and how to present their output.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("assistant-setup",
			mcplib.WithPromptDescription("System prompt snippet for answering delivery-date questions with nouki"),
		),
		s.handleAssistantSetupPrompt,
	)
}

func (s *Server) handleShipmentRequestPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	project := request.Params.Arguments["project"]
	if project == "" {
		return nil, fmt.Errorf("project argument is required")
	}
	text := fmt.Sprintf("案件名: %s 出荷シミュレーション", project)
	if qty := request.Params.Arguments["quantity"]; qty != "" {
		text = fmt.Sprintf("案件名: %s %s台で出荷シミュレーション", project, qty)
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Shipment simulation for %s", project),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`CALL nouki_simulate with text=%q.

Then answer with:
- the ship date of the primary plan
- how the requested quantity differs from the usual lot, if it does
- which of the decision options you recommend and why

If "matched" is false in the summary, say that no fixture exists for this
product code and the figures come from the default profile.`, text),
				},
			},
		},
	}, nil
}

func (s *Server) handleAssistantSetupPrompt(_ context.Context, _ mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "nouki delivery-date workflow",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You can simulate shipment dates with nouki. All answers come from a fixed
table of reference profiles; nothing is looked up live.

## Tools

- nouki_simulate: full answer for a request text (narrative + JSON summary)
- nouki_extract: see which project name and quantity a text yields

## Resources

- nouki://profiles: every known product code in match order
- nouki://profiles/{key}: the full record for one code ("default" is the fallback)

## Phrasing requests

Put the product code after a marker such as 案件名: or プロジェクト名:, and the
quantity with a unit, for example "案件名: 4CBTY2 8台で出荷シミュレーション".
Requests without a recognizable project name are rejected with guidance.

## Presenting results

Quote the primary plan's ship date first. Mention alternatives only when the
user asked for options or the primary plan carries a risk note.`,
				},
			},
		},
	}, nil
}
