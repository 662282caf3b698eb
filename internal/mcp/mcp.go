// Package mcp implements the Model Context Protocol server for nouki.
//
// It exposes the shipment simulation pipeline and the profile table to
// MCP-compatible agents. Sessions and the manager proxy are HTTP-only.
package mcp

import (
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/nouki/internal/service/simulation"
)

// Server wraps the MCP server with nouki's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	sim       *simulation.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources, tools,
// and prompts.
func New(sim *simulation.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		sim:    sim,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"nouki",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func textResult(parts ...string) *mcplib.CallToolResult {
	content := make([]mcplib.Content, len(parts))
	for i, p := range parts {
		content[i] = mcplib.TextContent{Type: "text", Text: p}
	}
	return &mcplib.CallToolResult{Content: content}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func marshalIndent(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}
