package mcp

import (
	"context"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	profilesURI      = "nouki://profiles"
	profileURIPrefix = profilesURI + "/"
	profileTemplate  = profilesURI + "/{key}"
	jsonMIMEType     = "application/json"
)

func (s *Server) registerResources() {
	// nouki://profiles lists every profile key with its primary ship date.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			profilesURI,
			"Simulation Profiles",
			mcplib.WithResourceDescription("Product codes with fixture data, in match order, followed by the default profile"),
			mcplib.WithMIMEType(jsonMIMEType),
		),
		s.handleProfiles,
	)

	// nouki://profiles/{key} is the full fixture record for one key.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			profileTemplate,
			"Simulation Profile",
			mcplib.WithTemplateDescription("Reference data, plans, history, and schedule for one product code. Use key \"default\" for the fallback profile."),
			mcplib.WithTemplateMIMEType(jsonMIMEType),
		),
		s.handleProfile,
	)
}

func (s *Server) handleProfiles(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      profilesURI,
			MIMEType: jsonMIMEType,
			Text:     marshalIndent(s.sim.Table().Summaries()),
		},
	}, nil
}

func (s *Server) handleProfile(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	key, err := parseProfileURI(uri)
	if err != nil {
		return nil, err
	}
	p, ok := s.sim.Table().Lookup(key)
	if !ok {
		return nil, fmt.Errorf("mcp: unknown profile %q", key)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     marshalIndent(p),
		},
	}, nil
}

// parseProfileURI extracts the key from nouki://profiles/{key}.
func parseProfileURI(uri string) (string, error) {
	key, ok := strings.CutPrefix(uri, profileURIPrefix)
	if !ok {
		return "", fmt.Errorf("mcp: invalid profile URI: %s", uri)
	}
	if key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("mcp: invalid profile URI: %s: empty or nested key", uri)
	}
	return key, nil
}
