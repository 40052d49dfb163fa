package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	uriScheme = "concierge://"

	// defaultUnresolved is how many refused queries the static resource lists.
	defaultUnresolved = 20
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "index",
		Name:        "index",
		Description: "Metadata of the live index snapshot",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "unresolved",
		Name:        "unresolved",
		Description: "Recent questions that were declined",
		MIMEType:    "application/json",
	}, s.handleUnresolvedResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "unresolved/{limit}",
		Name:        "unresolved-limit",
		Description: "The given number of recent declined questions",
		MIMEType:    "application/json",
	}, s.handleUnresolvedResource)
}

// handleIndexResource returns the live snapshot's metadata.
func (s *Server) handleIndexResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	meta, err := s.ports.Index.Info()
	if err != nil {
		return nil, fmt.Errorf("reading index info: %w", err)
	}
	return jsonResult(req.Params.URI, meta)
}

// handleUnresolvedResource returns recently declined questions.
func (s *Server) handleUnresolvedResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Stats == nil {
		return jsonResult(req.Params.URI, []any{})
	}

	limit, ok := extractLimit(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	queries, err := s.ports.Stats.Unresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unresolved queries: %w", err)
	}
	return jsonResult(req.Params.URI, queries)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractLimit reads the limit from concierge://unresolved/{limit}. The bare
// resource uses the default.
func extractLimit(uri string) (int, bool) {
	const base = uriScheme + "unresolved"

	if uri == base {
		return defaultUnresolved, true
	}
	rest, found := strings.CutPrefix(uri, base+"/")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
