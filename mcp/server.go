// Package mcp exposes ticket triage and knowledge base search as Model
// Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/ai-triage/pkg/logging"
	"github.com/sweetpotato0/ai-triage/retrieval"
	"github.com/sweetpotato0/ai-triage/service"
	"github.com/sweetpotato0/ai-triage/ticket"
)

// Tool names.
const (
	ToolTriageTicket = "triage_ticket"
	ToolSearchKB     = "search_knowledge_base"
)

// Triager submits tickets for processing.
type Triager interface {
	Submit(ctx context.Context, req service.CreateRequest) (*service.Resolution, error)
}

// Searcher queries the knowledge base.
type Searcher interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) ([]ticket.KBDocument, error)
}

type triageArgs struct {
	Title       string `json:"title" jsonschema:"Short summary of the problem (5 to 200 characters)"`
	Description string `json:"description" jsonschema:"Full description of the problem (at least 10 characters)"`
	UserEmail   string `json:"user_email" jsonschema:"Email address of the customer"`
	Category    string `json:"category,omitempty" jsonschema:"Optional category supplied by the customer"`
}

type searchArgs struct {
	Query         string  `json:"query" jsonschema:"Free text to search for"`
	TopK          int     `json:"top_k,omitempty" jsonschema:"Maximum number of documents, defaults to 5"`
	MinSimilarity float64 `json:"min_similarity,omitempty" jsonschema:"Minimum cosine similarity between 0 and 1, defaults to 0.7"`
	Intent        string  `json:"intent,omitempty" jsonschema:"Optional intent category used to filter documents, e.g. password_reset"`
}

type searchResult struct {
	Query     string              `json:"query"`
	Documents []ticket.KBDocument `json:"documents"`
	Count     int                 `json:"count"`
}

// NewServer builds the MCP server. Either dependency may be nil, in which
// case its tool is not registered.
func NewServer(version string, tickets Triager, kb Searcher, logger *slog.Logger) *sdkmcp.Server {
	if logger == nil {
		logger = logging.WithComponent("mcp")
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "ai-triage",
		Title:   "Support ticket triage",
		Version: version,
	}, nil)

	if tickets != nil {
		addTriageTool(server, tickets, logger)
	}
	if kb != nil {
		addSearchTool(server, kb, logger)
	}
	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, nil)
}

// ServeStdio runs server on stdin/stdout until ctx is done or the client
// disconnects.
func ServeStdio(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

func addTriageTool(server *sdkmcp.Server, tickets Triager, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolTriageTicket,
		Description: "Create a support ticket, classify it, search the knowledge base and draft a reply. Reports whether a human must review the draft.",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a triageArgs) (*sdkmcp.CallToolResult, any, error) {
		logger.InfoContext(ctx, "tool call", "tool", ToolTriageTicket)
		res, err := tickets.Submit(ctx, service.CreateRequest{
			Title:       a.Title,
			Description: a.Description,
			UserEmail:   a.UserEmail,
			Category:    a.Category,
		})
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(res)
	})
}

func addSearchTool(server *sdkmcp.Server, kb Searcher, logger *slog.Logger) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolSearchKB,
		Description: "Search the support knowledge base and return the most similar articles with their scores.",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a searchArgs) (*sdkmcp.CallToolResult, any, error) {
		query := strings.TrimSpace(a.Query)
		if query == "" {
			return nil, nil, fmt.Errorf("query is required")
		}
		if a.MinSimilarity < 0 || a.MinSimilarity > 1 {
			return nil, nil, fmt.Errorf("min_similarity must be between 0 and 1, got %v", a.MinSimilarity)
		}
		logger.InfoContext(ctx, "tool call", "tool", ToolSearchKB, "top_k", a.TopK)

		opts := retrieval.DefaultOptions()
		if a.TopK > 0 {
			opts.TopK = a.TopK
		}
		if a.MinSimilarity > 0 {
			opts.MinSimilarity = a.MinSimilarity
		}
		opts.Intent = ticket.Intent(a.Intent)

		docs, err := kb.Retrieve(ctx, query, opts)
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(searchResult{Query: query, Documents: docs, Count: len(docs)})
	})
}

// jsonResult returns v both as structured content and as a JSON text block.
func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		StructuredContent: json.RawMessage(data),
	}, nil, nil
}
