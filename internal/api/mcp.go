package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/trends"
)

// MCPGenerator abstracts the generation pipeline for the MCP layer.
type MCPGenerator interface {
	Generate(ctx context.Context, prompt string, dryRun bool) (string, error)
}

// MCPDeps holds dependencies for the MCP server. Generator may be nil, in
// which case preview_post returns the assembled prompt without model output.
type MCPDeps struct {
	Orchestrator *content.Orchestrator
	Generator    MCPGenerator
	Trends       trends.Provider
	Store        AnalyticsReader
}

// NewMCPServer creates an MCP server exposing the bot's content tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"quill",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("quill — persona-driven social post composer with trend awareness."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("preview_post",
			mcp.WithDescription("Assemble a post prompt from a persona, strategy and topic, and preview the result without publishing."),
			mcp.WithString("persona", mcp.Description("Persona ID (omit for a random persona)")),
			mcp.WithString("strategy", mcp.Description("Strategy ID (omit for a context-matched strategy)")),
			mcp.WithString("topic", mcp.Description("Topic to write about (omit to pull from trends)")),
			mcp.WithBoolean("use_trends", mcp.Description("Enrich the prompt with trending topics (default true)")),
		),
		mcpPreviewPost(deps),
	)

	s.AddTool(
		mcp.NewTool("trend_snapshot",
			mcp.WithDescription("Return the current trending-topic context grouped by interest area."),
		),
		mcpTrendSnapshot(deps),
	)

	s.AddTool(
		mcp.NewTool("bot_analytics",
			mcp.WithDescription("Return posting counters, recent errors and API usage."),
		),
		mcpBotAnalytics(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"quill://options",
			"Content Options",
			mcp.WithResourceDescription("Available personas, traits, strategies and rules as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceOptions(deps),
	)

	return s
}

func mcpPreviewPost(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		useTrends := req.GetBool("use_trends", true)
		topic := req.GetString("topic", "")

		generated, err := deps.Orchestrator.Generate(ctx, content.Request{
			PersonaID:         req.GetString("persona", ""),
			StrategyID:        req.GetString("strategy", ""),
			Context:           &content.RequestContext{Topic: topic, Goal: "engagement", Tone: "mixed"},
			UseTrendingTopics: useTrends,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("assembling prompt: %v", err)), nil
		}

		text := ""
		if deps.Generator != nil {
			text, err = deps.Generator.Generate(ctx, generated.Prompt, true)
			if err != nil {
				return mcpError(fmt.Sprintf("generating preview: %v", err)), nil
			}
		}

		type preview struct {
			Persona       string  `json:"persona"`
			Strategy      string  `json:"strategy"`
			Effectiveness float64 `json:"effectiveness"`
			Prompt        string  `json:"prompt"`
			Text          string  `json:"text,omitempty"`
		}
		b, err := json.Marshal(preview{
			Persona:       generated.Persona.Name,
			Strategy:      generated.Strategy.Name,
			Effectiveness: generated.Metadata.EstimatedEffectiveness,
			Prompt:        generated.Prompt,
			Text:          text,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("marshaling preview: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrendSnapshot(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Trends == nil {
			return mcpError("no trend provider configured"), nil
		}
		tc, err := deps.Trends.TrendContext(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching trends: %v", err)), nil
		}
		b, err := json.Marshal(tc)
		if err != nil {
			return mcpError(fmt.Sprintf("marshaling trends: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpBotAnalytics(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Store == nil {
			return mcpError("no analytics store configured"), nil
		}
		snap, err := deps.Store.Snapshot()
		if err != nil {
			return mcpError(fmt.Sprintf("reading analytics: %v", err)), nil
		}
		b, err := json.Marshal(snap)
		if err != nil {
			return mcpError(fmt.Sprintf("marshaling analytics: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceOptions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Orchestrator.Options())
		if err != nil {
			return nil, fmt.Errorf("marshaling options: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
