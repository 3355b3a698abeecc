package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/halvard/quill/internal/analytics"
	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/trends"
)

type mockTrendProvider struct {
	ctx trends.Context
}

func (m *mockTrendProvider) TrendContext(context.Context) (trends.Context, error) {
	return m.ctx, nil
}

func (m *mockTrendProvider) RandomTopic(context.Context) (string, bool) {
	if len(m.ctx.TrendingTopics) == 0 {
		return "", false
	}
	return m.ctx.TrendingTopics[0], true
}

func (m *mockTrendProvider) IsTopicTrending(_ context.Context, topic string) bool {
	for _, t := range m.ctx.TrendingTopics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

type mockGenerator struct {
	text string
}

func (m *mockGenerator) Generate(_ context.Context, _ string, _ bool) (string, error) {
	return m.text, nil
}

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	p, s, r := content.SeedRegistries(rand.New(rand.NewSource(1)))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &mockTrendProvider{ctx: trends.Context{
		TrendingTopics: []string{"#OpenData"},
		LastUpdated:    time.Now(),
	}}
	return MCPDeps{
		Orchestrator: content.NewOrchestrator(p, s, r, provider, log),
		Generator:    &mockGenerator{text: "preview text"},
		Trends:       provider,
		Store:        &fakeAnalytics{snap: analytics.Snapshot{TotalPosts: 3}},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPPreviewPost(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpPreviewPost(deps)

	result, err := handler(context.Background(), makeCallToolRequest("preview_post", map[string]interface{}{
		"persona": "the-explainer",
		"topic":   "#OpenData",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var preview struct {
		Persona string `json:"persona"`
		Prompt  string `json:"prompt"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &preview); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if preview.Persona == "" || preview.Prompt == "" {
		t.Errorf("incomplete preview: %+v", preview)
	}
	if preview.Text != "preview text" {
		t.Errorf("Text = %q", preview.Text)
	}
	if !strings.Contains(preview.Prompt, "#OpenData") {
		t.Errorf("prompt does not carry the topic: %s", preview.Prompt)
	}
}

func TestMCPPreviewPostWithoutGenerator(t *testing.T) {
	deps := newTestMCPDeps(t)
	deps.Generator = nil
	handler := mcpPreviewPost(deps)

	result, err := handler(context.Background(), makeCallToolRequest("preview_post", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var preview struct {
		Prompt string `json:"prompt"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &preview); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if preview.Prompt == "" {
		t.Error("expected assembled prompt")
	}
	if preview.Text != "" {
		t.Errorf("expected no model output, got %q", preview.Text)
	}
}

func TestMCPTrendSnapshot(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpTrendSnapshot(deps)

	result, err := handler(context.Background(), makeCallToolRequest("trend_snapshot", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var tc trends.Context
	if err := json.Unmarshal([]byte(toolText(t, result)), &tc); err != nil {
		t.Fatalf("decoding context: %v", err)
	}
	if len(tc.TrendingTopics) != 1 || tc.TrendingTopics[0] != "#OpenData" {
		t.Errorf("TrendingTopics = %v", tc.TrendingTopics)
	}
}

func TestMCPBotAnalytics(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpBotAnalytics(deps)

	result, err := handler(context.Background(), makeCallToolRequest("bot_analytics", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var snap analytics.Snapshot
	if err := json.Unmarshal([]byte(toolText(t, result)), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap.TotalPosts != 3 {
		t.Errorf("TotalPosts = %d, want 3", snap.TotalPosts)
	}
}

func TestMCPResourceOptions(t *testing.T) {
	deps := newTestMCPDeps(t)
	handler := mcpResourceOptions(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "quill://options"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected one resource, got %d", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	var opts content.Options
	if err := json.Unmarshal([]byte(text.Text), &opts); err != nil {
		t.Fatalf("decoding options: %v", err)
	}
	if len(opts.Rules) == 0 {
		t.Error("options missing rules")
	}
}

func TestTrendsEndpoint(t *testing.T) {
	deps := newTestMCPDeps(t)
	h := NewStatusHandler(StatusDeps{
		Checker:      &fakeChecker{},
		Store:        &fakeAnalytics{},
		Orchestrator: deps.Orchestrator,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trends", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var tc trends.Context
	if err := json.NewDecoder(rec.Body).Decode(&tc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(tc.TrendingTopics) != 1 {
		t.Errorf("TrendingTopics = %v", tc.TrendingTopics)
	}
}
