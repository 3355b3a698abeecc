package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halvard/quill/internal/config"
	"github.com/halvard/quill/internal/trends"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Storage.DataDir = ":memory:"
	cfg.Trends.Mode = "static"
	cfg.Bot.MaxPostLength = 280
	cfg.Inference.MaxTokens = 80
	cfg.Log.Level = "info"
	return cfg
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "hello")
	if strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	result = colorize(colorGreen, "hello")
	if !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestBuildTrendProviderStatic(t *testing.T) {
	cfg := testConfig()
	p := buildTrendProvider(cfg, nil)
	if _, ok := p.(*trends.StaticProvider); !ok {
		t.Fatalf("expected static provider, got %T", p)
	}
}

func TestBuildTrendProviderAggregate(t *testing.T) {
	cfg := testConfig()
	cfg.Trends.Mode = "aggregate"
	cfg.Trends.SearchTrendsURL = "http://localhost:9"
	cfg.Trends.Quota = 10
	p := buildTrendProvider(cfg, nil)
	if _, ok := p.(*trends.AggregateProvider); !ok {
		t.Fatalf("expected aggregate provider, got %T", p)
	}
}

func TestBuildRuntimeWithoutCredentials(t *testing.T) {
	rt, err := buildRuntime(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close()

	if rt.pipeline != nil || rt.publisher != nil {
		t.Error("pipeline and publisher must stay nil without tokens")
	}
	if rt.orchestrator == nil || rt.checker == nil || rt.store == nil {
		t.Error("runtime missing credential-free components")
	}

	if _, err := buildBot(rt); err == nil {
		t.Error("buildBot must fail without credentials")
	}
}

func TestBuildRuntimeWithCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Platform.Token = "p"
	cfg.Inference.Token = "i"
	cfg.Inference.Models = []string{"m1"}

	rt, err := buildRuntime(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close()

	if rt.pipeline == nil || rt.publisher == nil {
		t.Fatal("expected pipeline and publisher with tokens set")
	}
	if _, err := buildBot(rt); err != nil {
		t.Errorf("buildBot failed: %v", err)
	}
}

func TestPreviewPostDryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Inference.Token = "i"
	cfg.Inference.Models = []string{"m1"}

	rt, err := buildRuntime(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer rt.Close()

	// Dry-run generation never calls the inference backend.
	if err := previewPost(context.Background(), rt); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.pid")

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writing pid file: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("reading pid file: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d", pid)
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removal")
	}
}
