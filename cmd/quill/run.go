package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/halvard/quill/internal/analytics"
	"github.com/halvard/quill/internal/api"
	"github.com/halvard/quill/internal/bot"
	"github.com/halvard/quill/internal/config"
	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/generation"
	"github.com/halvard/quill/internal/health"
	"github.com/halvard/quill/internal/publish"
	"github.com/halvard/quill/internal/ratelimit"
	"github.com/halvard/quill/internal/trends"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the posting scheduler and status server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running quill scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quill system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

// runtime bundles everything a posting cycle needs. Pieces that require
// credentials are nil until the tokens are configured.
type runtime struct {
	cfg          config.Config
	log          *slog.Logger
	store        *analytics.Store
	trends       trends.Provider
	orchestrator *content.Orchestrator
	pipeline     *generation.Pipeline
	publisher    *publish.Client
	checker      *health.Checker
}

func (rt *runtime) Close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing analytics store: %v\n", err)
		}
	}
}

func setupLogging(cfg config.Config) *slog.Logger {
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
	return log
}

func buildRuntime(cfg config.Config) (*runtime, error) {
	log := setupLogging(cfg)

	store, err := analytics.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening analytics store: %w", err)
	}

	provider := buildTrendProvider(cfg, log)
	personas, strategies, ruleSet := content.SeedRegistries(nil)
	orchestrator := content.NewOrchestrator(personas, strategies, ruleSet, provider, log)

	rt := &runtime{
		cfg:          cfg,
		log:          log,
		store:        store,
		trends:       provider,
		orchestrator: orchestrator,
	}

	if cfg.Inference.Token != "" {
		backend := generation.NewInferenceClient(cfg.Inference.BaseURL, cfg.Inference.Token)
		rt.pipeline = generation.NewPipeline(backend, cfg.Inference.Models, cfg.Inference.MaxTokens, cfg.Bot.MaxPostLength, log)
	}
	if cfg.Platform.Token != "" {
		rt.publisher = publish.NewClient(cfg.Platform.BaseURL, cfg.Platform.Token)
	}

	env := health.EnvStatus{
		HasPlatformToken:  cfg.Platform.Token != "",
		HasInferenceToken: cfg.Inference.Token != "",
	}
	// Interface-typed nils must stay nil when the concrete client is absent.
	var verifier health.Verifier
	if rt.publisher != nil {
		verifier = rt.publisher
	}
	var prober health.Prober
	if rt.pipeline != nil {
		prober = rt.pipeline
	}
	rt.checker = health.NewChecker(verifier, prober, store, env)

	return rt, nil
}

func buildTrendProvider(cfg config.Config, log *slog.Logger) trends.Provider {
	if cfg.Trends.Mode != "aggregate" {
		return trends.NewStaticProvider(nil, trends.DefaultTTL, log)
	}

	var feeds []trends.Feed
	if cfg.Trends.SearchTrendsURL != "" {
		feeds = append(feeds, trends.NewSearchTrendsFeed(cfg.Trends.SearchTrendsURL))
	}
	if cfg.Trends.LinkAggregatorURL != "" {
		feeds = append(feeds, trends.NewLinkAggregatorFeed(cfg.Trends.LinkAggregatorURL))
	}
	if cfg.Trends.HeadlinesURL != "" && cfg.Trends.HeadlinesAPIKey != "" {
		feeds = append(feeds, trends.NewHeadlinesFeed(cfg.Trends.HeadlinesURL, cfg.Trends.HeadlinesAPIKey))
	}

	return trends.NewAggregateProvider(trends.AggregateOptions{
		Feeds:  feeds,
		Quota:  cfg.Trends.Quota,
		Logger: log,
	})
}

func buildBot(rt *runtime) (*bot.Bot, error) {
	if rt.publisher == nil || rt.pipeline == nil {
		return nil, fmt.Errorf("bot requires both platform and inference credentials")
	}
	return bot.New(
		rt.orchestrator,
		rt.pipeline,
		rt.publisher,
		rt.store,
		ratelimit.NewPlatform(),
		ratelimit.NewGeneration(),
		rt.log,
	), nil
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "quill.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "quill version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	// Refuse to start twice. The health endpoint doubles as a liveness probe.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("quill is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("quill is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	b, err := buildBot(rt)
	if err != nil {
		return err
	}

	interval := time.Duration(cfg.Bot.IntervalHours) * time.Hour
	scheduler := bot.NewScheduler(b, rt.store, interval, rt.log)
	schedDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(schedDone)
	}()

	handler := api.NewStatusHandler(api.StatusDeps{
		Checker:      rt.checker,
		Store:        rt.store,
		Orchestrator: rt.orchestrator,
		Bot:          b,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "quill listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// Wait for the scheduler to finish any in-flight posting cycle and clear
	// the running flag before the process exits.
	stop()
	<-schedDone
	return err
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("quill is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop quill (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to quill (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Scheduler", "stopped")
	} else {
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			printStatus("Scheduler", "running on port %d", cfg.Server.Port)
		default:
			printStatus("Scheduler", "degraded (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Trend mode", "%s", cfg.Trends.Mode)
	printStatus("Models", "%s", strings.Join(cfg.Inference.Models, ", "))
	printStatus("Interval", "%dh", cfg.Bot.IntervalHours)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	if cfg.Platform.Token == "" {
		printWarning("platform token not configured")
	}
	if cfg.Inference.Token == "" {
		printWarning("inference token not configured")
	}
	return nil
}
