package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/halvard/quill/internal/api"
	"github.com/halvard/quill/internal/config"
	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/health"
	"github.com/halvard/quill/internal/sources"
)

// --- post ---

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Generate and publish a single post now",
	Long: `Generate and publish a single post now.

Examples:
  quill post
  quill post --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !dryRun {
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if dryRun {
			return previewPost(cmd.Context(), rt)
		}

		b, err := buildBot(rt)
		if err != nil {
			return err
		}

		result, err := b.GenerateAndPost(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("posting: %w", err)
		}

		printSuccess("Posted %s", result.PostID)
		fmt.Println(result.Text)
		return nil
	},
}

// --- preview ---

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Assemble a prompt and preview a post without publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		return previewPost(cmd.Context(), rt)
	},
}

func previewPost(ctx context.Context, rt *runtime) error {
	personaID, strategyID, topic := previewFlags.persona, previewFlags.strategy, previewFlags.topic

	generated, err := rt.orchestrator.Generate(ctx, content.Request{
		PersonaID:         personaID,
		StrategyID:        strategyID,
		Context:           &content.RequestContext{Topic: topic, Goal: "engagement", Tone: "mixed"},
		UseTrendingTopics: true,
	})
	if err != nil {
		return fmt.Errorf("assembling prompt: %w", err)
	}

	printStatus("Persona", "%s", generated.Persona.Name)
	printStatus("Strategy", "%s", generated.Strategy.Name)
	printStatus("Effectiveness", "%.0f%%", generated.Metadata.EstimatedEffectiveness*100)
	if tc := generated.Metadata.TrendContext; tc != nil {
		printStatus("Trending", "%s", strings.Join(tc.TrendingTopics, ", "))
	}

	if rt.pipeline != nil {
		text, err := rt.pipeline.Generate(ctx, generated.Prompt, true)
		if err != nil {
			return fmt.Errorf("generating preview: %w", err)
		}
		fmt.Println()
		fmt.Println(text)
		return nil
	}

	fmt.Println()
	fmt.Println(generated.Prompt)
	return nil
}

var previewFlags struct {
	persona  string
	strategy string
	topic    string
}

func init() {
	postCmd.Flags().Bool("dry-run", false, "assemble and generate without publishing")

	previewCmd.Flags().StringVar(&previewFlags.persona, "persona", "", "persona ID (default: random)")
	previewCmd.Flags().StringVar(&previewFlags.strategy, "strategy", "", "strategy ID (default: context-matched)")
	previewCmd.Flags().StringVar(&previewFlags.topic, "topic", "", "topic (default: pulled from trends)")
}

// --- analytics ---

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show posting counters and recent errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("reset")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if reset {
			if err := rt.store.Reset(); err != nil {
				return err
			}
			printSuccess("Analytics reset")
			return nil
		}

		snap, err := rt.store.Snapshot()
		if err != nil {
			return err
		}

		printStatus("Total posts", "%d", snap.TotalPosts)
		printStatus("Successful", "%d", snap.SuccessfulPosts)
		printStatus("Failed", "%d", snap.FailedPosts)
		printStatus("Success rate", "%.1f%%", snap.SuccessRate)
		if snap.LastPostTime != nil {
			printStatus("Last post", "%s", snap.LastPostTime.Format(time.RFC3339))
		}
		if snap.LastPostContent != "" {
			printStatus("Last content", "%s", snap.LastPostContent)
		}
		if snap.Running {
			printStatus("Scheduler", "running (up %s)", snap.Uptime.Round(time.Second))
		} else {
			printStatus("Scheduler", "stopped")
		}
		for service, count := range snap.APICalls {
			printStatus("API calls ("+service+")", "%d", count)
		}
		if n := len(snap.Errors); n > 0 {
			printWarning("%d recent errors, last: %s", n, snap.Errors[n-1])
		}
		return nil
	},
}

func init() {
	analyticsCmd.Flags().Bool("reset", false, "clear all counters and history")
}

// --- health ---

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe platform and inference connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		report := rt.checker.Check(cmd.Context())

		printServiceStatus("Platform", report.Platform)
		printServiceStatus("Inference", report.Inference)
		if report.Bot.TotalPosts > 0 {
			printStatus("Success rate", "%.1f%%", report.Bot.SuccessRate)
		}
		if !report.Env.HasPlatformToken {
			printWarning("platform token not configured")
		}
		if !report.Env.HasInferenceToken {
			printWarning("inference token not configured")
		}

		switch report.Status {
		case health.StatusHealthy:
			printSuccess("Overall: healthy")
		case health.StatusWarning:
			printWarning("Overall: warning")
		default:
			printError("Overall: error")
			return errors.New("health check failed")
		}
		return nil
	},
}

func printServiceStatus(label string, st health.ServiceStatus) {
	switch st.Status {
	case health.StatusHealthy:
		printStatus(label, "%s", st.Message)
	default:
		printError("%s: %s", label, st.Message)
	}
}

// --- trends ---

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show the current trend snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		tc, err := rt.trends.TrendContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching trends: %w", err)
		}

		printStatus("Mode", "%s", cfg.Trends.Mode)
		printStatus("Updated", "%s", tc.LastUpdated.Format(time.RFC3339))
		printTrendList("Trending topics", tc.TrendingTopics)
		printTrendList("Viral hashtags", tc.ViralHashtags)
		printTrendList("Current events", tc.CurrentEvents)
		printTrendList("Popular keywords", tc.PopularKeywords)
		return nil
	},
}

func printTrendList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	printStatus(label, "%s", strings.Join(items, ", "))
}

// --- sources ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage inspiration topics and accounts",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := sourceManager()
		if err != nil {
			return err
		}
		cfg := m.Config()
		printStatus("Mode", "%s", cfg.Mode)
		printStatus("Topics", "%s", strings.Join(cfg.Topics, ", "))
		printStatus("Users", "%s", strings.Join(cfg.Users, ", "))
		return nil
	},
}

var sourcesModeCmd = &cobra.Command{
	Use:   "mode <static|dynamic>",
	Short: "Set the source mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := sourceManager()
		if err != nil {
			return err
		}
		if err := m.SetMode(sources.Mode(args[0])); err != nil {
			return err
		}
		printSuccess("Source mode set to %s", args[0])
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <topic-or-@user>",
	Short: "Add a topic or user source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := sourceManager()
		if err != nil {
			return err
		}
		if strings.HasPrefix(args[0], "@") {
			m.AddUser(args[0])
		} else {
			m.AddTopic(args[0])
		}
		printSuccess("Added %s", args[0])
		return nil
	},
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <topic-or-@user>",
	Short: "Remove a topic or user source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := sourceManager()
		if err != nil {
			return err
		}
		if strings.HasPrefix(args[0], "@") {
			m.RemoveUser(args[0])
		} else {
			m.RemoveTopic(args[0])
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

func sourceManager() (*sources.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.Storage.DataDir, "sources.json")
	return sources.NewManager(path, nil, nil), nil
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesModeCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tool interface over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		deps := api.MCPDeps{
			Orchestrator: rt.orchestrator,
			Trends:       rt.trends,
			Store:        rt.store,
		}
		if rt.pipeline != nil {
			deps.Generator = rt.pipeline
		}

		mcpSrv := api.NewMCPServer(deps)
		stdioSrv := server.NewStdioServer(mcpSrv)
		if err := stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
