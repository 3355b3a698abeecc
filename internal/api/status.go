package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/quill/internal/analytics"
	"github.com/halvard/quill/internal/bot"
	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/health"
)

// HealthChecker runs the full service health probe. Satisfied by
// health.Checker.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// AnalyticsReader exposes the analytics snapshot. Satisfied by
// analytics.Store.
type AnalyticsReader interface {
	Snapshot() (analytics.Snapshot, error)
}

// PostRunner triggers a single posting cycle. Satisfied by bot.Bot.
type PostRunner interface {
	GenerateAndPost(ctx context.Context, dryRun bool) (bot.Result, error)
}

// PostResult mirrors the bot's cycle result for the HTTP layer.
type PostResult struct {
	Text          string  `json:"text"`
	PostID        string  `json:"post_id,omitempty"`
	Effectiveness float64 `json:"effectiveness"`
	DryRun        bool    `json:"dry_run"`
}

// StatusDeps holds dependencies for the status server. Bot may be nil, in
// which case POST /post returns 503.
type StatusDeps struct {
	Checker      HealthChecker
	Store        AnalyticsReader
	Orchestrator *content.Orchestrator
	Bot          PostRunner
}

// NewStatusHandler returns the HTTP status API served by `quill run`.
func NewStatusHandler(deps StatusDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleStatusHealth(deps))
	r.Get("/analytics", handleAnalytics(deps))
	r.Get("/trends", handleTrends(deps))
	r.Get("/options", handleOptions(deps))
	r.Post("/post", handlePost(deps))

	return r
}

func handleStatusHealth(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := deps.Checker.Check(r.Context())

		code := http.StatusOK
		if report.Status == health.StatusError {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

func handleAnalytics(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := deps.Store.Snapshot()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "reading analytics: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleTrends(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc := deps.Orchestrator.TrendInfo(r.Context())
		if tc == nil {
			httpError(w, http.StatusServiceUnavailable, "trends_error", "trend provider unavailable")
			return
		}
		writeJSON(w, http.StatusOK, tc)
	}
}

func handleOptions(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Orchestrator.Options())
	}
}

func handlePost(deps StatusDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Bot == nil {
			httpError(w, http.StatusServiceUnavailable, "bot_error", "posting is not configured")
			return
		}

		dryRun := r.URL.Query().Get("dry_run") == "true"
		result, err := deps.Bot.GenerateAndPost(r.Context(), dryRun)
		if err != nil {
			httpError(w, http.StatusBadGateway, "bot_error", "posting cycle failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, PostResult{
			Text:          result.Text,
			PostID:        result.PostID,
			Effectiveness: result.Effectiveness,
			DryRun:        result.DryRun,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
