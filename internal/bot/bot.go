package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/halvard/quill/internal/content"
	"github.com/halvard/quill/internal/publish"
	"github.com/halvard/quill/internal/ratelimit"
)

// Publisher transmits posts to the platform. Satisfied by publish.Client.
type Publisher interface {
	Post(ctx context.Context, text string) (string, error)
	Verify(ctx context.Context) (string, error)
}

// Generator turns a prompt into a sanitized post. Satisfied by
// generation.Pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string, dryRun bool) (string, error)
}

// Recorder persists activity counters. Satisfied by analytics.Store.
type Recorder interface {
	RecordPost(success bool, content string, fallback bool) error
	RecordError(msg string) error
	RecordAPICall(service string) error
	SetRunning(running bool) error
}

// Bot wires orchestration, generation and publishing into one posting cycle.
type Bot struct {
	orchestrator *content.Orchestrator
	generator    Generator
	publisher    Publisher
	store        Recorder
	platformRL   *ratelimit.Limiter
	generationRL *ratelimit.Limiter
	log          *slog.Logger
}

// New builds a bot. The rate limiters may be nil to disable limiting (used by
// tests).
func New(o *content.Orchestrator, g Generator, p Publisher, store Recorder, platformRL, generationRL *ratelimit.Limiter, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		orchestrator: o,
		generator:    g,
		publisher:    p,
		store:        store,
		platformRL:   platformRL,
		generationRL: generationRL,
		log:          log,
	}
}

// Result reports one completed posting cycle.
type Result struct {
	Text          string
	PostID        string
	Effectiveness float64
	DryRun        bool
}

// GenerateAndPost runs one full cycle: verify credentials, assemble a prompt
// (with trend enrichment), generate a post and publish it. In dry-run mode
// nothing is transmitted and the would-be post is returned. Failures are
// recorded in analytics before being returned.
func (b *Bot) GenerateAndPost(ctx context.Context, dryRun bool) (Result, error) {
	if !dryRun {
		b.log.Info("verifying platform permissions")
		if err := b.waitPlatform(ctx); err != nil {
			return Result{}, err
		}
		username, err := b.publisher.Verify(ctx)
		b.store.RecordAPICall("platform")
		if err != nil {
			return Result{}, b.fail(fmt.Errorf("verifying platform credentials: %w", err))
		}
		b.log.Info("authenticated", "username", username)
	}

	generated, err := b.orchestrator.Generate(ctx, content.Request{
		Context:           &content.RequestContext{Goal: "engagement", Tone: "mixed"},
		UseTrendingTopics: true,
	})
	if err != nil {
		return Result{}, b.fail(fmt.Errorf("orchestrating content: %w", err))
	}

	b.log.Info("assembled prompt",
		"persona", generated.Persona.Name,
		"strategy", generated.Strategy.Name,
		"effectiveness", fmt.Sprintf("%.0f%%", generated.Metadata.EstimatedEffectiveness*100))
	if generated.Metadata.TrendContext != nil {
		b.log.Info("trend context", "topics", len(generated.Metadata.TrendContext.TrendingTopics))
	}

	if !dryRun {
		if b.generationRL != nil {
			if err := b.generationRL.Wait(ctx); err != nil {
				return Result{}, b.fail(err)
			}
		}
	}
	text, err := b.generator.Generate(ctx, generated.Prompt, dryRun)
	if !dryRun {
		b.store.RecordAPICall("inference")
	}
	if err != nil {
		return Result{}, b.fail(fmt.Errorf("generating post: %w", err))
	}

	result := Result{
		Text:          text,
		Effectiveness: generated.Metadata.EstimatedEffectiveness,
		DryRun:        dryRun,
	}

	if dryRun {
		b.log.Info("dry run, nothing was posted", "text", text)
		return result, nil
	}

	if err := b.waitPlatform(ctx); err != nil {
		return Result{}, err
	}
	postID, err := b.publisher.Post(ctx, text)
	b.store.RecordAPICall("platform")
	if err != nil {
		if errors.Is(err, publish.ErrPermissionDenied) {
			b.log.Error("permission denied; update the app permissions in the developer portal and regenerate your tokens")
		}
		return Result{}, b.fail(fmt.Errorf("publishing post: %w", err))
	}

	result.PostID = postID
	b.log.Info("posted", "id", postID, "text", text)
	b.store.RecordPost(true, text, false)
	return result, nil
}

// fail records the failure in analytics and passes the error through.
func (b *Bot) fail(err error) error {
	b.store.RecordPost(false, "", false)
	b.store.RecordError(err.Error())
	return err
}

func (b *Bot) waitPlatform(ctx context.Context) error {
	if b.platformRL == nil {
		return nil
	}
	return b.platformRL.Wait(ctx)
}
