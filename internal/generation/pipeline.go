package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DryRunText is returned by the pipeline when dry-run mode is requested; no
// backend call is made.
const DryRunText = "This is a sample dry-run tweet about a trending topic. No API was called. #dryrun"

// ErrExhausted indicates every configured model failed to produce usable text.
var ErrExhausted = errors.New("all fallback models failed")

// CriticalError wraps a backend failure that is not a known transient model
// condition. It aborts the fallback loop immediately instead of advancing to
// the next model.
type CriticalError struct {
	Model string
	Err   error
}

func (e *CriticalError) Error() string {
	return fmt.Sprintf("critical error from model %s: %v", e.Model, e.Err)
}

func (e *CriticalError) Unwrap() error { return e.Err }

// softFailurePatterns are provider error fragments that mean "this model is
// unavailable right now"; they advance the loop to the next candidate.
var softFailurePatterns = []string{
	"is not supported for task text-generation",
	"No Inference Provider available",
	"is currently loading",
	"Model is overloaded",
}

func isSoftFailure(err error) bool {
	msg := err.Error()
	for _, pattern := range softFailurePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// DefaultModels is the fallback chain tried in order of preference.
var DefaultModels = []string{
	"meta-llama/Llama-3.1-8B-Instruct",
	"mistralai/Mistral-7B-Instruct-v0.3",
	"Qwen/Qwen2-7B-Instruct",
}

// Pipeline turns an assembled prompt into one sanitized post, walking a
// fallback chain of models until one produces usable text.
type Pipeline struct {
	backend    Backend
	models     []string
	maxTokens  int
	maxPostLen int
	log        *slog.Logger
}

// NewPipeline builds a pipeline. models defaults to DefaultModels, maxTokens
// to 80 and maxPostLen to 280 when zero-valued.
func NewPipeline(backend Backend, models []string, maxTokens, maxPostLen int, log *slog.Logger) *Pipeline {
	if len(models) == 0 {
		models = DefaultModels
	}
	if maxTokens <= 0 {
		maxTokens = 80
	}
	if maxPostLen <= 0 {
		maxPostLen = 280
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		backend:    backend,
		models:     models,
		maxTokens:  maxTokens,
		maxPostLen: maxPostLen,
		log:        log,
	}
}

// Generate produces one sanitized post from the prompt. In dry-run mode the
// placeholder text is returned without touching the backend. A transient
// model failure or empty output advances to the next model; any other backend
// error aborts with a CriticalError; exhausting the chain returns
// ErrExhausted.
func (p *Pipeline) Generate(ctx context.Context, prompt string, dryRun bool) (string, error) {
	if dryRun {
		p.log.Info("performing dry run, skipping generation backend")
		return DryRunText, nil
	}

	for _, model := range p.models {
		p.log.Info("attempting generation", "model", model)

		raw, err := p.backend.Complete(ctx, model, prompt, p.maxTokens)
		if err != nil {
			if isSoftFailure(err) {
				p.log.Warn("model unavailable, trying next model", "model", model, "error", err)
				continue
			}
			p.log.Error("critical generation error", "model", model, "error", err)
			return "", &CriticalError{Model: model, Err: err}
		}

		if strings.TrimSpace(raw) == "" {
			p.log.Warn("model returned empty response, trying next model", "model", model)
			continue
		}

		cleaned := Sanitize(raw, p.maxPostLen)
		if cleaned == "" {
			p.log.Warn("model output empty after cleanup, trying next model", "model", model)
			continue
		}

		p.log.Info("generated post", "model", model, "chars", len(cleaned))
		return cleaned, nil
	}

	p.log.Error("all fallback models failed")
	return "", ErrExhausted
}

// Probe checks that the backend answers at all, using the first model with a
// minimal prompt. Used by health checks.
func (p *Pipeline) Probe(ctx context.Context) error {
	if len(p.models) == 0 {
		return errors.New("no models configured")
	}
	_, err := p.backend.Complete(ctx, p.models[0], "Reply with the word ok.", 5)
	return err
}
