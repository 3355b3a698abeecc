package content

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/halvard/quill/internal/persona"
	"github.com/halvard/quill/internal/rules"
	"github.com/halvard/quill/internal/strategy"
	"github.com/halvard/quill/internal/trends"
)

type fakeTrendProvider struct {
	topics []string
	fail   bool
}

func (f *fakeTrendProvider) TrendContext(context.Context) (trends.Context, error) {
	if f.fail {
		return trends.Context{}, context.DeadlineExceeded
	}
	return trends.Context{TrendingTopics: f.topics}, nil
}

func (f *fakeTrendProvider) RandomTopic(context.Context) (string, bool) {
	if f.fail || len(f.topics) == 0 {
		return "", false
	}
	return f.topics[0], true
}

func (f *fakeTrendProvider) IsTopicTrending(_ context.Context, topic string) bool {
	for _, t := range f.topics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

func testOrchestrator(t *testing.T, provider trends.Provider) *Orchestrator {
	t.Helper()
	p, s, r := SeedRegistries(rand.New(rand.NewSource(1)))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(p, s, r, provider, log)
}

func TestGenerate_DefaultsIncludeRequiredRules(t *testing.T) {
	o := testOrchestrator(t, nil)

	got, err := o.Generate(context.Background(), Request{
		Context: &RequestContext{Topic: "open source maintenance"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := make(map[string]bool)
	for _, rule := range got.Rules {
		ids[rule.ID] = true
	}
	for _, required := range []string{"char-limit", "no-fabrication", "no-harassment"} {
		if !ids[required] {
			t.Errorf("required rule %s missing from selection", required)
		}
	}
}

func TestGenerate_PromptAssembly(t *testing.T) {
	o := testOrchestrator(t, nil)

	got, err := o.Generate(context.Background(), Request{
		PersonaID:          "the-explainer",
		StrategyID:         "question-hook",
		RuleSetID:          "conversation",
		Context:            &RequestContext{Topic: "tide pools", Audience: "beachgoers"},
		CustomInstructions: "mention low tide",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := got.Prompt
	if !strings.HasPrefix(prompt, "Generate ONE single tweet.") {
		t.Errorf("prompt does not open with the single-tweet instruction: %q", firstLine(prompt))
	}
	if !strings.Contains(prompt, "under 280 characters") {
		t.Error("prompt missing the character-limit constraint")
	}
	if !strings.Contains(prompt, got.Persona.VoicePrompt) {
		t.Error("prompt missing the persona voice prompt verbatim")
	}
	if !strings.Contains(prompt, "Writing Style: "+got.Persona.WritingInstructions) {
		t.Error("prompt missing the writing instructions verbatim")
	}
	if !strings.Contains(prompt, "Strategy: ") {
		t.Error("prompt missing the strategy section")
	}
	if !strings.Contains(prompt, "Rules: ") {
		t.Error("prompt missing the rules section")
	}
	if !strings.Contains(prompt, "Additional Instructions: mention low tide") {
		t.Error("prompt missing custom instructions")
	}
	if !strings.Contains(prompt, "Topic: tide pools") || !strings.Contains(prompt, "Target Audience: beachgoers") {
		t.Error("prompt missing context lines")
	}
	if !strings.HasSuffix(prompt, "No examples, no lists, no multiple tweets.") {
		t.Error("prompt missing the closing reminder")
	}

	// Sections are separated by blank lines.
	if !strings.Contains(prompt, "\n\n") {
		t.Error("prompt parts not separated by blank lines")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func TestGenerate_UnknownPersonaFallsBack(t *testing.T) {
	o := testOrchestrator(t, nil)

	got, err := o.Generate(context.Background(), Request{
		PersonaID: "no-such-persona",
		Context:   &RequestContext{Topic: "anything"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Persona.ID == "" {
		t.Error("expected a fallback persona")
	}
}

func TestGenerate_UnknownRuleSetFails(t *testing.T) {
	o := testOrchestrator(t, nil)

	_, err := o.Generate(context.Background(), Request{
		RuleSetID: "no-such-set",
		Context:   &RequestContext{Topic: "anything"},
	})
	if err == nil {
		t.Fatal("expected error for unknown rule set")
	}
}

func TestGenerate_CustomRulesSelection(t *testing.T) {
	o := testOrchestrator(t, nil)

	got, err := o.Generate(context.Background(), Request{
		CustomRules: []string{"hashtag-budget", "unknown-rule"},
		Context:     &RequestContext{Topic: "anything"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Rules) != 1 || got.Rules[0].ID != "hashtag-budget" {
		t.Errorf("expected only hashtag-budget, got %+v", got.Rules)
	}
}

func TestGenerate_FillsTopicFromTrends(t *testing.T) {
	provider := &fakeTrendProvider{topics: []string{"#OpenData"}}
	o := testOrchestrator(t, provider)

	got, err := o.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Prompt, "Topic: #OpenData") {
		t.Error("empty topic not filled from trending topic")
	}
	if got.Metadata.TrendContext == nil {
		t.Fatal("expected trend context in metadata")
	}
}

func TestGenerate_TrendProviderFailureTolerated(t *testing.T) {
	provider := &fakeTrendProvider{fail: true}
	o := testOrchestrator(t, provider)

	got, err := o.Generate(context.Background(), Request{UseTrendingTopics: true,
		Context: &RequestContext{Topic: "fallback topic"}})
	if err != nil {
		t.Fatalf("expected provider failure to be tolerated, got %v", err)
	}
	if got.Metadata.TrendContext != nil {
		t.Error("expected no trend context after provider failure")
	}
}

func TestMetadata_EffectivenessClamped(t *testing.T) {
	p := persona.NewRegistry(rand.New(rand.NewSource(1)))
	p.AddTrait(persona.Trait{ID: "t", Name: "T", Weight: 1})
	p.AddPersona(persona.Persona{ID: "p", Name: "P", BaseTraits: []string{"t"}})

	s := strategy.NewRegistry(rand.New(rand.NewSource(1)))
	s.Add(strategy.Strategy{ID: "max", Name: "Max", PromptTemplate: "about {topic}",
		Category: strategy.CategoryEngagement, Effectiveness: 1.0})

	r := rules.NewRegistry(rand.New(rand.NewSource(1)))
	for _, c := range rules.Categories {
		r.Add(rules.Rule{ID: string(c), Name: string(c), Text: "x", Category: c,
			Priority: rules.PriorityHigh, Required: true})
	}

	provider := &fakeTrendProvider{topics: []string{"#Anything"}}
	o := NewOrchestrator(p, s, r, provider, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := o.Generate(context.Background(), Request{StrategyID: "max"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Six categories and six rules give rule balance > 0.9; with the trend
	// boost the raw score exceeds 1 and must be clamped.
	if got.Metadata.EstimatedEffectiveness != 1.0 {
		t.Errorf("effectiveness %f, want clamped 1.0", got.Metadata.EstimatedEffectiveness)
	}
}

func TestOptionsAndStats(t *testing.T) {
	o := testOrchestrator(t, nil)

	opts := o.Options()
	if len(opts.Personas) != 4 || len(opts.Traits) != 8 {
		t.Errorf("unexpected persona options: %d personas, %d traits", len(opts.Personas), len(opts.Traits))
	}
	if len(opts.Strategies) != 6 || len(opts.RuleSets) != 4 || len(opts.Rules) != 10 {
		t.Errorf("unexpected catalog options: %d strategies, %d sets, %d rules",
			len(opts.Strategies), len(opts.RuleSets), len(opts.Rules))
	}

	stats := o.SystemStats()
	if stats.PersonaCount != 4 || stats.Rules.RequiredCount != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestTrendInfo(t *testing.T) {
	provider := &fakeTrendProvider{topics: []string{"#A", "#B"}}
	o := testOrchestrator(t, provider)

	info := o.TrendInfo(context.Background())
	if info == nil || len(info.TrendingTopics) != 2 {
		t.Errorf("unexpected trend info: %+v", info)
	}

	o = testOrchestrator(t, nil)
	if o.TrendInfo(context.Background()) != nil {
		t.Error("expected nil trend info without a provider")
	}
}
