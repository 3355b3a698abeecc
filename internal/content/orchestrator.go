package content

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/halvard/quill/internal/persona"
	"github.com/halvard/quill/internal/rules"
	"github.com/halvard/quill/internal/strategy"
	"github.com/halvard/quill/internal/trends"
)

// RequestContext carries the optional hints that steer persona, strategy and
// rule selection for one generation request.
type RequestContext struct {
	Topic     string
	Audience  string
	Goal      string // engagement, information, entertainment, controversy
	Tone      string // positive, negative, neutral, mixed
	RiskLevel string // low, medium, high
}

// Request describes one content-generation request. Every field is optional;
// an empty request produces a random persona, a random strategy and the
// required rules.
type Request struct {
	PersonaID          string
	StrategyID         string
	RuleSetID          string
	Context            *RequestContext
	CustomRules        []string
	CustomInstructions string
	UseTrendingTopics  bool
}

// TrendSnapshot is the trend data incorporated into a generated prompt.
type TrendSnapshot struct {
	TrendingTopics []string
	Sources        []trends.Source
}

// Metadata summarizes what went into a generated prompt.
type Metadata struct {
	PersonaTraits          []string
	StrategyCategory       strategy.Category
	RuleCategories         []rules.Category
	EstimatedEffectiveness float64
	TrendContext           *TrendSnapshot
}

// Generated is the assembled output of one orchestration pass. Prompt is the
// string handed to the generation pipeline.
type Generated struct {
	Persona  persona.Resolved
	Strategy strategy.Strategy
	Rules    []rules.Rule
	Prompt   string
	Metadata Metadata
}

// Orchestrator composes the persona, strategy and rule registries with the
// trend provider into single generation prompts.
type Orchestrator struct {
	personas   *persona.Registry
	strategies *strategy.Registry
	rules      *rules.Registry
	trends     trends.Provider
	log        *slog.Logger
}

// NewOrchestrator wires the registries and the trend provider together.
// trends may be nil when trend enrichment is disabled.
func NewOrchestrator(p *persona.Registry, s *strategy.Registry, r *rules.Registry, t trends.Provider, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{personas: p, strategies: s, rules: r, trends: t, log: log}
}

// Generate assembles one prompt from the request. Unknown persona and
// strategy IDs degrade to a fallback selection with a warning; an unknown
// rule-set ID is an error.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Generated, error) {
	p, err := o.pickPersona(req.PersonaID)
	if err != nil {
		return Generated{}, fmt.Errorf("selecting persona: %w", err)
	}

	s, err := o.pickStrategy(req.StrategyID, req.Context)
	if err != nil {
		return Generated{}, fmt.Errorf("selecting strategy: %w", err)
	}

	selected, err := o.pickRules(req)
	if err != nil {
		return Generated{}, fmt.Errorf("selecting rules: %w", err)
	}

	reqCtx := RequestContext{}
	if req.Context != nil {
		reqCtx = *req.Context
	}

	var snapshot *TrendSnapshot
	if req.UseTrendingTopics || reqCtx.Topic == "" {
		snapshot = o.enrichWithTrends(ctx, &reqCtx)
	}

	prompt, err := o.buildPrompt(p, s, selected, reqCtx, req.CustomInstructions)
	if err != nil {
		return Generated{}, fmt.Errorf("building prompt: %w", err)
	}

	return Generated{
		Persona:  p,
		Strategy: s,
		Rules:    selected,
		Prompt:   prompt,
		Metadata: buildMetadata(p, s, selected, snapshot),
	}, nil
}

// pickPersona resolves the requested persona, falling back to a random one
// with a warning when the ID is unknown.
func (o *Orchestrator) pickPersona(id string) (persona.Resolved, error) {
	if id != "" {
		p, err := o.personas.Resolve(id)
		if err == nil {
			return p, nil
		}
		o.log.Warn("persona not found, using random persona", "persona", id)
	}
	return o.personas.Random()
}

// pickStrategy looks up the requested strategy, falling back to the best
// match for the context (or a random pick without one).
func (o *Orchestrator) pickStrategy(id string, reqCtx *RequestContext) (strategy.Strategy, error) {
	if id != "" {
		for _, s := range o.strategies.All() {
			if s.ID == id {
				return s, nil
			}
		}
		o.log.Warn("strategy not found, selecting for context", "strategy", id)
	}
	if reqCtx != nil {
		return o.strategies.BestForContext(strategyContext(*reqCtx))
	}
	return o.strategies.Random()
}

// pickRules selects rules by set ID, explicit IDs, context filter, or the
// required baseline, in that precedence order.
func (o *Orchestrator) pickRules(req Request) ([]rules.Rule, error) {
	switch {
	case req.RuleSetID != "":
		return o.rules.FromSet(req.RuleSetID)
	case len(req.CustomRules) > 0:
		return o.rules.ByIDs(req.CustomRules), nil
	case req.Context != nil:
		return o.rules.ForContext(rules.ContextFilter{
			Audience:  req.Context.Audience,
			Topic:     req.Context.Topic,
			Goal:      req.Context.Goal,
			RiskLevel: req.Context.RiskLevel,
		}), nil
	default:
		return o.rules.Required(), nil
	}
}

// enrichWithTrends fetches the trend snapshot and fills an empty topic from a
// random trending topic. Provider failure is tolerated; the request proceeds
// without enrichment.
func (o *Orchestrator) enrichWithTrends(ctx context.Context, reqCtx *RequestContext) *TrendSnapshot {
	if o.trends == nil {
		return nil
	}

	data, err := o.trends.TrendContext(ctx)
	if err != nil {
		o.log.Warn("failed to get trend context", "error", err)
		return nil
	}

	if reqCtx.Topic == "" {
		if topic, ok := o.trends.RandomTopic(ctx); ok {
			reqCtx.Topic = topic
			o.log.Info("using trending topic", "topic", topic)
		}
	}
	if reqCtx.Topic != "" && o.trends.IsTopicTrending(ctx, reqCtx.Topic) {
		o.log.Info("topic is currently trending", "topic", reqCtx.Topic)
	}

	return &TrendSnapshot{
		TrendingTopics: data.TrendingTopics,
		Sources:        data.Sources.TrendingTopics,
	}
}

// buildPrompt joins the prompt parts in a fixed order. The single-post and
// length constraints frame the persona, strategy and rule material; optional
// parts are skipped when empty.
func (o *Orchestrator) buildPrompt(p persona.Resolved, s strategy.Strategy, selected []rules.Rule, reqCtx RequestContext, customInstructions string) (string, error) {
	parts := []string{
		"Generate ONE single tweet. Do not create examples, lists, or multiple tweets.",
		"CRITICAL: Your response must be exactly ONE tweet under 280 characters. No exceptions.",
		"Use hashtags and emojis sparingly and naturally. Not every tweet needs them. When you do use them, keep it to 1-2 hashtags max.",
		p.VoicePrompt,
	}

	applied, err := o.strategies.Apply(s.ID, strategyContext(reqCtx))
	if err != nil {
		return "", err
	}
	parts = append(parts, "Strategy: "+applied)

	ids := make([]string, len(selected))
	for i, rule := range selected {
		ids[i] = rule.ID
	}
	if rendered := o.rules.Apply(ids); rendered != "" {
		parts = append(parts, rendered)
	}

	parts = append(parts, "Writing Style: "+p.WritingInstructions)

	if customInstructions != "" {
		parts = append(parts, "Additional Instructions: "+customInstructions)
	}
	if reqCtx.Topic != "" {
		parts = append(parts, "Topic: "+reqCtx.Topic)
	}
	if reqCtx.Audience != "" {
		parts = append(parts, "Target Audience: "+reqCtx.Audience)
	}

	parts = append(parts, "Remember: Generate exactly ONE tweet under 280 characters. No examples, no lists, no multiple tweets.")

	return strings.Join(parts, "\n\n"), nil
}

// buildMetadata computes the effectiveness estimate and summary fields.
// Effectiveness averages the strategy score with a rule-balance score and
// gets a 20% boost (capped at 1.0) when trend data was incorporated.
func buildMetadata(p persona.Resolved, s strategy.Strategy, selected []rules.Rule, snapshot *TrendSnapshot) Metadata {
	seen := make(map[rules.Category]bool)
	var categories []rules.Category
	for _, rule := range selected {
		if !seen[rule.Category] {
			seen[rule.Category] = true
			categories = append(categories, rule.Category)
		}
	}

	effectiveness := (s.Effectiveness + ruleBalance(selected)) / 2
	if snapshot != nil && len(snapshot.TrendingTopics) > 0 {
		effectiveness = math.Min(effectiveness*1.2, 1.0)
	}

	return Metadata{
		PersonaTraits:          p.TraitNames(),
		StrategyCategory:       s.Category,
		RuleCategories:         categories,
		EstimatedEffectiveness: effectiveness,
		TrendContext:           snapshot,
	}
}

// ruleBalance scores how well a rule selection works together: category
// diversity (out of 6) and rule count (out of 5), each capped at 1 and
// averaged. No rules at all scores a neutral 0.5.
func ruleBalance(selected []rules.Rule) float64 {
	if len(selected) == 0 {
		return 0.5
	}
	distinct := make(map[rules.Category]bool)
	for _, rule := range selected {
		distinct[rule.Category] = true
	}
	categoryBalance := math.Min(float64(len(distinct))/6, 1)
	countBalance := math.Min(float64(len(selected))/5, 1)
	return (categoryBalance + countBalance) / 2
}

func strategyContext(reqCtx RequestContext) strategy.Context {
	return strategy.Context{
		Topic:    reqCtx.Topic,
		Audience: reqCtx.Audience,
		Goal:     reqCtx.Goal,
		Tone:     reqCtx.Tone,
	}
}

// PersonaOption, StrategyOption, RuleSetOption and RuleOption are the
// summary shapes returned by Options for CLI and API listings.
type PersonaOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TraitOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type StrategyOption struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Category      strategy.Category `json:"category"`
	Effectiveness float64           `json:"effectiveness"`
}

type RuleSetOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RuleOption struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category rules.Category `json:"category"`
	Priority rules.Priority `json:"priority"`
	Required bool           `json:"required"`
}

// Options lists everything a caller can select from when building a request.
type Options struct {
	Personas   []PersonaOption  `json:"personas"`
	Traits     []TraitOption    `json:"traits"`
	Strategies []StrategyOption `json:"strategies"`
	RuleSets   []RuleSetOption  `json:"rule_sets"`
	Rules      []RuleOption     `json:"rules"`
}

// Options returns the selectable catalog entries.
func (o *Orchestrator) Options() Options {
	var opts Options
	for _, p := range o.personas.Personas() {
		opts.Personas = append(opts.Personas, PersonaOption{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	for _, t := range o.personas.Traits() {
		opts.Traits = append(opts.Traits, TraitOption{ID: t.ID, Name: t.Name, Description: t.Description})
	}
	for _, s := range o.strategies.All() {
		opts.Strategies = append(opts.Strategies, StrategyOption{ID: s.ID, Name: s.Name, Category: s.Category, Effectiveness: s.Effectiveness})
	}
	for _, rs := range o.rules.Sets() {
		opts.RuleSets = append(opts.RuleSets, RuleSetOption{ID: rs.ID, Name: rs.Name, Description: rs.Description})
	}
	for _, r := range o.rules.All() {
		opts.Rules = append(opts.Rules, RuleOption{ID: r.ID, Name: r.Name, Category: r.Category, Priority: r.Priority, Required: r.Required})
	}
	return opts
}

// SystemStats aggregates catalog statistics across the three registries.
type SystemStats struct {
	PersonaCount int
	TraitCount   int
	Strategy     strategy.Stats
	Rules        rules.Stats
}

// SystemStats returns catalog counts for status surfaces.
func (o *Orchestrator) SystemStats() SystemStats {
	return SystemStats{
		PersonaCount: len(o.personas.Personas()),
		TraitCount:   len(o.personas.Traits()),
		Strategy:     o.strategies.Stats(),
		Rules:        o.rules.Stats(),
	}
}

// TrendInfo exposes the current trend snapshot, or nil when no provider is
// configured or the provider fails.
func (o *Orchestrator) TrendInfo(ctx context.Context) *trends.Context {
	if o.trends == nil {
		return nil
	}
	data, err := o.trends.TrendContext(ctx)
	if err != nil {
		o.log.Error("error getting trend info", "error", err)
		return nil
	}
	return &data
}

// Personas exposes the persona registry for callers that need lookups beyond
// what Generate covers (name search, trait composition).
func (o *Orchestrator) Personas() *persona.Registry { return o.personas }
