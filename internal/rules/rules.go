package rules

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category classifies what aspect of a post a rule constrains.
type Category string

const (
	CategoryContent    Category = "content"
	CategoryFormat     Category = "format"
	CategorySafety     Category = "safety"
	CategoryEngagement Category = "engagement"
	CategoryBranding   Category = "branding"
	CategoryLegal      Category = "legal"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryContent,
	CategoryFormat,
	CategorySafety,
	CategoryEngagement,
	CategoryBranding,
	CategoryLegal,
}

// Priority orders rules when rendering.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func priorityWeight(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Rule is a constraint or guidance statement applied to generated content.
type Rule struct {
	ID          string
	Name        string
	Description string
	Text        string
	Category    Category
	Priority    Priority
	Required    bool // required rules are applied to every default request
	Examples    []string
}

// Set is a named view over the rule catalog; it holds rule IDs, never rule data.
type Set struct {
	ID          string
	Name        string
	Description string
	Rules       []string // rule IDs
	UseCases    []string
}

// ContextFilter narrows rule selection for a request.
type ContextFilter struct {
	Audience  string
	Topic     string
	Goal      string
	RiskLevel string // low, medium, high
}

// ValidationResult reports heuristic checks over a rule selection.
type ValidationResult struct {
	Valid     bool
	Conflicts []string
	Warnings  []string
}

// Registry holds the rule and rule-set catalogs. Append-only; duplicates
// coexist with first-match lookups. Random selection is mutex-guarded for
// concurrent readers.
type Registry struct {
	rules  []Rule
	sets   []Set
	rand   *rand.Rand
	randMu sync.Mutex
}

// NewRegistry creates an empty registry with the given random source
// (nil → time-seeded).
func NewRegistry(rnd *rand.Rand) *Registry {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{rand: rnd}
}

// Add appends a rule to the catalog.
func (r *Registry) Add(rule Rule) {
	r.rules = append(r.rules, rule)
}

// AddSet appends a rule set to the catalog.
func (r *Registry) AddSet(s Set) {
	r.sets = append(r.sets, s)
}

// All returns a copy of the rule catalog.
func (r *Registry) All() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Sets returns a copy of the rule-set catalog.
func (r *Registry) Sets() []Set {
	out := make([]Set, len(r.sets))
	copy(out, r.sets)
	return out
}

// ByCategory returns rules in the given category, in catalog order.
func (r *Registry) ByCategory(c Category) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Category == c {
			out = append(out, rule)
		}
	}
	return out
}

// ByPriority returns rules with the given priority, in catalog order.
func (r *Registry) ByPriority(p Priority) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Priority == p {
			out = append(out, rule)
		}
	}
	return out
}

// Required returns every rule flagged as required.
func (r *Registry) Required() []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Required {
			out = append(out, rule)
		}
	}
	return out
}

// FromSet returns the rules whose IDs appear in the named set, preserving
// catalog order rather than the set's declared order. Unknown set IDs are an
// error (unlike unknown rule IDs inside a set, which are simply absent).
func (r *Registry) FromSet(setID string) ([]Rule, error) {
	var set *Set
	for i := range r.sets {
		if r.sets[i].ID == setID {
			set = &r.sets[i]
			break
		}
	}
	if set == nil {
		return nil, fmt.Errorf("rule set %q not found", setID)
	}
	return r.byIDs(set.Rules), nil
}

// RandomSet returns a uniformly random rule set.
func (r *Registry) RandomSet() (Set, error) {
	if len(r.sets) == 0 {
		return Set{}, fmt.Errorf("no rule sets registered")
	}
	r.randMu.Lock()
	s := r.sets[r.rand.Intn(len(r.sets))]
	r.randMu.Unlock()
	return s, nil
}

// Apply renders the selected rules into a single prompt line. Rules are
// ordered by descending priority weight (ties keep catalog order) and joined
// as "name: text" pairs. Returns "" when nothing matches.
func (r *Registry) Apply(ruleIDs []string) string {
	selected := r.byIDs(ruleIDs)
	if len(selected) == 0 {
		return ""
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return priorityWeight(selected[i].Priority) > priorityWeight(selected[j].Priority)
	})

	parts := make([]string, len(selected))
	for i, rule := range selected {
		parts[i] = rule.Name + ": " + rule.Text
	}
	return "Rules: " + strings.Join(parts, "; ")
}

// ForContext selects rules for a request context. A risk level restricts
// optional rules to the cumulative priority tiers it allows (low→{low},
// medium→{low,medium}, high→all), but required rules are always included
// regardless of the filter.
func (r *Registry) ForContext(ctx ContextFilter) []Rule {
	filtered := r.rules

	if ctx.RiskLevel != "" {
		allowed := allowedPriorities(ctx.RiskLevel)
		var byRisk []Rule
		for _, rule := range filtered {
			if allowed[rule.Priority] {
				byRisk = append(byRisk, rule)
			}
		}
		filtered = byRisk
	}

	out := r.Required()
	for _, rule := range filtered {
		if !rule.Required {
			out = append(out, rule)
		}
	}
	return out
}

func allowedPriorities(risk string) map[Priority]bool {
	allowed := map[Priority]bool{PriorityLow: true}
	switch risk {
	case "medium":
		allowed[PriorityMedium] = true
	case "high":
		allowed[PriorityMedium] = true
		allowed[PriorityHigh] = true
	}
	return allowed
}

// Validate runs heuristic checks over a rule selection. The current catalog
// has no hard conflicts, so only warnings are produced: too many safety rules
// limit creativity, and zero engagement rules usually means a flat post.
func (r *Registry) Validate(ruleIDs []string) ValidationResult {
	selected := r.byIDs(ruleIDs)

	var safety, engagement int
	for _, rule := range selected {
		switch rule.Category {
		case CategorySafety:
			safety++
		case CategoryEngagement:
			engagement++
		}
	}

	var warnings []string
	if safety > 3 {
		warnings = append(warnings, "many safety rules may limit creativity")
	}
	if engagement == 0 {
		warnings = append(warnings, "no engagement rules specified")
	}

	return ValidationResult{Valid: true, Warnings: warnings}
}

// Stats summarizes the catalogs.
type Stats struct {
	Total         int
	ByCategory    map[Category]int
	ByPriority    map[Priority]int
	RequiredCount int
	SetCount      int
}

// Stats returns catalog counts.
func (r *Registry) Stats() Stats {
	st := Stats{
		Total:      len(r.rules),
		ByCategory: make(map[Category]int, len(Categories)),
		ByPriority: map[Priority]int{PriorityHigh: 0, PriorityMedium: 0, PriorityLow: 0},
		SetCount:   len(r.sets),
	}
	for _, c := range Categories {
		st.ByCategory[c] = 0
	}
	for _, rule := range r.rules {
		st.ByCategory[rule.Category]++
		st.ByPriority[rule.Priority]++
		if rule.Required {
			st.RequiredCount++
		}
	}
	return st
}

// ByIDs returns the rules whose IDs appear in ids, preserving catalog order.
// Unknown IDs are silently absent from the result.
func (r *Registry) ByIDs(ids []string) []Rule {
	return r.byIDs(ids)
}

// byIDs returns the rules whose IDs appear in ids, preserving catalog order.
func (r *Registry) byIDs(ids []string) []Rule {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []Rule
	for _, rule := range r.rules {
		if wanted[rule.ID] {
			out = append(out, rule)
		}
	}
	return out
}
