package strategy

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Category classifies what a strategy is trying to achieve.
type Category string

const (
	CategoryEngagement    Category = "engagement"
	CategoryInformation   Category = "information"
	CategoryEntertainment Category = "entertainment"
	CategoryControversy   Category = "controversy"
	CategoryCommunity     Category = "community"
	CategoryPersonal      Category = "personal"
)

// Categories lists every known category in a stable order.
var Categories = []Category{
	CategoryEngagement,
	CategoryInformation,
	CategoryEntertainment,
	CategoryControversy,
	CategoryCommunity,
	CategoryPersonal,
}

// Strategy is a content-generation approach with a templated prompt fragment.
// The prompt template may contain {topic}, {audience} and {goal} placeholders.
type Strategy struct {
	ID             string
	Name           string
	Description    string
	PromptTemplate string
	Category       Category
	Effectiveness  float64 // in [0,1]
	UseCases       []string
	Examples       []string
}

// Context carries the request-level hints used to pick and render a strategy.
type Context struct {
	Topic    string
	Audience string
	Goal     string // matches a Category or a use-case tag
	Tone     string // positive, negative, neutral, mixed
}

// Registry holds the strategy catalog. Append-only; duplicate IDs coexist and
// lookups return the first match. Random selection is mutex-guarded for
// concurrent readers.
type Registry struct {
	strategies []Strategy
	rand       *rand.Rand
	randMu     sync.Mutex
}

// NewRegistry creates an empty registry. Pass a seeded random source for
// deterministic selection in tests; nil falls back to a time-seeded source.
func NewRegistry(rnd *rand.Rand) *Registry {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{rand: rnd}
}

// Add appends a strategy to the catalog.
func (r *Registry) Add(s Strategy) {
	r.strategies = append(r.strategies, s)
}

// All returns a copy of the catalog.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies)
	return out
}

// ByCategory returns all strategies in the given category, in catalog order.
func (r *Registry) ByCategory(c Category) []Strategy {
	var out []Strategy
	for _, s := range r.strategies {
		if s.Category == c {
			out = append(out, s)
		}
	}
	return out
}

// Random returns a uniformly random strategy.
func (r *Registry) Random() (Strategy, error) {
	if len(r.strategies) == 0 {
		return Strategy{}, fmt.Errorf("no strategies registered")
	}
	return r.strategies[r.intn(len(r.strategies))], nil
}

// RandomByCategory returns a random strategy from the given category, or an
// error when the category is empty.
func (r *Registry) RandomByCategory(c Category) (Strategy, error) {
	candidates := r.ByCategory(c)
	if len(candidates) == 0 {
		return Strategy{}, fmt.Errorf("no strategies found for category %q", c)
	}
	return candidates[r.intn(len(candidates))], nil
}

func (r *Registry) intn(n int) int {
	r.randMu.Lock()
	defer r.randMu.Unlock()
	return r.rand.Intn(n)
}

// BestForContext picks the most effective strategy matching the context. The
// goal matches a strategy's category or a substring of its use-case tags; the
// tone match uses inferTone, which is a keyword-scan heuristic over the
// strategy's description and examples, not a stored classification. When
// filtering leaves nothing, a random strategy is returned instead.
func (r *Registry) BestForContext(ctx Context) (Strategy, error) {
	filtered := r.strategies

	if ctx.Goal != "" {
		var byGoal []Strategy
		for _, s := range filtered {
			if string(s.Category) == ctx.Goal || useCasesContain(s.UseCases, ctx.Goal) {
				byGoal = append(byGoal, s)
			}
		}
		filtered = byGoal
	}

	if ctx.Tone != "" {
		var byTone []Strategy
		for _, s := range filtered {
			tone := inferTone(s)
			if tone == ctx.Tone || tone == "mixed" {
				byTone = append(byTone, s)
			}
		}
		filtered = byTone
	}

	if len(filtered) == 0 {
		return r.Random()
	}

	sorted := make([]Strategy, len(filtered))
	copy(sorted, filtered)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Effectiveness > sorted[j].Effectiveness
	})
	return sorted[0], nil
}

var placeholderRe = regexp.MustCompile(`\{\w+\}`)

// Apply renders the strategy's prompt template with context values. Each
// placeholder is substituted once; any placeholder left unresolved is
// stripped from the output.
func (r *Registry) Apply(id string, ctx Context) (string, error) {
	var strat *Strategy
	for i := range r.strategies {
		if r.strategies[i].ID == id {
			strat = &r.strategies[i]
			break
		}
	}
	if strat == nil {
		return "", fmt.Errorf("strategy %q not found", id)
	}

	prompt := strat.PromptTemplate
	if ctx.Topic != "" {
		prompt = strings.Replace(prompt, "{topic}", ctx.Topic, 1)
	}
	if ctx.Audience != "" {
		prompt = strings.Replace(prompt, "{audience}", ctx.Audience, 1)
	}
	if ctx.Goal != "" {
		prompt = strings.Replace(prompt, "{goal}", ctx.Goal, 1)
	}

	return placeholderRe.ReplaceAllString(prompt, ""), nil
}

// Stats summarizes the catalog.
type Stats struct {
	Total                int
	ByCategory           map[Category]int
	AverageEffectiveness float64
}

// Stats returns catalog counts and the mean effectiveness.
func (r *Registry) Stats() Stats {
	st := Stats{
		Total:      len(r.strategies),
		ByCategory: make(map[Category]int, len(Categories)),
	}
	for _, c := range Categories {
		st.ByCategory[c] = 0
	}
	var sum float64
	for _, s := range r.strategies {
		st.ByCategory[s.Category]++
		sum += s.Effectiveness
	}
	if st.Total > 0 {
		st.AverageEffectiveness = sum / float64(st.Total)
	}
	return st
}

func useCasesContain(useCases []string, goal string) bool {
	for _, uc := range useCases {
		if strings.Contains(uc, goal) {
			return true
		}
	}
	return false
}

var (
	positiveWords = []string{"positive", "happy", "excited", "great", "amazing", "love", "enjoy"}
	negativeWords = []string{"negative", "angry", "frustrated", "hate", "terrible", "awful", "disappointed"}
)

// inferTone guesses a strategy's tone by scanning its description and
// examples for sentiment keywords. Any sentiment keyword at all yields
// "mixed"; otherwise a couple of topical hints decide, defaulting to
// "neutral". Deliberately loose — do not replace with a stored field.
func inferTone(s Strategy) string {
	desc := strings.ToLower(s.Description)
	examples := strings.ToLower(strings.Join(s.Examples, " "))

	for _, w := range append(append([]string{}, positiveWords...), negativeWords...) {
		if strings.Contains(desc, w) || strings.Contains(examples, w) {
			return "mixed"
		}
	}
	if strings.Contains(desc, "controversy") || strings.Contains(desc, "criticism") {
		return "negative"
	}
	if strings.Contains(desc, "celebration") || strings.Contains(desc, "praise") {
		return "positive"
	}
	return "neutral"
}
