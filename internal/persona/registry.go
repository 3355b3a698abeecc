package persona

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Registry holds the trait and persona catalogs. Inserts are append-only and
// duplicate IDs are not rejected; lookups return the first match in insertion
// order. Not safe for concurrent mutation; random selection is mutex-guarded
// so resolved registries can be read from multiple goroutines.
type Registry struct {
	traits   []Trait
	personas []Persona
	rand     *rand.Rand
	randMu   sync.Mutex
}

// NewRegistry creates an empty registry. The random source drives Random();
// pass a seeded source in tests for determinism. If rnd is nil a time-seeded
// source is used.
func NewRegistry(rnd *rand.Rand) *Registry {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Registry{rand: rnd}
}

// AddTrait appends a trait to the catalog.
func (r *Registry) AddTrait(t Trait) {
	r.traits = append(r.traits, t)
}

// AddPersona appends a persona to the catalog.
func (r *Registry) AddPersona(p Persona) {
	r.personas = append(r.personas, p)
}

// Traits returns a copy of the trait catalog.
func (r *Registry) Traits() []Trait {
	out := make([]Trait, len(r.traits))
	copy(out, r.traits)
	return out
}

// Personas returns a copy of the persona catalog.
func (r *Registry) Personas() []Persona {
	out := make([]Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Resolve expands the persona with the given ID into its Resolved form.
// Trait IDs that don't exist in the catalog are silently dropped; an unknown
// persona ID is an error. This asymmetry is deliberate — callers rely on
// passing partially-known trait lists.
func (r *Registry) Resolve(id string) (Resolved, error) {
	for _, p := range r.personas {
		if p.ID == id {
			return r.resolve(p), nil
		}
	}
	return Resolved{}, fmt.Errorf("persona %q not found", id)
}

// Random resolves a uniformly random persona from the catalog.
func (r *Registry) Random() (Resolved, error) {
	if len(r.personas) == 0 {
		return Resolved{}, fmt.Errorf("no personas registered")
	}
	p := r.personas[r.intn(len(r.personas))]
	return r.resolve(p), nil
}

// ByName finds the first persona whose name or ID contains the given string,
// case-insensitively, and resolves it.
func (r *Registry) ByName(name string) (Resolved, error) {
	needle := strings.ToLower(name)
	for _, p := range r.personas {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.ID), needle) {
			return r.resolve(p), nil
		}
	}
	return Resolved{}, fmt.Errorf("no persona matching %q", name)
}

// FromTraits builds an ad hoc persona from a trait list without storing it in
// the registry. Fails if none of the supplied trait IDs resolve.
func (r *Registry) FromTraits(name string, traitIDs []string, extraInstructions string) (Resolved, error) {
	traits := r.resolveTraits(traitIDs)
	if len(traits) == 0 {
		return Resolved{}, fmt.Errorf("no valid traits found")
	}

	names := make([]string, len(traits))
	for i, t := range traits {
		names[i] = t.Name
	}

	return Resolved{
		ID:                  fmt.Sprintf("generated-%d", time.Now().UnixMilli()),
		Name:                name,
		Description:         "Generated persona combining: " + strings.Join(names, ", "),
		Traits:              traits,
		VoicePrompt:         buildVoicePrompt(traits),
		WritingInstructions: buildWritingInstructions(traits, extraInstructions),
	}, nil
}

// BaseModifications adjusts a base persona in FromBase.
type BaseModifications struct {
	AdditionalTraits   []string
	WritingStyleAppend string
}

// FromBase resolves an existing persona and extends it with additional traits
// and writing-style text. Fails if the base persona ID is unknown; unknown
// additional trait IDs are dropped like everywhere else.
func (r *Registry) FromBase(baseID string, mods BaseModifications) (Resolved, error) {
	var base *Persona
	for i := range r.personas {
		if r.personas[i].ID == baseID {
			base = &r.personas[i]
			break
		}
	}
	if base == nil {
		return Resolved{}, fmt.Errorf("base persona %q not found", baseID)
	}

	traits := r.resolveTraits(base.BaseTraits)
	traits = append(traits, r.resolveTraits(mods.AdditionalTraits)...)

	instructions := buildWritingInstructions(traits, "")
	if mods.WritingStyleAppend != "" {
		instructions += " " + mods.WritingStyleAppend
	}

	return Resolved{
		ID:                  fmt.Sprintf("modified-%s-%d", baseID, time.Now().UnixMilli()),
		Name:                "Modified " + base.Name,
		Description:         "Modified version of " + base.Name,
		Traits:              traits,
		VoicePrompt:         buildVoicePrompt(traits),
		WritingInstructions: instructions,
	}, nil
}

func (r *Registry) resolve(p Persona) Resolved {
	traits := r.resolveTraits(p.BaseTraits)
	return Resolved{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Traits:              traits,
		VoicePrompt:         buildVoicePrompt(traits),
		WritingInstructions: buildWritingInstructions(traits, ""),
	}
}

func (r *Registry) intn(n int) int {
	r.randMu.Lock()
	defer r.randMu.Unlock()
	return r.rand.Intn(n)
}

// resolveTraits returns full trait records for the given IDs, preserving
// catalog order and skipping IDs with no match.
func (r *Registry) resolveTraits(ids []string) []Trait {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []Trait
	for _, t := range r.traits {
		if wanted[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func buildVoicePrompt(traits []Trait) string {
	parts := make([]string, len(traits))
	for i, t := range traits {
		parts[i] = t.Name + ": " + t.Description
	}
	return "Voice: " + strings.Join(parts, "; ")
}

func buildWritingInstructions(traits []Trait, extra string) string {
	parts := make([]string, len(traits))
	for i, t := range traits {
		// Weights print exactly as configured; %.1f would round 0.85 to 0.9.
		parts[i] = fmt.Sprintf("Incorporate %s (weight: %s)",
			t.Name, strconv.FormatFloat(t.Weight, 'f', -1, 64))
	}
	s := strings.Join(parts, "; ")
	if extra != "" {
		s += "; " + extra
	}
	return s
}
