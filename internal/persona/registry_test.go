package persona

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
)

func seededRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(rand.New(rand.NewSource(1)))
	r.AddTrait(Trait{ID: "curious", Name: "Curious", Description: "asks open questions", Weight: 0.8})
	r.AddTrait(Trait{ID: "concise", Name: "Concise", Description: "keeps it short", Weight: 0.6})
	r.AddTrait(Trait{ID: "warm", Name: "Warm", Description: "friendly and encouraging", Weight: 0.7})
	r.AddPersona(Persona{
		ID:          "explainer",
		Name:        "Curious Explainer",
		Description: "Breaks down complex topics",
		BaseTraits:  []string{"curious", "concise"},
		Tone:        ToneCasual,
		Vocabulary:  VocabSimple,
	})
	r.AddPersona(Persona{
		ID:          "cheerleader",
		Name:        "Community Cheerleader",
		Description: "Celebrates community wins",
		BaseTraits:  []string{"warm", "missing-trait"},
		Tone:        ToneEnthusiastic,
		Vocabulary:  VocabSimple,
	})
	return r
}

func TestResolve_ContainsTraitDescriptions(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.Resolve("explainer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Traits) != 2 {
		t.Fatalf("expected 2 traits, got %d", len(got.Traits))
	}
	for _, desc := range []string{"asks open questions", "keeps it short"} {
		if !strings.Contains(got.VoicePrompt, desc) {
			t.Errorf("voice prompt missing %q: %s", desc, got.VoicePrompt)
		}
	}
	if !strings.Contains(got.WritingInstructions, "Incorporate Curious (weight: 0.8)") {
		t.Errorf("writing instructions malformed: %s", got.WritingInstructions)
	}
}

func TestWritingInstructions_ExactWeights(t *testing.T) {
	r := NewRegistry(rand.New(rand.NewSource(1)))
	r.AddTrait(Trait{ID: "precise", Name: "Precise", Description: "exact wording", Weight: 0.85})
	r.AddTrait(Trait{ID: "whole", Name: "Whole", Description: "round number", Weight: 1})
	r.AddPersona(Persona{ID: "p", Name: "P", BaseTraits: []string{"precise", "whole"}})

	got, err := r.Resolve("p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Weights must not be rounded: 0.85 stays 0.85, 1 prints as 1.
	if !strings.Contains(got.WritingInstructions, "Incorporate Precise (weight: 0.85)") {
		t.Errorf("weight rounded: %s", got.WritingInstructions)
	}
	if !strings.Contains(got.WritingInstructions, "Incorporate Whole (weight: 1)") {
		t.Errorf("whole weight malformed: %s", got.WritingInstructions)
	}
}

func TestResolve_UnknownTraitsDropped(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.Resolve("cheerleader")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "missing-trait" resolves to nothing; no error, just fewer traits.
	if len(got.Traits) != 1 {
		t.Fatalf("expected 1 trait, got %d", len(got.Traits))
	}
	if got.Traits[0].ID != "warm" {
		t.Errorf("expected warm trait, got %s", got.Traits[0].ID)
	}
}

func TestResolve_UnknownPersona(t *testing.T) {
	r := seededRegistry(t)
	if _, err := r.Resolve("nope"); err == nil {
		t.Fatal("expected error for unknown persona")
	}
}

func TestRandom_AlwaysResolvable(t *testing.T) {
	r := seededRegistry(t)
	for i := 0; i < 20; i++ {
		got, err := r.Random()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != "explainer" && got.ID != "cheerleader" {
			t.Fatalf("unexpected persona %s", got.ID)
		}
	}
}

func TestRandom_Concurrent(t *testing.T) {
	r := seededRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.Random(); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestRandom_Empty(t *testing.T) {
	r := NewRegistry(rand.New(rand.NewSource(1)))
	if _, err := r.Random(); err == nil {
		t.Fatal("expected error for empty registry")
	}
}

func TestByName_CaseInsensitiveSubstring(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.ByName("EXPLAIN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "explainer" {
		t.Errorf("expected explainer, got %s", got.ID)
	}

	// ID match also counts.
	got, err = r.ByName("cheer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "cheerleader" {
		t.Errorf("expected cheerleader, got %s", got.ID)
	}

	if _, err := r.ByName("zzz"); err == nil {
		t.Fatal("expected error for no match")
	}
}

func TestFromTraits(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.FromTraits("Custom", []string{"curious", "warm", "unknown"}, "keep it playful")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Traits) != 2 {
		t.Fatalf("expected 2 traits, got %d", len(got.Traits))
	}
	if !strings.HasSuffix(got.WritingInstructions, "; keep it playful") {
		t.Errorf("extra instructions not appended: %s", got.WritingInstructions)
	}

	if _, err := r.FromTraits("Empty", []string{"unknown"}, ""); err == nil {
		t.Fatal("expected error when no trait resolves")
	}
}

func TestFromBase(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.FromBase("explainer", BaseModifications{
		AdditionalTraits:   []string{"warm"},
		WritingStyleAppend: "End with a question.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Traits) != 3 {
		t.Fatalf("expected 3 traits, got %d", len(got.Traits))
	}
	if !strings.HasSuffix(got.WritingInstructions, "End with a question.") {
		t.Errorf("style append missing: %s", got.WritingInstructions)
	}

	if _, err := r.FromBase("nope", BaseModifications{}); err == nil {
		t.Fatal("expected error for unknown base persona")
	}
}
