package rules

import (
	"math/rand"
	"strings"
	"testing"
)

func seededRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(rand.New(rand.NewSource(1)))
	r.Add(Rule{ID: "length", Name: "Length Limit", Text: "stay under the character limit",
		Category: CategoryFormat, Priority: PriorityHigh, Required: true})
	r.Add(Rule{ID: "accuracy", Name: "Accuracy", Text: "do not state unverified claims as fact",
		Category: CategorySafety, Priority: PriorityHigh, Required: true})
	r.Add(Rule{ID: "question", Name: "Ask Questions", Text: "invite replies with a question",
		Category: CategoryEngagement, Priority: PriorityMedium})
	r.Add(Rule{ID: "hashtags", Name: "Hashtag Budget", Text: "use at most two hashtags",
		Category: CategoryFormat, Priority: PriorityLow})
	r.Add(Rule{ID: "voice", Name: "Brand Voice", Text: "stay in the account's voice",
		Category: CategoryBranding, Priority: PriorityMedium})
	r.AddSet(Set{ID: "starter", Name: "Starter", Rules: []string{"question", "length", "hashtags"}})
	return r
}

func TestFromSet_ExactSubsetInCatalogOrder(t *testing.T) {
	r := seededRegistry(t)

	got, err := r.FromSet("starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Catalog order, not the set's declared order.
	wantIDs := []string{"length", "question", "hashtags"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d rules, got %d", len(wantIDs), len(got))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestFromSet_Unknown(t *testing.T) {
	r := seededRegistry(t)
	if _, err := r.FromSet("nope"); err == nil {
		t.Fatal("expected error for unknown rule set")
	}
}

func TestApply_EmptyAndNoMatch(t *testing.T) {
	r := seededRegistry(t)
	if got := r.Apply(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := r.Apply([]string{"does-not-exist"}); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestApply_PriorityOrdering(t *testing.T) {
	r := seededRegistry(t)

	got := r.Apply([]string{"hashtags", "question", "length"})
	if !strings.HasPrefix(got, "Rules: ") {
		t.Fatalf("missing label prefix: %q", got)
	}
	// high before medium before low.
	iLen := strings.Index(got, "Length Limit")
	iQ := strings.Index(got, "Ask Questions")
	iH := strings.Index(got, "Hashtag Budget")
	if iLen == -1 || iQ == -1 || iH == -1 {
		t.Fatalf("missing rules in output: %q", got)
	}
	if !(iLen < iQ && iQ < iH) {
		t.Errorf("rules not ordered by priority: %q", got)
	}
}

func TestApply_TiesKeepCatalogOrder(t *testing.T) {
	r := seededRegistry(t)

	// question and voice are both medium; question comes first in the catalog.
	got := r.Apply([]string{"voice", "question"})
	if strings.Index(got, "Ask Questions") > strings.Index(got, "Brand Voice") {
		t.Errorf("tie not broken by catalog order: %q", got)
	}
}

func TestForContext_RequiredSurviveRiskFilter(t *testing.T) {
	r := seededRegistry(t)

	// Low risk allows only low-priority optional rules, but both required
	// rules are high priority and must still be present.
	got := r.ForContext(ContextFilter{RiskLevel: "low"})

	ids := make(map[string]bool, len(got))
	for _, rule := range got {
		ids[rule.ID] = true
	}
	for _, required := range []string{"length", "accuracy"} {
		if !ids[required] {
			t.Errorf("required rule %s excluded by risk filter", required)
		}
	}
	if ids["question"] {
		t.Error("medium-priority optional rule should be filtered at low risk")
	}
	if !ids["hashtags"] {
		t.Error("low-priority optional rule should survive at low risk")
	}
}

func TestForContext_HighRiskIncludesAll(t *testing.T) {
	r := seededRegistry(t)
	got := r.ForContext(ContextFilter{RiskLevel: "high"})
	if len(got) != 5 {
		t.Errorf("expected all 5 rules at high risk, got %d", len(got))
	}
}

func TestValidate_Warnings(t *testing.T) {
	r := seededRegistry(t)

	res := r.Validate([]string{"length", "hashtags"})
	if !res.Valid {
		t.Error("expected valid result")
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", res.Conflicts)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "no engagement rules") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing-engagement warning, got %v", res.Warnings)
	}

	res = r.Validate([]string{"length", "question"})
	for _, w := range res.Warnings {
		if strings.Contains(w, "no engagement rules") {
			t.Errorf("unexpected warning with engagement rule present: %v", res.Warnings)
		}
	}
}

func TestStats(t *testing.T) {
	r := seededRegistry(t)
	st := r.Stats()
	if st.Total != 5 || st.RequiredCount != 2 || st.SetCount != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.ByCategory[CategoryFormat] != 2 {
		t.Errorf("expected 2 format rules, got %d", st.ByCategory[CategoryFormat])
	}
	if st.ByPriority[PriorityMedium] != 2 {
		t.Errorf("expected 2 medium rules, got %d", st.ByPriority[PriorityMedium])
	}
}
