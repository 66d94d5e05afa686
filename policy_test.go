package kernel

import (
	"testing"
	"time"
)

func basePolicy(name string, version int, scope string, priority int) *AccountingPolicy {
	return &AccountingPolicy{
		Name:      name,
		Version:   version,
		EventType: "sale",
		Scope:     scope,
		Precedence: Precedence{
			Mode:     PrecedenceNormal,
			Priority: priority,
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPolicyRegistryExactScopeBeatsWildcard(t *testing.T) {
	reg := NewPolicyRegistry()
	wildcard := basePolicy("general", 1, "*", 0)
	exact := basePolicy("department_a", 1, "dept:a", 0)
	if err := reg.Register(wildcard, "", 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(exact, "", 0); err != nil {
		t.Fatal(err)
	}

	selected, _, err := reg.FindForEvent("sale", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "dept:a", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name != "department_a" {
		t.Fatalf("expected exact scope match to win, got %s", selected.Name)
	}
}

func TestPolicyRegistryOverrideStripsNamedPeer(t *testing.T) {
	reg := NewPolicyRegistry()
	base := basePolicy("standard", 1, "*", 0)
	override := basePolicy("special_case", 1, "*", 0)
	override.Precedence = Precedence{Mode: PrecedenceOverride, Overrides: []string{"standard"}}

	if err := reg.Register(base, "", 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(override, "", 0); err != nil {
		t.Fatal(err)
	}

	selected, _, err := reg.FindForEvent("sale", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "*", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name != "special_case" {
		t.Fatalf("expected override policy to win, got %s", selected.Name)
	}
}

func TestPolicyRegistryNameTiebreakIsStable(t *testing.T) {
	reg := NewPolicyRegistry()
	a := basePolicy("policy_a", 1, "*", 5)
	b := basePolicy("policy_b", 1, "*", 5)
	// Same scope specificity, same priority, and distinct names -- the name
	// tiebreak always settles this deterministically, so force an actual
	// tie by giving both candidates the same name-sort position artificially
	// impossible; instead assert the resolver picks the lexicographically
	// first name rather than erroring, since tie-break by name always
	// terminates ties among distinct names.
	if err := reg.Register(a, "", 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(b, "", 0); err != nil {
		t.Fatal(err)
	}
	selected, _, err := reg.FindForEvent("sale", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "*", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name != "policy_a" {
		t.Fatalf("expected lexicographically first name to break the tie, got %s", selected.Name)
	}
}

func TestPolicyRegistryNoMatchReturnsNotFound(t *testing.T) {
	reg := NewPolicyRegistry()
	_, _, err := reg.FindForEvent("refund", time.Now(), "*", nil)
	if _, ok := err.(*PolicyNotFoundError); !ok {
		t.Fatalf("expected *PolicyNotFoundError, got %T", err)
	}
}

func TestPolicyRegistryWhereClausesPreferredOverUnconditional(t *testing.T) {
	reg := NewPolicyRegistry()
	unconditional := basePolicy("default_sale", 1, "*", 0)
	conditional := basePolicy("large_sale", 1, "*", 0)
	conditional.WhereClauses = []WhereClause{{FieldPath: "payload.amount >= ", Expected: true}}
	// Encode the comparison through the "field operator literal" marker
	// convention recognized by matchesWhereClause.
	conditional.WhereClauses[0].FieldPath = "payload.amount >= 1000"

	if err := reg.Register(unconditional, "", 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(conditional, "", 0); err != nil {
		t.Fatal(err)
	}

	payload := map[string]any{"amount": 5000.0}
	selected, _, err := reg.FindForEvent("sale", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "*", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if selected.Name != "large_sale" {
		t.Fatalf("expected matching where-clause policy to win, got %s", selected.Name)
	}
}

func TestPolicyRegistryDuplicateRegistrationFails(t *testing.T) {
	reg := NewPolicyRegistry()
	p := basePolicy("dup", 1, "*", 0)
	if err := reg.Register(p, "", 0); err != nil {
		t.Fatal(err)
	}
	err := reg.Register(p, "", 0)
	if _, ok := err.(*PolicyAlreadyRegisteredError); !ok {
		t.Fatalf("expected *PolicyAlreadyRegisteredError, got %T", err)
	}
}
