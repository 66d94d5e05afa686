package kernel

import "testing"

func TestEvaluateExpressionComparisonOperators(t *testing.T) {
	payload := map[string]any{"amount": 100.0}
	cases := []struct {
		expr string
		want bool
	}{
		{"payload.amount >= 100", true},
		{"payload.amount >= 101", false},
		{"payload.amount <= 100", true},
		{"payload.amount < 100", false},
		{"payload.amount > 99", true},
		{"payload.amount != 50", true},
		{"payload.amount == 100", true},
	}
	for _, c := range cases {
		if got := evaluateExpression(payload, c.expr); got != c.want {
			t.Errorf("evaluateExpression(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEvaluateExpressionBareFieldTruthiness(t *testing.T) {
	truthyPayload := map[string]any{"flagged": true}
	if !evaluateExpression(truthyPayload, "payload.flagged") {
		t.Fatal("expected bare field path to be truthy")
	}
	falsyPayload := map[string]any{"flagged": false}
	if evaluateExpression(falsyPayload, "payload.flagged") {
		t.Fatal("expected bare field path to be falsy")
	}
	if evaluateExpression(map[string]any{}, "payload.missing") {
		t.Fatal("a missing field must evaluate to false")
	}
}

func TestEvaluateExpressionLessEqualNotMisSplitAsLessThan(t *testing.T) {
	payload := map[string]any{"amount": 100.0}
	// If "<=" were mis-split as "<" the RHS would be "= 100" and fail to parse
	// as a number, producing a false string-comparison instead of the
	// intended numeric one.
	if !evaluateExpression(payload, "payload.amount <= 100") {
		t.Fatal("expected <= 100 to hold for amount of exactly 100")
	}
}

func TestEvaluateGuardsFirstTriggerWins(t *testing.T) {
	rules := []Guard{
		{Name: "g1", AppliesTo: "*", Type: GuardReject, Expression: "payload.amount > 1000", ReasonCode: "TOO_LARGE"},
		{Name: "g2", AppliesTo: "*", Type: GuardBlock, Expression: "payload.amount > 1000", ReasonCode: "NEEDS_REVIEW"},
	}
	verdict := EvaluateGuards(map[string]any{"amount": 5000.0}, "sale", rules)
	if verdict.Passed {
		t.Fatal("expected guard to trigger")
	}
	if !verdict.Rejected || verdict.ReasonCode != "TOO_LARGE" {
		t.Fatalf("expected first matching guard (g1/reject) to win, got %+v", verdict)
	}
}

func TestEvaluateGuardsAppliesToFilter(t *testing.T) {
	rules := []Guard{
		{Name: "g1", AppliesTo: "refund", Type: GuardReject, Expression: "payload.amount > 0", ReasonCode: "X"},
	}
	verdict := EvaluateGuards(map[string]any{"amount": 100.0}, "sale", rules)
	if !verdict.Passed {
		t.Fatal("guard scoped to a different event type must not apply")
	}
}
