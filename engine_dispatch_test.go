package kernel

import (
	"testing"
	"time"
)

func TestEngineDispatcherAllSucceeded(t *testing.T) {
	pack := &CompiledPolicyPack{
		ResolvedEngineParams: map[string]FrozenEngineParams{},
	}
	dispatcher := NewEngineDispatcher(pack, NewDeterministicClock(time.Time{}))
	if err := dispatcher.Register("variance", NewVarianceEngine()); err != nil {
		t.Fatal(err)
	}

	policy := &AccountingPolicy{Name: "p", RequiredEngines: []string{"variance"}}
	payload := map[string]any{
		"expected_price": NewMoney(1000, "USD"),
		"actual_price":   NewMoney(1100, "USD"),
		"quantity":       int64(2),
	}
	result := dispatcher.Dispatch(policy, payload)
	if !result.AllSucceeded {
		t.Fatalf("expected all engines to succeed, errors: %v", result.Errors)
	}
	if len(result.Traces) != 1 || !result.Traces[0].Success {
		t.Fatalf("expected one successful trace, got %+v", result.Traces)
	}
}

func TestEngineDispatcherMissingInvokerDoesNotAbortOthers(t *testing.T) {
	pack := &CompiledPolicyPack{ResolvedEngineParams: map[string]FrozenEngineParams{}}
	dispatcher := NewEngineDispatcher(pack, NewDeterministicClock(time.Time{}))
	if err := dispatcher.Register("valuation", NewValuationEngine()); err != nil {
		t.Fatal(err)
	}

	policy := &AccountingPolicy{Name: "p", RequiredEngines: []string{"variance", "valuation"}}
	payload := map[string]any{
		"book_value":   NewMoney(1000, "USD"),
		"market_value": NewMoney(900, "USD"),
	}
	result := dispatcher.Dispatch(policy, payload)
	if result.AllSucceeded {
		t.Fatal("expected AllSucceeded false when one engine has no registered invoker")
	}
	if len(result.Traces) != 2 {
		t.Fatalf("expected a trace for every required engine including the missing one, got %d", len(result.Traces))
	}
	successCount := 0
	for _, tr := range result.Traces {
		if tr.Success {
			successCount++
		}
	}
	if successCount != 1 {
		t.Fatalf("expected exactly one successful trace, got %d", successCount)
	}
}

func TestEngineDispatcherEmptyRequiredEnginesShortcuts(t *testing.T) {
	pack := &CompiledPolicyPack{ResolvedEngineParams: map[string]FrozenEngineParams{}}
	dispatcher := NewEngineDispatcher(pack, NewDeterministicClock(time.Time{}))
	policy := &AccountingPolicy{Name: "p"}
	result := dispatcher.Dispatch(policy, map[string]any{})
	if !result.AllSucceeded || len(result.Traces) != 0 {
		t.Fatalf("expected a trivial success with no traces, got %+v", result)
	}
}

func TestEngineRegistrationNameMismatch(t *testing.T) {
	pack := &CompiledPolicyPack{ResolvedEngineParams: map[string]FrozenEngineParams{}}
	dispatcher := NewEngineDispatcher(pack, NewDeterministicClock(time.Time{}))
	err := dispatcher.Register("variance", NewValuationEngine())
	if _, ok := err.(*EngineRegistrationError); !ok {
		t.Fatalf("expected *EngineRegistrationError, got %T", err)
	}
}
