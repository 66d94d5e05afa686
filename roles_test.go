package kernel

import (
	"testing"
	"time"
)

func TestRoleResolverProgressiveSpecificity(t *testing.T) {
	pack := &CompiledPolicyPack{
		RoleBindings: map[RoleBindingKey]string{
			{Role: "cash"}:                                    "acct-cash-default",
			{Role: "cash", EventType: "refund"}:                "acct-cash-refund",
			{Role: "cash", EventType: "refund", Dimension: "eu"}: "acct-cash-refund-eu",
		},
	}
	resolver := NewRoleResolver(pack, map[string]*Account{})

	if id, ok := resolver.Resolve("cash", "refund", "eu"); !ok || id != "acct-cash-refund-eu" {
		t.Fatalf("expected the most specific binding, got %q, %v", id, ok)
	}
	if id, ok := resolver.Resolve("cash", "refund", "us"); !ok || id != "acct-cash-refund" {
		t.Fatalf("expected the event-type-only binding, got %q, %v", id, ok)
	}
	if id, ok := resolver.Resolve("cash", "sale", ""); !ok || id != "acct-cash-default" {
		t.Fatalf("expected the bare-role binding, got %q, %v", id, ok)
	}
	if _, ok := resolver.Resolve("unknown_role", "sale", ""); ok {
		t.Fatal("expected no binding for an unregistered role")
	}
}

func TestRoleResolverRejectsClosedAccount(t *testing.T) {
	closedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pack := &CompiledPolicyPack{
		RoleBindings: map[RoleBindingKey]string{{Role: "cash"}: "acct-cash"},
	}
	accounts := map[string]*Account{
		"acct-cash": {ID: "acct-cash", ClosedAt: &closedAt},
	}
	resolver := NewRoleResolver(pack, accounts)
	if _, ok := resolver.Resolve("cash", "sale", ""); ok {
		t.Fatal("expected a closed account's binding to resolve as unresolved")
	}
}

func TestRoleResolverResolveAllCollectsUnresolved(t *testing.T) {
	pack := &CompiledPolicyPack{
		RoleBindings: map[RoleBindingKey]string{{Role: "cash"}: "acct-cash"},
	}
	resolver := NewRoleResolver(pack, map[string]*Account{})
	intent := &AccountingIntent{
		LedgerIntents: []LedgerIntent{
			{LedgerID: "GL", Lines: []IntentLine{
				{Role: "cash", Side: SideDebit},
				{Role: "revenue", Side: SideCredit},
			}},
		},
	}
	resolved, unresolved := resolver.ResolveAll(intent, "sale")
	if resolved["cash"] != "acct-cash" {
		t.Fatalf("expected cash to resolve, got %q", resolved["cash"])
	}
	if len(unresolved) != 1 || unresolved[0] != "revenue" {
		t.Fatalf("expected revenue to be unresolved, got %v", unresolved)
	}
}
