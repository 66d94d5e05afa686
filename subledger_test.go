package kernel

import "testing"

func TestSubledgerRegistryEnforcesRequiredSide(t *testing.T) {
	reg := NewSubledgerRegistry([]SubledgerContract{
		{Subledger: "ar", ControlRole: "accounts_receivable_control", RequiredSide: SideDebit},
	})
	intent := &AccountingIntent{
		LedgerIntents: []LedgerIntent{
			{LedgerID: "GL", Lines: []IntentLine{
				{Role: "accounts_receivable_control", Side: SideCredit, Money: NewMoney(100, "USD")},
				{Role: "revenue", Side: SideDebit, Money: NewMoney(100, "USD")},
			}},
		},
	}
	err := reg.EnforceOnPost(intent)
	if _, ok := err.(*SubledgerReconciliationError); !ok {
		t.Fatalf("expected *SubledgerReconciliationError, got %T", err)
	}
}

func TestSubledgerRegistryAllowsCompliantLines(t *testing.T) {
	reg := NewSubledgerRegistry([]SubledgerContract{
		{Subledger: "ar", ControlRole: "accounts_receivable_control", RequiredSide: SideDebit},
	})
	intent := &AccountingIntent{
		LedgerIntents: []LedgerIntent{
			{LedgerID: "GL", Lines: []IntentLine{
				{Role: "accounts_receivable_control", Side: SideDebit, Money: NewMoney(100, "USD")},
				{Role: "revenue", Side: SideCredit, Money: NewMoney(100, "USD")},
			}},
		},
	}
	if err := reg.EnforceOnPost(intent); err != nil {
		t.Fatalf("expected compliant lines to pass, got %v", err)
	}
}

func TestSubledgerRegistryIgnoresUnconfiguredRoles(t *testing.T) {
	reg := NewSubledgerRegistry(nil)
	intent := &AccountingIntent{
		LedgerIntents: []LedgerIntent{
			{LedgerID: "GL", Lines: []IntentLine{
				{Role: "cash", Side: SideCredit, Money: NewMoney(100, "USD")},
			}},
		},
	}
	if err := reg.EnforceOnPost(intent); err != nil {
		t.Fatalf("expected no configured contracts to mean no-op, got %v", err)
	}
}
