package kernel

import "time"

// AccountType is the normal-balance classification of an account. Grounded
// on accounting.go's AccountType enum.
type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Income    AccountType = "income"
	Expense   AccountType = "expense"
)

// NormalSide returns the side (Debit or Credit) that increases this account
// type's balance. Grounded on posting_engine.go's getBalanceMultiplier.
func (t AccountType) NormalSide() EntrySide {
	switch t {
	case Asset, Expense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Account is ledger master data: a postable node identified by an account
// id, with a currency and normal-balance type. Grounded on accounting.go's
// Account, supplemented per SPEC_FULL.md §3 with an explicit ClosedAt check
// used by the role resolver.
type Account struct {
	ID       string
	Code     string
	Name     string
	Type     AccountType
	Currency Currency
	ClosedAt *time.Time
}

// IsOpen reports whether the account may currently receive new lines.
func (a *Account) IsOpen() bool { return a.ClosedAt == nil }

// Ledger is a named book of account (general ledger, subledger, etc.).
// Grounded on accounting.go's Ledger.
type Ledger struct {
	ID       string
	Name     string
	Currency Currency
}

// Actor is the party on whose behalf an interpretation runs. Promoted from
// the teacher's bare userID string (accounting.go/engine.go pass userID
// everywhere with no registry) into a first-class, queryable entity per
// spec.md §4.15 step 3 (actor validation, G14) and SPEC_FULL.md §3.
type Actor struct {
	ID     string
	Name   string
	Frozen bool
}
