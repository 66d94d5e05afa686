package kernel

// EntrySide is debit or credit. Grounded on accounting.go's EntryType enum.
type EntrySide string

const (
	SideDebit  EntrySide = "debit"
	SideCredit EntrySide = "credit"
)

// IntentLine is one proposed line within a ledger intent, prior to role
// resolution: Role names a symbolic account, resolved later by C9.
type IntentLine struct {
	Side       EntrySide
	Role       string
	Money      Money
	Dimensions map[string]string
}

// LedgerIntent groups intent lines destined for one ledger.
type LedgerIntent struct {
	LedgerID string
	Lines    []IntentLine
}

// AccountingIntent is a proposal for a set of balanced journal lines,
// derived from a policy and an amount, prior to role resolution and
// persistence. Grounded on spec.md §3/§4.7.
type AccountingIntent struct {
	EconEventID    string
	SourceEventID  string
	ProfileID      string
	ProfileVersion int
	EffectiveDate  string
	LedgerIntents  []LedgerIntent
}

// AccountKeyToRoleFunc maps a payload-lines account key to a policy role.
// Remains caller-supplied, not part of the compiled pack (spec.md §9 Open
// Question (b), resolved in DESIGN.md): module_posting_service.py passes
// this per call, never stores it in shared config.
type AccountKeyToRoleFunc func(accountKey string) (role string, ok bool)

// PayloadLine is one raw line from payload.lines in payload-lines mode.
type PayloadLine struct {
	AccountKey string
	Side       EntrySide
	Amount     Money
}

// BuildIntent synthesizes an AccountingIntent for a policy, grounded on
// spec.md §4.7. In derived mode, every ledger effect emits a debit/credit
// pair for amount. In payload-lines mode, payloadLines are mapped through
// accountKeyToRole.
func BuildIntent(policy *AccountingPolicy, econEventID, sourceEventID, effectiveDate string, amount Money, payloadLines []PayloadLine, accountKeyToRole AccountKeyToRoleFunc) (*AccountingIntent, error) {
	intent := &AccountingIntent{
		EconEventID:    econEventID,
		SourceEventID:  sourceEventID,
		ProfileID:      policy.Name,
		ProfileVersion: policy.Version,
		EffectiveDate:  effectiveDate,
	}

	switch policy.IntentSource {
	case IntentPayloadLines:
		byLedger := map[string][]IntentLine{}
		for _, line := range payloadLines {
			role, ok := accountKeyToRole(line.AccountKey)
			if !ok {
				return nil, &RoleResolutionError{UnresolvedRoles: []string{line.AccountKey}}
			}
			ledgerID := defaultLedgerID(policy)
			byLedger[ledgerID] = append(byLedger[ledgerID], IntentLine{
				Side:  line.Side,
				Role:  role,
				Money: line.Amount,
			})
		}
		for ledgerID, lines := range byLedger {
			intent.LedgerIntents = append(intent.LedgerIntents, LedgerIntent{LedgerID: ledgerID, Lines: lines})
		}
	default: // IntentDerived
		for _, effect := range policy.LedgerEffects {
			intent.LedgerIntents = append(intent.LedgerIntents, LedgerIntent{
				LedgerID: effect.LedgerID,
				Lines: []IntentLine{
					{Side: SideDebit, Role: effect.DebitRole, Money: amount},
					{Side: SideCredit, Role: effect.CreditRole, Money: amount},
				},
			})
		}
	}

	if err := validateIntentBalance(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func defaultLedgerID(policy *AccountingPolicy) string {
	if len(policy.LedgerEffects) > 0 {
		return policy.LedgerEffects[0].LedgerID
	}
	return "GL"
}

// validateIntentBalance checks spec.md §3's AccountingIntent invariant: for
// each ledger and each currency, sum of debits equals sum of credits.
func validateIntentBalance(intent *AccountingIntent) error {
	for _, li := range intent.LedgerIntents {
		totals := map[Currency]struct{ debit, credit int64 }{}
		for _, line := range li.Lines {
			t := totals[line.Money.Currency]
			switch line.Side {
			case SideDebit:
				t.debit += line.Money.MinorUnits
			case SideCredit:
				t.credit += line.Money.MinorUnits
			}
			totals[line.Money.Currency] = t
		}
		for currency, t := range totals {
			if t.debit != t.credit {
				return &ImbalancedError{LedgerID: li.LedgerID, Currency: currency, Debits: t.debit, Credits: t.credit}
			}
		}
	}
	return nil
}
