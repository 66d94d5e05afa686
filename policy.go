package kernel

import (
	"sort"
	"strings"
	"time"
)

// PrecedenceMode distinguishes a normally-ranked policy from one that
// explicitly overrides named peers.
type PrecedenceMode string

const (
	PrecedenceNormal   PrecedenceMode = "normal"
	PrecedenceOverride PrecedenceMode = "override"
)

// Precedence carries the tie-breaking configuration for a policy. Grounded
// on original_source/finance_kernel/domain/policy_selector.py.
type Precedence struct {
	Mode      PrecedenceMode
	Priority  int
	Overrides []string // policy names this policy strips from contention
}

// LedgerEffect names one ledger's debit/credit role pair for derived-mode
// intent construction (C7).
type LedgerEffect struct {
	LedgerID   string
	DebitRole  string
	CreditRole string
}

// WhereClause is one trigger-matching condition: (FieldPath, Expected).
// Expected == nil means the field must be absent. A FieldPath containing a
// relational operator wrapped in spaces followed by a decimal literal
// (e.g. "payload.amount >= 1000") turns
// this into an arithmetic comparison whose Expected is a bool asserting
// whether the comparison holds. Grounded on policy_selector.py's
// where-clause semantics (spec.md §4.4).
type WhereClause struct {
	FieldPath string
	Expected  any
}

// IntentSource selects how the intent builder (C7) constructs ledger lines.
type IntentSource string

const (
	IntentDerived      IntentSource = "derived"
	IntentPayloadLines IntentSource = "payload_lines"
)

// AccountingPolicy is a frozen, versioned rule binding an event type to
// ledger effects, guards, and optional engines. Grounded on
// policy_selector.py's CompiledPolicy / spec.md §3.
type AccountingPolicy struct {
	Name    string
	Version int

	EventType    string
	WhereClauses []WhereClause

	EconomicType string

	LedgerEffects []LedgerEffect
	Guards        []Guard

	EffectiveFrom time.Time
	EffectiveTo   *time.Time

	// Scope is "*", "prefix:*", or an exact string.
	Scope      string
	Precedence Precedence

	RequiredEngines     []string
	EngineParametersRef string
	VarianceDisposition string
	ValuationModel      string
	IntentSource        IntentSource
}

// hasWhereClauses reports whether the policy's trigger carries any
// where-clause conditions at all.
func (p *AccountingPolicy) hasWhereClauses() bool { return len(p.WhereClauses) > 0 }

// matchesWindow reports whether effectiveDate falls within [EffectiveFrom, EffectiveTo].
func (p *AccountingPolicy) matchesWindow(effectiveDate time.Time) bool {
	if effectiveDate.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo != nil && effectiveDate.After(*p.EffectiveTo) {
		return false
	}
	return true
}

// matchesScope implements spec.md §4.4 step 3.
func (p *AccountingPolicy) matchesScope(scope string) bool {
	switch {
	case p.Scope == "*":
		return true
	case strings.HasSuffix(p.Scope, ":*"):
		prefix := strings.TrimSuffix(p.Scope, "*")
		return strings.HasPrefix(scope, prefix)
	default:
		return p.Scope == scope
	}
}

// scopeSpecificity ranks scope strings for precedence resolution: wildcard
// is least specific, a prefix match is ranked by prefix length, and an
// exact match always outranks any prefix. Grounded on policy_selector.py's
// _scope_specificity formula.
func (p *AccountingPolicy) scopeSpecificity() int {
	switch {
	case p.Scope == "*":
		return 0
	case strings.HasSuffix(p.Scope, ":*"):
		prefix := strings.TrimSuffix(p.Scope, "*")
		return len(prefix)
	default:
		return len(p.Scope) + 100
	}
}

// matchesWhereClauses reports whether every where-clause on the policy is
// satisfied by payload.
func (p *AccountingPolicy) matchesWhereClauses(payload map[string]any) bool {
	for _, wc := range p.WhereClauses {
		if !matchesWhereClause(payload, wc) {
			return false
		}
	}
	return true
}

func matchesWhereClause(payload map[string]any, wc WhereClause) bool {
	fieldPath := strings.TrimSpace(wc.FieldPath)

	for _, op := range []string{"<=", ">=", "<", ">"} {
		marker := " " + op + " "
		if idx := strings.Index(fieldPath, marker); idx >= 0 {
			path := strings.TrimSpace(fieldPath[:idx])
			literal := strings.TrimSpace(fieldPath[idx+len(marker):])
			actual, ok := fieldValue(payload, path)
			if !ok {
				return false
			}
			holds := compareValues(actual, op, literal)
			wantHolds, _ := wc.Expected.(bool)
			return holds == wantHolds
		}
	}

	actual, ok := fieldValue(payload, fieldPath)
	if wc.Expected == nil {
		return !ok || actual == nil
	}
	if !ok {
		return false
	}
	return Canonicalize(actual) == Canonicalize(wc.Expected)
}

// PolicyDispatchTrace records one FindForEvent resolution for audit, per
// spec.md §4.4 "Every dispatch emits a structured PolicyDispatchTrace".
type PolicyDispatchTrace struct {
	EventType        string
	EffectiveDate    time.Time
	Considered       []string // "name vN" for every admissible candidate
	Selected         string
	SelectedVersion  int
	ResolutionReason string
}

// PolicyRegistry stores policies keyed by (name, version) with a secondary
// event_type index, and resolves exactly one policy per event per spec.md
// §4.4. Grounded on policy_selector.py's PolicySelector in full.
type PolicyRegistry struct {
	byKey       map[string]*AccountingPolicy // "name@version"
	byEventType map[string][]*AccountingPolicy
}

// NewPolicyRegistry constructs an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		byKey:       make(map[string]*AccountingPolicy),
		byEventType: make(map[string][]*AccountingPolicy),
	}
}

func policyKey(name string, version int) string {
	return name + "@" + itoa(version)
}

// Register adds a policy. Fails with PolicyAlreadyRegisteredError if (name,
// version) already exists, or UncompiledPolicyError if compiledName/
// compiledVersion (a compilation receipt) disagree with the policy.
func (r *PolicyRegistry) Register(p *AccountingPolicy, compiledName string, compiledVersion int) error {
	if compiledName != "" && (compiledName != p.Name || compiledVersion != p.Version) {
		return &UncompiledPolicyError{Name: p.Name, Version: p.Version}
	}
	key := policyKey(p.Name, p.Version)
	if _, exists := r.byKey[key]; exists {
		return &PolicyAlreadyRegisteredError{Name: p.Name, Version: p.Version}
	}
	r.byKey[key] = p
	r.byEventType[p.EventType] = append(r.byEventType[p.EventType], p)
	return nil
}

// FindForEvent resolves exactly one policy or a typed error, per spec.md
// §4.4. payload may be nil, matching "if payload is absent, keep only
// without_where".
func (r *PolicyRegistry) FindForEvent(eventType string, effectiveDate time.Time, scope string, payload map[string]any) (*AccountingPolicy, *PolicyDispatchTrace, error) {
	trace := &PolicyDispatchTrace{EventType: eventType, EffectiveDate: effectiveDate}

	candidates := r.byEventType[eventType]
	var step1 []*AccountingPolicy
	for _, p := range candidates {
		step1 = append(step1, p)
	}

	var step2 []*AccountingPolicy
	for _, p := range step1 {
		if p.matchesWindow(effectiveDate) {
			step2 = append(step2, p)
		}
	}

	var step3 []*AccountingPolicy
	for _, p := range step2 {
		if p.matchesScope(scope) {
			step3 = append(step3, p)
		}
	}

	for _, p := range step3 {
		trace.Considered = append(trace.Considered, p.Name+" v"+itoa(p.Version))
	}

	var remaining []*AccountingPolicy
	if payload != nil {
		var withWhere, withoutWhere []*AccountingPolicy
		for _, p := range step3 {
			if p.hasWhereClauses() {
				withWhere = append(withWhere, p)
			} else {
				withoutWhere = append(withoutWhere, p)
			}
		}
		var matchedWhere []*AccountingPolicy
		for _, p := range withWhere {
			if p.matchesWhereClauses(payload) {
				matchedWhere = append(matchedWhere, p)
			}
		}
		if len(matchedWhere) > 0 {
			remaining = matchedWhere
		} else {
			remaining = withoutWhere
		}
	} else {
		for _, p := range step3 {
			if !p.hasWhereClauses() {
				remaining = append(remaining, p)
			}
		}
	}

	if len(remaining) == 0 {
		return nil, trace, &PolicyNotFoundError{EventType: eventType}
	}
	if len(remaining) == 1 {
		trace.Selected = remaining[0].Name
		trace.SelectedVersion = remaining[0].Version
		trace.ResolutionReason = "single_match"
		return remaining[0], trace, nil
	}

	selected, reason, err := resolvePrecedence(remaining)
	if err != nil {
		return nil, trace, err
	}
	trace.Selected = selected.Name
	trace.SelectedVersion = selected.Version
	trace.ResolutionReason = reason
	return selected, trace, nil
}

// resolvePrecedence implements spec.md §4.4's precedence algorithm: override
// policies strip named peers; then rank by scope specificity, priority,
// name as a final stable tiebreaker.
func resolvePrecedence(candidates []*AccountingPolicy) (*AccountingPolicy, string, error) {
	overridden := make(map[string]bool)
	for _, p := range candidates {
		if p.Precedence.Mode == PrecedenceOverride {
			for _, name := range p.Precedence.Overrides {
				overridden[name] = true
			}
		}
	}
	var survivors []*AccountingPolicy
	for _, p := range candidates {
		if !overridden[p.Name] {
			survivors = append(survivors, p)
		}
	}
	if len(survivors) == 1 {
		return survivors[0], "override", nil
	}
	if len(survivors) == 0 {
		survivors = candidates
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		si, sj := survivors[i].scopeSpecificity(), survivors[j].scopeSpecificity()
		if si != sj {
			return si > sj
		}
		if survivors[i].Precedence.Priority != survivors[j].Precedence.Priority {
			return survivors[i].Precedence.Priority > survivors[j].Precedence.Priority
		}
		return survivors[i].Name < survivors[j].Name
	})

	top := survivors[0]
	if len(survivors) > 1 {
		second := survivors[1]
		if top.scopeSpecificity() == second.scopeSpecificity() &&
			top.Precedence.Priority == second.Precedence.Priority &&
			top.Name == second.Name {
			var names []string
			for _, p := range survivors {
				names = append(names, p.Name)
			}
			return nil, "", &MultiplePoliciesMatchError{EventType: top.EventType, Names: names}
		}
	}
	return top, "precedence", nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
