package kernel

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// SubledgerContract declares one subledger's control-account role and the
// side (debit-normal vs credit-normal) that role must obey in postings.
// Grounded on spec.md §4.13.
type SubledgerContract struct {
	Subledger         string
	ControlRole       string
	RequiredSide      EntrySide
}

// CompiledPolicyPack is the immutable runtime bundle produced by the config
// compiler: policies, role bindings, resolved engine parameters, engine
// contracts, subledger contracts, controls, and a canonical fingerprint.
// Grounded on spec.md §3. Loaded once at startup via LoadPolicyPack and
// pinned per interpretation run (kernel.go).
type CompiledPolicyPack struct {
	LegalEntity string
	AsOfDate    time.Time

	Policies             []*AccountingPolicy
	RoleBindings         map[RoleBindingKey]string
	ResolvedEngineParams map[string]FrozenEngineParams
	EngineContracts      map[string]string // engine name -> version
	SubledgerContracts   []SubledgerContract
	Controls             []Guard

	CanonicalFingerprint string
}

// policyPackYAML is the on-disk YAML shape LoadPolicyPack parses. The
// runtime type above (CompiledPolicyPack) uses richer Go types (time.Time,
// map keys); this intermediate shape exists because yaml.v3 cannot
// unmarshal directly into a map keyed by a struct (RoleBindingKey).
type policyPackYAML struct {
	LegalEntity string `yaml:"legal_entity"`
	AsOfDate    string `yaml:"as_of_date"`

	Policies []struct {
		Name          string `yaml:"name"`
		Version       int    `yaml:"version"`
		EventType     string `yaml:"event_type"`
		EconomicType  string `yaml:"economic_type"`
		Scope         string `yaml:"scope"`
		EffectiveFrom string `yaml:"effective_from"`
		EffectiveTo   string `yaml:"effective_to"`
		Precedence    struct {
			Mode      string   `yaml:"mode"`
			Priority  int      `yaml:"priority"`
			Overrides []string `yaml:"overrides"`
		} `yaml:"precedence"`
		LedgerEffects []struct {
			LedgerID   string `yaml:"ledger_id"`
			DebitRole  string `yaml:"debit_role"`
			CreditRole string `yaml:"credit_role"`
		} `yaml:"ledger_effects"`
		Guards []struct {
			Name       string `yaml:"name"`
			AppliesTo  string `yaml:"applies_to"`
			Type       string `yaml:"type"`
			Expression string `yaml:"expression"`
			ReasonCode string `yaml:"reason_code"`
			Message    string `yaml:"message"`
		} `yaml:"guards"`
		WhereClauses []struct {
			FieldPath string `yaml:"field_path"`
			Expected  any    `yaml:"expected"`
		} `yaml:"where_clauses"`
		RequiredEngines     []string `yaml:"required_engines"`
		EngineParametersRef string   `yaml:"engine_parameters_ref"`
		VarianceDisposition string   `yaml:"variance_disposition"`
		ValuationModel      string   `yaml:"valuation_model"`
		IntentSource        string   `yaml:"intent_source"`
	} `yaml:"policies"`

	RoleBindings []struct {
		Role      string `yaml:"role"`
		EventType string `yaml:"event_type"`
		Dimension string `yaml:"dimension"`
		AccountID string `yaml:"account_id"`
	} `yaml:"role_bindings"`

	EngineParameters []struct {
		Key        string         `yaml:"key"`
		EngineName string         `yaml:"engine_name"`
		Parameters map[string]any `yaml:"parameters"`
	} `yaml:"engine_parameters"`

	EngineContracts map[string]string `yaml:"engine_contracts"`

	SubledgerContracts []struct {
		Subledger    string `yaml:"subledger"`
		ControlRole  string `yaml:"control_role"`
		RequiredSide string `yaml:"required_side"`
	} `yaml:"subledger_contracts"`

	Controls []struct {
		Name       string `yaml:"name"`
		AppliesTo  string `yaml:"applies_to"`
		Action     string `yaml:"action"`
		Expression string `yaml:"expression"`
		ReasonCode string `yaml:"reason_code"`
		Message    string `yaml:"message"`
	} `yaml:"controls"`
}

// LoadPolicyPack parses a YAML policy-pack document into a CompiledPolicyPack.
// This is the sole configuration artifact the kernel runtime consumes
// (spec.md §6): the on-disk layout is external; LoadPolicyPack is a pure
// parse step with no CLI or network surface. It does no validation beyond
// YAML decoding: a date that does not parse as YYYY-MM-DD is left unset.
func LoadPolicyPack(r io.Reader) (*CompiledPolicyPack, error) {
	var raw policyPackYAML
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	pack := &CompiledPolicyPack{
		LegalEntity:          raw.LegalEntity,
		RoleBindings:         make(map[RoleBindingKey]string),
		ResolvedEngineParams: make(map[string]FrozenEngineParams),
		EngineContracts:      raw.EngineContracts,
	}
	if raw.AsOfDate != "" {
		if t, err := time.Parse("2006-01-02", raw.AsOfDate); err == nil {
			pack.AsOfDate = t
		}
	}

	for _, rp := range raw.Policies {
		policy := &AccountingPolicy{
			Name:                rp.Name,
			Version:             rp.Version,
			EventType:           rp.EventType,
			EconomicType:        rp.EconomicType,
			Scope:               rp.Scope,
			RequiredEngines:     rp.RequiredEngines,
			EngineParametersRef: rp.EngineParametersRef,
			VarianceDisposition: rp.VarianceDisposition,
			ValuationModel:      rp.ValuationModel,
			IntentSource:        IntentSource(rp.IntentSource),
			Precedence: Precedence{
				Mode:      PrecedenceMode(rp.Precedence.Mode),
				Priority:  rp.Precedence.Priority,
				Overrides: rp.Precedence.Overrides,
			},
		}
		if policy.Scope == "" {
			policy.Scope = "*"
		}
		if policy.IntentSource == "" {
			policy.IntentSource = IntentDerived
		}
		if rp.EffectiveFrom != "" {
			if t, err := time.Parse("2006-01-02", rp.EffectiveFrom); err == nil {
				policy.EffectiveFrom = t
			}
		}
		if rp.EffectiveTo != "" {
			if t, err := time.Parse("2006-01-02", rp.EffectiveTo); err == nil {
				policy.EffectiveTo = &t
			}
		}
		for _, le := range rp.LedgerEffects {
			policy.LedgerEffects = append(policy.LedgerEffects, LedgerEffect{
				LedgerID: le.LedgerID, DebitRole: le.DebitRole, CreditRole: le.CreditRole,
			})
		}
		for _, g := range rp.Guards {
			policy.Guards = append(policy.Guards, Guard{
				Name: g.Name, AppliesTo: orStar(g.AppliesTo), Type: GuardVerdictType(g.Type),
				Expression: g.Expression, ReasonCode: g.ReasonCode, Message: g.Message,
			})
		}
		for _, wc := range rp.WhereClauses {
			policy.WhereClauses = append(policy.WhereClauses, WhereClause{FieldPath: wc.FieldPath, Expected: wc.Expected})
		}
		pack.Policies = append(pack.Policies, policy)
	}

	for _, rb := range raw.RoleBindings {
		key := RoleBindingKey{Role: rb.Role, EventType: rb.EventType, Dimension: rb.Dimension}
		pack.RoleBindings[key] = rb.AccountID
	}

	for _, ep := range raw.EngineParameters {
		pack.ResolvedEngineParams[ep.Key] = FrozenEngineParams{EngineName: ep.EngineName, Parameters: ep.Parameters}
	}

	for _, sc := range raw.SubledgerContracts {
		pack.SubledgerContracts = append(pack.SubledgerContracts, SubledgerContract{
			Subledger: sc.Subledger, ControlRole: sc.ControlRole, RequiredSide: EntrySide(sc.RequiredSide),
		})
	}

	for _, c := range raw.Controls {
		pack.Controls = append(pack.Controls, Guard{
			Name: c.Name, AppliesTo: orStar(c.AppliesTo), Type: GuardVerdictType(c.Action),
			Expression: c.Expression, ReasonCode: c.ReasonCode, Message: c.Message,
		})
	}

	pack.CanonicalFingerprint = FingerprintValue(packCanonicalView(pack))
	return pack, nil
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// packCanonicalView produces a stable map representation of the pack for
// fingerprinting (spec.md §3's "canonical_fingerprint"). It covers the legal
// entity and each policy's name@version only; role bindings, engine
// parameters, contracts and controls do not enter the fingerprint.
func packCanonicalView(pack *CompiledPolicyPack) map[string]any {
	var names []any
	for _, p := range pack.Policies {
		names = append(names, p.Name+"@"+itoa(p.Version))
	}
	return map[string]any{
		"legal_entity": pack.LegalEntity,
		"policies":     names,
	}
}
