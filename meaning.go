package kernel

import "time"

// EconomicEventData is the accounting-recognized fact derived from a source
// event under a specific policy version. Grounded on spec.md §3.
type EconomicEventData struct {
	SourceEventID  string
	EconomicType   string
	EffectiveDate  time.Time
	ProfileID      string
	ProfileVersion int
	ProfileHash    string
	Quantity       *Quantity
	Dimensions     map[string]string

	COAVersion              int
	DimensionSchemaVersion  int
	CurrencyRegistryVersion int
	FXPolicyVersion         int
}

// MeaningResult is the output of the meaning builder: either a guard
// verdict that stopped processing, or constructed economic event data.
// Grounded on spec.md §4.6.
type MeaningResult struct {
	Success     bool
	GuardResult *GuardVerdict
	EconEvent   *EconomicEventData
}

// BuildMeaning runs the policy's guards against payload; if any guard
// triggers, returns a failing MeaningResult carrying the verdict.
// Otherwise constructs EconomicEventData. Pure: no I/O, no clock.
func BuildMeaning(sourceEventID, eventType string, payload map[string]any, effectiveDate time.Time, policy *AccountingPolicy) *MeaningResult {
	verdict := EvaluateGuards(payload, eventType, policy.Guards)
	if !verdict.Passed {
		return &MeaningResult{Success: false, GuardResult: &verdict}
	}

	dims := map[string]string{}
	if rawDims, ok := payload["dimensions"].(map[string]any); ok {
		for k, v := range rawDims {
			dims[k] = toStringValue(v)
		}
	}

	return &MeaningResult{
		Success: true,
		EconEvent: &EconomicEventData{
			SourceEventID:  sourceEventID,
			EconomicType:   policy.EconomicType,
			EffectiveDate:  effectiveDate,
			ProfileID:      policy.Name,
			ProfileVersion: policy.Version,
			Dimensions:     dims,
		},
	}
}
