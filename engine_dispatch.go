package kernel

import "time"

// FrozenEngineParams is the resolved, immutable parameter set handed to one
// engine invocation. Grounded on
// original_source/finance_services/engine_dispatcher.py's FrozenEngineParams.
type FrozenEngineParams struct {
	EngineName string
	Parameters map[string]any
}

func (p FrozenEngineParams) withParam(key string, value any) FrozenEngineParams {
	merged := make(map[string]any, len(p.Parameters)+1)
	for k, v := range p.Parameters {
		merged[k] = v
	}
	merged[key] = value
	return FrozenEngineParams{EngineName: p.EngineName, Parameters: merged}
}

// EngineTraceRecord is the audit record produced for every engine
// invocation, whether it succeeded or failed. Grounded on
// original_source/finance_kernel/domain/engine_types.py.
type EngineTraceRecord struct {
	EngineName      string
	EngineVersion   string
	InputFingerprint string
	DurationMS      float64
	ParametersUsed  map[string]any
	Success         bool
	Error           string
}

// EngineDispatchResult is the outcome of dispatching all of a policy's
// required engines.
type EngineDispatchResult struct {
	Outputs      map[string]any
	Traces       []EngineTraceRecord
	AllSucceeded bool
	Errors       []string
}

// EngineInvoker is a registered, stateless engine callable. Grounded on
// engine_dispatcher.py's EngineInvoker dataclass.
type EngineInvoker struct {
	EngineName       string
	EngineVersion    string
	Invoke           func(payload map[string]any, params FrozenEngineParams) (any, error)
	FingerprintFields []string
}

// EngineDispatcher holds the active CompiledPolicyPack's resolved engine
// parameters and a registry of EngineInvoker values. Grounded on
// engine_dispatcher.py's EngineDispatcher in full.
type EngineDispatcher struct {
	pack     *CompiledPolicyPack
	registry map[string]EngineInvoker
	clock    Clock
}

// NewEngineDispatcher constructs a dispatcher bound to pack.
func NewEngineDispatcher(pack *CompiledPolicyPack, clock Clock) *EngineDispatcher {
	return &EngineDispatcher{pack: pack, registry: make(map[string]EngineInvoker), clock: clock}
}

// Register adds an invoker. Fails if invoker.EngineName != engineName
// (consistency check), mirroring engine_dispatcher.py's register().
func (d *EngineDispatcher) Register(engineName string, invoker EngineInvoker) error {
	if invoker.EngineName != engineName {
		return &EngineRegistrationError{RegistrationKey: engineName, InvokerName: invoker.EngineName}
	}
	d.registry[engineName] = invoker
	return nil
}

// EngineRegistrationError is raised when an invoker's declared name
// disagrees with its registration key (R14 consistency check).
type EngineRegistrationError struct {
	RegistrationKey string
	InvokerName     string
}

func (e *EngineRegistrationError) Error() string {
	return "invoker engine_name '" + e.InvokerName + "' does not match registration key '" + e.RegistrationKey + "'"
}
func (e *EngineRegistrationError) Code() string { return "ENGINE_REGISTRATION_MISMATCH" }

// ValidateRegistration returns engine names present in the pack's engine
// contracts but missing from the registry.
func (d *EngineDispatcher) ValidateRegistration() []string {
	var unregistered []string
	for name := range d.pack.EngineContracts {
		if _, ok := d.registry[name]; !ok {
			unregistered = append(unregistered, name)
		}
	}
	return unregistered
}

// Dispatch invokes every engine in policy.RequiredEngines, per spec.md
// §4.8. Engines are invoked independently and sequentially in declared
// order; one failure never aborts the others.
func (d *EngineDispatcher) Dispatch(policy *AccountingPolicy, payload map[string]any) *EngineDispatchResult {
	if len(policy.RequiredEngines) == 0 {
		return &EngineDispatchResult{Outputs: map[string]any{}, AllSucceeded: true}
	}

	result := &EngineDispatchResult{Outputs: map[string]any{}}

	paramKey := policy.EngineParametersRef

	for _, engineName := range policy.RequiredEngines {
		invoker, ok := d.registry[engineName]
		if !ok {
			errMsg := "engine '" + engineName + "' required by policy '" + policy.Name + "' has no registered invoker"
			result.Errors = append(result.Errors, errMsg)
			result.Traces = append(result.Traces, EngineTraceRecord{
				EngineName:    engineName,
				EngineVersion: "unknown",
				Success:       false,
				Error:         errMsg,
			})
			continue
		}

		lookupKey := paramKey
		if lookupKey == "" {
			lookupKey = engineName
		}
		params, ok := d.pack.ResolvedEngineParams[lookupKey]
		if !ok {
			params, ok = d.pack.ResolvedEngineParams[engineName]
		}
		if !ok {
			params = FrozenEngineParams{EngineName: engineName, Parameters: map[string]any{}}
		}

		if engineName == "variance" && policy.VarianceDisposition != "" {
			params = params.withParam("variance_disposition", policy.VarianceDisposition)
		}
		if engineName == "valuation" && policy.ValuationModel != "" {
			params = params.withParam("valuation_model", policy.ValuationModel)
		}

		fingerprint := ""
		if len(invoker.FingerprintFields) > 0 {
			fingerprint = Fingerprint(invoker.FingerprintFields, payload)
		}

		start := d.clock.Now()
		output, err := invoker.Invoke(payload, params)
		duration := float64(d.clock.Now().Sub(start)) / float64(time.Millisecond)

		if err != nil {
			errMsg := "engine '" + engineName + "' failed for policy '" + policy.Name + "': " + err.Error()
			result.Errors = append(result.Errors, errMsg)
			result.Traces = append(result.Traces, EngineTraceRecord{
				EngineName:       engineName,
				EngineVersion:    invoker.EngineVersion,
				InputFingerprint: fingerprint,
				DurationMS:       duration,
				ParametersUsed:   params.Parameters,
				Success:          false,
				Error:            err.Error(),
			})
			continue
		}

		result.Outputs[engineName] = output
		result.Traces = append(result.Traces, EngineTraceRecord{
			EngineName:       engineName,
			EngineVersion:    invoker.EngineVersion,
			InputFingerprint: fingerprint,
			DurationMS:       duration,
			ParametersUsed:   params.Parameters,
			Success:          true,
		})
	}

	result.AllSucceeded = len(result.Errors) == 0
	return result
}
