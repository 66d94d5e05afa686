package kernel

import (
	"time"
)

// PostEventRequest is the kernel's single external entry point (spec.md
// §6). Scope (for policy resolution) defaults to "*" when empty.
type PostEventRequest struct {
	EventID       string
	EventType     string
	OccurredAt    time.Time
	EffectiveDate time.Time
	ActorID       string
	Producer      string
	Payload       map[string]any
	SchemaVersion int
	Scope         string
	IsAdjustment  bool

	// PayloadLines is used only when the resolved policy's IntentSource is
	// payload_lines.
	PayloadLines     []PayloadLine
	AccountKeyToRole AccountKeyToRoleFunc

	// Amount is used only when the resolved policy's IntentSource is derived.
	Amount Money

	// PreambleLog carries caller-supplied decision-log records appended
	// before the kernel's own (spec.md §9 Open Question (c)).
	PreambleLog []map[string]any
}

// ResultStatus is the external result's status, distinct from the durable
// InterpretationOutcome.Status: it distinguishes e.g. a fresh POSTED from a
// replayed ALREADY_POSTED even though both reference a POSTED outcome
// (spec.md §6, §8 scenario 2).
type ResultStatus string

const (
	ResultPosted                ResultStatus = "POSTED"
	ResultAlreadyPosted         ResultStatus = "ALREADY_POSTED"
	ResultRejected              ResultStatus = "REJECTED"
	ResultPeriodClosed          ResultStatus = "PERIOD_CLOSED"
	ResultAdjustmentsNotAllowed ResultStatus = "ADJUSTMENTS_NOT_ALLOWED"
	ResultInvalidActor          ResultStatus = "INVALID_ACTOR"
	ResultActorFrozen           ResultStatus = "ACTOR_FROZEN"
	ResultIngestionFailed       ResultStatus = "INGESTION_FAILED"
	ResultProfileNotFound       ResultStatus = "PROFILE_NOT_FOUND"
	ResultMeaningFailed         ResultStatus = "MEANING_FAILED"
	ResultGuardRejected         ResultStatus = "GUARD_REJECTED"
	ResultGuardBlocked          ResultStatus = "GUARD_BLOCKED"
	ResultIntentFailed          ResultStatus = "INTENT_FAILED"
	ResultPostingFailed         ResultStatus = "POSTING_FAILED"

	// ResultBlocked and ResultEngineDispatchFailed are reachable from the
	// coordinator (role resolution is always BLOCKED; a strict-invariant
	// engine mismatch fails the whole interpretation) but have no dedicated
	// entry in spec.md §6's status enumeration; carried through verbatim
	// rather than forced into an unrelated code.
	ResultBlocked              ResultStatus = "BLOCKED"
	ResultEngineDispatchFailed ResultStatus = "ENGINE_DISPATCH_FAILED"
)

// PostEventResult is what PostEvent returns to the caller.
type PostEventResult struct {
	Status     ResultStatus
	Outcome    *InterpretationOutcome
	InputHash  string
	OutputHash string
}

// SubledgerPostCallback is invoked after a successful journal write, per
// spec.md §4.15 step "optional subledger posting callback." Errors here do
// not roll back the journal write; spec.md treats subledger posting as a
// downstream concern of the control-account check already enforced by C13.
type SubledgerPostCallback func(entry *JournalEntry) error

// InterpretationCoordinator orchestrates one event's full posting pipeline
// (C15). Grounded on
// original_source/finance_kernel/services/interpretation_coordinator.py in
// full: correlation binding, decision-log capture, actor/period
// validation, idempotent ingest, control evaluation, policy resolution,
// meaning/guard evaluation, engine dispatch with a strict trace-count
// invariant, intent building, atomic journal write, outcome recording,
// and a reproducibility proof.
type InterpretationCoordinator struct {
	ingestor    *Ingestor
	policies    *PolicyRegistry
	periods     *PeriodService
	dispatcher  *EngineDispatcher
	roles       *RoleResolver
	journal     *JournalWriter
	outcomes    *OutcomeRecorder
	storage     *Storage
	clock       Clock
	newID       func() string
	actors      map[string]*Actor
	controls    []Guard
	subledgerCB SubledgerPostCallback
}

// NewInterpretationCoordinator wires every collaborator the pipeline needs.
// controls are the compiled pack's config-driven controls (spec.md §4.15
// step 6), evaluated with the same restricted-grammar evaluator as policy
// guards (C5) but over every event regardless of which policy is later
// selected.
func NewInterpretationCoordinator(
	ingestor *Ingestor,
	policies *PolicyRegistry,
	periods *PeriodService,
	dispatcher *EngineDispatcher,
	roles *RoleResolver,
	journal *JournalWriter,
	outcomes *OutcomeRecorder,
	storage *Storage,
	clock Clock,
	newID func() string,
	actors map[string]*Actor,
	controls []Guard,
) *InterpretationCoordinator {
	return &InterpretationCoordinator{
		ingestor: ingestor, policies: policies, periods: periods,
		dispatcher: dispatcher, roles: roles, journal: journal,
		outcomes: outcomes, storage: storage, clock: clock, newID: newID,
		actors: actors, controls: controls,
	}
}

// SetSubledgerPostCallback installs an optional post-write hook (spec.md
// §4.15's "optional subledger posting callback").
func (c *InterpretationCoordinator) SetSubledgerPostCallback(cb SubledgerPostCallback) {
	c.subledgerCB = cb
}

func (c *InterpretationCoordinator) fail(sourceEventID string, ft FailureType, msg, reasonCode string, detail map[string]any, log *DecisionLog, status ResultStatus) *PostEventResult {
	_ = log.Append("FAILURE", map[string]any{"failure_type": string(ft), "message": msg})
	outcome, err := c.outcomes.RecordFailed(sourceEventID, ft, msg, reasonCode, detail)
	if err != nil {
		outcome = &InterpretationOutcome{SourceEventID: sourceEventID, Status: StatusFailed, FailureMessage: msg}
	}
	lines, _ := log.MarshalLines()
	outcome.DecisionLog = lines
	if err == nil {
		_ = c.outcomes.store.PutOutcome(outcome)
	}
	return &PostEventResult{Status: status, Outcome: outcome}
}

func (c *InterpretationCoordinator) blocked(sourceEventID, reasonCode string, detail map[string]any, log *DecisionLog, status ResultStatus) *PostEventResult {
	_ = log.Append("BLOCKED", map[string]any{"reason_code": reasonCode})
	outcome, err := c.outcomes.RecordBlocked(sourceEventID, reasonCode, detail)
	if err != nil {
		outcome = &InterpretationOutcome{SourceEventID: sourceEventID, Status: StatusBlocked, ReasonCode: reasonCode}
	}
	lines, _ := log.MarshalLines()
	outcome.DecisionLog = lines
	if err == nil {
		_ = c.outcomes.store.PutOutcome(outcome)
	}
	return &PostEventResult{Status: status, Outcome: outcome}
}

func (c *InterpretationCoordinator) rejected(sourceEventID, reasonCode, message string, log *DecisionLog, status ResultStatus) *PostEventResult {
	_ = log.Append("REJECTED", map[string]any{"reason_code": reasonCode, "message": message})
	outcome, err := c.outcomes.RecordRejected(sourceEventID, reasonCode, message, nil)
	if err != nil {
		outcome = &InterpretationOutcome{SourceEventID: sourceEventID, Status: StatusRejected, ReasonCode: reasonCode, FailureMessage: message}
	}
	lines, _ := log.MarshalLines()
	outcome.DecisionLog = lines
	if err == nil {
		_ = c.outcomes.store.PutOutcome(outcome)
	}
	return &PostEventResult{Status: status, Outcome: outcome}
}

// PostEvent runs the full interpretation pipeline for req.
func (c *InterpretationCoordinator) PostEvent(req *PostEventRequest) *PostEventResult {
	log := NewDecisionLog(req.PreambleLog)
	scope := req.Scope
	if scope == "" {
		scope = "*"
	}

	inputHash := FingerprintValue(map[string]any{
		"event_id":       req.EventID,
		"event_type":     req.EventType,
		"payload":        req.Payload,
		"effective_date": req.EffectiveDate.Format("2006-01-02"),
	})
	_ = log.Append("CORRELATION", map[string]any{"correlation_id": c.newID(), "event_id": req.EventID, "input_hash": inputHash})

	// G14: actor must exist and not be frozen. spec.md §4.15 step 3 requires
	// the two cases to be distinguished: a missing actor is INVALID_ACTOR, a
	// frozen one is ACTOR_FROZEN, each with its own reason code.
	if actor, ok := c.actors[req.ActorID]; !ok {
		return c.rejected(req.EventID, "INVALID_ACTOR", "actor is unknown", log, ResultInvalidActor)
	} else if actor.Frozen {
		return c.rejected(req.EventID, "ACTOR_FROZEN", "actor is frozen", log, ResultActorFrozen)
	}

	// Period validation.
	if err := c.periods.ValidateAdjustmentAllowed(req.EffectiveDate, req.IsAdjustment); err != nil {
		kerr := err.(KernelError)
		return c.rejected(req.EventID, kerr.Code(), kerr.Error(), log, ResultStatus(kerr.Code()))
	}

	// Idempotent ingest.
	status, event, err := c.ingestor.Ingest(req.EventID, req.EventType, req.OccurredAt, req.EffectiveDate, req.ActorID, req.Producer, req.Payload, req.SchemaVersion)
	if err != nil && status == IngestRejected {
		return c.rejected(req.EventID, "INGESTION_FAILED", err.Error(), log, ResultIngestionFailed)
	}
	_ = log.Append("INGEST", map[string]any{"status": string(status)})
	if status == IngestDuplicate {
		if existing, found, oerr := c.outcomes.GetOutcome(req.EventID); oerr == nil && found {
			return &PostEventResult{Status: ResultAlreadyPosted, Outcome: existing, InputHash: inputHash}
		}
	}

	// Control evaluation (step 6): config-driven controls apply to every
	// event regardless of which policy is later selected, using the same
	// restricted-grammar evaluator as policy guards (C5).
	if verdict := EvaluateGuards(event.Payload, req.EventType, c.controls); !verdict.Passed {
		_ = log.Append("CONTROL", map[string]any{"reason_code": verdict.ReasonCode})
		if verdict.Blocked {
			return c.blocked(req.EventID, verdict.ReasonCode, map[string]any{"message": verdict.Message}, log, ResultGuardBlocked)
		}
		return c.rejected(req.EventID, verdict.ReasonCode, verdict.Message, log, ResultGuardRejected)
	}

	// Policy resolution. A no-match or unresolvable-tie here is a
	// policy-dispatch failure, a distinct taxonomy kind from role
	// resolution (spec.md §7).
	policy, ptrace, perr := c.policies.FindForEvent(req.EventType, req.EffectiveDate, scope, event.Payload)
	if perr != nil {
		kerr := perr.(KernelError)
		return c.fail(req.EventID, FailurePolicyDispatch, kerr.Error(), kerr.Code(), nil, log, ResultProfileNotFound)
	}
	_ = log.Append(TraceFinancePolicyTrace, map[string]any{"selected": ptrace.Selected, "reason": ptrace.ResolutionReason})

	// Meaning + guard evaluation.
	meaning := BuildMeaning(req.EventID, req.EventType, event.Payload, req.EffectiveDate, policy)
	if !meaning.Success {
		verdict := meaning.GuardResult
		if verdict.Blocked {
			return c.blocked(req.EventID, verdict.ReasonCode, map[string]any{"message": verdict.Message}, log, ResultGuardBlocked)
		}
		return c.rejected(req.EventID, verdict.ReasonCode, verdict.Message, log, ResultGuardRejected)
	}
	_ = log.Append("MEANING", map[string]any{"economic_type": meaning.EconEvent.EconomicType})

	// Engine dispatch with the strict trace-count invariant: AllSucceeded is
	// trusted only when the number of successful traces equals the number of
	// required engines (spec.md §4.15).
	dispatch := c.dispatcher.Dispatch(policy, event.Payload)
	successCount := 0
	for _, t := range dispatch.Traces {
		_ = log.Append(TraceFinanceEngineTrace, map[string]any{"engine_name": t.EngineName, "engine_version": t.EngineVersion, "input_fingerprint": t.InputFingerprint, "duration_ms": t.DurationMS, "success": t.Success, "error": t.Error})
		if t.Success {
			successCount++
		}
	}
	if len(policy.RequiredEngines) > 0 && successCount != len(policy.RequiredEngines) {
		return c.fail(req.EventID, FailureEngine, "engine dispatch did not succeed for all required engines", "ENGINE_DISPATCH_FAILED", map[string]any{"errors": dispatch.Errors}, log, ResultEngineDispatchFailed)
	}
	_ = log.Append(TraceFinanceEngineDispatch, map[string]any{"engines": toAnySlice(policy.RequiredEngines)})

	// Intent building.
	econEventID := c.newID()
	effDateStr := req.EffectiveDate.Format("2006-01-02")
	intent, ierr := BuildIntent(policy, econEventID, req.EventID, effDateStr, req.Amount, req.PayloadLines, req.AccountKeyToRole)
	if ierr != nil {
		kerr := ierr.(KernelError)
		return c.fail(req.EventID, FailureRoleResolution, kerr.Error(), kerr.Code(), nil, log, ResultIntentFailed)
	}

	if err := c.storage.SaveEconomicEvent(econEventID, meaning.EconEvent); err != nil {
		return c.fail(req.EventID, FailureWrite, err.Error(), "ECON_EVENT_WRITE_FAILED", nil, log, ResultPostingFailed)
	}

	// Atomic journal write.
	writeResult := c.journal.Write(intent, req.ActorID, req.EventType, c.newID)
	switch writeResult.Outcome {
	case WriteRoleResolutionFailed:
		return c.blocked(req.EventID, "ROLE_RESOLUTION_BLOCKED", map[string]any{"unresolved_roles": toAnySlice(writeResult.UnresolvedRoles)}, log, ResultBlocked)
	case WriteImbalanced:
		msg := ""
		if writeResult.Err != nil {
			msg = writeResult.Err.Error()
		}
		return c.rejected(req.EventID, "WRITE_FAILED", msg, log, ResultPostingFailed)
	}
	_ = log.Append("JOURNAL_WRITE", map[string]any{"outcome": string(writeResult.Outcome), "entry_ids": toAnySlice(writeResult.EntryIDs)})

	if c.subledgerCB != nil {
		for _, entryID := range writeResult.EntryIDs {
			if entry, found, _ := c.storage.GetEntry(entryID); found {
				_ = c.subledgerCB(entry)
			}
		}
	}

	outputHash := FingerprintValue(map[string]any{
		"econ_event_id":    econEventID,
		"journal_entry_ids": toAnySlice(writeResult.EntryIDs),
	})
	_ = log.Append("PROOF", map[string]any{"input_hash": inputHash, "output_hash": outputHash})
	_ = log.Append(TraceFinanceKernelTrace, map[string]any{
		"event_id":       req.EventID,
		"status":         "POSTED",
		"policy":         policy.Name,
		"policy_version": policy.Version,
		"input_hash":     inputHash,
		"output_hash":    outputHash,
		"engines":        toAnySlice(policy.RequiredEngines),
	})

	outcome, oerr := c.outcomes.RecordPosted(req.EventID, econEventID, writeResult.EntryIDs, policy.Name, policy.Version)
	if oerr != nil {
		if existing, found, _ := c.outcomes.GetOutcome(req.EventID); found {
			outcome = existing
		}
	}
	lines, _ := log.MarshalLines()
	if outcome != nil {
		outcome.DecisionLog = lines
		outcome.PayloadFingerprint = event.PayloadHash
		outcome.ActorID = req.ActorID
		_ = c.outcomes.store.PutOutcome(outcome)
	}

	return &PostEventResult{Status: ResultPosted, Outcome: outcome, InputHash: inputHash, OutputHash: outputHash}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
