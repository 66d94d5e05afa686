package kernel

import "time"

// OutcomeStatus is the InterpretationOutcome sum type. Grounded on
// original_source/finance_kernel/services/outcome_recorder.py's
// OutcomeStatus enum and spec.md §4.14's VALID_TRANSITIONS table.
type OutcomeStatus string

const (
	StatusBlocked     OutcomeStatus = "BLOCKED"
	StatusProvisional OutcomeStatus = "PROVISIONAL"
	StatusFailed      OutcomeStatus = "FAILED"
	StatusRetrying    OutcomeStatus = "RETRYING"
	StatusPosted      OutcomeStatus = "POSTED"
	StatusRejected    OutcomeStatus = "REJECTED"
	StatusNonPosting  OutcomeStatus = "NON_POSTING"
	StatusAbandoned   OutcomeStatus = "ABANDONED"
)

// validTransitions is the compile-time constant transition table from
// spec.md §4.14.
var validTransitions = map[OutcomeStatus]map[OutcomeStatus]bool{
	StatusBlocked:     {StatusPosted: true, StatusRejected: true, StatusFailed: true},
	StatusProvisional: {StatusPosted: true, StatusRejected: true},
	StatusFailed:      {StatusRetrying: true, StatusAbandoned: true},
	StatusRetrying:    {StatusPosted: true, StatusFailed: true},
	StatusPosted:      {},
	StatusRejected:    {},
	StatusNonPosting:  {},
	StatusAbandoned:   {},
}

// FailureType classifies a FAILED outcome's cause.
type FailureType string

const (
	FailureGuard          FailureType = "GUARD"
	FailureEngine         FailureType = "ENGINE"
	FailureRoleResolution FailureType = "ROLE_RESOLUTION"
	FailureWrite          FailureType = "WRITE"
	FailureSnapshot       FailureType = "SNAPSHOT"
	FailurePolicyDispatch FailureType = "POLICY_DISPATCH"
)

// InterpretationOutcome is the one-per-source-event durable record of an
// interpretation attempt. Grounded on spec.md §3.
type InterpretationOutcome struct {
	SourceEventID  string
	Status         OutcomeStatus
	EconEventID    string
	JournalEntryIDs []string

	ProfileID      string
	ProfileVersion int
	ProfileHash    string

	TraceID           string
	ReasonCode        string
	ReasonDetail      map[string]any
	FailureType       FailureType
	FailureMessage    string
	EngineTracesRef   string
	PayloadFingerprint string
	ActorID           string

	RetryCount  int
	DecisionLog []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OutcomeRecorder enforces P15 (one outcome per source_event_id) and the
// VALID_TRANSITIONS table. Grounded on
// original_source/finance_kernel/services/outcome_recorder.py in full.
type OutcomeRecorder struct {
	store OutcomeStore
	clock Clock
}

// OutcomeStore is the persistence seam the recorder writes through,
// implemented by storage.go's bbolt-backed Storage.
type OutcomeStore interface {
	GetOutcome(sourceEventID string) (*InterpretationOutcome, bool, error)
	PutOutcome(outcome *InterpretationOutcome) error
}

// NewOutcomeRecorder constructs a recorder bound to store and clock.
func NewOutcomeRecorder(store OutcomeStore, clock Clock) *OutcomeRecorder {
	return &OutcomeRecorder{store: store, clock: clock}
}

// GetOutcome returns the outcome for sourceEventID, if any.
func (r *OutcomeRecorder) GetOutcome(sourceEventID string) (*InterpretationOutcome, bool, error) {
	return r.store.GetOutcome(sourceEventID)
}

func (r *OutcomeRecorder) createOutcome(sourceEventID string, outcome *InterpretationOutcome) error {
	existing, found, err := r.store.GetOutcome(sourceEventID)
	if err != nil {
		return err
	}
	if found && existing != nil {
		return &OutcomeAlreadyExistsError{SourceEventID: sourceEventID}
	}
	now := r.clock.Now()
	outcome.SourceEventID = sourceEventID
	outcome.CreatedAt = now
	outcome.UpdatedAt = now
	return r.store.PutOutcome(outcome)
}

// RecordPosted creates a POSTED outcome. Requires at least one journal
// entry id (L5).
func (r *OutcomeRecorder) RecordPosted(sourceEventID, econEventID string, journalEntryIDs []string, profileID string, profileVersion int) (*InterpretationOutcome, error) {
	if len(journalEntryIDs) == 0 {
		return nil, &InvalidOutcomeTransitionError{From: "", To: StatusPosted}
	}
	outcome := &InterpretationOutcome{
		Status:          StatusPosted,
		EconEventID:     econEventID,
		JournalEntryIDs: journalEntryIDs,
		ProfileID:       profileID,
		ProfileVersion:  profileVersion,
	}
	if err := r.createOutcome(sourceEventID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RecordRejected creates a REJECTED outcome. message is the human-readable
// counterpart to reason_code (spec.md §7) and is persisted as the outcome's
// failure_message even though REJECTED is not itself a "failure" status.
func (r *OutcomeRecorder) RecordRejected(sourceEventID, reasonCode, message string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	outcome := &InterpretationOutcome{
		Status:         StatusRejected,
		ReasonCode:     reasonCode,
		ReasonDetail:   reasonDetail,
		FailureMessage: message,
	}
	if err := r.createOutcome(sourceEventID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RecordBlocked creates a BLOCKED outcome.
func (r *OutcomeRecorder) RecordBlocked(sourceEventID, reasonCode string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	outcome := &InterpretationOutcome{
		Status:       StatusBlocked,
		ReasonCode:   reasonCode,
		ReasonDetail: reasonDetail,
	}
	if err := r.createOutcome(sourceEventID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RecordFailed creates a FAILED outcome. Requires a failureType and message.
func (r *OutcomeRecorder) RecordFailed(sourceEventID string, failureType FailureType, failureMessage, reasonCode string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	if failureMessage == "" {
		return nil, &InvalidOutcomeTransitionError{From: "", To: StatusFailed}
	}
	outcome := &InterpretationOutcome{
		Status:         StatusFailed,
		FailureType:    failureType,
		FailureMessage: failureMessage,
		ReasonCode:     reasonCode,
		ReasonDetail:   reasonDetail,
	}
	if err := r.createOutcome(sourceEventID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RecordNonPosting creates a terminal NON_POSTING outcome (e.g. for events
// that are valid but never intended to post).
func (r *OutcomeRecorder) RecordNonPosting(sourceEventID, reasonCode string) (*InterpretationOutcome, error) {
	outcome := &InterpretationOutcome{Status: StatusNonPosting, ReasonCode: reasonCode}
	if err := r.createOutcome(sourceEventID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// transition validates and applies a status change, returning the updated outcome.
func (r *OutcomeRecorder) transition(sourceEventID string, to OutcomeStatus, mutate func(*InterpretationOutcome)) (*InterpretationOutcome, error) {
	outcome, found, err := r.store.GetOutcome(sourceEventID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &InvalidOutcomeTransitionError{From: "", To: to}
	}
	if !validTransitions[outcome.Status][to] {
		return nil, &InvalidOutcomeTransitionError{From: outcome.Status, To: to}
	}
	outcome.Status = to
	if mutate != nil {
		mutate(outcome)
	}
	outcome.UpdatedAt = r.clock.Now()
	if err := r.store.PutOutcome(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// TransitionToRetrying moves FAILED -> RETRYING, incrementing retry_count.
func (r *OutcomeRecorder) TransitionToRetrying(sourceEventID string) (*InterpretationOutcome, error) {
	return r.transition(sourceEventID, StatusRetrying, func(o *InterpretationOutcome) {
		o.RetryCount++
	})
}

// TransitionToPosted moves BLOCKED/PROVISIONAL/RETRYING -> POSTED.
func (r *OutcomeRecorder) TransitionToPosted(sourceEventID, econEventID string, journalEntryIDs []string) (*InterpretationOutcome, error) {
	if len(journalEntryIDs) == 0 {
		return nil, &InvalidOutcomeTransitionError{To: StatusPosted}
	}
	return r.transition(sourceEventID, StatusPosted, func(o *InterpretationOutcome) {
		o.EconEventID = econEventID
		o.JournalEntryIDs = journalEntryIDs
	})
}

// TransitionToRejected moves BLOCKED/PROVISIONAL -> REJECTED.
func (r *OutcomeRecorder) TransitionToRejected(sourceEventID, reasonCode, message string) (*InterpretationOutcome, error) {
	return r.transition(sourceEventID, StatusRejected, func(o *InterpretationOutcome) {
		o.ReasonCode = reasonCode
		o.FailureMessage = message
	})
}

// TransitionToFailed moves BLOCKED/RETRYING -> FAILED with new failure context.
func (r *OutcomeRecorder) TransitionToFailed(sourceEventID string, failureType FailureType, failureMessage, reasonCode string, reasonDetail map[string]any, engineTracesRef string) (*InterpretationOutcome, error) {
	return r.transition(sourceEventID, StatusFailed, func(o *InterpretationOutcome) {
		o.FailureType = failureType
		o.FailureMessage = failureMessage
		o.ReasonCode = reasonCode
		o.ReasonDetail = reasonDetail
		o.EngineTracesRef = engineTracesRef
	})
}

// TransitionToAbandoned moves FAILED -> ABANDONED (terminal).
func (r *OutcomeRecorder) TransitionToAbandoned(sourceEventID, reasonCode string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	return r.transition(sourceEventID, StatusAbandoned, func(o *InterpretationOutcome) {
		o.ReasonCode = reasonCode
		o.ReasonDetail = reasonDetail
	})
}

// QueryFailedFilter narrows QueryFailed results.
type QueryFailedFilter struct {
	FailureType FailureType
	ProfileID   string
	ActorID     string
	Limit       int
}

// QueryFailed returns FAILED outcomes matching filter, grounded on
// outcome_recorder.py's query_failed.
func (r *OutcomeRecorder) QueryFailed(all []*InterpretationOutcome, filter QueryFailedFilter) []*InterpretationOutcome {
	var out []*InterpretationOutcome
	for _, o := range all {
		if o.Status != StatusFailed {
			continue
		}
		if filter.FailureType != "" && o.FailureType != filter.FailureType {
			continue
		}
		if filter.ProfileID != "" && o.ProfileID != filter.ProfileID {
			continue
		}
		if filter.ActorID != "" && o.ActorID != filter.ActorID {
			continue
		}
		out = append(out, o)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// QueryActionable returns FAILED ∪ BLOCKED outcomes ordered by creation
// time, up to limit. Grounded on outcome_recorder.py's query_actionable.
func (r *OutcomeRecorder) QueryActionable(all []*InterpretationOutcome, limit int) []*InterpretationOutcome {
	var out []*InterpretationOutcome
	for _, o := range all {
		if o.Status == StatusFailed || o.Status == StatusBlocked {
			out = append(out, o)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.Before(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
