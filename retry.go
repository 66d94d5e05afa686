package kernel

// maxRetries bounds how many times a FAILED outcome may re-enter RETRYING
// before retry becomes permanently disallowed. Grounded on
// original_source/finance_kernel/services/retry_service.py's MAX_RETRIES.
const maxRetries = 10

// RetryService drives the FAILED/RETRYING/ABANDONED slice of the outcome
// lifecycle. Grounded on retry_service.py in full.
type RetryService struct {
	outcomes *OutcomeRecorder
}

// NewRetryService constructs a retry service bound to an outcome recorder.
func NewRetryService(outcomes *OutcomeRecorder) *RetryService {
	return &RetryService{outcomes: outcomes}
}

// InitiateRetry moves a FAILED outcome to RETRYING, refusing once
// retry_count has reached maxRetries.
func (s *RetryService) InitiateRetry(sourceEventID string) (*InterpretationOutcome, error) {
	outcome, found, err := s.outcomes.GetOutcome(sourceEventID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &RetryNotAllowedError{SourceEventID: sourceEventID, Reason: "no outcome on record"}
	}
	if outcome.Status != StatusFailed {
		return nil, &RetryNotAllowedError{SourceEventID: sourceEventID, Reason: "outcome is not FAILED"}
	}
	if outcome.RetryCount >= maxRetries {
		return nil, &RetryNotAllowedError{SourceEventID: sourceEventID, Reason: "retry_count has reached the maximum"}
	}
	return s.outcomes.TransitionToRetrying(sourceEventID)
}

// CompleteRetrySuccess moves a RETRYING outcome to POSTED once a retried
// posting attempt succeeds.
func (s *RetryService) CompleteRetrySuccess(sourceEventID, econEventID string, journalEntryIDs []string) (*InterpretationOutcome, error) {
	return s.outcomes.TransitionToPosted(sourceEventID, econEventID, journalEntryIDs)
}

// CompleteRetryFailure moves a RETRYING outcome back to FAILED with updated
// failure context, ready for another InitiateRetry call or Abandon.
func (s *RetryService) CompleteRetryFailure(sourceEventID string, failureType FailureType, failureMessage, reasonCode string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	return s.outcomes.TransitionToFailed(sourceEventID, failureType, failureMessage, reasonCode, reasonDetail, "")
}

// Abandon moves a FAILED outcome to the terminal ABANDONED state, typically
// once retry_count has been exhausted or an operator has decided not to
// pursue further retries.
func (s *RetryService) Abandon(sourceEventID, reasonCode string, reasonDetail map[string]any) (*InterpretationOutcome, error) {
	return s.outcomes.TransitionToAbandoned(sourceEventID, reasonCode, reasonDetail)
}
