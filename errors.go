package kernel

import "fmt"

// KernelError is implemented by every typed error the kernel raises. Code is
// the machine-readable reason_code surfaced on InterpretationOutcome and in
// structured traces; it generalizes the teacher's PostingError.Code into one
// type per error-taxonomy kind (see spec.md §7).
type KernelError interface {
	error
	Code() string
}

// CurrencyMismatchError is raised when Money arithmetic crosses currencies.
type CurrencyMismatchError struct {
	Left, Right Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: %s vs %s", e.Left, e.Right)
}
func (e *CurrencyMismatchError) Code() string { return "CURRENCY_MISMATCH" }

// PolicyAlreadyRegisteredError is raised on a duplicate (name, version) registration.
type PolicyAlreadyRegisteredError struct {
	Name    string
	Version int
}

func (e *PolicyAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("policy %s v%d already registered", e.Name, e.Version)
}
func (e *PolicyAlreadyRegisteredError) Code() string { return "POLICY_ALREADY_REGISTERED" }

// UncompiledPolicyError is raised when a compilation receipt disagrees with the policy.
type UncompiledPolicyError struct {
	Name    string
	Version int
}

func (e *UncompiledPolicyError) Error() string {
	return fmt.Sprintf("policy %s v%d is not compiled", e.Name, e.Version)
}
func (e *UncompiledPolicyError) Code() string { return "UNCOMPILED_POLICY" }

// PolicyNotFoundError is raised when no policy matches an event.
type PolicyNotFoundError struct {
	EventType string
}

func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("no policy found for event_type %q", e.EventType)
}
func (e *PolicyNotFoundError) Code() string { return "PROFILE_NOT_FOUND" }

// MultiplePoliciesMatchError is raised when precedence resolution cannot settle a tie.
type MultiplePoliciesMatchError struct {
	EventType string
	Names     []string
}

func (e *MultiplePoliciesMatchError) Error() string {
	return fmt.Sprintf("multiple policies match event_type %q: %v", e.EventType, e.Names)
}
func (e *MultiplePoliciesMatchError) Code() string { return "MULTIPLE_PROFILES_MATCH" }

// InvalidOutcomeTransitionError is raised by the outcome recorder on an illegal transition.
type InvalidOutcomeTransitionError struct {
	From, To OutcomeStatus
}

func (e *InvalidOutcomeTransitionError) Error() string {
	return fmt.Sprintf("invalid outcome transition: %s -> %s", e.From, e.To)
}
func (e *InvalidOutcomeTransitionError) Code() string { return "INVALID_OUTCOME_TRANSITION" }

// OutcomeAlreadyExistsError enforces P15 (one outcome per source_event_id).
type OutcomeAlreadyExistsError struct {
	SourceEventID string
}

func (e *OutcomeAlreadyExistsError) Error() string {
	return fmt.Sprintf("outcome already exists for source_event_id %s", e.SourceEventID)
}
func (e *OutcomeAlreadyExistsError) Code() string { return "OUTCOME_ALREADY_EXISTS" }

// ClosedPeriodError is raised when a posting targets a hard-closed period.
type ClosedPeriodError struct {
	PeriodCode string
}

func (e *ClosedPeriodError) Error() string {
	return fmt.Sprintf("period %s is closed", e.PeriodCode)
}
func (e *ClosedPeriodError) Code() string { return "PERIOD_CLOSED" }

// AdjustmentsNotAllowedError is raised when a non-adjustment targets a soft-closed period.
type AdjustmentsNotAllowedError struct {
	PeriodCode string
}

func (e *AdjustmentsNotAllowedError) Error() string {
	return fmt.Sprintf("period %s accepts adjustments only", e.PeriodCode)
}
func (e *AdjustmentsNotAllowedError) Code() string { return "ADJUSTMENTS_NOT_ALLOWED" }

// RoleResolutionError is raised when one or more policy roles have no account binding.
type RoleResolutionError struct {
	UnresolvedRoles []string
}

func (e *RoleResolutionError) Error() string {
	return fmt.Sprintf("unresolved roles: %v", e.UnresolvedRoles)
}
func (e *RoleResolutionError) Code() string { return "ROLE_RESOLUTION_BLOCKED" }

// ImbalancedError is raised when debits and credits disagree for a ledger/currency pair.
type ImbalancedError struct {
	LedgerID string
	Currency Currency
	Debits   int64
	Credits  int64
}

func (e *ImbalancedError) Error() string {
	return fmt.Sprintf("ledger %s currency %s imbalanced: debits=%d credits=%d",
		e.LedgerID, e.Currency, e.Debits, e.Credits)
}
func (e *ImbalancedError) Code() string { return "IMBALANCED" }

// SubledgerReconciliationError is raised when a control-account line violates its declared side.
type SubledgerReconciliationError struct {
	Subledger string
	AccountID string
	Reason    string
}

func (e *SubledgerReconciliationError) Error() string {
	return fmt.Sprintf("subledger %s control account %s: %s", e.Subledger, e.AccountID, e.Reason)
}
func (e *SubledgerReconciliationError) Code() string { return "SUBLEDGER_RECONCILIATION_ERROR" }

// IngestionMismatchError is raised when a replayed event_id carries a different payload hash.
type IngestionMismatchError struct {
	EventID string
}

func (e *IngestionMismatchError) Error() string {
	return fmt.Sprintf("event %s: payload hash mismatch with stored event", e.EventID)
}
func (e *IngestionMismatchError) Code() string { return "INGESTION_FAILED" }

// RetryNotAllowedError is raised by the retry service for an ineligible outcome.
type RetryNotAllowedError struct {
	SourceEventID string
	Reason        string
}

func (e *RetryNotAllowedError) Error() string {
	return fmt.Sprintf("retry not allowed for %s: %s", e.SourceEventID, e.Reason)
}
func (e *RetryNotAllowedError) Code() string { return "RETRY_NOT_ALLOWED" }

// SerializationFirewallError is raised when a value destined for decision_log or
// reason_detail is not JSON-round-trippable (P-serialization-firewall).
type SerializationFirewallError struct {
	Path string
}

func (e *SerializationFirewallError) Error() string {
	return fmt.Sprintf("value at %s is not JSON-safe", e.Path)
}
func (e *SerializationFirewallError) Code() string { return "SERIALIZATION_FIREWALL" }
