package kernel

import "testing"

func TestRetryServiceInitiateRetryRequiresFailedStatus(t *testing.T) {
	store := newMemOutcomeStore()
	outcomes := NewOutcomeRecorder(store, SystemClock{})
	retry := NewRetryService(outcomes)

	if _, err := outcomes.RecordBlocked("evt-1", "X", nil); err != nil {
		t.Fatal(err)
	}
	_, err := retry.InitiateRetry("evt-1")
	if _, ok := err.(*RetryNotAllowedError); !ok {
		t.Fatalf("expected *RetryNotAllowedError for a non-FAILED outcome, got %T", err)
	}
}

func TestRetryServiceFullLifecycle(t *testing.T) {
	store := newMemOutcomeStore()
	outcomes := NewOutcomeRecorder(store, SystemClock{})
	retry := NewRetryService(outcomes)

	if _, err := outcomes.RecordFailed("evt-2", FailureEngine, "boom", "ENGINE_ERROR", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := retry.InitiateRetry("evt-2"); err != nil {
		t.Fatalf("expected FAILED -> RETRYING to succeed: %v", err)
	}
	if _, err := retry.CompleteRetrySuccess("evt-2", "econ-1", []string{"entry-1"}); err != nil {
		t.Fatalf("expected RETRYING -> POSTED to succeed: %v", err)
	}
}

func TestRetryServiceRefusesAfterMaxRetries(t *testing.T) {
	store := newMemOutcomeStore()
	outcomes := NewOutcomeRecorder(store, SystemClock{})
	retry := NewRetryService(outcomes)

	if _, err := outcomes.RecordFailed("evt-3", FailureEngine, "boom", "X", nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < maxRetries; i++ {
		if _, err := retry.InitiateRetry("evt-3"); err != nil {
			t.Fatalf("retry %d: unexpected error: %v", i, err)
		}
		if _, err := retry.CompleteRetryFailure("evt-3", FailureEngine, "boom again", "X", nil); err != nil {
			t.Fatalf("retry %d: unexpected error transitioning back to FAILED: %v", i, err)
		}
	}
	_, err := retry.InitiateRetry("evt-3")
	if _, ok := err.(*RetryNotAllowedError); !ok {
		t.Fatalf("expected retry to be refused once retry_count reaches the maximum, got %T", err)
	}
}

func TestRetryServiceAbandon(t *testing.T) {
	store := newMemOutcomeStore()
	outcomes := NewOutcomeRecorder(store, SystemClock{})
	retry := NewRetryService(outcomes)

	if _, err := outcomes.RecordFailed("evt-4", FailureEngine, "boom", "X", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := retry.Abandon("evt-4", "GIVING_UP", nil); err != nil {
		t.Fatalf("expected FAILED -> ABANDONED to succeed: %v", err)
	}
}
