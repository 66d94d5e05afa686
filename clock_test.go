package kernel

import (
	"testing"
	"time"
)

func TestDeterministicClockAdvance(t *testing.T) {
	clock := NewDeterministicClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	start := clock.Now()
	clock.Advance(60)
	if clock.Now().Sub(start) != 60*time.Second {
		t.Fatalf("expected 60s advance, got %v", clock.Now().Sub(start))
	}
}

func TestSequentialClockExhaustionReturnsLastValue(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	clock := NewSequentialClock([]time.Time{t1, t2})

	if got := clock.Now(); !got.Equal(t1) {
		t.Fatalf("expected %v, got %v", t1, got)
	}
	if got := clock.Now(); !got.Equal(t2) {
		t.Fatalf("expected %v, got %v", t2, got)
	}
	// Exhausted: must keep returning t2, never panic.
	for i := 0; i < 3; i++ {
		if got := clock.Now(); !got.Equal(t2) {
			t.Fatalf("expected exhausted clock to keep returning %v, got %v", t2, got)
		}
	}
}

func TestSequentialClockPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on empty times list")
		}
	}()
	NewSequentialClock(nil)
}
