package kernel

import (
	"testing"
	"time"
)

type memEventStore struct {
	byID map[string]*Event
}

func newMemEventStore() *memEventStore { return &memEventStore{byID: make(map[string]*Event)} }

func (s *memEventStore) GetEvent(eventID string) (*Event, bool, error) {
	e, found := s.byID[eventID]
	return e, found, nil
}

func (s *memEventStore) PutEvent(event *Event) error {
	cp := *event
	s.byID[event.EventID] = &cp
	return nil
}

func TestIngestorAcceptsNewEvent(t *testing.T) {
	store := newMemEventStore()
	ingestor := NewIngestor(store, SystemClock{})
	now := time.Now()
	status, event, err := ingestor.Ingest("evt-1", "sale", now, now, "actor", "producer", map[string]any{"amount": 100}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != IngestAccepted {
		t.Fatalf("expected IngestAccepted, got %s", status)
	}
	if event.PayloadHash == "" {
		t.Fatal("expected a non-empty payload hash")
	}
}

func TestIngestorDetectsByteIdenticalReplay(t *testing.T) {
	store := newMemEventStore()
	ingestor := NewIngestor(store, SystemClock{})
	now := time.Now()
	payload := map[string]any{"amount": 100}
	if _, _, err := ingestor.Ingest("evt-1", "sale", now, now, "actor", "producer", payload, 1); err != nil {
		t.Fatal(err)
	}
	status, _, err := ingestor.Ingest("evt-1", "sale", now, now, "actor", "producer", payload, 1)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if status != IngestDuplicate {
		t.Fatalf("expected IngestDuplicate, got %s", status)
	}
}

func TestIngestorRejectsPayloadMismatch(t *testing.T) {
	store := newMemEventStore()
	ingestor := NewIngestor(store, SystemClock{})
	now := time.Now()
	if _, _, err := ingestor.Ingest("evt-1", "sale", now, now, "actor", "producer", map[string]any{"amount": 100}, 1); err != nil {
		t.Fatal(err)
	}
	status, _, err := ingestor.Ingest("evt-1", "sale", now, now, "actor", "producer", map[string]any{"amount": 200}, 1)
	if status != IngestRejected {
		t.Fatalf("expected IngestRejected, got %s", status)
	}
	if _, ok := err.(*IngestionMismatchError); !ok {
		t.Fatalf("expected *IngestionMismatchError, got %T", err)
	}
}
