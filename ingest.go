package kernel

import "time"

// IngestStatus is the outcome of one ingest attempt. Grounded on spec.md §4.10.
type IngestStatus string

const (
	IngestAccepted  IngestStatus = "Accepted"
	IngestDuplicate IngestStatus = "Duplicate"
	IngestRejected  IngestStatus = "Rejected"
)

// Event is the ingested, immutable source record (R1: once written, no
// field may be modified or deleted). Grounded on spec.md §3 and
// accounting.go's JournalEvent, generalized with a payload hash for
// idempotent dedup.
type Event struct {
	EventID       string
	EventType     string
	OccurredAt    time.Time
	EffectiveDate time.Time
	ActorID       string
	Producer      string
	PayloadHash   string
	Payload       map[string]any
	SchemaVersion int
	CreatedAt     time.Time
}

// EventStore is the persistence seam the ingestor writes through.
type EventStore interface {
	GetEvent(eventID string) (*Event, bool, error)
	PutEvent(event *Event) error
}

// Ingestor enforces event immutability (R1) and idempotent, hash-based
// dedup. Grounded on spec.md §4.10.
type Ingestor struct {
	store EventStore
	clock Clock
}

// NewIngestor constructs an ingestor bound to store and clock.
func NewIngestor(store EventStore, clock Clock) *Ingestor {
	return &Ingestor{store: store, clock: clock}
}

// Ingest computes the payload hash and either writes a new Event row
// (Accepted), detects a byte-identical replay (Duplicate), or detects a
// payload mismatch for the same event_id (Rejected).
func (i *Ingestor) Ingest(eventID, eventType string, occurredAt, effectiveDate time.Time, actorID, producer string, payload map[string]any, schemaVersion int) (IngestStatus, *Event, error) {
	payloadHash := FingerprintValue(payload)

	existing, found, err := i.store.GetEvent(eventID)
	if err != nil {
		return "", nil, err
	}
	if found {
		if existing.PayloadHash == payloadHash {
			return IngestDuplicate, existing, nil
		}
		return IngestRejected, existing, &IngestionMismatchError{EventID: eventID}
	}

	event := &Event{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt,
		EffectiveDate: effectiveDate,
		ActorID:       actorID,
		Producer:      producer,
		PayloadHash:   payloadHash,
		Payload:       payload,
		SchemaVersion: schemaVersion,
		CreatedAt:     i.clock.Now(),
	}
	if err := i.store.PutEvent(event); err != nil {
		return "", nil, err
	}
	return IngestAccepted, event, nil
}
