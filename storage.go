package kernel

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Storage buckets. One bucket per entity type, grounded on the teacher's
// storage.go bucket layout. Protobuf serialization is replaced with
// encoding/json throughout (see DESIGN.md): the teacher's own
// event_store.go already serializes its envelope as JSON, so this keeps
// the teacher's own secondary idiom rather than reaching for the stdlib
// cold.
var (
	bucketEvents             = []byte("events")
	bucketEconomicEvents     = []byte("economic_events")
	bucketJournalEntries     = []byte("journal_entries")
	bucketIdempotencyIndex   = []byte("idempotency_index")
	bucketLedgerSequences    = []byte("ledger_sequences")
	bucketOutcomes           = []byte("interpretation_outcomes")
	bucketAccounts           = []byte("accounts")
)

// Storage is the bbolt-backed persistence layer implementing every *Store
// seam the kernel's components read and write through. Grounded on the
// teacher's storage.go Save*/Get* naming convention and bucket-per-entity
// layout.
type Storage struct {
	db *bbolt.DB
}

// NewStorage opens (creating if absent) a bbolt database at dbPath and
// initializes every bucket the kernel needs.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Storage{db: db}
	if err := s.initBuckets(); err != nil {
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			bucketEvents, bucketEconomicEvents, bucketJournalEntries,
			bucketIdempotencyIndex, bucketLedgerSequences, bucketOutcomes,
			bucketAccounts,
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

// --- EventStore (ingest.go) ---

// GetEvent implements EventStore.
func (s *Storage) GetEvent(eventID string) (*Event, bool, error) {
	var event Event
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEvents).Get([]byte(eventID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &event)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &event, true, nil
}

// PutEvent implements EventStore. Events are immutable (R1): writing an
// event id that is already stored fails and leaves the stored event as it is.
func (s *Storage) PutEvent(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b.Get([]byte(event.EventID)) != nil {
			return fmt.Errorf("event %s already exists and cannot be updated", event.EventID)
		}
		return b.Put([]byte(event.EventID), data)
	})
}

// --- OutcomeStore (outcome.go) ---

// GetOutcome implements OutcomeStore.
func (s *Storage) GetOutcome(sourceEventID string) (*InterpretationOutcome, bool, error) {
	var outcome InterpretationOutcome
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketOutcomes).Get([]byte(sourceEventID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &outcome)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &outcome, true, nil
}

// PutOutcome implements OutcomeStore.
func (s *Storage) PutOutcome(outcome *InterpretationOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutcomes).Put([]byte(outcome.SourceEventID), data)
	})
}

// AllOutcomes loads every persisted outcome, for use by QueryFailed/
// QueryActionable which operate on an in-memory slice (spec.md §4.14 does
// not require an indexed query surface beyond these two filters).
func (s *Storage) AllOutcomes() ([]*InterpretationOutcome, error) {
	var out []*InterpretationOutcome
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutcomes).ForEach(func(k, v []byte) error {
			var outcome InterpretationOutcome
			if err := json.Unmarshal(v, &outcome); err != nil {
				return err
			}
			out = append(out, &outcome)
			return nil
		})
	})
	return out, err
}

// --- JournalStore (journal.go) ---

// FindByIdempotencyKey implements JournalStore.
func (s *Storage) FindByIdempotencyKey(key string) (string, bool, error) {
	var entryID string
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIdempotencyIndex).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		entryID = string(data)
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}
	return entryID, true, nil
}

// NextSequence allocates the next gapless sequence number for ledgerID.
// Runs inside its own Update transaction; callers that need the sequence
// and the entry write to be atomic rely on bbolt's single-writer semantics
// serializing concurrent Update calls (spec.md §5).
func (s *Storage) NextSequence(ledgerID string) (int64, error) {
	var seq int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLedgerSequences)
		key := []byte(ledgerID)
		var current uint64
		if data := b.Get(key); data != nil {
			current = binary.BigEndian.Uint64(data)
		}
		current++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, current)
		if err := b.Put(key, buf); err != nil {
			return err
		}
		seq = int64(current)
		return nil
	})
	return seq, err
}

// PutEntry implements JournalStore: persists the entry header with its
// lines in one write, then indexes it by idempotency key, all within a
// single bbolt transaction so a reader never observes a partial entry.
func (s *Storage) PutEntry(entry *JournalEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketJournalEntries).Put([]byte(entry.ID), data); err != nil {
			return err
		}
		if entry.IdempotencyKey != "" {
			if err := tx.Bucket(bucketIdempotencyIndex).Put([]byte(entry.IdempotencyKey), []byte(entry.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEntry retrieves a previously persisted journal entry by id.
func (s *Storage) GetEntry(entryID string) (*JournalEntry, bool, error) {
	var entry JournalEntry
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketJournalEntries).Get([]byte(entryID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// --- Economic events ---

// SaveEconomicEvent persists the economic event derived from a posted
// source event, keyed by its economic event id (econEventID).
func (s *Storage) SaveEconomicEvent(econEventID string, event *EconomicEventData) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal economic event: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEconomicEvents).Put([]byte(econEventID), data)
	})
}

// GetEconomicEvent retrieves a previously saved economic event.
func (s *Storage) GetEconomicEvent(econEventID string) (*EconomicEventData, bool, error) {
	var event EconomicEventData
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEconomicEvents).Get([]byte(econEventID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &event)
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &event, true, nil
}

// --- Accounts ---

// SaveAccount persists an account's configuration (open/closed, normal
// side) for use by the role resolver.
func (s *Storage) SaveAccount(account *Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).Put([]byte(account.ID), data)
	})
}

// LoadAccounts returns every persisted account keyed by id, for use by
// NewRoleResolver.
func (s *Storage) LoadAccounts() (map[string]*Account, error) {
	out := make(map[string]*Account)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAccounts).ForEach(func(k, v []byte) error {
			var acct Account
			if err := json.Unmarshal(v, &acct); err != nil {
				return err
			}
			out[acct.ID] = &acct
			return nil
		})
	})
	return out, err
}
