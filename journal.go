package kernel

import "time"

const intentDateLayout = "2006-01-02"

// JournalEntryStatus distinguishes a live entry from one superseded by a reversal.
type JournalEntryStatus string

const (
	EntryPosted   JournalEntryStatus = "posted"
	EntryReversed JournalEntryStatus = "reversed"
)

// JournalLine is one persisted debit or credit line. Grounded on spec.md §3.
type JournalLine struct {
	AccountID  string
	Side       EntrySide
	Money      Money
	Dimensions map[string]string
	LineSeq    int
}

// JournalEntry is one persisted, balanced posting. Grounded on spec.md §3.
type JournalEntry struct {
	ID             string
	LedgerID       string
	Seq            int64
	SourceEventID  string
	EffectiveDate  time.Time
	Status         JournalEntryStatus
	IdempotencyKey string
	ActorID        string
	CreatedAt      time.Time
	Lines          []JournalLine
}

// WriteOutcome is the sum type describing what Write did.
type WriteOutcome string

const (
	WriteSuccess             WriteOutcome = "Success"
	WriteAlreadyExists       WriteOutcome = "AlreadyExists"
	WriteRoleResolutionFailed WriteOutcome = "RoleResolutionFailed"
	WriteImbalanced          WriteOutcome = "Imbalanced"
)

// WriteResult is the journal writer's result. Grounded on spec.md §4.12.
type WriteResult struct {
	Outcome          WriteOutcome
	EntryIDs         []string
	UnresolvedRoles  []string
	Err              error
}

func idempotencyKey(econEventID, ledgerID string, profileVersion int) string {
	return econEventID + "|" + ledgerID + "|" + itoa(profileVersion)
}

// JournalStore is the persistence seam the writer reads and writes through.
type JournalStore interface {
	// FindByIdempotencyKey returns the entry id already posted under key, if any.
	FindByIdempotencyKey(key string) (string, bool, error)
	// NextSequence allocates the next gapless sequence number for ledgerID,
	// inside the same transaction as PutEntry (the kernel's per-ledger lock,
	// implemented via bbolt's single-writer Update transaction).
	NextSequence(ledgerID string) (int64, error)
	PutEntry(entry *JournalEntry) error
}

// JournalWriter is the atomic write coordinator (C12): double-entry
// validation, idempotency, atomic line persistence, subledger control
// enforcement. Grounded on posting_engine.go's PostTransaction/
// validateBalance, generalized to multi-ledger AccountingIntent per
// spec.md §4.12.
type JournalWriter struct {
	store      JournalStore
	roles      *RoleResolver
	subledgers *SubledgerRegistry
	clock      Clock
}

// NewJournalWriter constructs a writer bound to its collaborators.
func NewJournalWriter(store JournalStore, roles *RoleResolver, subledgers *SubledgerRegistry, clock Clock) *JournalWriter {
	return &JournalWriter{store: store, roles: roles, subledgers: subledgers, clock: clock}
}

// Write persists intent per spec.md §4.12's seven steps.
func (w *JournalWriter) Write(intent *AccountingIntent, actorID uuidString, eventType string, newID func() string) *WriteResult {
	var entryIDs []string

	// Steps 1-2: idempotency check per ledger.
	allExist := true
	for _, li := range intent.LedgerIntents {
		key := idempotencyKey(intent.EconEventID, li.LedgerID, intent.ProfileVersion)
		if id, found, err := w.store.FindByIdempotencyKey(key); err == nil && found {
			entryIDs = append(entryIDs, id)
		} else {
			allExist = false
		}
	}
	if allExist && len(intent.LedgerIntents) > 0 {
		return &WriteResult{Outcome: WriteAlreadyExists, EntryIDs: entryIDs}
	}

	// Step 3: role resolution.
	resolvedAccountIDs, unresolved := w.roles.ResolveAll(intent, eventType)
	if len(unresolved) > 0 {
		return &WriteResult{Outcome: WriteRoleResolutionFailed, UnresolvedRoles: unresolved}
	}

	// Step 4: balance verification (already checked at intent build time in
	// intent.go, re-verified here as the writer's own invariant per spec.md
	// §4.12 step 4, since intents may be constructed by callers directly).
	if err := validateIntentBalance(intent); err != nil {
		return &WriteResult{Outcome: WriteImbalanced, Err: err}
	}

	// Step 6: subledger control enforcement, before persistence.
	if w.subledgers != nil {
		if err := w.subledgers.EnforceOnPost(intent); err != nil {
			return &WriteResult{Outcome: WriteImbalanced, Err: err}
		}
	}

	// Steps 5 & 7: sequence allocation + persistence, one entry per ledger intent.
	var createdIDs []string
	now := w.clock.Now()
	effectiveDate, err := time.Parse(intentDateLayout, intent.EffectiveDate)
	if err != nil {
		effectiveDate = now
	}
	for _, li := range intent.LedgerIntents {
		key := idempotencyKey(intent.EconEventID, li.LedgerID, intent.ProfileVersion)
		if id, found, _ := w.store.FindByIdempotencyKey(key); found {
			createdIDs = append(createdIDs, id)
			continue
		}
		seq, err := w.store.NextSequence(li.LedgerID)
		if err != nil {
			return &WriteResult{Outcome: WriteImbalanced, Err: err}
		}
		entryID := newID()
		var lines []JournalLine
		for idx, line := range li.Lines {
			accountID := resolvedAccountIDs[line.Role]
			lines = append(lines, JournalLine{
				AccountID:  accountID,
				Side:       line.Side,
				Money:      line.Money,
				Dimensions: line.Dimensions,
				LineSeq:    idx,
			})
		}
		entry := &JournalEntry{
			ID:             entryID,
			LedgerID:       li.LedgerID,
			Seq:            seq,
			SourceEventID:  intent.SourceEventID,
			EffectiveDate:  effectiveDate,
			Status:         EntryPosted,
			IdempotencyKey: key,
			ActorID:        string(actorID),
			CreatedAt:      now,
			Lines:          lines,
		}
		if err := w.store.PutEntry(entry); err != nil {
			return &WriteResult{Outcome: WriteImbalanced, Err: err}
		}
		createdIDs = append(createdIDs, entryID)
	}

	return &WriteResult{Outcome: WriteSuccess, EntryIDs: createdIDs}
}

// uuidString is a thin alias avoiding a hard uuid.UUID dependency in this
// file's signature; callers pass actor ids as strings throughout the
// kernel, matching the teacher's userID string convention.
type uuidString = string

// Reverse creates a new entry whose lines invert every side of original,
// never mutating the original entry. Grounded on posting_engine.go's
// ReverseTransaction.
func (w *JournalWriter) Reverse(original *JournalEntry, newID func() string) *JournalEntry {
	var lines []JournalLine
	for _, l := range original.Lines {
		side := SideCredit
		if l.Side == SideCredit {
			side = SideDebit
		}
		lines = append(lines, JournalLine{AccountID: l.AccountID, Side: side, Money: l.Money, Dimensions: l.Dimensions, LineSeq: l.LineSeq})
	}
	seq, _ := w.store.NextSequence(original.LedgerID)
	return &JournalEntry{
		ID:            newID(),
		LedgerID:      original.LedgerID,
		Seq:           seq,
		SourceEventID: original.SourceEventID,
		Status:        EntryPosted,
		ActorID:       original.ActorID,
		CreatedAt:     w.clock.Now(),
		Lines:         lines,
	}
}
