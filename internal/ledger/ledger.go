// Package ledger implements the commitment ledger: an append-only keyed
// store of declarations, decision cards, and lifecycle events (spec §4.6).
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/identity"
)

// LifecycleKind enumerates the lifecycle events a ledger entry may grow.
type LifecycleKind string

const (
	LifecycleDeclared           LifecycleKind = "Declared"
	LifecycleApproved           LifecycleKind = "Approved"
	LifecycleDenied             LifecycleKind = "Denied"
	LifecycleFulfilled          LifecycleKind = "Fulfilled"
	LifecycleFailed             LifecycleKind = "Failed"
	LifecyclePartiallyFulfilled LifecycleKind = "PartiallyFulfilled"
	LifecycleExpired            LifecycleKind = "Expired"
)

// terminal lifecycle kinds close an entry to further, non-idempotent outcome
// reporting. PartiallyFulfilled is deliberately not terminal: a partially
// fulfilled commitment may still later resolve to Fulfilled or Failed.
var terminalKinds = map[LifecycleKind]bool{
	LifecycleDenied:    true,
	LifecycleFulfilled: true,
	LifecycleFailed:    true,
	LifecycleExpired:   true,
}

// LifecycleEvent is one entry in a ledger entry's lifecycle vector.
type LifecycleEvent struct {
	Kind       LifecycleKind `json:"kind"`
	Reason     string        `json:"reason,omitempty"`     // Denied, Failed
	Completion float64       `json:"completion,omitempty"` // PartiallyFulfilled
	Remaining  string        `json:"remaining,omitempty"`  // PartiallyFulfilled
	At         time.Time     `json:"at"`
}

// Entry is a single append-only ledger record, keyed by commitment id.
type Entry struct {
	CommitmentID uuid.UUID                      `json:"commitment_id"`
	Declaration  declaration.Declaration         `json:"declaration"`
	Card         declaration.PolicyDecisionCard  `json:"card"`
	Lifecycle    []LifecycleEvent                `json:"lifecycle"`
}

// terminalKind returns the lifecycle kind that closed this entry, if any.
func (e *Entry) terminalKind() (LifecycleKind, bool) {
	for i := len(e.Lifecycle) - 1; i >= 0; i-- {
		if terminalKinds[e.Lifecycle[i].Kind] {
			return e.Lifecycle[i].Kind, true
		}
	}
	return "", false
}

// hasLifecycle reports whether the entry already has an event of kind k.
func (e *Entry) hasLifecycle(k LifecycleKind) bool {
	for _, ev := range e.Lifecycle {
		if ev.Kind == k {
			return true
		}
	}
	return false
}

// Ledger is the process-global commitment ledger: append-only, guarded by a
// single reader/writer lock held only for the critical append/read (spec
// §4.9). Entries are never removed; PolicyDecisionCards are never replaced;
// lifecycle events are only appended.
type Ledger struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	order   []uuid.UUID // append order, for prefix-subset snapshots (I7)
}

// New constructs an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[uuid.UUID]*Entry)}
}

// Append adds a new entry. An entry with the same commitment id may not be
// appended twice (spec §4.6 invariant).
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[e.CommitmentID]; exists {
		return cacerr.New(cacerr.KindLifecycleConflict, "LEDGER-01", "commitment already appended: "+e.CommitmentID.String())
	}
	stored := e
	stored.Lifecycle = append([]LifecycleEvent(nil), e.Lifecycle...)
	l.entries[e.CommitmentID] = &stored
	l.order = append(l.order, e.CommitmentID)
	return nil
}

// RecordLifecycle appends a lifecycle event to an existing entry. Returns
// NotFound for an unknown commitment id. Idempotent appends of an equal
// outcome on an already-terminal entry are allowed; a conflicting outcome on
// a terminal entry returns LifecycleConflict (spec §6 outcome reporting).
func (l *Ledger) RecordLifecycle(cid uuid.UUID, ev LifecycleEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[cid]
	if !ok {
		return cacerr.New(cacerr.KindNotFound, "LEDGER-02", "commitment not found: "+cid.String())
	}

	if term, isTerminal := entry.terminalKind(); isTerminal {
		if term == ev.Kind {
			return nil // idempotent repeat of the same terminal outcome
		}
		return cacerr.New(cacerr.KindLifecycleConflict, "LEDGER-03",
			"commitment already terminal ("+string(term)+"), cannot record "+string(ev.Kind))
	}

	if ev.Kind == LifecycleDeclared && entry.hasLifecycle(LifecycleDeclared) {
		return nil
	}

	entry.Lifecycle = append(entry.Lifecycle, ev)
	return nil
}

// History returns an entry's full lifecycle vector.
func (l *Ledger) History(cid uuid.UUID) ([]LifecycleEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[cid]
	if !ok {
		return nil, cacerr.New(cacerr.KindNotFound, "LEDGER-02", "commitment not found: "+cid.String())
	}
	out := make([]LifecycleEvent, len(entry.Lifecycle))
	copy(out, entry.Lifecycle)
	return out, nil
}

// Get returns a copy of a single entry.
func (l *Ledger) Get(cid uuid.UUID) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[cid]
	if !ok {
		return nil, cacerr.New(cacerr.KindNotFound, "LEDGER-02", "commitment not found: "+cid.String())
	}
	cp := *entry
	cp.Lifecycle = append([]LifecycleEvent(nil), entry.Lifecycle...)
	return &cp, nil
}

// Len returns the number of entries currently in the ledger.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Filter narrows a Query call. A zero-value field does not filter on that
// dimension.
type Filter struct {
	DeclaringID   identity.WorldlineID
	Decision      declaration.Decision
	From          time.Time
	To            time.Time
	HasLifecycle  LifecycleKind
}

// Query returns every entry matching filter, in append order.
func (l *Ledger) Query(f Filter) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Entry, 0)
	for _, cid := range l.order {
		entry := l.entries[cid]
		if f.DeclaringID != "" && entry.Declaration.DeclaringID != f.DeclaringID {
			continue
		}
		if f.Decision != "" && entry.Card.Decision != f.Decision {
			continue
		}
		if !f.From.IsZero() && entry.Card.DecidedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && entry.Card.DecidedAt.After(f.To) {
			continue
		}
		if f.HasLifecycle != "" && !entry.hasLifecycle(f.HasLifecycle) {
			continue
		}
		cp := *entry
		cp.Lifecycle = append([]LifecycleEvent(nil), entry.Lifecycle...)
		out = append(out, &cp)
	}
	return out
}
