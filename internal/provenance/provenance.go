// Package provenance provides query-side projections of the event fabric for
// audit and reconciliation use, without exposing fabric internals.
package provenance

import (
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/identity"
)

// Index wraps a *fabric.Fabric with read-only audit projections.
type Index struct {
	f *fabric.Fabric
}

// NewIndex constructs a provenance index over f.
func NewIndex(f *fabric.Fabric) *Index {
	return &Index{f: f}
}

// WorldlineHistory returns the full ordered event chain for a worldline. A
// slow fabric.Subscription consumer uses this to reconcile gaps reported by
// Subscription.Dropped: it replays the authoritative chain instead of trying
// to recover missed pushes.
func (idx *Index) WorldlineHistory(id identity.WorldlineID) []*fabric.Event {
	return idx.f.Chain(id)
}

// WorldlineHistorySince returns the suffix of a worldline's chain whose
// sequence number is strictly greater than afterSeq. Used by a reconciling
// consumer that already processed events up to a known cursor.
func (idx *Index) WorldlineHistorySince(id identity.WorldlineID, afterSeq int64) []*fabric.Event {
	chain := idx.f.Chain(id)
	out := make([]*fabric.Event, 0, len(chain))
	for _, ev := range chain {
		if ev.Seq > afterSeq {
			out = append(out, ev)
		}
	}
	return out
}

// EventsByStage filters a worldline's chain down to a single stage.
func (idx *Index) EventsByStage(id identity.WorldlineID, stage fabric.Stage) []*fabric.Event {
	chain := idx.f.Chain(id)
	out := make([]*fabric.Event, 0)
	for _, ev := range chain {
		if ev.Stage == stage {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInRange filters a worldline's chain to events within [from, to].
// A zero from/to is treated as unbounded on that side.
func (idx *Index) EventsInRange(id identity.WorldlineID, from, to time.Time) []*fabric.Event {
	chain := idx.f.Chain(id)
	out := make([]*fabric.Event, 0)
	for _, ev := range chain {
		if !from.IsZero() && ev.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Timestamp.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// FindSibling locates the terminal decision event (CommitmentApproved /
// CommitmentDenied) that accompanies a ledger append for commitmentID, used
// by tests asserting the accountability invariant (I3/I5).
func (idx *Index) FindSibling(id identity.WorldlineID, commitmentID uuid.UUID, payloadTypes ...string) *fabric.Event {
	allowed := make(map[string]bool, len(payloadTypes))
	for _, t := range payloadTypes {
		allowed[t] = true
	}
	chain := idx.f.Chain(id)
	for i := len(chain) - 1; i >= 0; i-- {
		ev := chain[i]
		if !allowed[ev.PayloadType] {
			continue
		}
		if cid, ok := ev.Payload["commitment_id"].(string); ok && cid == commitmentID.String() {
			return ev
		}
	}
	return nil
}
