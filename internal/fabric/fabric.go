// Package fabric implements the resonance event fabric: a per-identity,
// append-only causal DAG of stage-tagged events with tamper-evident hashing.
// It is the single substrate the rest of the core builds on (spec §4.1).
package fabric

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/identity"
)

// Fabric is the process-global event fabric. Like identity.Registry, it is a
// legitimate process-wide singleton (spec §4.9) guarded by a single
// reader/writer lock held only for the critical append/read; callers
// construct one explicitly and thread it through rather than reaching for an
// implicit global.
type Fabric struct {
	mu     sync.RWMutex
	index  map[uuid.UUID]*Event
	chains map[identity.WorldlineID][]uuid.UUID // append order == emit call order, per origin

	seq atomic.Int64 // global monotonic counter, guarantees strict ordering under clock ties

	subMu sync.Mutex
	subs  []*subscription
}

// New constructs an empty fabric.
func New() *Fabric {
	return &Fabric{
		index:  make(map[uuid.UUID]*Event),
		chains: make(map[identity.WorldlineID][]uuid.UUID),
	}
}

// Emit appends a new event to worldlineID's chain. It is the only mutating
// operation on the fabric; every failure leaves the fabric unchanged, and
// the fabric never retries on the caller's behalf (spec §4.1 Failure
// semantics). Emit is non-suspending and O(1) plus hash amortized (spec §5).
func (f *Fabric) Emit(worldlineID identity.WorldlineID, stage Stage, payloadType string, payload map[string]any, parents []uuid.UUID) (*Event, error) {
	if !validStage(stage) {
		return nil, cacerr.New(cacerr.KindInput, "FABRIC-01", "unknown resonance stage: "+string(stage))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	var parentEvents []*Event
	for _, pid := range parents {
		pe, ok := f.index[pid]
		if !ok {
			return nil, cacerr.New(cacerr.KindInput, "FABRIC-02", "orphan parent: "+pid.String())
		}
		parentEvents = append(parentEvents, pe)
	}

	for _, pe := range parentEvents {
		if !pe.Timestamp.Before(now) {
			return nil, cacerr.New(cacerr.KindInput, "FABRIC-03", "non-monotonic parent timestamp for "+pe.ID.String())
		}
		if !legalEdge(pe.Stage, stage) {
			return nil, cacerr.New(cacerr.KindInput, "FABRIC-04", "illegal stage edge: "+string(pe.Stage)+" -> "+string(stage))
		}
		// Invariant (c): Meaning may not list a Commitment parent of the
		// same worldline.
		if stage == StageMeaning && pe.Stage == StageCommitment && pe.WorldlineID == worldlineID {
			return nil, cacerr.New(cacerr.KindInput, "FABRIC-05", "meaning event may not follow a commitment event on the same worldline")
		}
	}

	// Invariant (a): every non-genesis event lists >=1 parent that exists
	// in the fabric. Callers own parent wiring; the fabric only rejects an
	// entirely parentless event once the worldline already has a chain.
	if len(f.chains[worldlineID]) > 0 && len(parents) == 0 {
		return nil, cacerr.New(cacerr.KindInput, "FABRIC-06", "non-genesis event requires at least one parent")
	}

	seq := f.seq.Add(1)
	ev := &Event{
		ID:          uuid.New(),
		WorldlineID: worldlineID,
		Stage:       stage,
		PayloadType: payloadType,
		Payload:     payload,
		Timestamp:   now,
		Seq:         seq,
		ParentIDs:   append([]uuid.UUID(nil), parents...),
	}
	ev.Hash = computeHash(ev)

	f.index[ev.ID] = ev
	f.chains[worldlineID] = append(f.chains[worldlineID], ev.ID)

	f.publish(ev)
	return ev, nil
}

// Get returns the event with the given id.
func (f *Fabric) Get(id uuid.UUID) (*Event, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ev, ok := f.index[id]
	if !ok {
		return nil, cacerr.New(cacerr.KindNotFound, "FABRIC-07", "event not found: "+id.String())
	}
	return ev, nil
}

// Chain returns the full ordered event chain for a worldline.
func (f *Fabric) Chain(worldlineID identity.WorldlineID) []*Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := f.chains[worldlineID]
	out := make([]*Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.index[id])
	}
	return out
}

// Len returns the total number of events in the fabric.
func (f *Fabric) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.index)
}

// FabricReport is the result of a tamper check.
type FabricReport struct {
	EventsChecked int
	Mismatches    []uuid.UUID
}

// OK reports whether the fabric passed its tamper check.
func (r FabricReport) OK() bool { return len(r.Mismatches) == 0 }

// Verify recomputes every event's hash and reports any mismatch. A mismatch
// is a fatal integrity error (spec §4.1 Integrity); callers should quarantine
// the fabric from further mutation on a failing report.
func (f *Fabric) Verify() FabricReport {
	f.mu.RLock()
	defer f.mu.RUnlock()

	report := FabricReport{EventsChecked: len(f.index)}
	for id, ev := range f.index {
		if computeHash(ev) != ev.Hash {
			report.Mismatches = append(report.Mismatches, id)
		}
	}
	return report
}

// VerifyEvent recomputes a single event's hash (I6).
func VerifyEvent(e *Event) bool {
	return computeHash(e) == e.Hash
}

// VerifyConcurrent is Verify with hash recomputation spread across a bounded
// worker pool, for fabrics too large to check hash-by-hash inline on an
// operator's checkpoint path. workers <= 0 defaults to GOMAXPROCS. Returns
// ctx.Err() if ctx is cancelled before every event is checked; the returned
// report is valid only on a nil error.
func (f *Fabric) VerifyConcurrent(ctx context.Context, workers int) (FabricReport, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	f.mu.RLock()
	events := make([]*Event, 0, len(f.index))
	for _, ev := range f.index {
		events = append(events, ev)
	}
	f.mu.RUnlock()

	var mismatchMu sync.Mutex
	report := FabricReport{EventsChecked: len(events)}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ev := range events {
		ev := ev
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			if computeHash(ev) != ev.Hash {
				mismatchMu.Lock()
				report.Mismatches = append(report.Mismatches, ev.ID)
				mismatchMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FabricReport{}, err
	}
	return report, nil
}
