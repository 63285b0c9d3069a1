package fabric

import (
	"context"
	"sync/atomic"

	"github.com/resonance-systems/cac/internal/identity"
)

// Filter restricts a subscription to a worldline and/or stage. A zero value
// (empty WorldlineID, empty Stage) matches every event.
type Filter struct {
	WorldlineID identity.WorldlineID
	Stage       Stage
}

func (f Filter) matches(e *Event) bool {
	if f.WorldlineID != "" && e.WorldlineID != f.WorldlineID {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	return true
}

// Subscription is a pull-based stream of fabric events. Producers never block
// on consumers: Emit publishes via a non-blocking send, and a slow consumer
// observes gaps (counted in Dropped) rather than stalling the fabric. A slow
// consumer may reconcile missed events via provenance.Index.WorldlineHistory.
type Subscription struct {
	ch      chan *Event
	Dropped atomic.Int64
	filter  Filter
	f       *Fabric
}

// Subscribe registers a new pull-based subscription. bufferSize controls how
// many events may be queued before the subscriber is considered slow and
// further events are dropped (counted, not blocked).
func (f *Fabric) Subscribe(filter Filter, bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	sub := &Subscription{ch: make(chan *Event, bufferSize), filter: filter, f: f}
	f.subMu.Lock()
	f.subs = append(f.subs, sub)
	f.subMu.Unlock()
	return sub
}

// Next blocks until an event matching the subscription's filter arrives, the
// context is cancelled, or the subscription is closed.
func (s *Subscription) Next(ctx context.Context) (*Event, bool) {
	select {
	case ev, ok := <-s.ch:
		return ev, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Close unregisters the subscription from its fabric.
func (s *Subscription) Close() {
	s.f.subMu.Lock()
	defer s.f.subMu.Unlock()
	for i, sub := range s.f.subs {
		if sub == s {
			s.f.subs = append(s.f.subs[:i], s.f.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// publish fans an event out to every matching subscriber without blocking.
func (f *Fabric) publish(ev *Event) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for _, sub := range f.subs {
		if !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			sub.Dropped.Add(1)
		}
	}
}
