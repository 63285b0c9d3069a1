// Package identity derives and registers worldline identities. A worldline id
// is a stable identifier derived deterministically from identity material; it
// is never session-scoped and is never reassigned once created.
package identity

import (
	"encoding/hex"
	"sync"

	"github.com/resonance-systems/cac/internal/cacerr"
	"lukechampine.com/blake3"
)

// WorldlineID is a stable identity derived from material. Two identical
// materials always derive the same id; distinct materials (almost certainly)
// derive distinct ids.
type WorldlineID string

// Derive computes a WorldlineID from identity material (typically a 32-byte
// genesis hash, but any non-empty byte string is accepted). The derivation is
// pure and deterministic: same material in, same id out, across restarts and
// processes.
func Derive(material []byte) WorldlineID {
	sum := blake3.Sum256(material)
	return WorldlineID("wl_" + hex.EncodeToString(sum[:]))
}

// State is the lifecycle state of a registered worldline.
type State string

const (
	StateActive    State = "active"
	StateSuspended State = "suspended"
	StateForgotten State = "forgotten"
)

// Record is a registry entry for a worldline id.
type Record struct {
	ID    WorldlineID
	State State
	// Capabilities is the set of capability references held by this worldline.
	Capabilities map[string]Capability
}

// Capability is a reference a worldline may present to the Commitment Gate.
// EffectDomains lists the effect domains this capability covers; an empty
// slice means it covers none (a capability must be explicitly scoped).
type Capability struct {
	ID            string
	EffectDomains []string
}

// Registry is the process-global identity registry. It is a legitimate
// process-wide singleton per spec §4.9 ("Global mutable state") and is
// guarded by a reader/writer lock; callers obtain one explicitly and thread
// it through, never via a package-level implicit global.
type Registry struct {
	mu      sync.RWMutex
	records map[WorldlineID]*Record
}

// NewRegistry constructs an empty identity registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[WorldlineID]*Record)}
}

// Register creates a new active record from material, or returns the
// existing record if the derived id is already registered (idempotent).
func (r *Registry) Register(material []byte) *Record {
	id := Derive(material)
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		return rec
	}
	rec := &Record{ID: id, State: StateActive, Capabilities: make(map[string]Capability)}
	r.records[id] = rec
	return rec
}

// Get returns the record for id, or a NotFound error.
func (r *Registry) Get(id WorldlineID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, cacerr.New(cacerr.KindNotFound, "STAGE-02", "worldline not registered: "+string(id))
	}
	return rec, nil
}

// IsActive reports whether id is registered and in the active state.
func (r *Registry) IsActive(id WorldlineID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return ok && rec.State == StateActive
}

// GrantCapability attaches a capability to a registered worldline.
func (r *Registry) GrantCapability(id WorldlineID, cap Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return cacerr.New(cacerr.KindNotFound, "STAGE-02", "worldline not registered: "+string(id))
	}
	rec.Capabilities[cap.ID] = cap
	return nil
}

// HasCapability reports whether id holds capability capID scoped to domain.
// A capability with no declared domains covers nothing.
func (r *Registry) HasCapability(id WorldlineID, capID, domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	cap, ok := rec.Capabilities[capID]
	if !ok {
		return false
	}
	for _, d := range cap.EffectDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// Suspend transitions id out of the active state.
func (r *Registry) Suspend(id WorldlineID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return cacerr.New(cacerr.KindNotFound, "STAGE-02", "worldline not registered: "+string(id))
	}
	rec.State = StateSuspended
	return nil
}

// Forget destroys the identity material association. Per spec, a worldline
// is "destroyed only by forgetting material" — the id and its capabilities
// are removed from the registry entirely, not merely marked suspended.
func (r *Registry) Forget(id WorldlineID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}
