package fabric

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/identity"
)

// Event is an immutable record in the causal DAG. Source of truth for the
// fabric's tamper-evident audit trail. Never mutated or deleted.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	WorldlineID identity.WorldlineID   `json:"worldline_id"`
	Stage       Stage                  `json:"stage"`
	PayloadType string                 `json:"payload_type"`
	Payload     map[string]any         `json:"payload"`
	Timestamp   time.Time              `json:"timestamp"`
	Seq         int64                  `json:"seq"` // fabric-wide monotonic counter, breaks wall-clock ties
	ParentIDs   []uuid.UUID            `json:"parent_ids"`
	Hash        string                 `json:"hash"`
}

// sortedParentIDs returns a copy of ids in canonical (sorted) order, the same
// order the hash is computed over.
func sortedParentIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
