// Package continuity implements the checkpoint manager: periodic,
// hash-chained snapshots of governance state (spec §4.7).
package continuity

import (
	"time"

	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/identity"
)

// GovernanceMetadata is the free-form descriptive state of the governance
// core at checkpoint time: collective identity and any operator-set labels.
type GovernanceMetadata struct {
	CollectiveID string            `json:"collective_id"`
	Name         string            `json:"name"`
	Labels       map[string]string `json:"labels"`
}

// MembershipGraph is a snapshot of which worldlines belong to the collective
// and how they relate (e.g. sponsor edges); kept as plain ids per spec's
// "arena-indexed handle" redesign note rather than live pointers.
type MembershipGraph struct {
	Members []identity.WorldlineID              `json:"members"`
	Edges   map[identity.WorldlineID][]identity.WorldlineID `json:"edges"`
}

// RoleRegistry maps each member to its role label.
type RoleRegistry struct {
	Roles map[identity.WorldlineID]string `json:"roles"`
}

// TreasuryView is a read-only snapshot of asset balances at checkpoint time.
type TreasuryView struct {
	BalancesMinor map[string]int64 `json:"balances_minor"`
}

// Checkpoint is one point-in-time snapshot of governance state, sequenced
// and hash-chained to the checkpoint before it (spec §3 Checkpoint).
type Checkpoint struct {
	Seq       int64
	Metadata  GovernanceMetadata
	Graph     MembershipGraph
	Roles     RoleRegistry
	Treasury  TreasuryView
	Journal   []audit.Receipt
	// JournalRoot is the Merkle root over Journal (internal/audit.MerkleRoot),
	// carried alongside the full snapshot so an auditor can retain only the
	// root and still verify a single receipt's inclusion later without
	// holding onto the whole journal.
	JournalRoot string
	PrevHash    string
	Hash        string
	At          time.Time
}
