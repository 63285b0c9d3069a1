package continuity

import (
	"strconv"
	"sync"
	"time"

	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/cacerr"
)

// Manager owns the checkpoint chain. Like the fabric and ledger, it holds a
// single lock over the critical append/read (spec §4.9).
type Manager struct {
	mu          sync.RWMutex
	checkpoints []Checkpoint
	journal     *audit.Journal
}

// New constructs an empty checkpoint manager over journal, the audit
// journal whose snapshot each checkpoint carries.
func New(journal *audit.Journal) *Manager {
	return &Manager{journal: journal}
}

// Checkpoint takes a new checkpoint from the supplied governance state,
// sequencing and hash-chaining it onto the prior checkpoint (or onto the
// empty genesis hash if this is the first).
func (m *Manager) Checkpoint(metadata GovernanceMetadata, graph MembershipGraph, roles RoleRegistry, treasury TreasuryView) Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	var seq int64
	var prevHash string
	if n := len(m.checkpoints); n > 0 {
		prev := m.checkpoints[n-1]
		seq = prev.Seq + 1
		prevHash = prev.Hash
	}

	journal := m.journal.Snapshot()
	cp := Checkpoint{
		Seq:         seq,
		Metadata:    metadata,
		Graph:       graph,
		Roles:       roles,
		Treasury:    treasury,
		Journal:     journal,
		JournalRoot: audit.MerkleRoot(journal),
		PrevHash:    prevHash,
		At:          time.Now().UTC(),
	}
	cp.Hash = computeHash(&cp)

	m.checkpoints = append(m.checkpoints, cp)
	return cp
}

// Checkpoints returns a copy of the full checkpoint chain in sequence order.
func (m *Manager) Checkpoints() []Checkpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Checkpoint, len(m.checkpoints))
	copy(out, m.checkpoints)
	return out
}

// Latest returns the most recent checkpoint, or false if none has been
// taken yet.
func (m *Manager) Latest() (Checkpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return m.checkpoints[len(m.checkpoints)-1], true
}

// VerifyChainIntegrity walks the checkpoint chain and rejects on any hash
// mismatch or sequence gap (spec I12): for every i>0,
// checkpoint[i].PrevHash == checkpoint[i-1].Hash and
// checkpoint[i].Seq == checkpoint[i-1].Seq + 1.
func (m *Manager) VerifyChainIntegrity() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, cp := range m.checkpoints {
		if computeHash(&cp) != cp.Hash {
			return cacerr.New(cacerr.KindIntegrityFailure, "CONTINUITY-01", "checkpoint content hash mismatch at seq "+strconv.FormatInt(cp.Seq, 10))
		}
		if i == 0 {
			continue
		}
		prev := m.checkpoints[i-1]
		if cp.PrevHash != prev.Hash {
			return cacerr.New(cacerr.KindIntegrityFailure, "CONTINUITY-02", "checkpoint chain hash mismatch at seq "+strconv.FormatInt(cp.Seq, 10))
		}
		if cp.Seq != prev.Seq+1 {
			return cacerr.New(cacerr.KindIntegrityFailure, "CONTINUITY-03", "checkpoint sequence gap at seq "+strconv.FormatInt(cp.Seq, 10))
		}
	}
	return nil
}
