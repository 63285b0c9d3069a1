package continuity

import (
	"testing"

	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/identity"
)

func sampleState() (GovernanceMetadata, MembershipGraph, RoleRegistry, TreasuryView) {
	metadata := GovernanceMetadata{CollectiveID: "col_1", Name: "ibank"}
	graph := MembershipGraph{Members: []identity.WorldlineID{"wl_a", "wl_b"}}
	roles := RoleRegistry{Roles: map[identity.WorldlineID]string{"wl_a": "treasurer"}}
	treasury := TreasuryView{BalancesMinor: map[string]int64{"USD": 100000}}
	return metadata, graph, roles, treasury
}

func TestCheckpoint_ChainsSequenceAndHash(t *testing.T) {
	j := audit.NewJournal()
	m := New(j)

	metadata, graph, roles, treasury := sampleState()
	first := m.Checkpoint(metadata, graph, roles, treasury)
	if first.Seq != 0 {
		t.Fatalf("expected genesis checkpoint seq 0, got %d", first.Seq)
	}
	if first.PrevHash != "" {
		t.Fatalf("expected genesis checkpoint to have no prev hash, got %q", first.PrevHash)
	}

	j.Record(audit.ReceiptCommitmentDeclared, "wl_a", "test event", audit.SeverityInfo)
	second := m.Checkpoint(metadata, graph, roles, treasury)
	if second.Seq != first.Seq+1 {
		t.Fatalf("expected seq to increment, got %d after %d", second.Seq, first.Seq)
	}
	if second.PrevHash != first.Hash {
		t.Fatalf("expected prev hash to chain, got %q want %q", second.PrevHash, first.Hash)
	}

	if err := m.VerifyChainIntegrity(); err != nil {
		t.Fatalf("expected chain to verify, got %v", err)
	}
}

func TestVerifyChainIntegrity_DetectsHashMismatch(t *testing.T) {
	j := audit.NewJournal()
	m := New(j)
	metadata, graph, roles, treasury := sampleState()
	m.Checkpoint(metadata, graph, roles, treasury)
	m.Checkpoint(metadata, graph, roles, treasury)

	m.checkpoints[0].Hash = "tampered"

	if err := m.VerifyChainIntegrity(); err == nil {
		t.Fatal("expected a tampered checkpoint to fail chain verification")
	}
}

func TestVerifyChainIntegrity_DetectsSequenceGap(t *testing.T) {
	j := audit.NewJournal()
	m := New(j)
	metadata, graph, roles, treasury := sampleState()
	m.Checkpoint(metadata, graph, roles, treasury)
	m.Checkpoint(metadata, graph, roles, treasury)

	m.checkpoints[1].Seq = 5

	if err := m.VerifyChainIntegrity(); err == nil {
		t.Fatal("expected a sequence gap to fail chain verification")
	}
}

// memWriter is an in-memory Writer for exercising Persist without touching
// the filesystem.
type memWriter struct {
	files map[string][]byte
}

func newMemWriter() *memWriter { return &memWriter{files: make(map[string][]byte)} }

func (w *memWriter) WriteFile(name string, data []byte) error {
	w.files[name] = append([]byte(nil), data...)
	return nil
}

func TestPersist_WritesExpectedFiles(t *testing.T) {
	j := audit.NewJournal()
	m := New(j)
	metadata, graph, roles, treasury := sampleState()
	cp := m.Checkpoint(metadata, graph, roles, treasury)

	w := newMemWriter()
	dir := CheckpointDirName(cp.Seq)
	if err := Persist(w, dir, cp); err != nil {
		t.Fatalf("persist: %v", err)
	}

	for _, name := range []string{"metadata.json", "graph.json", "journal.jsonl", "hash"} {
		if _, ok := w.files[dir+"/"+name]; !ok {
			t.Fatalf("expected %s to be written under %s", name, dir)
		}
	}
	if string(w.files[dir+"/hash"]) != cp.Hash {
		t.Fatalf("expected the hash file to contain the checkpoint hash")
	}
}
