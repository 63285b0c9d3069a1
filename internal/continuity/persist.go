package continuity

import (
	"encoding/json"
	"fmt"
	"path"

	"github.com/resonance-systems/cac/internal/cacerr"
)

// Writer abstracts the directory-layout persistence a checkpoint needs,
// keeping the core storage-agnostic the same way the teacher keeps its
// migration loader pluggable via an fs.FS rather than a hard-coded path.
// Production deployments supply an os.FS-backed Writer; tests supply an
// in-memory one.
type Writer interface {
	WriteFile(name string, data []byte) error
}

// Persist writes a checkpoint's directory layout — metadata.json, graph.json,
// journal.jsonl, and hash — under dir via w (spec §6 persisted state layout).
// The four-file layout has no file of its own for roles or treasury, so both
// are written inside graph.json, next to the membership graph, under the keys
// "roles" and "treasury".
func Persist(w Writer, dir string, cp Checkpoint) error {
	metadata, err := json.Marshal(cp.Metadata)
	if err != nil {
		return cacerr.Wrap(cacerr.KindInput, "CONTINUITY-04", "marshal checkpoint metadata", err)
	}
	if err := w.WriteFile(path.Join(dir, "metadata.json"), metadata); err != nil {
		return cacerr.Wrap(cacerr.KindTransient, "CONTINUITY-05", "write metadata.json", err)
	}

	graph, err := json.Marshal(struct {
		Graph    MembershipGraph `json:"graph"`
		Roles    RoleRegistry    `json:"roles"`
		Treasury TreasuryView    `json:"treasury"`
	}{cp.Graph, cp.Roles, cp.Treasury})
	if err != nil {
		return cacerr.Wrap(cacerr.KindInput, "CONTINUITY-04", "marshal checkpoint graph", err)
	}
	if err := w.WriteFile(path.Join(dir, "graph.json"), graph); err != nil {
		return cacerr.Wrap(cacerr.KindTransient, "CONTINUITY-05", "write graph.json", err)
	}

	var journalLines []byte
	for _, r := range cp.Journal {
		line, err := json.Marshal(r)
		if err != nil {
			return cacerr.Wrap(cacerr.KindInput, "CONTINUITY-04", "marshal journal receipt", err)
		}
		journalLines = append(journalLines, line...)
		journalLines = append(journalLines, '\n')
	}
	if err := w.WriteFile(path.Join(dir, "journal.jsonl"), journalLines); err != nil {
		return cacerr.Wrap(cacerr.KindTransient, "CONTINUITY-05", "write journal.jsonl", err)
	}

	if err := w.WriteFile(path.Join(dir, "hash"), []byte(cp.Hash)); err != nil {
		return cacerr.Wrap(cacerr.KindTransient, "CONTINUITY-05", "write hash", err)
	}
	return nil
}

// CheckpointDirName returns the conventional directory name for a
// checkpoint's sequence number.
func CheckpointDirName(seq int64) string {
	return fmt.Sprintf("checkpoint-%06d", seq)
}
