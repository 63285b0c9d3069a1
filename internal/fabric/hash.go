package fabric

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"lukechampine.com/blake3"
)

// computeHash binds {worldline_id, stage, serialized payload, parent ids (in
// canonical order), timestamp} per spec §4.1. Each field is length-prefixed
// to avoid delimiter collisions, the same encoding discipline audit.MerkleRoot
// (SHA-256) and continuity's checkpoint hash (BLAKE3) use. The hash is
// BLAKE3, as the wire contract requires hex BLAKE3 hashes (spec §6).
func computeHash(e *Event) string {
	h := blake3.New(32, nil)
	writeField := func(b []byte) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b))) //nolint:gosec // field lengths bounded by in-process payload sizes
		h.Write(lenBuf[:])
		h.Write(b)
	}

	writeField([]byte(e.WorldlineID))
	writeField([]byte(e.Stage))

	payload, _ := json.Marshal(canonicalPayload(e.Payload))
	writeField(payload)

	parents := sortedParentIDs(e.ParentIDs)
	parentBytes := make([]byte, 0, len(parents)*16)
	for _, p := range parents {
		parentBytes = append(parentBytes, p[:]...)
	}
	writeField(parentBytes)

	writeField([]byte(e.Timestamp.UTC().Format(time.RFC3339Nano)))

	return hex.EncodeToString(h.Sum(nil))
}

// canonicalPayload produces a deterministic JSON-marshalable representation
// of the payload map by sorting keys; Go's encoding/json already sorts map
// keys when marshaling, but we keep this explicit helper so the hashing
// contract does not depend on that implementation detail silently.
func canonicalPayload(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(p))
	for _, k := range keys {
		out[k] = p[k]
	}
	return out
}
