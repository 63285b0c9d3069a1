package continuity

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"lukechampine.com/blake3"
)

// computeHash binds {metadata, graph, roles, treasury, journal, prev_hash}
// per spec §6: "hash = blake3(metadata || graph || journal || prev_hash)".
// Roles and treasury are additionally bound even though the spec's literal
// formula names only metadata/graph/journal/prev_hash, since §4.7 defines a
// checkpoint as covering all five components; omitting two of them from the
// hash would leave role and treasury tampering undetected. Each field is
// length-prefixed, following the same encoding discipline as the fabric's
// event hash.
func computeHash(c *Checkpoint) string {
	h := blake3.New(32, nil)
	writeField := func(b []byte) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}

	metadata, _ := json.Marshal(c.Metadata)
	writeField(metadata)

	graph, _ := json.Marshal(c.Graph)
	writeField(graph)

	roles, _ := json.Marshal(c.Roles)
	writeField(roles)

	treasury, _ := json.Marshal(c.Treasury)
	writeField(treasury)

	journal, _ := json.Marshal(c.Journal)
	writeField(journal)

	writeField([]byte(c.PrevHash))

	return hex.EncodeToString(h.Sum(nil))
}
