package audit

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// leafHash produces a deterministic SHA-256 hex digest over a receipt's
// fields, length-prefixing each one to avoid delimiter collisions the way
// the fabric's event hash and the continuity checkpoint hash both do.
func leafHash(r Receipt) string {
	h := sha256.New()
	writeField := func(b []byte) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}
	writeField([]byte(r.ID.String()))
	writeField([]byte(r.Type))
	writeField([]byte(r.IssuerID))
	writeField([]byte(r.Description))
	writeField([]byte(r.Severity))
	writeField([]byte(r.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00")))
	return hex.EncodeToString(h.Sum(nil))
}

// hashPair produces SHA-256(0x01 || len(a) || a || b) as a hex string. The
// 0x01 prefix is a domain separator for internal nodes (RFC 6962) so an
// internal node hash can never collide with a leaf hash.
func hashPair(a, b string) string {
	h := sha256.New()
	h.Write([]byte{0x01})
	aBytes := []byte(a)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(aBytes)))
	h.Write(lenBuf[:])
	h.Write(aBytes)
	h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}

// MerkleRoot builds a Merkle tree over receipts in append order and returns
// its root, binding the whole journal (or a checkpoint's snapshot of it) to
// a single fixed-size digest an external auditor can retain without storing
// every receipt. An odd level hashes its last node with itself. Returns the
// empty string for an empty slice.
func MerkleRoot(receipts []Receipt) string {
	if len(receipts) == 0 {
		return ""
	}
	level := make([]string, len(receipts))
	for i, r := range receipts {
		level[i] = leafHash(r)
	}
	for len(level) > 1 {
		next := make([]string, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, hashPair(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// MerkleRoot returns the root of a Merkle tree over every receipt recorded
// so far, in append order.
func (j *Journal) MerkleRoot() string {
	return MerkleRoot(j.All())
}
