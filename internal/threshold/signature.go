package threshold

import (
	"bytes"
	"sync"

	"golang.org/x/crypto/nacl/sign"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/identity"
)

// keyStore holds each signer's nacl/sign public key, keyed by worldline id.
// Distinct from audit.ReceiptSigner's Ed25519/JWT keys: this is the raw
// detached-signature scheme m-of-n co-signers use to sign a threshold
// commitment's action description, not an auth token.
type keyStore struct {
	mu   sync.RWMutex
	keys map[identity.WorldlineID]*[32]byte
}

func newKeyStore() *keyStore {
	return &keyStore{keys: make(map[identity.WorldlineID]*[32]byte)}
}

func (k *keyStore) register(id identity.WorldlineID, pub *[32]byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[id] = pub
}

func (k *keyStore) get(id identity.WorldlineID) (*[32]byte, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[id]
	return pub, ok
}

// verifyDetached checks sig as a detached nacl/sign signature over message
// under publicKey. nacl/sign's Open expects the signature prepended to the
// message it covers; a detached signature is exactly that prefix.
func verifyDetached(publicKey *[32]byte, message, sig []byte) bool {
	if len(sig) != signOverhead {
		return false
	}
	signedMessage := make([]byte, 0, len(sig)+len(message))
	signedMessage = append(signedMessage, sig...)
	signedMessage = append(signedMessage, message...)
	opened, ok := sign.Open(nil, signedMessage, publicKey)
	if !ok {
		return false
	}
	return bytes.Equal(opened, message)
}

// signOverhead is the fixed size of a nacl/sign signature prefix.
const signOverhead = 64

// signDetached produces a detached signature: the signature bytes with the
// message stripped back off. Unexported; the package's tests use it to sign
// with the private keys they generate.
func signDetached(privateKey *[64]byte, message []byte) []byte {
	signed := sign.Sign(nil, message, privateKey)
	return signed[:len(signed)-len(message)]
}

var errUnknownSigner = cacerr.New(cacerr.KindNotFound, "THRESHOLD-01", "no registered public key for signer")
