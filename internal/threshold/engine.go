package threshold

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
)

// AddOutcomeKind is the result of AddSignature.
type AddOutcomeKind string

const (
	OutcomeAccepted         AddOutcomeKind = "Accepted"
	OutcomeThresholdMet     AddOutcomeKind = "ThresholdMet"
	OutcomeAlreadySatisfied AddOutcomeKind = "AlreadySatisfied"
)

// AddOutcome reports what adding one signature did.
type AddOutcome struct {
	Kind            AddOutcomeKind
	RemainingNeeded int
}

// Engine manages the pool of threshold commitments: creation, signature
// collection, satisfaction testing, and deadline sweeping (spec §4.5).
type Engine struct {
	identity *identity.Registry
	journal  *audit.Journal
	ledger   *ledger.Ledger // optional, may be nil; stored but not written by ExpireStale
	keys     *keyStore

	mu          sync.Mutex
	commitments map[uuid.UUID]*Commitment
}

// New constructs a threshold engine. ledger may be nil; the engine keeps it
// but no engine method writes to it.
func New(idr *identity.Registry, j *audit.Journal, l *ledger.Ledger) *Engine {
	return &Engine{
		identity:    idr,
		journal:     j,
		ledger:      l,
		keys:        newKeyStore(),
		commitments: make(map[uuid.UUID]*Commitment),
	}
}

// RegisterSignerKey associates a worldline id with the public key its
// signatures must verify against.
func (e *Engine) RegisterSignerKey(id identity.WorldlineID, pub *[32]byte) {
	e.keys.register(id, pub)
}

// CreateCommitment registers a new threshold commitment awaiting signatures.
func (e *Engine) CreateCommitment(action string, policy Policy, amountMinor *int64, deadline *time.Time) *Commitment {
	c := &Commitment{
		ID:          uuid.New(),
		Action:      action,
		Policy:      policy,
		AmountMinor: amountMinor,
		Deadline:    deadline,
		Signatures:  make(map[identity.WorldlineID]Signature),
	}
	e.mu.Lock()
	e.commitments[c.ID] = c
	e.mu.Unlock()
	return c
}

// Get returns a copy of a threshold commitment's current state.
func (e *Engine) Get(id uuid.UUID) (Commitment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.commitments[id]
	if !ok {
		return Commitment{}, cacerr.New(cacerr.KindNotFound, "THRESHOLD-02", "threshold commitment not found: "+id.String())
	}
	return cloneCommitment(c), nil
}

func cloneCommitment(c *Commitment) Commitment {
	cp := *c
	cp.Signatures = make(map[identity.WorldlineID]Signature, len(c.Signatures))
	for k, v := range c.Signatures {
		cp.Signatures[k] = v
	}
	return cp
}

// AddSignature verifies and records a signature from signer over the
// commitment's action description, then recomputes satisfaction. Signatures
// from a non-active worldline are rejected with MemberNotActive; a duplicate
// signature from the same signer is idempotent; once satisfied, the
// commitment is frozen and every later call returns AlreadySatisfied (I11).
func (e *Engine) AddSignature(id uuid.UUID, signer identity.WorldlineID, sig []byte) (AddOutcome, error) {
	if !e.identity.IsActive(signer) {
		return AddOutcome{}, cacerr.New(cacerr.KindInput, "THRESHOLD-03", "MemberNotActive: "+string(signer))
	}

	pub, ok := e.keys.get(signer)
	if !ok {
		return AddOutcome{}, errUnknownSigner
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.commitments[id]
	if !ok {
		return AddOutcome{}, cacerr.New(cacerr.KindNotFound, "THRESHOLD-02", "threshold commitment not found: "+id.String())
	}

	if c.Satisfied {
		return AddOutcome{Kind: OutcomeAlreadySatisfied}, nil
	}

	if _, already := c.Signatures[signer]; already {
		// Duplicate signature from an already-recorded signer: idempotent,
		// report the current state without re-verifying or re-counting.
		if c.satisfied() {
			return AddOutcome{Kind: OutcomeAlreadySatisfied}, nil
		}
		return AddOutcome{Kind: OutcomeAccepted, RemainingNeeded: c.remainingNeeded()}, nil
	}

	if !verifyDetached(pub, []byte(c.Action), sig) {
		return AddOutcome{}, cacerr.New(cacerr.KindInput, "THRESHOLD-04", "signature verification failed")
	}

	c.Signatures[signer] = Signature{Signer: signer, Sig: sig, At: time.Now().UTC()}
	e.journal.Record(audit.ReceiptThresholdSignatureCollected, signer, "signature collected for "+c.Action, audit.SeverityInfo)

	if c.satisfied() {
		c.Satisfied = true
		e.journal.Record(audit.ReceiptThresholdSatisfied, signer, "threshold satisfied for "+c.Action, audit.SeverityInfo)
		return AddOutcome{Kind: OutcomeThresholdMet}, nil
	}

	return AddOutcome{Kind: OutcomeAccepted, RemainingNeeded: c.remainingNeeded()}, nil
}

// ExpireStale sweeps every unsatisfied commitment past its deadline into the
// Expired state, emitting an audit receipt for each. Returns the ids swept.
// No Expired lifecycle event is appended to the ledger.
func (e *Engine) ExpireStale(now time.Time) []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	var swept []uuid.UUID
	for id, c := range e.commitments {
		if c.Satisfied || c.Expired {
			continue
		}
		if c.Deadline == nil || now.Before(*c.Deadline) {
			continue
		}
		c.Expired = true
		swept = append(swept, id)
		e.journal.Record(audit.ReceiptThresholdExpired, identity.WorldlineID(""), "threshold commitment expired: "+c.Action, audit.SeverityWarning)
	}
	return swept
}
