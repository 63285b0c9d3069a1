// Package audit implements the audit journal: typed, side-effect-free
// receipts recorded for every governance state transition (spec §4.8), the
// off-fabric structured complement to the on-fabric event stream.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/identity"
)

// ReceiptType tags the kind of governance transition a receipt records.
type ReceiptType string

const (
	ReceiptCommitmentDeclared            ReceiptType = "CommitmentDeclared"
	ReceiptCommitmentApproved            ReceiptType = "CommitmentApproved"
	ReceiptCommitmentDenied              ReceiptType = "CommitmentDenied"
	ReceiptCommitmentFulfilled           ReceiptType = "CommitmentFulfilled"
	ReceiptCommitmentFailed              ReceiptType = "CommitmentFailed"
	ReceiptMemberAdded                   ReceiptType = "MemberAdded"
	ReceiptMemberSuspended               ReceiptType = "MemberSuspended"
	ReceiptMemberExpelled                ReceiptType = "MemberExpelled"
	ReceiptTreasuryDeposit               ReceiptType = "TreasuryDeposit"
	ReceiptTreasuryWithdraw              ReceiptType = "TreasuryWithdraw"
	ReceiptThresholdSignatureCollected   ReceiptType = "ThresholdSignatureCollected"
	ReceiptThresholdSatisfied            ReceiptType = "ThresholdSatisfied"
	ReceiptThresholdExpired              ReceiptType = "ThresholdExpired"
	ReceiptCollectiveSuspended           ReceiptType = "CollectiveSuspended"
	ReceiptCollectiveResumed             ReceiptType = "CollectiveResumed"
	ReceiptCollectiveDissolved           ReceiptType = "CollectiveDissolved"
	ReceiptIntegrityViolation            ReceiptType = "IntegrityViolation"
)

// Severity mirrors the error-taxonomy severities relevant to the journal.
// Most receipts are Info; integrity and invariant violations are Critical
// per spec §7's propagation policy.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Receipt is a single audit journal record.
type Receipt struct {
	ID          uuid.UUID
	Type        ReceiptType
	IssuerID    identity.WorldlineID
	Description string
	Severity    Severity
	At          time.Time
}

// Journal is the append-only audit journal. Like the fabric and ledger, it
// is a process-global singleton guarded by a single lock.
type Journal struct {
	mu       sync.RWMutex
	receipts []Receipt
}

// NewJournal constructs an empty audit journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends a receipt, generating its id and timestamp.
func (j *Journal) Record(typ ReceiptType, issuer identity.WorldlineID, description string, severity Severity) Receipt {
	r := Receipt{
		ID:          uuid.New(),
		Type:        typ,
		IssuerID:    issuer,
		Description: description,
		Severity:    severity,
		At:          time.Now().UTC(),
	}
	j.mu.Lock()
	j.receipts = append(j.receipts, r)
	j.mu.Unlock()
	return r
}

// All returns a copy of every receipt recorded so far, in append order.
func (j *Journal) All() []Receipt {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Receipt, len(j.receipts))
	copy(out, j.receipts)
	return out
}

// ByType filters the journal down to one receipt type.
func (j *Journal) ByType(t ReceiptType) []Receipt {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Receipt, 0)
	for _, r := range j.receipts {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of receipts recorded.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.receipts)
}

// Snapshot returns a deep copy of the journal's receipts for inclusion in a
// continuity checkpoint (spec §4.7).
func (j *Journal) Snapshot() []Receipt {
	return j.All()
}
