// Package declaration defines the commitment declaration data model: the
// typed input to the Commitment Gate and the PolicyDecisionCard it produces.
package declaration

import (
	"time"

	"github.com/google/uuid"

	"github.com/resonance-systems/cac/internal/identity"
)

// EffectDomain tags the kind of external impact a commitment has.
type EffectDomain string

const (
	DomainFinance       EffectDomain = "Finance"
	DomainCommunication EffectDomain = "Communication"
	DomainComputation   EffectDomain = "Computation"
	DomainData          EffectDomain = "Data"
)

// ReversibilityKind enumerates the three reversibility shapes a commitment
// may declare.
type ReversibilityKind string

const (
	Reversible           ReversibilityKind = "reversible"
	PartiallyReversible  ReversibilityKind = "partially_reversible"
	Irreversible         ReversibilityKind = "irreversible"
)

// Reversibility describes how recoverable a commitment's effect is. Ratio is
// only meaningful when Kind is PartiallyReversible, and must be in [0, 1].
type Reversibility struct {
	Kind  ReversibilityKind `json:"kind"`
	Ratio float64           `json:"ratio,omitempty"`
}

// IsIrreversible reports whether the declared reversibility is irreversible.
func (r Reversibility) IsIrreversible() bool { return r.Kind == Irreversible }

// Scope describes the blast radius of a candidate commitment.
type Scope struct {
	EffectDomain EffectDomain      `json:"effect_domain"`
	Targets      []string          `json:"targets,omitempty"`
	Constraints  map[string]string `json:"constraints,omitempty"`
	// Global marks a scope that is not limited to the declared Targets.
	Global bool `json:"global,omitempty"`
}

// Declaration is the typed input to the Commitment Gate. Created by external
// callers and immutable once submitted.
type Declaration struct {
	CommitmentID    uuid.UUID              `json:"commitment_id"`
	DeclaringID     identity.WorldlineID   `json:"declaring_id"`
	Scope           Scope                  `json:"scope"`
	Reversibility   Reversibility          `json:"reversibility"`
	Capabilities    []string               `json:"capabilities,omitempty"` // capability ids referenced
	AffectedParties []identity.WorldlineID `json:"affected_parties,omitempty"`
	IntentEventID   *uuid.UUID             `json:"intent_event_id,omitempty"` // reference to a stabilized intent event, if required
	Metadata        map[string]string      `json:"metadata,omitempty"`
	SubmittedAt     time.Time              `json:"submitted_at"`
}

// RiskClass is the overall severity bucket of a risk assessment.
type RiskClass string

const (
	RiskLow      RiskClass = "Low"
	RiskMedium   RiskClass = "Medium"
	RiskHigh     RiskClass = "High"
	RiskCritical RiskClass = "Critical"
)

var riskRank = map[RiskClass]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}

// Worse returns the more severe of two risk classes.
func Worse(a, b RiskClass) RiskClass {
	if riskRank[b] > riskRank[a] {
		return b
	}
	return a
}

// RiskFactor is a single contributor to a risk assessment.
type RiskFactor struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Severity    RiskClass `json:"severity"`
}

// RiskAssessment is the overall risk computed for a declaration. Overall is
// derived as the max severity across Factors (spec §3).
type RiskAssessment struct {
	Overall RiskClass    `json:"overall"`
	Score   float64      `json:"score"`
	Factors []RiskFactor `json:"factors,omitempty"`
}

// AddFactor appends a factor and recomputes Overall as the max severity.
func (r *RiskAssessment) AddFactor(f RiskFactor) {
	r.Factors = append(r.Factors, f)
	if r.Overall == "" {
		r.Overall = f.Severity
		return
	}
	r.Overall = Worse(r.Overall, f.Severity)
}

// Decision is the terminal adjudication outcome for a declaration.
type Decision string

const (
	DecisionApprove                Decision = "Approve"
	DecisionDeny                   Decision = "Deny"
	DecisionPendingHumanReview     Decision = "PendingHumanReview"
	DecisionPendingAdditionalInfo  Decision = "PendingAdditionalInfo"
)

// severityRank implements the monotonicity lattice from spec §4.3/I9:
// Approved < PendingAdditionalInfo < PendingHumanReview < Denied.
var severityRank = map[Decision]int{
	DecisionApprove:               0,
	DecisionPendingAdditionalInfo: 1,
	DecisionPendingHumanReview:    2,
	DecisionDeny:                  3,
}

// Monotonic returns the more severe (never-weakening) of two decisions,
// per the lattice Approved < PendingAdditionalInfo < PendingHumanReview < Denied.
func Monotonic(current, next Decision) Decision {
	if severityRank[next] > severityRank[current] {
		return next
	}
	return current
}

// PolicyDecisionCard is the immutable outcome of adjudication. Created by
// the Gate exactly once per declaration; never mutated thereafter.
type PolicyDecisionCard struct {
	DecisionID    uuid.UUID `json:"decision_id"`
	CommitmentID  uuid.UUID `json:"commitment_id"`
	Decision      Decision  `json:"decision"`
	Rationale     string    `json:"rationale"`
	Risk          RiskAssessment `json:"risk"`
	Conditions    []string  `json:"conditions,omitempty"`
	PolicyRefs    []string  `json:"policy_refs,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
	SchemaVersion int       `json:"schema_version"`
	// RequiredCoSigners is populated when Decision reflects a pending
	// co-signature requirement (carried informationally on the card; the
	// authoritative state lives in the threshold engine).
	RequiredCoSigners []identity.WorldlineID `json:"required_co_signers,omitempty"`
}

const CurrentSchemaVersion = 1
