// Package gate implements the Commitment Gate: the seven-stage pipeline every
// candidate commitment passes through before it may cross into execution
// (spec §4.2). The gate is the one place identity, capability, policy,
// ledger, and audit collaborators meet.
package gate

import (
	"fmt"

	"github.com/resonance-systems/cac/internal/identity"
)

// StageName identifies one of the gate's seven fixed stages, in pipeline
// order. The order itself is part of the contract (spec §8, I8): a stage may
// only see state its predecessors produced.
type StageName string

const (
	StageDeclaration     StageName = "Declaration"
	StageIdentityBinding StageName = "IdentityBinding"
	StageCapabilityCheck StageName = "CapabilityCheck"
	StagePolicyEval      StageName = "PolicyEvaluation"
	StageRiskAssessment  StageName = "RiskAssessment"
	StageCoSignature     StageName = "CoSignature"
	StageFinalDecision   StageName = "FinalDecision"
)

// stageOrder is the fixed pipeline sequence.
var stageOrder = []StageName{
	StageDeclaration,
	StageIdentityBinding,
	StageCapabilityCheck,
	StagePolicyEval,
	StageRiskAssessment,
	StageCoSignature,
	StageFinalDecision,
}

// outcomeKind is a stage's contribution to pipeline control flow. Only Deny
// terminates the pipeline early; every other outcome is collated at
// FinalDecision.
type outcomeKind int

const (
	outcomePass outcomeKind = iota
	outcomeDeny
	outcomeRequireCoSign
)

// stageResult is the internal, per-stage verdict. Kind drives whether the
// pipeline keeps going; Reason and CoSigners carry the data FinalDecision (or
// an early Deny) needs to build the PolicyDecisionCard.
type stageResult struct {
	kind      outcomeKind
	reason    string
	coSigners []identity.WorldlineID
}

func pass() stageResult { return stageResult{kind: outcomePass} }

func deny(reason string) stageResult { return stageResult{kind: outcomeDeny, reason: reason} }

func requireCoSign(signers []identity.WorldlineID) stageResult {
	return stageResult{kind: outcomeRequireCoSign, coSigners: signers}
}

// AdjudicationStatus is the external, collapsed outcome a caller of Submit
// sees (spec §6). PendingAdditionalInfo is folded into PendingHumanApproval
// at this boundary; the precise decision survives on the PolicyDecisionCard.
type AdjudicationStatus string

const (
	StatusApproved            AdjudicationStatus = "Approved"
	StatusDenied              AdjudicationStatus = "Denied"
	StatusPendingCoSign       AdjudicationStatus = "PendingCoSign"
	StatusPendingHumanApproval AdjudicationStatus = "PendingHumanApproval"
)

// GateError reports a genuine stage failure, as distinct from a business
// denial: the offending stage is identified, and the gate emits no approval
// and writes no decision card (spec §4.2 contract). Callers must resubmit
// under a new commitment id; the declaration that failed is not retried.
type GateError struct {
	Stage StageName
	Err   error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("gate: stage %s failed: %v", e.Stage, e.Err)
}

func (e *GateError) Unwrap() error { return e.Err }
