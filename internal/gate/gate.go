package gate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/resonance-systems/cac/internal/audit"
	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/fabric"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/ledger"
	"github.com/resonance-systems/cac/internal/policy"
)

// Config tunes the Declaration stage's intent-reference check.
type Config struct {
	// MinIntentConfidence is the minimum confidence the referenced intent
	// event must carry for the declaration to proceed past stage 1.
	MinIntentConfidence float64
	// RequireIntentRef, when false, skips the intent-reference check
	// entirely (used by deployments that declare commitments directly,
	// without a preceding Intent-stage event).
	RequireIntentRef bool
}

// DefaultConfig returns the gate's default tuning.
func DefaultConfig() Config {
	return Config{MinIntentConfidence: 0.6, RequireIntentRef: true}
}

// Gate wires the identity, fabric, policy, ledger, and audit collaborators
// into the seven-stage pipeline (spec §4.2). Like its collaborators, it is
// constructed once and threaded through explicitly rather than reached for
// as an implicit global.
type Gate struct {
	fabric   *fabric.Fabric
	identity *identity.Registry
	policy   *policy.Engine
	ledger   *ledger.Ledger
	journal  *audit.Journal
	cfg      Config

	mu             sync.Mutex
	approvalEvents map[uuid.UUID]uuid.UUID // commitment id -> CommitmentApproved fabric event id
}

// New constructs a Gate over its collaborators.
func New(f *fabric.Fabric, idr *identity.Registry, pe *policy.Engine, l *ledger.Ledger, j *audit.Journal, cfg Config) *Gate {
	return &Gate{
		fabric:         f,
		identity:       idr,
		policy:         pe,
		ledger:         l,
		journal:        j,
		cfg:            cfg,
		approvalEvents: make(map[uuid.UUID]uuid.UUID),
	}
}

// AdjudicationResult is the external, collapsed outcome of a Submit call.
type AdjudicationResult struct {
	Status             AdjudicationStatus
	Card               *declaration.PolicyDecisionCard
	RequiredCoSigners  []identity.WorldlineID
}

// Submit runs decl through the seven-stage pipeline. A genuine stage failure
// returns a *GateError and leaves no trace beyond the CommitmentDeclared
// event already on the fabric; a business outcome (Approve, Deny, pending
// co-signature, pending human approval) always returns a populated
// AdjudicationResult and a nil error.
func (g *Gate) Submit(ctx context.Context, decl *declaration.Declaration) (AdjudicationResult, error) {
	if decl.CommitmentID == uuid.Nil {
		decl.CommitmentID = uuid.New()
	}
	if decl.SubmittedAt.IsZero() {
		decl.SubmittedAt = time.Now().UTC()
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("cac.commitment_id", decl.CommitmentID.String()),
		attribute.String("cac.declaring_id", string(decl.DeclaringID)),
		attribute.String("cac.effect_domain", string(decl.Scope.EffectDomain)),
	)

	var parents []uuid.UUID
	if decl.IntentEventID != nil {
		parents = append(parents, *decl.IntentEventID)
	}
	declEvent, err := g.fabric.Emit(decl.DeclaringID, fabric.StageCommitment, "CommitmentDeclared", declaredPayload(decl), parents)
	if err != nil {
		return AdjudicationResult{}, &GateError{Stage: StageDeclaration, Err: err}
	}
	g.journal.Record(audit.ReceiptCommitmentDeclared, decl.DeclaringID, "commitment declared: "+decl.CommitmentID.String(), audit.SeverityInfo)

	r := &run{decl: decl, decision: declaration.DecisionApprove}

	type step struct {
		name StageName
		fn   func(*run) (stageResult, error)
	}
	steps := []step{
		{StageDeclaration, g.stageDeclaration},
		{StageIdentityBinding, g.stageIdentityBinding},
		{StageCapabilityCheck, g.stageCapabilityCheck},
		{StagePolicyEval, g.stagePolicyEvaluation},
		{StageRiskAssessment, g.stageRiskAssessment},
		{StageCoSignature, g.stageCoSignature},
	}

	var coSigners []identity.WorldlineID
	for _, st := range steps {
		span.AddEvent(string(st.name))
		res, err := st.fn(r)
		if err != nil {
			return AdjudicationResult{}, &GateError{Stage: st.name, Err: err}
		}
		switch res.kind {
		case outcomeDeny:
			result, err := g.finalizeDeny(r, declEvent.ID, res.reason)
			span.SetAttributes(attribute.String("cac.status", string(result.Status)))
			return result, err
		case outcomeRequireCoSign:
			coSigners = res.coSigners
		}
	}

	result, err := g.finalizeDecision(r, declEvent.ID, coSigners)
	if err == nil {
		span.SetAttributes(attribute.String("cac.status", string(result.Status)))
	}
	return result, err
}

func declaredPayload(decl *declaration.Declaration) map[string]any {
	return map[string]any{
		"commitment_id": decl.CommitmentID.String(),
		"effect_domain": string(decl.Scope.EffectDomain),
		"reversibility": string(decl.Reversibility.Kind),
	}
}

// finalizeDeny builds and appends a denial card. Denial terminates the
// pipeline immediately, wherever it occurred (spec §4.2).
func (g *Gate) finalizeDeny(r *run, declEventID uuid.UUID, reason string) (AdjudicationResult, error) {
	if r.risk.Overall == "" {
		r.risk.Overall = declaration.RiskLow
	}
	card := declaration.PolicyDecisionCard{
		DecisionID:    uuid.New(),
		CommitmentID:  r.decl.CommitmentID,
		Decision:      declaration.DecisionDeny,
		Rationale:     reason,
		Risk:          r.risk,
		Conditions:    r.conds,
		PolicyRefs:    r.refs,
		DecidedAt:     time.Now().UTC(),
		SchemaVersion: declaration.CurrentSchemaVersion,
	}

	if err := g.appendCard(r.decl, card); err != nil {
		return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
	}
	if err := g.ledger.RecordLifecycle(r.decl.CommitmentID, ledger.LifecycleEvent{
		Kind: ledger.LifecycleDenied, Reason: reason, At: card.DecidedAt,
	}); err != nil {
		return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
	}

	if _, err := g.fabric.Emit(r.decl.DeclaringID, fabric.StageCommitment, "CommitmentDenied",
		map[string]any{"commitment_id": r.decl.CommitmentID.String(), "decision_id": card.DecisionID.String(), "reason": reason},
		[]uuid.UUID{declEventID}); err != nil {
		return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
	}
	g.journal.Record(audit.ReceiptCommitmentDenied, r.decl.DeclaringID, reason, audit.SeverityInfo)

	return AdjudicationResult{Status: StatusDenied, Card: &card}, nil
}

// finalizeDecision is stage 7, FinalDecision: collates whatever the prior
// stages produced into exactly one PolicyDecisionCard, appended to the
// ledger before any approval event reaches the fabric (accountability before
// execution, spec §4.2/§4.6).
func (g *Gate) finalizeDecision(r *run, declEventID uuid.UUID, coSigners []identity.WorldlineID) (AdjudicationResult, error) {
	if r.risk.Overall == "" {
		r.risk.Overall = declaration.RiskLow
	}
	card := declaration.PolicyDecisionCard{
		DecisionID:        uuid.New(),
		CommitmentID:      r.decl.CommitmentID,
		Decision:          r.decision,
		Rationale:         rationaleFor(r.decision, len(coSigners) > 0),
		Risk:              r.risk,
		Conditions:        r.conds,
		PolicyRefs:        r.refs,
		DecidedAt:         time.Now().UTC(),
		SchemaVersion:     declaration.CurrentSchemaVersion,
		RequiredCoSigners: coSigners,
	}

	if err := g.appendCard(r.decl, card); err != nil {
		return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
	}

	if len(coSigners) > 0 {
		g.journal.Record(audit.ReceiptCommitmentDeclared, r.decl.DeclaringID, "pending co-signature", audit.SeverityInfo)
		return AdjudicationResult{Status: StatusPendingCoSign, Card: &card, RequiredCoSigners: coSigners}, nil
	}

	switch r.decision {
	case declaration.DecisionApprove:
		if err := g.ledger.RecordLifecycle(r.decl.CommitmentID, ledger.LifecycleEvent{Kind: ledger.LifecycleApproved, At: card.DecidedAt}); err != nil {
			return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
		}
		approvalEvent, err := g.fabric.Emit(r.decl.DeclaringID, fabric.StageCommitment, "CommitmentApproved",
			map[string]any{"commitment_id": r.decl.CommitmentID.String(), "decision_id": card.DecisionID.String()},
			[]uuid.UUID{declEventID})
		if err != nil {
			return AdjudicationResult{}, &GateError{Stage: StageFinalDecision, Err: err}
		}
		g.mu.Lock()
		g.approvalEvents[r.decl.CommitmentID] = approvalEvent.ID
		g.mu.Unlock()
		g.journal.Record(audit.ReceiptCommitmentApproved, r.decl.DeclaringID, "commitment approved: "+r.decl.CommitmentID.String(), audit.SeverityInfo)
		return AdjudicationResult{Status: StatusApproved, Card: &card}, nil

	case declaration.DecisionDeny:
		// Reached only if a non-terminating stage somehow produced Deny
		// without going through finalizeDeny; treat identically to keep the
		// invariant "no non-Deny path ever emits CommitmentApproved" intact.
		return g.finalizeDeny(r, declEventID, "denied during final decision")

	default: // PendingHumanReview, PendingAdditionalInfo
		g.journal.Record(audit.ReceiptCommitmentDeclared, r.decl.DeclaringID, "pending human approval", audit.SeverityInfo)
		return AdjudicationResult{Status: StatusPendingHumanApproval, Card: &card}, nil
	}
}

func rationaleFor(d declaration.Decision, coSignPending bool) string {
	if coSignPending {
		return "awaiting required co-signatures"
	}
	switch d {
	case declaration.DecisionApprove:
		return "approved: no denying policy, guardrail, or risk condition triggered"
	case declaration.DecisionPendingHumanReview:
		return "routed to human review by policy or runtime guardrail"
	case declaration.DecisionPendingAdditionalInfo:
		return "additional information required before adjudication can proceed"
	default:
		return string(d)
	}
}

func (g *Gate) appendCard(decl *declaration.Declaration, card declaration.PolicyDecisionCard) error {
	entry := ledger.Entry{
		CommitmentID: decl.CommitmentID,
		Declaration:  *decl,
		Card:         card,
		Lifecycle:    []ledger.LifecycleEvent{{Kind: ledger.LifecycleDeclared, At: decl.SubmittedAt}},
	}
	return g.ledger.Append(entry)
}

// RecordOutcome reports a post-approval execution outcome for a commitment
// (spec §6.2). Terminal outcomes (Fulfilled, Failed, Expired) additionally
// emit a Consequence-stage fabric event chained off the commitment's
// approval event, when one was recorded.
func (g *Gate) RecordOutcome(cid uuid.UUID, ev ledger.LifecycleEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	entry, err := g.ledger.Get(cid)
	if err != nil {
		return err
	}
	if err := g.ledger.RecordLifecycle(cid, ev); err != nil {
		return err
	}

	terminal := ev.Kind == ledger.LifecycleFulfilled || ev.Kind == ledger.LifecycleFailed || ev.Kind == ledger.LifecycleExpired
	if !terminal {
		return nil
	}

	g.mu.Lock()
	approvalID, ok := g.approvalEvents[cid]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := g.fabric.Emit(entry.Declaration.DeclaringID, fabric.StageConsequence, "Commitment"+string(ev.Kind),
		map[string]any{"commitment_id": cid.String(), "reason": ev.Reason},
		[]uuid.UUID{approvalID}); err != nil {
		return err
	}
	return nil
}

// Cancel withdraws a commitment that has not yet received a terminal
// decision card (Approve or Deny). Only the declarer may cancel (spec §5
// concurrency: "pending-cosign cancellable by declarer or deadline expiry").
func (g *Gate) Cancel(cid uuid.UUID, requester identity.WorldlineID) error {
	entry, err := g.ledger.Get(cid)
	if err != nil {
		return err
	}
	if entry.Declaration.DeclaringID != requester {
		return cacerr.New(cacerr.KindInput, "STAGE-08", "only the declarer may cancel a pending commitment")
	}
	if entry.Card.Decision == declaration.DecisionApprove || entry.Card.Decision == declaration.DecisionDeny {
		if len(entry.Card.RequiredCoSigners) == 0 {
			return cacerr.New(cacerr.KindLifecycleConflict, "STAGE-09", "commitment already has a terminal decision card")
		}
	}
	return g.ledger.RecordLifecycle(cid, ledger.LifecycleEvent{
		Kind: ledger.LifecycleDenied, Reason: "cancelled by declarer", At: time.Now().UTC(),
	})
}
