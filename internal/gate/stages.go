package gate

import (
	"strconv"
	"strings"

	"github.com/resonance-systems/cac/internal/declaration"
	"github.com/resonance-systems/cac/internal/identity"
	"github.com/resonance-systems/cac/internal/policy"
)

// run carries one declaration's mutable state through the seven stages. It
// is built fresh per Submit call and never shared across commitments.
type run struct {
	decl     *declaration.Declaration
	decision declaration.Decision
	risk     declaration.RiskAssessment
	conds    []string
	refs     []string
}

// stageDeclaration is stage 1: verifies that the candidate traces back to a
// stabilized intent (unless the gate is configured to skip the check) and
// that the referenced intent's confidence clears the configured minimum.
func (g *Gate) stageDeclaration(r *run) (stageResult, error) {
	if !g.cfg.RequireIntentRef {
		return pass(), nil
	}
	if r.decl.IntentEventID == nil {
		return deny("no stabilized intent reference; only explicit commitments cross into execution"), nil
	}
	ev, err := g.fabric.Get(*r.decl.IntentEventID)
	if err != nil {
		return stageResult{}, err
	}
	conf, _ := ev.Payload["confidence"].(float64)
	if conf < g.cfg.MinIntentConfidence {
		return deny("referenced intent confidence below minimum: " + strconv.FormatFloat(conf, 'f', -1, 64)), nil
	}
	return pass(), nil
}

// stageIdentityBinding is stage 2: the declaring worldline must be registered
// and active.
func (g *Gate) stageIdentityBinding(r *run) (stageResult, error) {
	if !g.identity.IsActive(r.decl.DeclaringID) {
		return deny("declaring worldline is not active: " + string(r.decl.DeclaringID)), nil
	}
	return pass(), nil
}

// stageCapabilityCheck is stage 3: every capability the declaration
// references must be held by the declaring worldline and scoped to the
// declaration's effect domain.
func (g *Gate) stageCapabilityCheck(r *run) (stageResult, error) {
	domain := string(r.decl.Scope.EffectDomain)
	for _, capID := range r.decl.Capabilities {
		if !g.identity.HasCapability(r.decl.DeclaringID, capID, domain) {
			return deny("capability not held or not scoped to domain " + domain + ": " + capID), nil
		}
	}
	return pass(), nil
}

// stagePolicyEvaluation is stage 4: runs the policy engine (built-in rules
// plus whatever has been added, and the runtime guardrails) and folds its
// decision into the run monotonically. Only a Deny terminates the pipeline
// here; PendingHumanReview and PendingAdditionalInfo are carried forward for
// FinalDecision to collate.
func (g *Gate) stagePolicyEvaluation(r *run) (stageResult, error) {
	res, err := g.policy.Evaluate(policy.NewContext(r.decl))
	if err != nil {
		return stageResult{}, err
	}
	r.decision = declaration.Monotonic(r.decision, res.Decision)
	r.risk = mergeRisk(r.risk, res.Risk)
	r.conds = append(r.conds, res.Conditions...)
	r.refs = append(r.refs, res.PolicyRefs...)
	if r.decision == declaration.DecisionDeny {
		return deny("denied by policy"), nil
	}
	return pass(), nil
}

// mergeRisk folds b's factors into a, recomputing Overall as the max
// severity across the union (declaration.RiskAssessment.AddFactor already
// does this one factor at a time).
func mergeRisk(a, b declaration.RiskAssessment) declaration.RiskAssessment {
	for _, f := range b.Factors {
		a.AddFactor(f)
	}
	return a
}

// stageRiskAssessment is stage 5: layers declaration-shape risk (scope,
// reversibility, affected-party breadth) on top of whatever the policy stage
// already contributed. This stage never denies; it only enriches the risk
// assessment the card will carry.
func (g *Gate) stageRiskAssessment(r *run) (stageResult, error) {
	if r.decl.Reversibility.IsIrreversible() {
		r.risk.AddFactor(declaration.RiskFactor{
			Name:        "irreversible_effect",
			Description: "declared effect cannot be undone",
			Severity:    declaration.RiskMedium,
		})
	}
	if r.decl.Scope.Global {
		r.risk.AddFactor(declaration.RiskFactor{
			Name:        "global_scope_exposure",
			Description: "scope is not limited to the declared targets",
			Severity:    declaration.RiskMedium,
		})
	}
	if len(r.decl.AffectedParties) > 3 {
		r.risk.AddFactor(declaration.RiskFactor{
			Name:        "broad_party_impact",
			Description: "more than three parties affected",
			Severity:    declaration.RiskLow,
		})
	}
	if r.risk.Overall == "" {
		r.risk.Overall = declaration.RiskLow
	}
	return pass(), nil
}

// requiredCoSignersKey is the declaration metadata key carrying a
// comma-separated list of worldline ids the scope requires co-signatures
// from, before a commitment in that scope may finalize.
const requiredCoSignersKey = "required_cosigners"

// stageCoSignature is stage 6: if the declaration's scope names required
// co-signers, the pipeline flags the pending requirement for FinalDecision
// rather than resolving it itself (signature collection is the threshold
// engine's job, driven out-of-band of a single Submit call).
func (g *Gate) stageCoSignature(r *run) (stageResult, error) {
	raw := strings.TrimSpace(r.decl.Metadata[requiredCoSignersKey])
	if raw == "" {
		return pass(), nil
	}
	parts := strings.Split(raw, ",")
	signers := make([]identity.WorldlineID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			signers = append(signers, identity.WorldlineID(p))
		}
	}
	if len(signers) == 0 {
		return pass(), nil
	}
	return requireCoSign(signers), nil
}
