// Package policy implements the rule/condition/action engine plus the
// runtime guardrails (attention budgets, autonomy limits, capability modes,
// tier-specific lanes) described in spec §4.3.
package policy

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/resonance-systems/cac/internal/declaration"
)

// Context is the evaluation context passed alongside a declaration. It is a
// thin wrapper today (the runtime guardrails read straight from the
// declaration's metadata, per spec §4.3) but exists as a named extension
// point for evaluation-time data that does not belong on the declaration
// itself (e.g. injected by the Gate rather than the declaring caller).
type Context struct {
	Declaration *declaration.Declaration
}

// NewContext builds an evaluation context for decl.
func NewContext(decl *declaration.Declaration) Context {
	return Context{Declaration: decl}
}

// RuleResult records the outcome of evaluating a single rule.
type RuleResult struct {
	PolicyID  string
	RuleID    string
	Triggered bool
	Action    Action
}

// Result is the policy engine's evaluation output.
type Result struct {
	Decision    declaration.Decision
	Risk        declaration.RiskAssessment
	Conditions  []string
	PolicyRefs  []string
	RuleResults []RuleResult
}

// Engine holds an ordered (priority descending) list of policies. It is one
// of the shared-resource singletons (spec §4.9): constructed once, passed
// through a context struct into the Gate, and guarded by a lock only for the
// critical read/append of the policy list.
type Engine struct {
	mu       sync.RWMutex
	policies []Policy
}

// NewEngine constructs an empty policy engine.
func NewEngine() *Engine {
	return &Engine{}
}

// AddPolicy inserts a policy, keeping the list sorted by Priority descending.
func (e *Engine) AddPolicy(p Policy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.policies = append(e.policies, p)
	sort.SliceStable(e.policies, func(i, j int) bool {
		return e.policies[i].Priority > e.policies[j].Priority
	})
}

// Policies returns a snapshot of the configured policies.
func (e *Engine) Policies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Policy, len(e.policies))
	copy(out, e.policies)
	return out
}

// Evaluate runs every enabled policy's rules in priority order, then applies
// the runtime guardrails, and returns the combined result. Decision proceeds
// monotonically along Approved <= PendingAdditionalInfo <= PendingHumanReview
// <= Denied (I9): once Denied, no action may weaken it.
func (e *Engine) Evaluate(ctx Context) (Result, error) {
	decl := ctx.Declaration
	res := Result{Decision: declaration.DecisionApprove}

	policies := e.Policies()
	for _, p := range policies {
		if !p.Enabled {
			continue
		}
		for _, rule := range p.Rules {
			triggered, err := rule.Condition.Eval(decl)
			if err != nil {
				return Result{}, err
			}
			res.RuleResults = append(res.RuleResults, RuleResult{
				PolicyID: p.ID, RuleID: rule.ID, Triggered: triggered, Action: rule.Action,
			})
			if !triggered {
				continue
			}
			res.PolicyRefs = append(res.PolicyRefs, p.ID+"/"+rule.ID)
			if d, ok := rule.Action.decision(); ok {
				res.Decision = declaration.Monotonic(res.Decision, d)
			}
			if rule.Action.Kind == ActionAddCondition {
				res.Conditions = append(res.Conditions, rule.Action.Text)
			}
		}
	}

	res.Decision = e.applyGuardrails(decl, &res.Risk, res.Decision)
	return res, nil
}

// --- runtime guardrails (spec §4.3) ---

var autonomousLimits = map[string]float64{
	"ibank":      10000,
	"finalverse": 1000,
	"mapleverse": 25000,
}

const defaultAutonomousLimit = 5000

func autonomousLimit(tier string) float64 {
	if v, ok := autonomousLimits[tier]; ok {
		return v
	}
	return defaultAutonomousLimit
}

func metaFloat(meta map[string]string, key string, fallback float64) float64 {
	v, ok := meta[key]
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

func (e *Engine) applyGuardrails(decl *declaration.Declaration, risk *declaration.RiskAssessment, decision declaration.Decision) declaration.Decision {
	meta := decl.Metadata
	tier := meta["profile_tier"]
	if tier == "" {
		tier = "mapleverse"
	}
	limit := autonomousLimit(tier)

	attentionAvailable := metaFloat(meta, "attention_available", -1)
	attentionRequired := metaFloat(meta, "attention_required", 0)
	attentionWithinBudget := attentionAvailable < 0 || attentionRequired <= attentionAvailable

	requestedValue := metaFloat(meta, "requested_value", 0)
	capabilityRisk := meta["capability_risk"]
	capabilityMode := meta["capability_mode"]

	// attention_required > attention_available -> Denied, High risk factor (I13).
	if attentionAvailable >= 0 && attentionRequired > attentionAvailable {
		risk.AddFactor(declaration.RiskFactor{
			Name:        "attention_bound_exceeded",
			Description: "attention required exceeds attention available",
			Severity:    declaration.RiskHigh,
		})
		decision = declaration.Monotonic(decision, declaration.DecisionDeny)
	}

	// capability_risk == "dangerous".
	if capabilityRisk == "dangerous" {
		risk.AddFactor(declaration.RiskFactor{
			Name:        "dangerous_capability",
			Description: "declaration references a capability flagged dangerous",
			Severity:    declaration.RiskHigh,
		})
		if requestedValue <= 0 && decision != declaration.DecisionDeny {
			decision = declaration.Monotonic(decision, declaration.DecisionPendingAdditionalInfo)
		}
		if requestedValue > limit {
			decision = declaration.Monotonic(decision, declaration.DecisionPendingHumanReview)
		}
		if tier == "finalverse" && decision == declaration.DecisionApprove {
			decision = declaration.Monotonic(decision, declaration.DecisionPendingHumanReview)
		}
	}

	// capability_mode == "real".
	if capabilityMode == "real" {
		risk.AddFactor(declaration.RiskFactor{
			Name:        "real_tool_mode",
			Description: "capability executes against a real (non-simulated) backend",
			Severity:    declaration.RiskHigh,
		})
		if decision == declaration.DecisionApprove {
			decision = declaration.Monotonic(decision, declaration.DecisionPendingHumanReview)
		}
	}

	// requested_value > autonomous_limit.
	if requestedValue > limit {
		risk.AddFactor(declaration.RiskFactor{
			Name:        "autonomous_limit_exceeded",
			Description: "requested value exceeds the autonomous limit for this profile tier",
			Severity:    declaration.RiskHigh,
		})
		if decision != declaration.DecisionDeny {
			decision = declaration.Monotonic(decision, declaration.DecisionPendingHumanReview)
		}
	}

	// iBank autonomous finance lane: promote PendingHumanReview -> Approved
	// under a narrow, explicitly-bounded condition. Never overrides Denied.
	isFinance := decl.Scope.EffectDomain == declaration.DomainFinance
	if tier == "ibank" && isFinance && requestedValue > 0 && requestedValue <= limit &&
		capabilityRisk == "dangerous" && attentionWithinBudget &&
		decision == declaration.DecisionPendingHumanReview {
		risk.AddFactor(declaration.RiskFactor{
			Name:        "ibank_autonomous_lane",
			Description: "promoted via the iBank autonomous finance lane",
			Severity:    declaration.RiskLow,
		})
		decision = declaration.DecisionApprove
	}

	// iBank baseline: over-limit finance commitments always need a human,
	// even when the dangerous-capability block above did not fire.
	if tier == "ibank" && isFinance && requestedValue > limit && decision != declaration.DecisionDeny {
		decision = declaration.Monotonic(decision, declaration.DecisionPendingHumanReview)
	}

	return decision
}
