package policy

import "github.com/resonance-systems/cac/internal/declaration"

// ActionKind enumerates the effects a triggered rule may have.
type ActionKind string

const (
	ActionAllow                  ActionKind = "Allow"
	ActionDeny                   ActionKind = "Deny"
	ActionRequireHumanApproval   ActionKind = "RequireHumanApproval"
	ActionRequireAdditionalInfo  ActionKind = "RequireAdditionalInfo"
	ActionAddCondition           ActionKind = "AddCondition"
)

// Action is what happens when a rule's condition evaluates true.
type Action struct {
	Kind ActionKind
	Text string // condition text, AddCondition only
}

// decision maps an action to the decision it contributes, for actions that
// have a direct decision mapping. AddCondition has no decision effect.
func (a Action) decision() (declaration.Decision, bool) {
	switch a.Kind {
	case ActionAllow:
		return declaration.DecisionApprove, true
	case ActionDeny:
		return declaration.DecisionDeny, true
	case ActionRequireHumanApproval:
		return declaration.DecisionPendingHumanReview, true
	case ActionRequireAdditionalInfo:
		return declaration.DecisionPendingAdditionalInfo, true
	default:
		return "", false
	}
}

// Rule is a single condition/action pair within a policy.
type Rule struct {
	ID          string
	Description string
	Condition   Condition
	Action      Action
}

// Policy is an ordered (by Priority, descending) collection of rules.
type Policy struct {
	ID       string
	Text     string
	Priority uint32
	Enabled  bool
	Rules    []Rule
}
