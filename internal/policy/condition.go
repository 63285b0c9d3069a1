package policy

import (
	"strings"

	"github.com/resonance-systems/cac/internal/cacerr"
	"github.com/resonance-systems/cac/internal/declaration"
)

// ConditionKind enumerates the built-in condition shapes a rule may use.
type ConditionKind string

const (
	CondAlways          ConditionKind = "Always"
	CondNever           ConditionKind = "Never"
	CondDomainIsCritical ConditionKind = "DomainIsCritical"
	CondScopeIsGlobal   ConditionKind = "ScopeIsGlobal"
	CondIsIrreversible  ConditionKind = "IsIrreversible"
	CondCustom          ConditionKind = "Custom"
)

// criticalDomains lists the effect domains a DomainIsCritical condition
// matches. Finance is the only critical domain this core ships with; callers
// wanting more must compose via Custom expressions.
var criticalDomains = map[declaration.EffectDomain]bool{
	declaration.DomainFinance: true,
}

// Condition is a rule's trigger. Custom conditions carry a precompiled
// expression tree built once when the condition is constructed (Design
// Notes §9: parse once per policy add, evaluate many times).
type Condition struct {
	Kind     ConditionKind
	Expr     string // raw source, Custom only
	compiled exprNode
}

// NewAlwaysCondition returns a condition that always triggers.
func NewAlwaysCondition() Condition { return Condition{Kind: CondAlways} }

// NewNeverCondition returns a condition that never triggers.
func NewNeverCondition() Condition { return Condition{Kind: CondNever} }

// NewDomainIsCriticalCondition triggers when the declaration's effect domain
// is considered critical (currently: Finance).
func NewDomainIsCriticalCondition() Condition { return Condition{Kind: CondDomainIsCritical} }

// NewScopeIsGlobalCondition triggers when the declaration's scope is global.
func NewScopeIsGlobalCondition() Condition { return Condition{Kind: CondScopeIsGlobal} }

// NewIsIrreversibleCondition triggers when the declaration is irreversible.
func NewIsIrreversibleCondition() Condition { return Condition{Kind: CondIsIrreversible} }

// NewCustomCondition compiles expr into an expression tree immediately,
// returning a POLICY-01 InvalidExpression error for an empty or malformed
// expression rather than deferring the failure to evaluation time.
func NewCustomCondition(expr string) (Condition, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Condition{}, cacerr.New(cacerr.KindInput, "POLICY-01", "empty custom expression")
	}
	node, err := compile(trimmed)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Kind: CondCustom, Expr: trimmed, compiled: node}, nil
}

// Eval evaluates the condition against a declaration.
func (c Condition) Eval(decl *declaration.Declaration) (bool, error) {
	switch c.Kind {
	case CondAlways:
		return true, nil
	case CondNever:
		return false, nil
	case CondDomainIsCritical:
		return criticalDomains[decl.Scope.EffectDomain], nil
	case CondScopeIsGlobal:
		return decl.Scope.Global, nil
	case CondIsIrreversible:
		return decl.Reversibility.IsIrreversible(), nil
	case CondCustom:
		return c.compiled.eval(decl)
	default:
		return false, cacerr.New(cacerr.KindInput, "POLICY-02", "unknown condition kind: "+string(c.Kind))
	}
}

// --- mini-language: AST nodes ---

type exprNode interface {
	eval(decl *declaration.Declaration) (bool, error)
}

type orNode struct{ terms []exprNode }

func (n orNode) eval(decl *declaration.Declaration) (bool, error) {
	for _, t := range n.terms {
		v, err := t.eval(decl)
		if err != nil {
			return false, err
		}
		if v {
			return true, nil // short-circuit
		}
	}
	return false, nil
}

type andNode struct{ terms []exprNode }

func (n andNode) eval(decl *declaration.Declaration) (bool, error) {
	for _, t := range n.terms {
		v, err := t.eval(decl)
		if err != nil {
			return false, err
		}
		if !v {
			return false, nil // short-circuit
		}
	}
	return true, nil
}

type hasCapabilityNode struct{ capID string }

func (n hasCapabilityNode) eval(decl *declaration.Declaration) (bool, error) {
	for _, c := range decl.Capabilities {
		if c == n.capID {
			return true, nil
		}
	}
	return false, nil
}

var falsyMetadataValues = map[string]bool{
	"":      true,
	"0":     true,
	"false": true,
	"no":    true,
	"off":   true,
}

type metadataTruthyNode struct{ key string }

func (n metadataTruthyNode) eval(decl *declaration.Declaration) (bool, error) {
	v := decl.Metadata[n.key]
	return !falsyMetadataValues[strings.ToLower(v)], nil
}

type comparisonNode struct {
	lhsKind string // "agent_id", "effect_domain", "reversibility", "scope.global", "metadata"
	lhsKey  string // metadata key, only when lhsKind == "metadata"
	op      string // "==" or "!="
	rhs     string
}

func (n comparisonNode) eval(decl *declaration.Declaration) (bool, error) {
	lhs, err := n.resolveLHS(decl)
	if err != nil {
		return false, err
	}
	eq := lhs == n.rhs
	if n.op == "!=" {
		return !eq, nil
	}
	return eq, nil
}

func (n comparisonNode) resolveLHS(decl *declaration.Declaration) (string, error) {
	switch n.lhsKind {
	case "agent_id":
		return string(decl.DeclaringID), nil
	case "effect_domain":
		return string(decl.Scope.EffectDomain), nil
	case "reversibility":
		return string(decl.Reversibility.Kind), nil
	case "scope.global":
		if decl.Scope.Global {
			return "true", nil
		}
		return "false", nil
	case "metadata":
		return decl.Metadata[n.lhsKey], nil
	default:
		return "", cacerr.New(cacerr.KindInput, "POLICY-01", "invalid expression: unresolvable left-hand side "+n.lhsKind)
	}
}
