package policy

import (
	"strings"

	"github.com/resonance-systems/cac/internal/cacerr"
)

// compile parses a trimmed, non-empty custom expression into an expression
// tree. Grammar (no parentheses, left-to-right, || binds looser than &&):
//
//	expr       := andGroup ('||' andGroup)*
//	andGroup   := atom ('&&' atom)*
//	atom       := hasCapabilityCall | capabilityShorthand | comparison | metadataTruthy
func compile(expr string) (exprNode, error) {
	orParts := splitTopLevel(expr, "||")
	if len(orParts) > 1 {
		terms := make([]exprNode, 0, len(orParts))
		for _, p := range orParts {
			n, err := compileAndGroup(p)
			if err != nil {
				return nil, err
			}
			terms = append(terms, n)
		}
		return orNode{terms: terms}, nil
	}
	return compileAndGroup(orParts[0])
}

func compileAndGroup(expr string) (exprNode, error) {
	andParts := splitTopLevel(expr, "&&")
	if len(andParts) > 1 {
		terms := make([]exprNode, 0, len(andParts))
		for _, p := range andParts {
			n, err := compileAtom(p)
			if err != nil {
				return nil, err
			}
			terms = append(terms, n)
		}
		return andNode{terms: terms}, nil
	}
	return compileAtom(andParts[0])
}

// splitTopLevel splits s on sep, ignoring separators that fall inside a
// quoted string. The mini-language has no parentheses, so this is the only
// nesting concern.
func splitTopLevel(s, sep string) []string {
	var parts []string
	var inQuote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '\'' || c == '"':
			inQuote = c
		case strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[start:i])
			i += len(sep) - 1
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func compileAtom(atom string) (exprNode, error) {
	atom = strings.TrimSpace(atom)
	if atom == "" {
		return nil, cacerr.New(cacerr.KindInput, "POLICY-01", "invalid expression: empty clause")
	}

	if strings.HasPrefix(atom, "has_capability(") && strings.HasSuffix(atom, ")") {
		inner := atom[len("has_capability(") : len(atom)-1]
		return hasCapabilityNode{capID: stripQuotes(strings.TrimSpace(inner))}, nil
	}
	if strings.HasPrefix(atom, "capability:") {
		return hasCapabilityNode{capID: strings.TrimSpace(strings.TrimPrefix(atom, "capability:"))}, nil
	}

	if op, idx := findComparisonOp(atom); idx >= 0 {
		lhs := strings.TrimSpace(atom[:idx])
		rhs := strings.TrimSpace(atom[idx+len(op):])
		rhs = stripQuotes(rhs)
		lhsKind, lhsKey, err := resolveLHSKind(lhs)
		if err != nil {
			return nil, err
		}
		return comparisonNode{lhsKind: lhsKind, lhsKey: lhsKey, op: op, rhs: rhs}, nil
	}

	if strings.HasPrefix(atom, "metadata.") {
		return metadataTruthyNode{key: strings.TrimPrefix(atom, "metadata.")}, nil
	}

	return nil, cacerr.New(cacerr.KindInput, "POLICY-01", "invalid expression: unrecognized clause "+atom)
}

// findComparisonOp finds the first top-level "==" or "!=" in atom.
func findComparisonOp(atom string) (string, int) {
	if idx := strings.Index(atom, "=="); idx >= 0 {
		return "==", idx
	}
	if idx := strings.Index(atom, "!="); idx >= 0 {
		return "!=", idx
	}
	return "", -1
}

func resolveLHSKind(lhs string) (kind, key string, err error) {
	switch {
	case lhs == "agent_id":
		return "agent_id", "", nil
	case lhs == "effect_domain":
		return "effect_domain", "", nil
	case lhs == "reversibility":
		return "reversibility", "", nil
	case lhs == "scope.global":
		return "scope.global", "", nil
	case strings.HasPrefix(lhs, "metadata."):
		return "metadata", strings.TrimPrefix(lhs, "metadata."), nil
	default:
		return "", "", cacerr.New(cacerr.KindInput, "POLICY-01", "invalid expression: unresolvable left-hand side "+lhs)
	}
}

// stripQuotes removes a single matching layer of surrounding single or
// double quotes, if present.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
