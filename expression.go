package kernel

import "strings"

// This file implements the restricted expression grammar shared by policy
// where-clauses (policy.go), policy guards, and config-driven controls
// (coordinator.go step 6). Grounded on
// original_source/finance_kernel/domain/control.py in full: the same small
// grammar serves every one of these call sites, per spec.md §9 "do not
// embed a general expression engine."

// comparisonOperators lists operators in match-order: longer operators
// first so "<=" is not mis-split as "<" followed by a stray "=".
var comparisonOperators = []string{"<=", ">=", "!=", "==", "=", "<", ">"}

// fieldValue resolves a dotted field path against payload, stripping an
// optional leading "payload." prefix. Returns (value, true) if every path
// segment was found, else (nil, false).
func fieldValue(payload map[string]any, fieldPath string) (any, bool) {
	path := strings.TrimSpace(fieldPath)
	path = strings.TrimPrefix(path, "payload.")
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = payload
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// compareValues implements control.py's _compare: bool comparison first,
// then decimal comparison, then literal string fallback.
func compareValues(actual any, op string, expected string) bool {
	if actual == nil {
		return (op == "=" || op == "==") && strings.ToLower(expected) == "null"
	}
	lowered := strings.ToLower(expected)
	if lowered == "true" || lowered == "false" {
		expectedBool := lowered == "true"
		actualBool := truthy(actual)
		switch op {
		case "=", "==":
			return actualBool == expectedBool
		case "!=":
			return actualBool != expectedBool
		default:
			return false
		}
	}

	if actualNum, ok := toMinorUnits(actual); ok {
		if expectedNum, err := ParseDecimalLiteral(expected, 6); err == nil {
			actualScaled, _ := toMinorUnitsAtScale(actual, 6)
			switch op {
			case "<=":
				return actualScaled <= expectedNum
			case ">=":
				return actualScaled >= expectedNum
			case "<":
				return actualScaled < expectedNum
			case ">":
				return actualScaled > expectedNum
			case "=", "==":
				return actualScaled == expectedNum
			case "!=":
				return actualScaled != expectedNum
			}
		}
		_ = actualNum
	}

	actualStr := toStringValue(actual)
	switch op {
	case "=", "==":
		return actualStr == expected
	case "!=":
		return actualStr != expected
	default:
		return false
	}
}

// truthy mirrors Python's bool() coercion closely enough for this grammar's
// needs: zero/empty/false/nil are false, everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// toMinorUnits reports whether v looks numeric (for dispatching to the
// decimal comparison branch).
func toMinorUnits(v any) (int64, bool) {
	return toMinorUnitsAtScale(v, 0)
}

// toMinorUnitsAtScale converts a numeric or numeric-string value to an
// integer at the given decimal scale, never routing through binary float
// arithmetic for the comparison itself.
func toMinorUnitsAtScale(v any, scale int) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t) * pow10(scale), true
	case int64:
		return t * pow10(scale), true
	case float64:
		lit := trimFloat(t)
		n, err := ParseDecimalLiteral(lit, scale)
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := ParseDecimalLiteral(t, scale)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func pow10(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 10
	}
	return r
}

func toStringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Canonicalize(v)
}

// evaluateExpression parses and evaluates a single restricted-grammar
// expression against payload: either "lhs OP rhs" or a bare field path
// (truthiness test). Mirrors control.py's _evaluate_expression.
func evaluateExpression(payload map[string]any, expression string) bool {
	expression = strings.TrimSpace(expression)
	for _, op := range comparisonOperators {
		if idx := strings.Index(expression, op); idx >= 0 {
			fieldPath := strings.TrimSpace(expression[:idx])
			expected := strings.TrimSpace(expression[idx+len(op):])
			actual, _ := fieldValue(payload, fieldPath)
			return compareValues(actual, op, expected)
		}
	}
	val, ok := fieldValue(payload, expression)
	if !ok {
		return false
	}
	return truthy(val)
}

// GuardVerdictType distinguishes a terminal rejection from a resumable block.
type GuardVerdictType string

const (
	GuardReject GuardVerdictType = "reject"
	GuardBlock  GuardVerdictType = "block"
)

// Guard is a condition evaluated against the payload; on trigger it
// produces either a reject (terminal) or block (resumable) verdict.
// Grounded on control.py's ControlRule, generalized to serve both policy
// guards (C6) and global controls (C15 step 6).
type Guard struct {
	Name       string
	AppliesTo  string // event_type, or "*" for any
	Type       GuardVerdictType
	Expression string
	ReasonCode string
	Message    string
}

// GuardVerdict is the result of evaluating a guard list.
type GuardVerdict struct {
	Passed     bool
	Rejected   bool
	Blocked    bool
	Triggered  *Guard
	ReasonCode string
	Message    string
}

func passedVerdict() GuardVerdict {
	return GuardVerdict{Passed: true}
}

func rejectVerdict(g *Guard) GuardVerdict {
	msg := g.Message
	if msg == "" {
		msg = g.ReasonCode
	}
	return GuardVerdict{Passed: false, Rejected: true, Triggered: g, ReasonCode: g.ReasonCode, Message: msg}
}

func blockVerdict(g *Guard) GuardVerdict {
	msg := g.Message
	if msg == "" {
		msg = g.ReasonCode
	}
	return GuardVerdict{Passed: false, Blocked: true, Triggered: g, ReasonCode: g.ReasonCode, Message: msg}
}

// EvaluateGuards runs rules in order against payload/eventType, applying
// only rules whose AppliesTo is "*" or equals eventType. Returns the first
// triggered guard's verdict, or a passing verdict if none trigger. Mirrors
// control.py's evaluate_controls.
func EvaluateGuards(payload map[string]any, eventType string, rules []Guard) GuardVerdict {
	for i := range rules {
		rule := &rules[i]
		if rule.AppliesTo != "*" && rule.AppliesTo != eventType {
			continue
		}
		triggered := evaluateExpression(payload, rule.Expression)
		if !triggered {
			continue
		}
		if rule.Type == GuardReject {
			return rejectVerdict(rule)
		}
		return blockVerdict(rule)
	}
	return passedVerdict()
}
