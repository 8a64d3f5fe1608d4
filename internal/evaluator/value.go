package evaluator

import (
	"math"
	"strconv"
	"strings"

	"github.com/jacoelho/xpath/internal/tree"
)

// Value is an XPath 1.0 value: NodeSet, float64, string, or bool.
type Value any

// NodeSet is a duplicate-free, document-ordered set of nodes.
type NodeSet []*tree.Node

// ToString converts a value using the string() rules: the string-value of
// the first node for node-sets, lexical forms for numbers and booleans.
func ToString(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case NodeSet:
		if len(x) == 0 {
			return ""
		}
		return x[0].StringValue()
	case string:
		return x
	case float64:
		return FormatNumber(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// ToNumber converts a value using the number() rules.
func ToNumber(v Value) float64 {
	switch x := v.(type) {
	case nil:
		return math.NaN()
	case NodeSet:
		return parseNumber(ToString(x))
	case string:
		return parseNumber(x)
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// ToBoolean converts a value using the boolean() rules.
func ToBoolean(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case NodeSet:
		return len(x) > 0
	case string:
		return len(x) > 0
	case float64:
		return x != 0 && !math.IsNaN(x)
	case bool:
		return x
	default:
		return false
	}
}

// FormatNumber renders a float64 in the XPath lexical form: no exponent,
// no trailing ".0" for integers, and the words NaN and Infinity for the
// special values.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		// positive and negative zero both print as "0"
		return "0"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// parseNumber implements the number() lexical space: optional minus,
// digits with an optional fraction. Anything else is NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	body := strings.TrimPrefix(s, "-")
	if body == "" || strings.Trim(body, "0123456789.") != "" || strings.Count(body, ".") > 1 {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// TypeName returns the XPath type name of a value, used in diagnostics.
func TypeName(v Value) string {
	switch v.(type) {
	case NodeSet:
		return "node-set"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "unknown"
	}
}
