package xpath

import "github.com/jacoelho/xpath/internal/evaluator"

// ResultType identifies which of the four XPath value types a result
// holds.
type ResultType int

const (
	// NodeSetResult is a document-ordered, duplicate-free set of nodes.
	NodeSetResult ResultType = iota
	// BooleanResult is a boolean.
	BooleanResult
	// NumberResult is an IEEE-754 number.
	NumberResult
	// StringResult is a string.
	StringResult
)

// String returns the XPath name of the result type.
func (t ResultType) String() string {
	switch t {
	case NodeSetResult:
		return "node-set"
	case BooleanResult:
		return "boolean"
	case NumberResult:
		return "number"
	case StringResult:
		return "string"
	default:
		return "unknown"
	}
}

// Result is an evaluated expression value. The typed accessors apply the
// XPath conversion rules, so any result can be read as a string, number,
// or boolean.
type Result struct {
	value evaluator.Value
}

// Type returns the value type the expression produced.
func (r Result) Type() ResultType {
	switch r.value.(type) {
	case bool:
		return BooleanResult
	case float64:
		return NumberResult
	case string:
		return StringResult
	default:
		return NodeSetResult
	}
}

// Nodes returns the node-set in document order, or nil for non-node-set
// results.
func (r Result) Nodes() []*Node {
	set, ok := r.value.(evaluator.NodeSet)
	if !ok {
		return nil
	}
	return []*Node(set)
}

// String converts the result using the string() rules.
func (r Result) String() string {
	return evaluator.ToString(r.value)
}

// Number converts the result using the number() rules.
func (r Result) Number() float64 {
	return evaluator.ToNumber(r.value)
}

// Boolean converts the result using the boolean() rules.
func (r Result) Boolean() bool {
	return evaluator.ToBoolean(r.value)
}
