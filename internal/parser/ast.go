// Package parser builds ASTs for XPath 1.0 expressions.
package parser

import (
	"fmt"
	"strings"
)

// Expr is a parsed expression node.
type Expr interface {
	// String renders the expression in a normalized XPath form for
	// diagnostics.
	String() string
}

// Op is a binary operator.
type Op int

const (
	// OpOr is logical disjunction.
	OpOr Op = iota
	// OpAnd is logical conjunction.
	OpAnd
	// OpEq is "=".
	OpEq
	// OpNe is "!=".
	OpNe
	// OpLt is "<".
	OpLt
	// OpLe is "<=".
	OpLe
	// OpGt is ">".
	OpGt
	// OpGe is ">=".
	OpGe
	// OpAdd is "+".
	OpAdd
	// OpSub is "-".
	OpSub
	// OpMul is "*".
	OpMul
	// OpDiv is "div".
	OpDiv
	// OpMod is "mod".
	OpMod
	// OpUnion is "|".
	OpUnion
)

// String returns the operator as written in expressions.
func (o Op) String() string {
	switch o {
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "div"
	case OpMod:
		return "mod"
	case OpUnion:
		return "|"
	default:
		return "?"
	}
}

// Binary applies a binary operator to two operands.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// Negate is unary minus.
type Negate struct {
	Operand Expr
}

func (n *Negate) String() string {
	return fmt.Sprintf("-(%s)", n.Operand)
}

// Number is a numeric literal.
type Number struct {
	Value float64
}

func (n *Number) String() string {
	return fmt.Sprintf("%g", n.Value)
}

// Literal is a string literal.
type Literal struct {
	Value string
}

func (l *Literal) String() string {
	return fmt.Sprintf("%q", l.Value)
}

// Variable references a bound variable.
type Variable struct {
	Prefix string
	Local  string
}

func (v *Variable) String() string {
	if v.Prefix != "" {
		return "$" + v.Prefix + ":" + v.Local
	}
	return "$" + v.Local
}

// Call invokes a function.
type Call struct {
	Prefix string
	Name   string
	Args   []Expr
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	name := c.Name
	if c.Prefix != "" {
		name = c.Prefix + ":" + c.Name
	}
	return name + "(" + strings.Join(args, ", ") + ")"
}

// Filter applies predicates to a primary expression.
type Filter struct {
	Primary    Expr
	Predicates []Expr
}

func (f *Filter) String() string {
	var sb strings.Builder
	sb.WriteString(f.Primary.String())
	for _, p := range f.Predicates {
		sb.WriteString("[" + p.String() + "]")
	}
	return sb.String()
}

// Path is a location path, optionally rooted at a filter expression
// (`$x/a`, `id("i")//b`). Input is nil for plain location paths.
type Path struct {
	Input    Expr
	Absolute bool
	Steps    []*Step
}

func (p *Path) String() string {
	var sb strings.Builder
	if p.Input != nil {
		sb.WriteString(p.Input.String())
	}
	if p.Absolute {
		sb.WriteString("/")
	}
	for i, s := range p.Steps {
		if i > 0 || (p.Input != nil && !p.Absolute) {
			sb.WriteString("/")
		}
		sb.WriteString(s.String())
	}
	if p.Absolute && len(p.Steps) == 0 {
		return "/"
	}
	return sb.String()
}

// Axis names the node relation a step traverses.
type Axis int

const (
	// AxisChild selects direct children.
	AxisChild Axis = iota
	// AxisDescendant selects the transitive closure of child.
	AxisDescendant
	// AxisParent selects the direct parent.
	AxisParent
	// AxisAncestor selects the transitive closure of parent.
	AxisAncestor
	// AxisFollowingSibling selects later siblings.
	AxisFollowingSibling
	// AxisPrecedingSibling selects earlier siblings.
	AxisPrecedingSibling
	// AxisFollowing selects nodes after the context node in document order.
	AxisFollowing
	// AxisPreceding selects nodes before the context node in document order.
	AxisPreceding
	// AxisAttribute selects attributes.
	AxisAttribute
	// AxisNamespace selects in-scope namespace nodes.
	AxisNamespace
	// AxisSelf selects the context node.
	AxisSelf
	// AxisDescendantOrSelf selects the node and its descendants.
	AxisDescendantOrSelf
	// AxisAncestorOrSelf selects the node and its ancestors.
	AxisAncestorOrSelf
)

var axisNames = map[string]Axis{
	"child":              AxisChild,
	"descendant":         AxisDescendant,
	"parent":             AxisParent,
	"ancestor":           AxisAncestor,
	"following-sibling":  AxisFollowingSibling,
	"preceding-sibling":  AxisPrecedingSibling,
	"following":          AxisFollowing,
	"preceding":          AxisPreceding,
	"attribute":          AxisAttribute,
	"namespace":          AxisNamespace,
	"self":               AxisSelf,
	"descendant-or-self": AxisDescendantOrSelf,
	"ancestor-or-self":   AxisAncestorOrSelf,
}

// String returns the axis name as written in expressions.
func (a Axis) String() string {
	for name, axis := range axisNames {
		if axis == a {
			return name
		}
	}
	return "unknown"
}

// Reverse reports whether the axis enumerates in reverse document order,
// which inverts proximity positions in predicates.
func (a Axis) Reverse() bool {
	switch a {
	case AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisPreceding, AxisPrecedingSibling:
		return true
	default:
		return false
	}
}

// TestKind classifies a step's node test.
type TestKind int

const (
	// TestName matches by expanded name; Local "*" matches any name on
	// the axis' principal node kind.
	TestName TestKind = iota
	// TestNode matches any node.
	TestNode
	// TestText matches text nodes.
	TestText
	// TestComment matches comment nodes.
	TestComment
	// TestProcessingInstruction matches processing instructions,
	// optionally by target.
	TestProcessingInstruction
)

// NodeTest selects which candidate nodes a step keeps.
type NodeTest struct {
	Kind   TestKind
	Prefix string
	Local  string
	Target string // processing-instruction target literal, "" for any
}

func (t NodeTest) String() string {
	switch t.Kind {
	case TestName:
		if t.Prefix != "" {
			return t.Prefix + ":" + t.Local
		}
		return t.Local
	case TestNode:
		return "node()"
	case TestText:
		return "text()"
	case TestComment:
		return "comment()"
	case TestProcessingInstruction:
		if t.Target != "" {
			return fmt.Sprintf("processing-instruction(%q)", t.Target)
		}
		return "processing-instruction()"
	default:
		return "?"
	}
}

// Step is a single location step: axis, node test, and predicates.
type Step struct {
	Axis       Axis
	Test       NodeTest
	Predicates []Expr
}

func (s *Step) String() string {
	var sb strings.Builder
	sb.WriteString(s.Axis.String())
	sb.WriteString("::")
	sb.WriteString(s.Test.String())
	for _, p := range s.Predicates {
		sb.WriteString("[" + p.String() + "]")
	}
	return sb.String()
}
