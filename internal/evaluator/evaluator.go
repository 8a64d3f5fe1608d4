// Package evaluator executes parsed XPath expressions against document
// trees.
package evaluator

import (
	"math"

	"github.com/jacoelho/xpath/errors"
	"github.com/jacoelho/xpath/internal/parser"
	"github.com/jacoelho/xpath/internal/tree"
)

// Context is the evaluation context: the context node and its proximity
// position within the context size.
type Context struct {
	Node     *tree.Node
	Position int
	Size     int
}

// Function is a callable bound into an evaluator. Arguments arrive
// already evaluated; MaxArgs of -1 accepts any number of arguments.
type Function struct {
	MinArgs int
	MaxArgs int
	Call    func(ctx *Context, args []Value) (Value, error)
}

// Options configures evaluator construction.
type Options struct {
	// Namespaces binds expression prefixes to namespace URIs.
	Namespaces map[string]string
	// Variables binds $name references. Prefixed variables are keyed
	// "{uri}local" after prefix resolution.
	Variables map[string]Value
	// Functions adds to or overrides the core function library.
	// Prefixed functions are keyed "{uri}local".
	Functions map[string]Function
}

// Evaluator executes one parsed expression. It is immutable and safe for
// concurrent use.
type Evaluator struct {
	text  string
	ast   parser.Expr
	ns    map[string]string
	vars  map[string]Value
	funcs map[string]Function
}

// New builds an evaluator, resolving every prefix, function, and variable
// the expression references. Unresolvable references fail here rather
// than at evaluation time.
func New(text string, ast parser.Expr, opts Options) (*Evaluator, error) {
	e := &Evaluator{
		text:  text,
		ast:   ast,
		ns:    opts.Namespaces,
		vars:  opts.Variables,
		funcs: opts.Functions,
	}
	if err := e.check(ast); err != nil {
		return nil, err
	}
	return e, nil
}

// Evaluate runs the expression with n as the context node.
func (e *Evaluator) Evaluate(n *tree.Node) (Value, error) {
	return e.eval(&Context{Node: n, Position: 1, Size: 1}, e.ast)
}

func (e *Evaluator) resolvePrefix(prefix string) (string, error) {
	if prefix == "" {
		return "", nil
	}
	if prefix == "xml" {
		return tree.XMLNamespace, nil
	}
	if uri, ok := e.ns[prefix]; ok {
		return uri, nil
	}
	return "", errors.Newf(errors.ErrUnboundPrefix, "prefix %q is not bound to a namespace", prefix).
		WithExpression(e.text)
}

func (e *Evaluator) expandedName(prefix, local string) (string, error) {
	if prefix == "" {
		return local, nil
	}
	uri, err := e.resolvePrefix(prefix)
	if err != nil {
		return "", err
	}
	return "{" + uri + "}" + local, nil
}

// check walks the AST and validates every external reference.
func (e *Evaluator) check(x parser.Expr) error {
	switch t := x.(type) {
	case *parser.Number, *parser.Literal:
		return nil
	case *parser.Variable:
		key, err := e.expandedName(t.Prefix, t.Local)
		if err != nil {
			return err
		}
		if _, ok := e.vars[key]; !ok {
			return errors.Newf(errors.ErrUnknownVariable, "variable %s is not bound", t).
				WithExpression(e.text)
		}
		return nil
	case *parser.Negate:
		return e.check(t.Operand)
	case *parser.Binary:
		if err := e.check(t.Left); err != nil {
			return err
		}
		return e.check(t.Right)
	case *parser.Call:
		fn, err := e.lookupFunction(t)
		if err != nil {
			return err
		}
		if len(t.Args) < fn.MinArgs || (fn.MaxArgs >= 0 && len(t.Args) > fn.MaxArgs) {
			return errors.Newf(errors.ErrArity, "%s() called with %d arguments", t.Name, len(t.Args)).
				WithExpression(e.text)
		}
		for _, a := range t.Args {
			if err := e.check(a); err != nil {
				return err
			}
		}
		return nil
	case *parser.Filter:
		if err := e.check(t.Primary); err != nil {
			return err
		}
		for _, p := range t.Predicates {
			if err := e.check(p); err != nil {
				return err
			}
		}
		return nil
	case *parser.Path:
		if t.Input != nil {
			if err := e.check(t.Input); err != nil {
				return err
			}
		}
		for _, s := range t.Steps {
			if s.Test.Kind == parser.TestName {
				if _, err := e.resolvePrefix(s.Test.Prefix); err != nil {
					return err
				}
			}
			for _, p := range s.Predicates {
				if err := e.check(p); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return errors.Newf(errors.ErrSyntax, "unsupported expression node %T", x)
	}
}

func (e *Evaluator) lookupFunction(c *parser.Call) (Function, error) {
	key, err := e.expandedName(c.Prefix, c.Name)
	if err != nil {
		return Function{}, err
	}
	if fn, ok := e.funcs[key]; ok {
		return fn, nil
	}
	if c.Prefix == "" {
		if fn, ok := coreFunctions[c.Name]; ok {
			return fn, nil
		}
	}
	return Function{}, errors.Newf(errors.ErrUnknownFunction, "unknown function %s()", key).
		WithExpression(e.text)
}

func (e *Evaluator) eval(ctx *Context, x parser.Expr) (Value, error) {
	switch t := x.(type) {
	case *parser.Number:
		return t.Value, nil
	case *parser.Literal:
		return t.Value, nil
	case *parser.Variable:
		key, err := e.expandedName(t.Prefix, t.Local)
		if err != nil {
			return nil, err
		}
		return e.vars[key], nil
	case *parser.Negate:
		v, err := e.eval(ctx, t.Operand)
		if err != nil {
			return nil, err
		}
		return -ToNumber(v), nil
	case *parser.Binary:
		return e.evalBinary(ctx, t)
	case *parser.Call:
		return e.evalCall(ctx, t)
	case *parser.Filter:
		return e.evalFilter(ctx, t)
	case *parser.Path:
		return e.evalPath(ctx, t)
	default:
		return nil, errors.Newf(errors.ErrSyntax, "unsupported expression node %T", x)
	}
}

func (e *Evaluator) evalBinary(ctx *Context, b *parser.Binary) (Value, error) {
	switch b.Op {
	case parser.OpOr, parser.OpAnd:
		left, err := e.eval(ctx, b.Left)
		if err != nil {
			return nil, err
		}
		lv := ToBoolean(left)
		if b.Op == parser.OpOr && lv {
			return true, nil
		}
		if b.Op == parser.OpAnd && !lv {
			return false, nil
		}
		right, err := e.eval(ctx, b.Right)
		if err != nil {
			return nil, err
		}
		return ToBoolean(right), nil
	}

	left, err := e.eval(ctx, b.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(ctx, b.Right)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case parser.OpEq, parser.OpNe, parser.OpLt, parser.OpLe, parser.OpGt, parser.OpGe:
		return compare(b.Op, left, right), nil
	case parser.OpAdd:
		return ToNumber(left) + ToNumber(right), nil
	case parser.OpSub:
		return ToNumber(left) - ToNumber(right), nil
	case parser.OpMul:
		return ToNumber(left) * ToNumber(right), nil
	case parser.OpDiv:
		return ToNumber(left) / ToNumber(right), nil
	case parser.OpMod:
		return math.Mod(ToNumber(left), ToNumber(right)), nil
	case parser.OpUnion:
		ls, lok := left.(NodeSet)
		rs, rok := right.(NodeSet)
		if !lok || !rok {
			return nil, errors.Newf(errors.ErrType, "union requires node-sets, got %s and %s",
				TypeName(left), TypeName(right)).WithExpression(e.text)
		}
		merged := make([]*tree.Node, 0, len(ls)+len(rs))
		merged = append(merged, ls...)
		merged = append(merged, rs...)
		return sortUnique(merged), nil
	default:
		return nil, errors.Newf(errors.ErrSyntax, "unsupported operator %s", b.Op)
	}
}

// compare implements the XPath 1.0 comparison rules: node-sets compare
// existentially, equality falls back boolean > number > string, and the
// relational operators always compare numbers.
func compare(op parser.Op, left, right Value) bool {
	ls, lIsSet := left.(NodeSet)
	rs, rIsSet := right.(NodeSet)

	switch {
	case lIsSet && rIsSet:
		for _, a := range ls {
			for _, b := range rs {
				if comparePrimitive(op, a.StringValue(), b.StringValue()) {
					return true
				}
			}
		}
		return false
	case lIsSet:
		if _, ok := right.(bool); ok {
			return comparePrimitive(op, ToBoolean(left), right)
		}
		for _, a := range ls {
			if comparePrimitive(op, a.StringValue(), right) {
				return true
			}
		}
		return false
	case rIsSet:
		if _, ok := left.(bool); ok {
			return comparePrimitive(op, left, ToBoolean(right))
		}
		for _, b := range rs {
			if comparePrimitive(op, left, b.StringValue()) {
				return true
			}
		}
		return false
	default:
		return comparePrimitive(op, left, right)
	}
}

func comparePrimitive(op parser.Op, left, right Value) bool {
	switch op {
	case parser.OpEq, parser.OpNe:
		eq := primitiveEqual(left, right)
		if op == parser.OpNe {
			return !eq
		}
		return eq
	default:
		l, r := ToNumber(left), ToNumber(right)
		switch op {
		case parser.OpLt:
			return l < r
		case parser.OpLe:
			return l <= r
		case parser.OpGt:
			return l > r
		case parser.OpGe:
			return l >= r
		default:
			return false
		}
	}
}

func primitiveEqual(left, right Value) bool {
	if _, ok := left.(bool); ok {
		return ToBoolean(left) == ToBoolean(right)
	}
	if _, ok := right.(bool); ok {
		return ToBoolean(left) == ToBoolean(right)
	}
	if _, ok := left.(float64); ok {
		return ToNumber(left) == ToNumber(right)
	}
	if _, ok := right.(float64); ok {
		return ToNumber(left) == ToNumber(right)
	}
	return ToString(left) == ToString(right)
}

func (e *Evaluator) evalCall(ctx *Context, c *parser.Call) (Value, error) {
	fn, err := e.lookupFunction(c)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := e.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, err := fn.Call(ctx, args)
	if err != nil {
		if q, ok := errors.AsQuery(err); ok && q.Expression == "" {
			return nil, q.WithExpression(e.text)
		}
		return nil, err
	}
	return out, nil
}

func (e *Evaluator) evalFilter(ctx *Context, f *parser.Filter) (Value, error) {
	primary, err := e.eval(ctx, f.Primary)
	if err != nil {
		return nil, err
	}
	set, ok := primary.(NodeSet)
	if !ok {
		return nil, errors.Newf(errors.ErrType, "predicate applied to %s, expected node-set",
			TypeName(primary)).WithExpression(e.text)
	}
	return e.applyPredicates(set, f.Predicates)
}

func (e *Evaluator) evalPath(ctx *Context, p *parser.Path) (Value, error) {
	var current NodeSet
	switch {
	case p.Input != nil:
		v, err := e.eval(ctx, p.Input)
		if err != nil {
			return nil, err
		}
		set, ok := v.(NodeSet)
		if !ok {
			return nil, errors.Newf(errors.ErrType, "path applied to %s, expected node-set",
				TypeName(v)).WithExpression(e.text)
		}
		current = set
	case p.Absolute:
		current = NodeSet{ctx.Node.Root()}
	default:
		current = NodeSet{ctx.Node}
	}

	for _, step := range p.Steps {
		testNS, err := e.resolvePrefix(step.Test.Prefix)
		if err != nil {
			return nil, err
		}

		var merged []*tree.Node
		for _, n := range current {
			candidates := e.stepCandidates(step, testNS, n)
			filtered, err := e.applyPredicates(candidates, step.Predicates)
			if err != nil {
				return nil, err
			}
			merged = append(merged, filtered...)
		}
		current = sortUnique(merged)
	}
	return current, nil
}

func (e *Evaluator) stepCandidates(step *parser.Step, testNS string, n *tree.Node) NodeSet {
	var out NodeSet
	for _, c := range axisNodes(step.Axis, n) {
		if matchTest(step.Axis, step.Test, testNS, c) {
			out = append(out, c)
		}
	}
	return out
}

// applyPredicates filters a candidate list predicate by predicate. The
// candidates arrive in proximity order, so position() counts the axis
// direction; a numeric predicate selects by position.
func (e *Evaluator) applyPredicates(candidates NodeSet, predicates []parser.Expr) (NodeSet, error) {
	for _, pred := range predicates {
		var kept NodeSet
		size := len(candidates)
		for i, n := range candidates {
			v, err := e.eval(&Context{Node: n, Position: i + 1, Size: size}, pred)
			if err != nil {
				return nil, err
			}
			if num, ok := v.(float64); ok {
				if float64(i+1) == num {
					kept = append(kept, n)
				}
				continue
			}
			if ToBoolean(v) {
				kept = append(kept, n)
			}
		}
		candidates = kept
	}
	return candidates, nil
}
