package xpath

import (
	"fmt"

	"github.com/jacoelho/xpath/errors"
	"github.com/jacoelho/xpath/internal/evaluator"
	"github.com/jacoelho/xpath/internal/parser"
)

// Expr is a compiled expression. It is immutable and safe for concurrent
// use by multiple goroutines.
type Expr struct {
	text string
	eval *evaluator.Evaluator
}

// Function is a custom function callable from expressions. Arguments
// arrive already evaluated; node-set arguments are passed as []*Node.
type Function func(args []any) (any, error)

// CompileOption configures expression compilation.
type CompileOption interface{ apply(*compileOptions) }

type compileOptions struct {
	namespaces map[string]string
	variables  map[string]any
	functions  map[string]evaluator.Function
}

type compileOptionFunc func(*compileOptions)

func (f compileOptionFunc) apply(cfg *compileOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

// WithNamespaces binds expression prefixes to namespace URIs.
func WithNamespaces(ns map[string]string) CompileOption {
	return compileOptionFunc(func(cfg *compileOptions) {
		if cfg.namespaces == nil {
			cfg.namespaces = make(map[string]string, len(ns))
		}
		for prefix, uri := range ns {
			cfg.namespaces[prefix] = uri
		}
	})
}

// WithNamespace binds a single expression prefix to a namespace URI.
func WithNamespace(prefix, uri string) CompileOption {
	return WithNamespaces(map[string]string{prefix: uri})
}

// WithVariables binds values referenced as $name. Prefixed variables are
// keyed "{uri}local".
func WithVariables(vars map[string]any) CompileOption {
	return compileOptionFunc(func(cfg *compileOptions) {
		if cfg.variables == nil {
			cfg.variables = make(map[string]any, len(vars))
		}
		for name, value := range vars {
			cfg.variables[name] = value
		}
	})
}

// WithVariable binds a single variable.
func WithVariable(name string, value any) CompileOption {
	return WithVariables(map[string]any{name: value})
}

// WithFunction registers a custom function. A maxArgs of -1 accepts any
// number of arguments. Prefixed functions are keyed "{uri}local".
func WithFunction(name string, minArgs, maxArgs int, fn Function) CompileOption {
	return compileOptionFunc(func(cfg *compileOptions) {
		if cfg.functions == nil {
			cfg.functions = make(map[string]evaluator.Function)
		}
		cfg.functions[name] = evaluator.Function{
			MinArgs: minArgs,
			MaxArgs: maxArgs,
			Call: func(_ *evaluator.Context, args []evaluator.Value) (evaluator.Value, error) {
				converted := make([]any, len(args))
				for i, a := range args {
					converted[i] = fromValue(a)
				}
				out, err := fn(converted)
				if err != nil {
					return nil, err
				}
				return toValue(out)
			},
		}
	})
}

// Compile parses and validates an expression. Unbound namespace prefixes,
// unknown functions, and unbound variables are reported here, not at
// evaluation time.
func Compile(expr string, opts ...CompileOption) (*Expr, error) {
	var cfg compileOptions
	for _, o := range opts {
		o.apply(&cfg)
	}

	ast, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}

	vars := make(map[string]evaluator.Value, len(cfg.variables))
	for name, value := range cfg.variables {
		v, err := toValue(value)
		if err != nil {
			return nil, fmt.Errorf("compile %q: variable $%s: %w", expr, name, err)
		}
		vars[name] = v
	}

	eval, err := evaluator.New(expr, ast, evaluator.Options{
		Namespaces: cfg.namespaces,
		Variables:  vars,
		Functions:  cfg.functions,
	})
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return &Expr{text: expr, eval: eval}, nil
}

// MustCompile is Compile for expressions known to be valid; it panics on
// error.
func MustCompile(expr string, opts ...CompileOption) *Expr {
	e, err := Compile(expr, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the expression source text.
func (e *Expr) String() string {
	return e.text
}

// Evaluate runs the expression with n as the context node.
func (e *Expr) Evaluate(n *Node) (Result, error) {
	v, err := e.eval.Evaluate(n)
	if err != nil {
		return Result{}, err
	}
	return Result{value: v}, nil
}

// Select evaluates the expression and returns the resulting node-set in
// document order. Expressions yielding other types are an error.
func (e *Expr) Select(n *Node) ([]*Node, error) {
	r, err := e.Evaluate(n)
	if err != nil {
		return nil, err
	}
	if r.Type() != NodeSetResult {
		return nil, errors.Newf(errors.ErrType, "expression %q yields a %s, not a node-set", e.text, r.Type())
	}
	return r.Nodes(), nil
}

// First evaluates the expression and returns the first matching node in
// document order, or nil when nothing matches.
func (e *Expr) First(n *Node) (*Node, error) {
	nodes, err := e.Select(n)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

// toValue normalizes caller-supplied values to the evaluator's value
// types.
func toValue(v any) (evaluator.Value, error) {
	switch x := v.(type) {
	case nil:
		return evaluator.NodeSet(nil), nil
	case bool, string, float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case *Node:
		return evaluator.NodeSet{x}, nil
	case []*Node:
		return evaluator.NodeSet(x), nil
	case evaluator.NodeSet:
		return x, nil
	case Result:
		return x.value, nil
	default:
		return nil, errors.Newf(errors.ErrType, "unsupported value type %T", v)
	}
}

// fromValue maps evaluator values to the types custom functions see.
func fromValue(v evaluator.Value) any {
	if set, ok := v.(evaluator.NodeSet); ok {
		return []*Node(set)
	}
	return v
}
