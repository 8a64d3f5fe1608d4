package evaluator

import (
	"math"
	"strings"

	"github.com/jacoelho/xpath/errors"
	"github.com/jacoelho/xpath/internal/tree"
)

// coreFunctions is the XPath 1.0 core function library.
var coreFunctions map[string]Function

func init() {
	coreFunctions = map[string]Function{
		"last":     {0, 0, fnLast},
		"position": {0, 0, fnPosition},
		"count":    {1, 1, fnCount},
		"id":       {1, 1, fnID},

		"local-name":    {0, 1, fnLocalName},
		"namespace-uri": {0, 1, fnNamespaceURI},
		"name":          {0, 1, fnName},

		"string":           {0, 1, fnString},
		"concat":           {2, -1, fnConcat},
		"starts-with":      {2, 2, fnStartsWith},
		"contains":         {2, 2, fnContains},
		"substring-before": {2, 2, fnSubstringBefore},
		"substring-after":  {2, 2, fnSubstringAfter},
		"substring":        {2, 3, fnSubstring},
		"string-length":    {0, 1, fnStringLength},
		"normalize-space":  {0, 1, fnNormalizeSpace},
		"translate":        {3, 3, fnTranslate},

		"boolean": {1, 1, fnBoolean},
		"not":     {1, 1, fnNot},
		"true":    {0, 0, fnTrue},
		"false":   {0, 0, fnFalse},
		"lang":    {1, 1, fnLang},

		"number":  {0, 1, fnNumber},
		"sum":     {1, 1, fnSum},
		"floor":   {1, 1, fnFloor},
		"ceiling": {1, 1, fnCeiling},
		"round":   {1, 1, fnRound},
	}
}

// contextString is the string() of the context node, used by the
// functions that default a missing argument to the context node.
func contextString(ctx *Context, args []Value) string {
	if len(args) == 0 {
		return ctx.Node.StringValue()
	}
	return ToString(args[0])
}

// contextNode resolves the optional node-set argument of the name
// functions to a single node, nil for an empty set.
func contextNode(ctx *Context, args []Value) (*tree.Node, error) {
	if len(args) == 0 {
		return ctx.Node, nil
	}
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, errors.Newf(errors.ErrType, "expected node-set argument, got %s", TypeName(args[0]))
	}
	if len(set) == 0 {
		return nil, nil
	}
	return set[0], nil
}

func fnLast(ctx *Context, _ []Value) (Value, error) {
	return float64(ctx.Size), nil
}

func fnPosition(ctx *Context, _ []Value) (Value, error) {
	return float64(ctx.Position), nil
}

func fnCount(_ *Context, args []Value) (Value, error) {
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, errors.Newf(errors.ErrType, "count() expects a node-set, got %s", TypeName(args[0]))
	}
	return float64(len(set)), nil
}

// fnID resolves ID references against attributes named id or xml:id.
// Documents are parsed without DTDs, so attribute types are unavailable
// and those two names stand in for ID-typed attributes.
func fnID(ctx *Context, args []Value) (Value, error) {
	wanted := map[string]bool{}
	switch arg := args[0].(type) {
	case NodeSet:
		for _, n := range arg {
			for _, token := range strings.Fields(n.StringValue()) {
				wanted[token] = true
			}
		}
	default:
		for _, token := range strings.Fields(ToString(args[0])) {
			wanted[token] = true
		}
	}

	var out NodeSet
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		if n.Kind == tree.ElementNode {
			if v, ok := n.Attribute("", "id"); ok && wanted[v] {
				out = append(out, n)
			} else if v, ok := n.Attribute(tree.XMLNamespace, "id"); ok && wanted[v] {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(ctx.Node.Root())
	return out, nil
}

func fnLocalName(ctx *Context, args []Value) (Value, error) {
	n, err := contextNode(ctx, args)
	if err != nil || n == nil {
		return "", err
	}
	switch n.Kind {
	case tree.ElementNode, tree.AttributeNode, tree.ProcessingInstructionNode, tree.NamespaceNode:
		return n.Local, nil
	default:
		return "", nil
	}
}

func fnNamespaceURI(ctx *Context, args []Value) (Value, error) {
	n, err := contextNode(ctx, args)
	if err != nil || n == nil {
		return "", err
	}
	return n.Namespace, nil
}

func fnName(ctx *Context, args []Value) (Value, error) {
	n, err := contextNode(ctx, args)
	if err != nil || n == nil {
		return "", err
	}
	switch n.Kind {
	case tree.ElementNode, tree.AttributeNode:
		return n.Name(), nil
	case tree.ProcessingInstructionNode, tree.NamespaceNode:
		return n.Local, nil
	default:
		return "", nil
	}
}

func fnString(ctx *Context, args []Value) (Value, error) {
	return contextString(ctx, args), nil
}

func fnConcat(_ *Context, args []Value) (Value, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(ToString(a))
	}
	return sb.String(), nil
}

func fnStartsWith(_ *Context, args []Value) (Value, error) {
	return strings.HasPrefix(ToString(args[0]), ToString(args[1])), nil
}

func fnContains(_ *Context, args []Value) (Value, error) {
	return strings.Contains(ToString(args[0]), ToString(args[1])), nil
}

func fnSubstringBefore(_ *Context, args []Value) (Value, error) {
	s, sep := ToString(args[0]), ToString(args[1])
	before, _, found := strings.Cut(s, sep)
	if !found {
		return "", nil
	}
	return before, nil
}

func fnSubstringAfter(_ *Context, args []Value) (Value, error) {
	s, sep := ToString(args[0]), ToString(args[1])
	_, after, found := strings.Cut(s, sep)
	if !found {
		return "", nil
	}
	return after, nil
}

// fnSubstring counts character positions from one and applies the XPath
// rounding rules, so fractional and infinite boundaries behave.
func fnSubstring(_ *Context, args []Value) (Value, error) {
	runes := []rune(ToString(args[0]))
	start := xpathRound(ToNumber(args[1]))
	if math.IsNaN(start) {
		return "", nil
	}

	end := math.Inf(1)
	if len(args) == 3 {
		length := xpathRound(ToNumber(args[2]))
		if math.IsNaN(length) {
			return "", nil
		}
		end = start + length
	}

	var sb strings.Builder
	for i, r := range runes {
		p := float64(i + 1)
		if p >= start && p < end {
			sb.WriteRune(r)
		}
	}
	return sb.String(), nil
}

func fnStringLength(ctx *Context, args []Value) (Value, error) {
	return float64(len([]rune(contextString(ctx, args)))), nil
}

func fnNormalizeSpace(ctx *Context, args []Value) (Value, error) {
	return strings.Join(strings.Fields(contextString(ctx, args)), " "), nil
}

func fnTranslate(_ *Context, args []Value) (Value, error) {
	src := ToString(args[0])
	from := []rune(ToString(args[1]))
	to := []rune(ToString(args[2]))

	replace := make(map[rune]rune, len(from))
	remove := make(map[rune]bool)
	for i, r := range from {
		if _, seen := replace[r]; seen || remove[r] {
			continue
		}
		if i < len(to) {
			replace[r] = to[i]
		} else {
			remove[r] = true
		}
	}

	var sb strings.Builder
	for _, r := range src {
		if remove[r] {
			continue
		}
		if repl, ok := replace[r]; ok {
			sb.WriteRune(repl)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

func fnBoolean(_ *Context, args []Value) (Value, error) {
	return ToBoolean(args[0]), nil
}

func fnNot(_ *Context, args []Value) (Value, error) {
	return !ToBoolean(args[0]), nil
}

func fnTrue(_ *Context, _ []Value) (Value, error) {
	return true, nil
}

func fnFalse(_ *Context, _ []Value) (Value, error) {
	return false, nil
}

// fnLang tests the xml:lang in scope at the context node, matching
// case-insensitively and treating the argument as a language range
// prefix, so lang("en") accepts xml:lang="en-US".
func fnLang(ctx *Context, args []Value) (Value, error) {
	want := strings.ToLower(ToString(args[0]))
	for n := ctx.Node; n != nil; n = n.Parent {
		if n.Kind != tree.ElementNode {
			continue
		}
		v, ok := n.Attribute(tree.XMLNamespace, "lang")
		if !ok {
			continue
		}
		lang := strings.ToLower(v)
		return lang == want || strings.HasPrefix(lang, want+"-"), nil
	}
	return false, nil
}

func fnNumber(ctx *Context, args []Value) (Value, error) {
	if len(args) == 0 {
		return ToNumber(ctx.Node.StringValue()), nil
	}
	return ToNumber(args[0]), nil
}

func fnSum(_ *Context, args []Value) (Value, error) {
	set, ok := args[0].(NodeSet)
	if !ok {
		return nil, errors.Newf(errors.ErrType, "sum() expects a node-set, got %s", TypeName(args[0]))
	}
	total := 0.0
	for _, n := range set {
		total += ToNumber(n.StringValue())
	}
	return total, nil
}

func fnFloor(_ *Context, args []Value) (Value, error) {
	return math.Floor(ToNumber(args[0])), nil
}

func fnCeiling(_ *Context, args []Value) (Value, error) {
	return math.Ceil(ToNumber(args[0])), nil
}

func fnRound(_ *Context, args []Value) (Value, error) {
	return xpathRound(ToNumber(args[0])), nil
}

// xpathRound rounds half toward positive infinity, per the round() rules.
func xpathRound(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return math.Floor(f + 0.5)
}
