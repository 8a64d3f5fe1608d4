package xpath

// Query compiles and evaluates an expression in one call. The namespace
// map binds expression prefixes; it may be nil for prefix-free
// expressions.
func Query(n *Node, expr string, namespaces map[string]string) (Result, error) {
	compiled, err := Compile(expr, WithNamespaces(namespaces))
	if err != nil {
		return Result{}, err
	}
	return compiled.Evaluate(n)
}

// Find returns the first node matching the expression in document order,
// or nil when nothing matches.
func Find(n *Node, expr string, namespaces map[string]string) (*Node, error) {
	compiled, err := Compile(expr, WithNamespaces(namespaces))
	if err != nil {
		return nil, err
	}
	return compiled.First(n)
}

// FindAll returns every node matching the expression in document order.
func FindAll(n *Node, expr string, namespaces map[string]string) ([]*Node, error) {
	compiled, err := Compile(expr, WithNamespaces(namespaces))
	if err != nil {
		return nil, err
	}
	return compiled.Select(n)
}

// FindText returns the string-value of the first matching node, or ""
// when nothing matches.
func FindText(n *Node, expr string, namespaces map[string]string) (string, error) {
	match, err := Find(n, expr, namespaces)
	if err != nil {
		return "", err
	}
	if match == nil {
		return "", nil
	}
	return match.StringValue(), nil
}
