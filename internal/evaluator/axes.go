package evaluator

import (
	"sort"

	"github.com/jacoelho/xpath/internal/parser"
	"github.com/jacoelho/xpath/internal/tree"
)

// axisNodes enumerates the nodes an axis reaches from n, in proximity
// order: forward axes yield document order, reverse axes yield reverse
// document order so positional predicates count outward from n.
func axisNodes(axis parser.Axis, n *tree.Node) []*tree.Node {
	switch axis {
	case parser.AxisSelf:
		return []*tree.Node{n}

	case parser.AxisChild:
		var out []*tree.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out = append(out, c)
		}
		return out

	case parser.AxisDescendant:
		var out []*tree.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			out = appendSubtree(out, c)
		}
		return out

	case parser.AxisDescendantOrSelf:
		return appendSubtree(nil, n)

	case parser.AxisParent:
		if n.Parent == nil {
			return nil
		}
		return []*tree.Node{n.Parent}

	case parser.AxisAncestor:
		var out []*tree.Node
		for a := n.Parent; a != nil; a = a.Parent {
			out = append(out, a)
		}
		return out

	case parser.AxisAncestorOrSelf:
		var out []*tree.Node
		for a := n; a != nil; a = a.Parent {
			out = append(out, a)
		}
		return out

	case parser.AxisFollowingSibling:
		if n.Kind == tree.AttributeNode || n.Kind == tree.NamespaceNode {
			return nil
		}
		var out []*tree.Node
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			out = append(out, s)
		}
		return out

	case parser.AxisPrecedingSibling:
		if n.Kind == tree.AttributeNode || n.Kind == tree.NamespaceNode {
			return nil
		}
		var out []*tree.Node
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			out = append(out, s)
		}
		return out

	case parser.AxisFollowing:
		var out []*tree.Node
		start := n
		if n.Kind == tree.AttributeNode || n.Kind == tree.NamespaceNode {
			start = n.Parent
		}
		for a := start; a != nil; a = a.Parent {
			for s := a.NextSibling; s != nil; s = s.NextSibling {
				out = appendSubtree(out, s)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
		return out

	case parser.AxisPreceding:
		var out []*tree.Node
		start := n
		if n.Kind == tree.AttributeNode || n.Kind == tree.NamespaceNode {
			start = n.Parent
		}
		for a := start; a != nil; a = a.Parent {
			for s := a.PrevSibling; s != nil; s = s.PrevSibling {
				out = appendSubtree(out, s)
			}
		}
		// reverse axis: nearest node first
		sort.SliceStable(out, func(i, j int) bool { return out[i].Pos > out[j].Pos })
		return out

	case parser.AxisAttribute:
		if n.Kind != tree.ElementNode {
			return nil
		}
		out := make([]*tree.Node, len(n.Attrs))
		copy(out, n.Attrs)
		return out

	case parser.AxisNamespace:
		return n.InScopeNamespaces()

	default:
		return nil
	}
}

// appendSubtree appends n and its descendants in document order.
// Attribute and namespace nodes are not descendants.
func appendSubtree(out []*tree.Node, n *tree.Node) []*tree.Node {
	out = append(out, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = appendSubtree(out, c)
	}
	return out
}

// principalKind is the node kind a name test matches on an axis.
func principalKind(axis parser.Axis) tree.Kind {
	switch axis {
	case parser.AxisAttribute:
		return tree.AttributeNode
	case parser.AxisNamespace:
		return tree.NamespaceNode
	default:
		return tree.ElementNode
	}
}

// matchTest reports whether a node passes a step's node test. Name-test
// prefixes were resolved to URIs at compile time.
func matchTest(axis parser.Axis, test parser.NodeTest, testNS string, n *tree.Node) bool {
	switch test.Kind {
	case parser.TestNode:
		return true
	case parser.TestText:
		return n.Kind == tree.TextNode
	case parser.TestComment:
		return n.Kind == tree.CommentNode
	case parser.TestProcessingInstruction:
		if n.Kind != tree.ProcessingInstructionNode {
			return false
		}
		return test.Target == "" || n.Local == test.Target
	case parser.TestName:
		if n.Kind != principalKind(axis) {
			return false
		}
		if n.Kind == tree.NamespaceNode {
			// namespace nodes have no expanded namespace; match on prefix
			return test.Local == "*" || n.Local == test.Local
		}
		if test.Local != "*" && n.Local != test.Local {
			return false
		}
		if test.Prefix == "" {
			// an unprefixed name test means the null namespace; a bare *
			// matches any name
			return test.Local == "*" || n.Namespace == ""
		}
		return n.Namespace == testNS
	default:
		return false
	}
}

// nsIdentity identifies a namespace node across axis steps. Namespace
// nodes are synthesized per step, so pointer identity cannot recognize
// the same binding twice; the owning element and prefix can.
type nsIdentity struct {
	parent *tree.Node
	prefix string
}

// sortUnique sorts nodes into document order and removes duplicates.
func sortUnique(nodes []*tree.Node) NodeSet {
	if len(nodes) < 2 {
		return nodes
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Pos < nodes[j].Pos })
	seen := make(map[*tree.Node]bool, len(nodes))
	seenNS := make(map[nsIdentity]bool)
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind == tree.NamespaceNode {
			id := nsIdentity{parent: n.Parent, prefix: n.Local}
			if seenNS[id] {
				continue
			}
			seenNS[id] = true
		} else {
			if seen[n] {
				continue
			}
			seen[n] = true
		}
		out = append(out, n)
	}
	return out
}
