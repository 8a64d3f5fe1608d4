// Package tree implements the document model queried by XPath
// expressions: a linked tree of the seven XPath node kinds with
// document-order numbering and namespace scoping.
package tree

import "strings"

// Kind classifies nodes in the document tree.
type Kind int

const (
	// DocumentNode is the root of a parsed document.
	DocumentNode Kind = iota
	// ElementNode is an element.
	ElementNode
	// AttributeNode is an attribute; its parent is the owning element but
	// it is not part of the element's child list.
	AttributeNode
	// TextNode holds character data.
	TextNode
	// CommentNode holds a comment.
	CommentNode
	// ProcessingInstructionNode holds a processing instruction.
	ProcessingInstructionNode
	// NamespaceNode is a synthesized in-scope namespace binding.
	NamespaceNode
)

// String returns the node kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case DocumentNode:
		return "document"
	case ElementNode:
		return "element"
	case AttributeNode:
		return "attribute"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case ProcessingInstructionNode:
		return "processing-instruction"
	case NamespaceNode:
		return "namespace"
	default:
		return "unknown"
	}
}

// Node is a node in the document tree. Nodes are immutable after parsing;
// a parsed tree is safe for concurrent readers.
type Node struct {
	Kind Kind

	// Namespace is the expanded-name namespace URI; empty for no namespace.
	// Prefix is the prefix used in the source document, kept for
	// diagnostics and serialization. Local is the local part.
	// For processing instructions Local holds the target. For namespace
	// nodes Local holds the bound prefix and Data the URI.
	Namespace string
	Prefix    string
	Local     string

	// Data holds character data, comment text, processing instruction
	// content, or an attribute value.
	Data string

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	PrevSibling *Node
	NextSibling *Node

	// Attrs are the attribute nodes of an element, in document order.
	// Namespace declarations are recorded in decls, not here.
	Attrs []*Node

	// decls are the xmlns declarations appearing on this element.
	decls []Binding

	// Pos is the document-order position assigned at parse time.
	// Synthesized namespace nodes reuse their parent element's position.
	Pos int
}

// Binding is a prefix to namespace URI binding.
type Binding struct {
	Prefix string
	URI    string
}

// Name returns the node name as written in the source, prefix included.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Local
	}
	return n.Local
}

// Root returns the document node of the tree containing n.
func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// DocumentElement returns the root element of the document containing n,
// or nil for a tree with no element children.
func (n *Node) DocumentElement() *Node {
	root := n.Root()
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == ElementNode {
			return c
		}
	}
	return nil
}

// StringValue returns the XPath string-value of the node: concatenated
// descendant text for documents and elements, the value for attributes,
// character data for text, comments, and processing instructions, and
// the bound URI for namespace nodes.
func (n *Node) StringValue() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case DocumentNode, ElementNode:
		var sb strings.Builder
		n.collectText(&sb)
		return sb.String()
	case AttributeNode, TextNode, CommentNode, ProcessingInstructionNode:
		return n.Data
	case NamespaceNode:
		return n.Data
	default:
		return ""
	}
}

func (n *Node) collectText(sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Kind {
		case TextNode:
			sb.WriteString(c.Data)
		case ElementNode:
			c.collectText(sb)
		}
	}
}

// Children returns the element children of n.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Attribute returns the value of the attribute with the given namespace
// URI and local name, and whether it is present.
func (n *Node) Attribute(ns, local string) (string, bool) {
	if n == nil || n.Kind != ElementNode {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Namespace == ns && a.Local == local {
			return a.Data, true
		}
	}
	return "", false
}

// InScopeNamespaces synthesizes the namespace nodes in scope at an
// element: its own declarations, those inherited from ancestors, and the
// implicit xml binding. An empty-URI shadow of the default namespace
// undeclares it.
func (n *Node) InScopeNamespaces() []*Node {
	if n == nil || n.Kind != ElementNode {
		return nil
	}

	seen := map[string]bool{}
	var out []*Node
	add := func(prefix, uri string) {
		if seen[prefix] {
			return
		}
		seen[prefix] = true
		if uri == "" && prefix == "" {
			return // undeclared default namespace
		}
		out = append(out, &Node{
			Kind:   NamespaceNode,
			Local:  prefix,
			Data:   uri,
			Parent: n,
			Pos:    n.Pos,
		})
	}

	for e := n; e != nil && e.Kind == ElementNode; e = e.Parent {
		for _, d := range e.decls {
			add(d.Prefix, d.URI)
		}
	}
	add("xml", XMLNamespace)
	return out
}

// LookupNamespace resolves a prefix against the declarations in scope at
// n. The empty prefix resolves the default namespace.
func (n *Node) LookupNamespace(prefix string) (string, bool) {
	if prefix == "xml" {
		return XMLNamespace, true
	}
	for e := n; e != nil; e = e.Parent {
		if e.Kind != ElementNode {
			continue
		}
		for _, d := range e.decls {
			if d.Prefix == prefix {
				return d.URI, d.URI != ""
			}
		}
	}
	return "", false
}

// LookupPrefix finds a prefix bound to the given URI in scope at n.
func (n *Node) LookupPrefix(uri string) (string, bool) {
	seen := map[string]bool{}
	for e := n; e != nil; e = e.Parent {
		if e.Kind != ElementNode {
			continue
		}
		for _, d := range e.decls {
			if seen[d.Prefix] {
				continue
			}
			seen[d.Prefix] = true
			if d.URI == uri {
				return d.Prefix, true
			}
		}
	}
	return "", false
}
