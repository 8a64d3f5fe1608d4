// Package htmltree adapts HTML parse trees for XPath evaluation.
//
// HTML documents are parsed with golang.org/x/net/html, which applies the
// HTML5 parsing algorithm: tag and attribute names are lowercased, implied
// elements such as <html>, <head> and <body> are inserted, and malformed
// markup is repaired rather than rejected. The resulting tree is converted
// into the same node shape XML documents use, so one compiled expression
// works against both.
package htmltree

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jacoelho/xpath"
	"github.com/jacoelho/xpath/errors"
)

// Foreign-content namespaces for elements the HTML parser tags with a
// namespace label (svg, math).
var foreignNamespaces = map[string]string{
	"svg":  "http://www.w3.org/2000/svg",
	"math": "http://www.w3.org/1998/Math/MathML",
}

// Parse reads an HTML document and returns its document node. HTML
// elements carry no namespace, so unprefixed name tests match them
// directly: //div, //a/@href.
func Parse(r io.Reader) (*xpath.Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Newf(errors.ErrHTMLParse, "%v", err)
	}
	return convert(root), nil
}

// ParseFragment parses an HTML fragment as if it appeared inside a <body>
// element and returns a document node holding the fragment's nodes.
func ParseFragment(r io.Reader) (*xpath.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, errors.Newf(errors.ErrHTMLParse, "%v", err)
	}

	doc := &xpath.Node{Kind: xpath.DocumentNode}
	c := converter{pos: 0}
	for _, n := range nodes {
		if child := c.node(n); child != nil {
			appendChild(doc, child)
		}
	}
	return doc, nil
}

func convert(root *html.Node) *xpath.Node {
	c := converter{pos: 0}
	doc := &xpath.Node{Kind: xpath.DocumentNode}
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if child := c.node(n); child != nil {
			appendChild(doc, child)
		}
	}
	return doc
}

type converter struct {
	pos int
}

func (c *converter) next() int {
	c.pos++
	return c.pos
}

// node converts one HTML node and its subtree; doctype nodes have no
// XPath equivalent and convert to nil.
func (c *converter) node(n *html.Node) *xpath.Node {
	switch n.Type {
	case html.ElementNode:
		elem := &xpath.Node{
			Kind:      xpath.ElementNode,
			Namespace: foreignNamespaces[n.Namespace],
			Prefix:    n.Namespace,
			Local:     n.Data,
			Pos:       c.next(),
		}
		for _, a := range n.Attr {
			attr := &xpath.Node{
				Kind:      xpath.AttributeNode,
				Namespace: foreignNamespaces[a.Namespace],
				Prefix:    a.Namespace,
				Local:     a.Key,
				Data:      a.Val,
				Parent:    elem,
				Pos:       c.next(),
			}
			elem.Attrs = append(elem.Attrs, attr)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if converted := c.node(child); converted != nil {
				appendChild(elem, converted)
			}
		}
		return elem

	case html.TextNode:
		return &xpath.Node{Kind: xpath.TextNode, Data: n.Data, Pos: c.next()}

	case html.CommentNode:
		return &xpath.Node{Kind: xpath.CommentNode, Data: n.Data, Pos: c.next()}

	default:
		return nil
	}
}

func appendChild(parent, child *xpath.Node) {
	child.Parent = parent
	if parent.LastChild == nil {
		parent.FirstChild = child
		parent.LastChild = child
		return
	}
	child.PrevSibling = parent.LastChild
	parent.LastChild.NextSibling = child
	parent.LastChild = child
}
