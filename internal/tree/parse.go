package tree

import (
	"encoding/xml"
	stderrors "errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html/charset"

	"github.com/jacoelho/xpath/errors"
)

const (
	defaultMaxDepth = 256
	defaultMaxAttrs = 256
)

// Options configures document parsing.
type Options struct {
	// MaxDepth bounds element nesting; 0 means the default of 256.
	MaxDepth int
	// MaxAttrs bounds attributes per element; 0 means the default of 256.
	MaxAttrs int
	// CharsetReader converts non-UTF-8 input. When nil, charset.NewReaderLabel
	// from golang.org/x/net/html/charset is used, which covers the encodings
	// registered by golang.org/x/text.
	CharsetReader func(label string, input io.Reader) (io.Reader, error)
}

// Parse builds a document tree from XML input.
func Parse(r io.Reader, opts Options) (*Node, error) {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = defaultMaxDepth
	}
	maxAttrs := opts.MaxAttrs
	if maxAttrs == 0 {
		maxAttrs = defaultMaxAttrs
	}

	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = opts.CharsetReader
	if decoder.CharsetReader == nil {
		decoder.CharsetReader = charset.NewReaderLabel
	}

	pos := 0
	next := func() int {
		pos++
		return pos
	}

	doc := &Node{Kind: DocumentNode, Pos: 0}
	cur := doc
	depth := 0
	rootSeen := false
	rootClosed := false

	appendChild := func(parent, child *Node) {
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

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if rootClosed {
				return nil, errors.Newf(errors.ErrXMLParse, "unexpected element %s after document end", t.Name.Local)
			}
			if depth >= maxDepth {
				return nil, errors.Newf(errors.ErrLimit, "element nesting exceeds %d", maxDepth)
			}
			if len(t.Attr) > maxAttrs {
				return nil, errors.Newf(errors.ErrLimit, "element %s has more than %d attributes", t.Name.Local, maxAttrs)
			}

			elem := &Node{
				Kind:      ElementNode,
				Namespace: t.Name.Space,
				Local:     t.Name.Local,
				Pos:       next(),
			}
			appendChild(cur, elem)
			elem.decls = declarations(t.Attr)
			elem.Prefix = elementPrefix(elem, t.Name.Space)

			for _, a := range t.Attr {
				if isNamespaceDecl(a) {
					continue
				}
				attr := &Node{
					Kind:      AttributeNode,
					Namespace: a.Name.Space,
					Local:     a.Name.Local,
					Data:      a.Value,
					Parent:    elem,
					Pos:       next(),
				}
				if a.Name.Space != "" {
					if p, ok := elem.LookupPrefix(a.Name.Space); ok {
						attr.Prefix = p
					} else if a.Name.Space == XMLNamespace {
						attr.Prefix = "xml"
					}
				}
				elem.Attrs = append(elem.Attrs, attr)
			}

			cur = elem
			depth++
			rootSeen = true

		case xml.EndElement:
			if cur == doc {
				return nil, errors.New(errors.ErrXMLParse, "unexpected end element")
			}
			cur = cur.Parent
			depth--
			if cur == doc {
				rootClosed = true
			}

		case xml.CharData:
			if cur == doc {
				if !isIgnorableOutsideRoot(string(t)) {
					return nil, errors.New(errors.ErrXMLParse, "character data outside root element")
				}
				continue
			}
			// the decoder splits character data at entity boundaries;
			// adjacent runs collapse into one text node
			if last := cur.LastChild; last != nil && last.Kind == TextNode {
				last.Data += string(t)
				continue
			}
			appendChild(cur, &Node{Kind: TextNode, Data: string(t), Pos: next()})

		case xml.Comment:
			appendChild(cur, &Node{Kind: CommentNode, Data: string(t), Pos: next()})

		case xml.ProcInst:
			if t.Target == "xml" {
				continue // the XML declaration is not a node
			}
			appendChild(cur, &Node{
				Kind:  ProcessingInstructionNode,
				Local: t.Target,
				Data:  strings.TrimLeft(string(t.Inst), " \t\r\n"),
				Pos:   next(),
			})
		}
	}

	if cur != doc {
		return nil, errors.Newf(errors.ErrXMLParse, "unexpected EOF inside element %s", cur.Name())
	}
	if !rootSeen {
		return nil, errors.New(errors.ErrXMLParse, "document has no root element")
	}
	return doc, nil
}

func parseError(err error) error {
	var syntax *xml.SyntaxError
	if stderrors.As(err, &syntax) {
		return &errors.Query{
			Code:    string(errors.ErrXMLParse),
			Message: syntax.Msg,
			Offset:  -1,
			Line:    syntax.Line,
			Column:  1,
		}
	}
	return errors.Newf(errors.ErrXMLParse, "%v", err)
}

func isNamespaceDecl(a xml.Attr) bool {
	if a.Name.Space == "xmlns" {
		return true
	}
	return a.Name.Space == "" && a.Name.Local == "xmlns"
}

func declarations(attrs []xml.Attr) []Binding {
	var decls []Binding
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			decls = append(decls, Binding{Prefix: a.Name.Local, URI: a.Value})
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			decls = append(decls, Binding{Prefix: "", URI: a.Value})
		}
	}
	return decls
}

// elementPrefix recovers the source prefix for an element the decoder
// already resolved to a namespace URI. The default namespace wins when it
// matches so unprefixed elements stay unprefixed.
func elementPrefix(elem *Node, space string) string {
	if space == "" {
		return ""
	}
	if uri, ok := elem.LookupNamespace(""); ok && uri == space {
		return ""
	}
	if p, ok := elem.LookupPrefix(space); ok {
		return p
	}
	return ""
}

func isIgnorableOutsideRoot(data string) bool {
	for _, r := range data {
		if r == '\uFEFF' {
			continue
		}
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
