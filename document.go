// Package xpath evaluates XPath 1.0 expressions against XML and HTML
// document trees.
package xpath

import (
	"bytes"
	"io"
	"io/fs"
	"os"

	"github.com/jacoelho/xpath/internal/tree"
)

// Node is a node in a parsed document tree.
type Node = tree.Node

// Kind classifies document tree nodes.
type Kind = tree.Kind

// The seven XPath 1.0 node kinds.
const (
	DocumentNode              = tree.DocumentNode
	ElementNode               = tree.ElementNode
	AttributeNode             = tree.AttributeNode
	TextNode                  = tree.TextNode
	CommentNode               = tree.CommentNode
	ProcessingInstructionNode = tree.ProcessingInstructionNode
	NamespaceNode             = tree.NamespaceNode
)

// ParseOption configures document parsing.
type ParseOption interface{ apply(*parseOptions) }

type parseOptions struct {
	maxDepth      int
	maxAttrs      int
	charsetReader func(label string, input io.Reader) (io.Reader, error)
}

type parseOptionFunc func(*parseOptions)

func (f parseOptionFunc) apply(cfg *parseOptions) {
	if cfg == nil {
		return
	}
	f(cfg)
}

// WithMaxDepth bounds element nesting during parsing.
func WithMaxDepth(depth int) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.maxDepth = depth
	})
}

// WithMaxAttributes bounds attributes per element during parsing.
func WithMaxAttributes(attrs int) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.maxAttrs = attrs
	})
}

// WithCharsetReader overrides the decoder used for non-UTF-8 documents.
// The default handles the encodings registered by golang.org/x/text.
func WithCharsetReader(f func(label string, input io.Reader) (io.Reader, error)) ParseOption {
	return parseOptionFunc(func(cfg *parseOptions) {
		cfg.charsetReader = f
	})
}

func applyParseOptions(opts []ParseOption) parseOptions {
	var cfg parseOptions
	for _, o := range opts {
		o.apply(&cfg)
	}
	return cfg
}

// Parse builds a document tree from XML input.
func Parse(r io.Reader, opts ...ParseOption) (*Node, error) {
	cfg := applyParseOptions(opts)
	return tree.Parse(r, tree.Options{
		MaxDepth:      cfg.maxDepth,
		MaxAttrs:      cfg.maxAttrs,
		CharsetReader: cfg.charsetReader,
	})
}

// ParseBytes builds a document tree from an in-memory XML document.
func ParseBytes(data []byte, opts ...ParseOption) (*Node, error) {
	return Parse(bytes.NewReader(data), opts...)
}

// ParseFile builds a document tree from an XML file on disk.
func ParseFile(path string, opts ...ParseOption) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts...)
}

// ParseFS builds a document tree from an XML file in a filesystem.
func ParseFS(fsys fs.FS, name string, opts ...ParseOption) (*Node, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, opts...)
}

// OutputXML serializes a node back to XML text.
func OutputXML(n *Node) string {
	return tree.OutputXML(n)
}
