// Package errors defines the coded errors surfaced by expression
// compilation, document parsing, and query evaluation.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode identifies a class of query failure.
type ErrorCode string

const (
	// ErrLexical indicates the expression contains an unrecognized token.
	ErrLexical ErrorCode = "xpath-lexical"
	// ErrSyntax indicates the expression violates the XPath grammar.
	ErrSyntax ErrorCode = "xpath-syntax"
	// ErrUnboundPrefix indicates a namespace prefix with no binding.
	ErrUnboundPrefix ErrorCode = "xpath-unbound-prefix"
	// ErrUnknownFunction indicates a call to an undeclared function.
	ErrUnknownFunction ErrorCode = "xpath-unknown-function"
	// ErrUnknownVariable indicates a reference to an unbound variable.
	ErrUnknownVariable ErrorCode = "xpath-unknown-variable"
	// ErrArity indicates a function call with the wrong argument count.
	ErrArity ErrorCode = "xpath-arity"
	// ErrType indicates an operand could not be converted to the required type.
	ErrType ErrorCode = "xpath-type"
	// ErrXMLParse indicates the XML document could not be parsed.
	ErrXMLParse ErrorCode = "xml-parse-error"
	// ErrHTMLParse indicates the HTML document could not be parsed.
	ErrHTMLParse ErrorCode = "html-parse-error"
	// ErrLimit indicates a document exceeded a configured parse limit.
	ErrLimit ErrorCode = "xml-limit-exceeded"
)

// Query describes a query failure with an error code and, where known,
// the offending expression and the byte offset within it.
//
//nolint:errname // public API name uses XPath domain term.
type Query struct {
	Code       string
	Message    string
	Expression string
	Offset     int // byte offset into Expression; -1 when not applicable
	Line       int // document position for parse errors; 0 when unknown
	Column     int
}

// Error formats the query error for display, including code and context.
func (q *Query) Error() string {
	if q == nil {
		return "query <nil>"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s", q.Code, q.Message))
	if q.Expression != "" {
		if q.Offset >= 0 {
			b.WriteString(fmt.Sprintf(" in %q at offset %d", q.Expression, q.Offset))
		} else {
			b.WriteString(fmt.Sprintf(" in %q", q.Expression))
		}
	}
	if q.Line > 0 {
		b.WriteString(fmt.Sprintf(" at line %d, column %d", q.Line, q.Column))
	}
	return b.String()
}

// New builds a Query error with a code and message.
func New(code ErrorCode, msg string) *Query {
	return &Query{Code: string(code), Message: msg, Offset: -1}
}

// Newf formats a message and builds a Query error.
func Newf(code ErrorCode, format string, args ...any) *Query {
	return New(code, fmt.Sprintf(format, args...))
}

// NewAt builds a Query error positioned inside an expression.
func NewAt(code ErrorCode, expr string, offset int, msg string) *Query {
	return &Query{Code: string(code), Message: msg, Expression: expr, Offset: offset}
}

// WithExpression returns a copy of the error annotated with the expression text.
func (q *Query) WithExpression(expr string) *Query {
	if q == nil {
		return nil
	}
	out := *q
	out.Expression = expr
	return &out
}

// AsQuery extracts a Query error from an error chain.
func AsQuery(err error) (*Query, bool) {
	if err == nil {
		return nil, false
	}
	var q *Query
	if errors.As(err, &q) && q != nil {
		return q, true
	}
	return nil, false
}

// CodeOf returns the error code carried by err, or "" when err is not a
// Query error.
func CodeOf(err error) string {
	q, ok := AsQuery(err)
	if !ok {
		return ""
	}
	return q.Code
}
