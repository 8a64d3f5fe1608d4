// Package lexer tokenizes XPath 1.0 expressions.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jacoelho/xpath/errors"
)

// Kind identifies a token type.
type Kind int

const (
	// EOF terminates every token stream.
	EOF Kind = iota
	// Number is a numeric literal.
	Number
	// Literal is a quoted string literal.
	Literal
	// Name is an NCName or QName; Prefix carries the prefix part and
	// Value the local part, which may be "*" for tests like ns:*.
	Name
	// Variable is a $-prefixed variable reference.
	Variable
	// Axis is an axis name followed by "::"; Value holds the axis name.
	Axis
	// Star is "*" used as a name test.
	Star
	// Multiply is "*" used as the multiplication operator.
	Multiply
	// Slash is "/".
	Slash
	// SlashSlash is "//".
	SlashSlash
	// Union is "|".
	Union
	// Plus is "+".
	Plus
	// Minus is "-".
	Minus
	// Eq is "=".
	Eq
	// Ne is "!=".
	Ne
	// Lt is "<".
	Lt
	// Le is "<=".
	Le
	// Gt is ">".
	Gt
	// Ge is ">=".
	Ge
	// And is the "and" operator.
	And
	// Or is the "or" operator.
	Or
	// Div is the "div" operator.
	Div
	// Mod is the "mod" operator.
	Mod
	// LParen is "(".
	LParen
	// RParen is ")".
	RParen
	// LBracket is "[".
	LBracket
	// RBracket is "]".
	RBracket
	// Comma is ",".
	Comma
	// Dot is ".".
	Dot
	// DotDot is "..".
	DotDot
	// At is "@".
	At
)

// Token is a lexed token with its byte offset in the expression.
type Token struct {
	Kind   Kind
	Value  string
	Prefix string
	Offset int
}

// Tokenize lexes a complete expression. The returned slice always ends
// with an EOF token.
func Tokenize(expr string) ([]Token, error) {
	l := &lexer{input: expr}
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			return tokens, nil
		}
		l.prev = tok.Kind
		l.hasPrev = true
	}
}

type lexer struct {
	input   string
	pos     int
	prev    Kind
	hasPrev bool
}

// operandExpected reports whether the next "*" or operator-looking NCName
// must be read as an operand (name test) rather than an operator. This is
// the XPath 1.0 section 3.7 disambiguation rule: only after a token that
// can end an operand do "*", "and", "or", "div", and "mod" act as
// operators.
func (l *lexer) operandExpected() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prev {
	case At, Axis, LParen, LBracket, Comma,
		Slash, SlashSlash, Union, Plus, Minus, Multiply,
		Eq, Ne, Lt, Le, Gt, Ge, And, Or, Div, Mod:
		return true
	default:
		return false
	}
}

func (l *lexer) next() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return Token{Kind: EOF, Offset: l.pos}, nil
	}

	start := l.pos
	c := l.input[l.pos]

	switch c {
	case '(':
		l.pos++
		return Token{Kind: LParen, Offset: start}, nil
	case ')':
		l.pos++
		return Token{Kind: RParen, Offset: start}, nil
	case '[':
		l.pos++
		return Token{Kind: LBracket, Offset: start}, nil
	case ']':
		l.pos++
		return Token{Kind: RBracket, Offset: start}, nil
	case ',':
		l.pos++
		return Token{Kind: Comma, Offset: start}, nil
	case '@':
		l.pos++
		return Token{Kind: At, Offset: start}, nil
	case '|':
		l.pos++
		return Token{Kind: Union, Offset: start}, nil
	case '+':
		l.pos++
		return Token{Kind: Plus, Offset: start}, nil
	case '-':
		l.pos++
		return Token{Kind: Minus, Offset: start}, nil
	case '=':
		l.pos++
		return Token{Kind: Eq, Offset: start}, nil
	case '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: Ne, Offset: start}, nil
		}
		return Token{}, errors.NewAt(errors.ErrLexical, l.input, start, "unexpected character '!'")
	case '<':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: Le, Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Lt, Offset: start}, nil
	case '>':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: Ge, Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Gt, Offset: start}, nil
	case '/':
		if l.peekAt(1) == '/' {
			l.pos += 2
			return Token{Kind: SlashSlash, Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Slash, Offset: start}, nil
	case '*':
		l.pos++
		if l.operandExpected() {
			return Token{Kind: Star, Offset: start}, nil
		}
		return Token{Kind: Multiply, Offset: start}, nil
	case '.':
		if isDigit(l.peekAt(1)) {
			return l.lexNumber()
		}
		if l.peekAt(1) == '.' {
			l.pos += 2
			return Token{Kind: DotDot, Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Dot, Offset: start}, nil
	case '\'', '"':
		return l.lexLiteral(c)
	case '$':
		l.pos++
		prefix, local, err := l.lexQName()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: Variable, Prefix: prefix, Value: local, Offset: start}, nil
	}

	if isDigit(c) {
		return l.lexNumber()
	}

	if !isNameStart(l.rune()) {
		return Token{}, errors.NewAt(errors.ErrLexical, l.input, start,
			"unexpected character "+strconv.QuoteRune(l.rune()))
	}

	name := l.lexNCName()

	if !l.operandExpected() {
		switch name {
		case "and":
			return Token{Kind: And, Value: name, Offset: start}, nil
		case "or":
			return Token{Kind: Or, Value: name, Offset: start}, nil
		case "div":
			return Token{Kind: Div, Value: name, Offset: start}, nil
		case "mod":
			return Token{Kind: Mod, Value: name, Offset: start}, nil
		}
	}

	// NCName "::" is an axis specifier.
	if strings.HasPrefix(l.input[l.pos:], "::") {
		l.pos += 2
		return Token{Kind: Axis, Value: name, Offset: start}, nil
	}

	// NCName ":" NCName or NCName ":*" is a QName.
	if l.pos < len(l.input) && l.input[l.pos] == ':' {
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '*' {
			l.pos++
			return Token{Kind: Name, Prefix: name, Value: "*", Offset: start}, nil
		}
		if l.pos >= len(l.input) || !isNameStart(l.rune()) {
			return Token{}, errors.NewAt(errors.ErrLexical, l.input, l.pos, "expected local name after ':'")
		}
		local := l.lexNCName()
		return Token{Kind: Name, Prefix: name, Value: local, Offset: start}, nil
	}

	return Token{Kind: Name, Value: name, Offset: start}, nil
}

func (l *lexer) lexQName() (prefix, local string, err error) {
	if l.pos >= len(l.input) || !isNameStart(l.rune()) {
		return "", "", errors.NewAt(errors.ErrLexical, l.input, l.pos, "expected variable name after '$'")
	}
	name := l.lexNCName()
	if l.pos < len(l.input) && l.input[l.pos] == ':' && l.peekAt(1) != ':' {
		l.pos++
		if l.pos >= len(l.input) || !isNameStart(l.rune()) {
			return "", "", errors.NewAt(errors.ErrLexical, l.input, l.pos, "expected local name after ':'")
		}
		return name, l.lexNCName(), nil
	}
	return "", name, nil
}

func (l *lexer) lexNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: Number, Value: l.input[start:l.pos], Offset: start}, nil
}

func (l *lexer) lexLiteral(quote byte) (Token, error) {
	start := l.pos
	l.pos++
	end := strings.IndexByte(l.input[l.pos:], quote)
	if end < 0 {
		return Token{}, errors.NewAt(errors.ErrLexical, l.input, start, "unterminated string literal")
	}
	value := l.input[l.pos : l.pos+end]
	l.pos += end + 1
	return Token{Kind: Literal, Value: value, Offset: start}, nil
}

func (l *lexer) lexNCName() string {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isNamePart(r) {
			break
		}
		l.pos += size
	}
	return l.input[start:l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *lexer) rune() rune {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return r == '_' || r == '-' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
