package parser

import (
	"strconv"

	"github.com/jacoelho/xpath/errors"
	"github.com/jacoelho/xpath/internal/lexer"
)

// Parse lexes and parses a complete XPath 1.0 expression.
func Parse(expr string) (Expr, error) {
	tokens, err := lexer.Tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, tokens: tokens}
	out, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != lexer.EOF {
		return nil, p.errorf("unexpected token after expression")
	}
	return out, nil
}

type parser struct {
	expr   string
	tokens []lexer.Token
	pos    int
}

func (p *parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(k lexer.Kind) bool {
	if p.peek().Kind == k {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k lexer.Kind, what string) error {
	if !p.accept(k) {
		return p.errorf("expected %s", what)
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.errorfAt(p.peek().Offset, format, args...)
}

func (p *parser) errorfAt(offset int, format string, args ...any) error {
	err := errors.Newf(errors.ErrSyntax, format, args...)
	err.Expression = p.expr
	err.Offset = offset
	return err
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(lexer.Or) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.accept(lexer.And) {
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().Kind {
		case lexer.Eq:
			op = OpEq
		case lexer.Ne:
			op = OpNe
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseRelational() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().Kind {
		case lexer.Lt:
			op = OpLt
		case lexer.Le:
			op = OpLe
		case lexer.Gt:
			op = OpGt
		case lexer.Ge:
			op = OpGe
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().Kind {
		case lexer.Plus:
			op = OpAdd
		case lexer.Minus:
			op = OpSub
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().Kind {
		case lexer.Multiply:
			op = OpMul
		case lexer.Div:
			op = OpDiv
		case lexer.Mod:
			op = OpMod
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if p.accept(lexer.Minus) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Negate{Operand: operand}, nil
	}
	return p.parseUnion()
}

func (p *parser) parseUnion() (Expr, error) {
	left, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	for p.accept(lexer.Union) {
		right, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OpUnion, Left: left, Right: right}
	}
	return left, nil
}

// parsePath handles PathExpr: either a location path, or a filter
// expression optionally continued with "/" or "//" steps.
func (p *parser) parsePath() (Expr, error) {
	if p.startsLocationPath() {
		return p.parseLocationPath()
	}

	filter, err := p.parseFilter()
	if err != nil {
		return nil, err
	}

	switch p.peek().Kind {
	case lexer.Slash:
		p.advance()
		steps, err := p.parseRelativeSteps()
		if err != nil {
			return nil, err
		}
		return &Path{Input: filter, Steps: steps}, nil
	case lexer.SlashSlash:
		p.advance()
		steps, err := p.parseRelativeSteps()
		if err != nil {
			return nil, err
		}
		steps = append([]*Step{descendantOrSelfStep()}, steps...)
		return &Path{Input: filter, Steps: steps}, nil
	default:
		return filter, nil
	}
}

// startsLocationPath reports whether the upcoming tokens begin a location
// path rather than a primary expression. A Name is a step unless it opens
// a function call, and node-type names stay steps even then.
func (p *parser) startsLocationPath() bool {
	switch p.peek().Kind {
	case lexer.Slash, lexer.SlashSlash, lexer.Dot, lexer.DotDot,
		lexer.At, lexer.Axis, lexer.Star:
		return true
	case lexer.Name:
		tok := p.peek()
		if p.peekAt(1).Kind != lexer.LParen {
			return true
		}
		return tok.Prefix == "" && isNodeTypeName(tok.Value)
	default:
		return false
	}
}

func isNodeTypeName(name string) bool {
	switch name {
	case "node", "text", "comment", "processing-instruction":
		return true
	default:
		return false
	}
}

func (p *parser) parseLocationPath() (Expr, error) {
	path := &Path{}

	switch p.peek().Kind {
	case lexer.Slash:
		p.advance()
		path.Absolute = true
		if !p.startsStep() {
			return path, nil // bare "/" selects the root
		}
	case lexer.SlashSlash:
		p.advance()
		path.Absolute = true
		path.Steps = append(path.Steps, descendantOrSelfStep())
	}

	steps, err := p.parseRelativeSteps()
	if err != nil {
		return nil, err
	}
	path.Steps = append(path.Steps, steps...)
	return path, nil
}

func (p *parser) startsStep() bool {
	switch p.peek().Kind {
	case lexer.Dot, lexer.DotDot, lexer.At, lexer.Axis, lexer.Star, lexer.Name:
		return true
	default:
		return false
	}
}

func (p *parser) parseRelativeSteps() ([]*Step, error) {
	step, err := p.parseStep()
	if err != nil {
		return nil, err
	}
	steps := []*Step{step}

	for {
		switch p.peek().Kind {
		case lexer.Slash:
			p.advance()
		case lexer.SlashSlash:
			p.advance()
			steps = append(steps, descendantOrSelfStep())
		default:
			return steps, nil
		}
		step, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
}

func (p *parser) parseStep() (*Step, error) {
	switch p.peek().Kind {
	case lexer.Dot:
		p.advance()
		return &Step{Axis: AxisSelf, Test: NodeTest{Kind: TestNode}}, nil
	case lexer.DotDot:
		p.advance()
		return &Step{Axis: AxisParent, Test: NodeTest{Kind: TestNode}}, nil
	}

	axis := AxisChild
	switch p.peek().Kind {
	case lexer.At:
		p.advance()
		axis = AxisAttribute
	case lexer.Axis:
		tok := p.advance()
		named, ok := axisNames[tok.Value]
		if !ok {
			return nil, p.errorfAt(tok.Offset, "unknown axis %q", tok.Value)
		}
		axis = named
	}

	test, err := p.parseNodeTest()
	if err != nil {
		return nil, err
	}

	step := &Step{Axis: axis, Test: test}
	for p.peek().Kind == lexer.LBracket {
		p.advance()
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		step.Predicates = append(step.Predicates, pred)
	}
	return step, nil
}

func (p *parser) parseNodeTest() (NodeTest, error) {
	switch p.peek().Kind {
	case lexer.Star:
		p.advance()
		return NodeTest{Kind: TestName, Local: "*"}, nil
	case lexer.Name:
		tok := p.advance()
		if tok.Prefix == "" && p.peek().Kind == lexer.LParen && isNodeTypeName(tok.Value) {
			return p.parseNodeTypeTest(tok.Value)
		}
		return NodeTest{Kind: TestName, Prefix: tok.Prefix, Local: tok.Value}, nil
	default:
		return NodeTest{}, p.errorf("expected node test")
	}
}

func (p *parser) parseNodeTypeTest(name string) (NodeTest, error) {
	p.advance() // consume '('
	test := NodeTest{}
	switch name {
	case "node":
		test.Kind = TestNode
	case "text":
		test.Kind = TestText
	case "comment":
		test.Kind = TestComment
	case "processing-instruction":
		test.Kind = TestProcessingInstruction
		if p.peek().Kind == lexer.Literal {
			test.Target = p.advance().Value
		}
	}
	if err := p.expect(lexer.RParen, "')'"); err != nil {
		return NodeTest{}, err
	}
	return test, nil
}

func (p *parser) parseFilter() (Expr, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != lexer.LBracket {
		return primary, nil
	}

	filter := &Filter{Primary: primary}
	for p.accept(lexer.LBracket) {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		filter.Predicates = append(filter.Predicates, pred)
	}
	return filter, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.peek().Kind {
	case lexer.Variable:
		tok := p.advance()
		return &Variable{Prefix: tok.Prefix, Local: tok.Value}, nil
	case lexer.LParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.Literal:
		tok := p.advance()
		return &Literal{Value: tok.Value}, nil
	case lexer.Number:
		tok := p.advance()
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorfAt(tok.Offset, "invalid number %q", tok.Value)
		}
		return &Number{Value: value}, nil
	case lexer.Name:
		if p.peekAt(1).Kind == lexer.LParen {
			return p.parseCall()
		}
		return nil, p.errorf("unexpected name %q", p.peek().Value)
	default:
		return nil, p.errorf("expected expression")
	}
}

func (p *parser) parseCall() (Expr, error) {
	tok := p.advance()
	call := &Call{Prefix: tok.Prefix, Name: tok.Value}
	p.advance() // consume '('

	if p.accept(lexer.RParen) {
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.accept(lexer.Comma) {
			continue
		}
		if err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func descendantOrSelfStep() *Step {
	return &Step{Axis: AxisDescendantOrSelf, Test: NodeTest{Kind: TestNode}}
}
