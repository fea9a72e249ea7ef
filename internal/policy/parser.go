package policy

import "fmt"

// Expr is a parsed condition. Evaluation is a pure read of the snapshot.
type Expr interface {
	Eval(snap Snapshot) (bool, error)
}

// Snapshot is the read-only variable view a condition evaluates against.
// Boolean variables read as 1/0.
type Snapshot map[string]float64

// Lookup returns the variable value or an error for unknown names.
func (s Snapshot) Lookup(name string) (float64, error) {
	v, ok := s[name]
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", name)
	}
	return v, nil
}

// andExpr, orExpr, notExpr are the boolean connectives.
type andExpr struct{ left, right Expr }
type orExpr struct{ left, right Expr }
type notExpr struct{ inner Expr }

func (e andExpr) Eval(s Snapshot) (bool, error) {
	l, err := e.left.Eval(s)
	if err != nil {
		return false, err
	}
	if !l {
		return false, nil
	}
	return e.right.Eval(s)
}

func (e orExpr) Eval(s Snapshot) (bool, error) {
	l, err := e.left.Eval(s)
	if err != nil {
		return false, err
	}
	if l {
		return true, nil
	}
	return e.right.Eval(s)
}

func (e notExpr) Eval(s Snapshot) (bool, error) {
	v, err := e.inner.Eval(s)
	return !v, err
}

// cmpExpr compares two operands (variable or literal).
type cmpExpr struct {
	op          TokenType
	left, right operand
}

type operand struct {
	isVar bool
	name  string
	num   float64
}

func (o operand) value(s Snapshot) (float64, error) {
	if o.isVar {
		return s.Lookup(o.name)
	}
	return o.num, nil
}

func (e cmpExpr) Eval(s Snapshot) (bool, error) {
	l, err := e.left.value(s)
	if err != nil {
		return false, err
	}
	r, err := e.right.value(s)
	if err != nil {
		return false, err
	}
	switch e.op {
	case TokenEqual:
		return l == r, nil
	case TokenNotEqual:
		return l != r, nil
	case TokenLess:
		return l < r, nil
	case TokenLessEq:
		return l <= r, nil
	case TokenGreater:
		return l > r, nil
	case TokenGreaterEq:
		return l >= r, nil
	}
	return false, fmt.Errorf("bad comparison operator")
}

// varExpr is a bare boolean variable reference (nonzero = true).
type varExpr struct{ name string }

func (e varExpr) Eval(s Snapshot) (bool, error) {
	v, err := s.Lookup(e.name)
	return v != 0, err
}

// litExpr is a TRUE/FALSE literal.
type litExpr struct{ val bool }

func (e litExpr) Eval(Snapshot) (bool, error) { return e.val, nil }

// ParseCondition parses a condition expression.
//
// Grammar (highest precedence last):
//
//	expr    := orTerm
//	orTerm  := andTerm { OR andTerm }
//	andTerm := unary { AND unary }
//	unary   := NOT unary | primary
//	primary := '(' expr ')' | TRUE | FALSE | comparison | ident
func ParseCondition(input string) (Expr, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %q at %d", p.peek().Text, p.peek().Pos)
	}
	return expr, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == TokenAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.peek().Type == TokenNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TokenLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().Type != TokenRParen {
			return nil, fmt.Errorf("missing ')' at %d", p.peek().Pos)
		}
		p.next()
		return inner, nil

	case TokenTrue:
		p.next()
		return litExpr{true}, nil
	case TokenFalse:
		p.next()
		return litExpr{false}, nil

	case TokenIdent, TokenNumber:
		left, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		op := p.peek().Type
		switch op {
		case TokenEqual, TokenNotEqual, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq:
			p.next()
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			return cmpExpr{op: op, left: left, right: right}, nil
		}
		// Bare identifier acts as a boolean test; a bare number is an error.
		if left.isVar {
			return varExpr{left.name}, nil
		}
		return nil, fmt.Errorf("dangling number at %d", tok.Pos)

	default:
		return nil, fmt.Errorf("unexpected %q at %d", tok.Text, tok.Pos)
	}
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.next()
	switch tok.Type {
	case TokenIdent:
		return operand{isVar: true, name: tok.Text}, nil
	case TokenNumber:
		return operand{num: tok.Num}, nil
	default:
		return operand{}, fmt.Errorf("expected variable or number at %d, got %q", tok.Pos, tok.Text)
	}
}
