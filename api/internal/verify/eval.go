package verify

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrDivisionByZero = errors.New("division by zero")
	ErrUnsupported    = errors.New("unsupported construct")
)

// ParseError оборачивает один из ErrSyntax / ErrDivisionByZero / ErrUnsupported.
type ParseError struct {
	Kind   error
	Expr   string
	Pos    int
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("evaluate %q: %v at %d", e.Expr, e.Kind, e.Pos)
	}
	return fmt.Sprintf("evaluate %q: %v at %d: %s", e.Expr, e.Kind, e.Pos, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Kind }

const maxDepth = 200

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokRat
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string // literal text; for tokRat "a/b" without brackets
	pos  int
	end  int
}

func (t token) isOperand() bool { return t.kind == tokNum || t.kind == tokRat }

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c) || c == '.':
			start := i
			dot := false
			for i < len(s) && (isDigit(s[i]) || (s[i] == '.' && !dot)) {
				if s[i] == '.' {
					dot = true
				}
				i++
			}
			lit := s[start:i]
			if lit == "." {
				return nil, &ParseError{Kind: ErrSyntax, Expr: s, Pos: start, Detail: "lone decimal point"}
			}
			toks = append(toks, token{kind: tokNum, text: lit, pos: start, end: i})
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, &ParseError{Kind: ErrSyntax, Expr: s, Pos: i, Detail: "unclosed rational literal"}
			}
			body := s[i+1 : i+end]
			num, den, ok := strings.Cut(body, "/")
			if !ok || !allDigits(num) || !allDigits(den) {
				return nil, &ParseError{Kind: ErrSyntax, Expr: s, Pos: i, Detail: "bad rational literal"}
			}
			toks = append(toks, token{kind: tokRat, text: num + "/" + den, pos: i, end: i + end + 1})
			i += end + 1
		case c == '*' && i+1 < len(s) && s[i+1] == '*':
			toks = append(toks, token{kind: tokCaret, text: "^", pos: i, end: i + 2})
			i += 2
		default:
			k, ok := singleOps[c]
			if !ok {
				return nil, &ParseError{Kind: ErrSyntax, Expr: s, Pos: i, Detail: fmt.Sprintf("unexpected %q", rest(s, i))}
			}
			toks = append(toks, token{kind: k, text: string(c), pos: i, end: i + 1})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(s), end: len(s)})
	return toks, nil
}

var singleOps = map[byte]tokenKind{
	'+': tokPlus, '-': tokMinus, '*': tokStar, '/': tokSlash, '^': tokCaret, '(': tokLParen, ')': tokRParen,
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func rest(s string, i int) string {
	r := []rune(s[i:])
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r)
}

// Evaluate вычисляет выражение по закрытой грамматике:
//
//	expr  := term (("+" | "-") term)*
//	term  := unary (("*" | "/") unary)*
//	unary := ("-" | "+") unary | power
//	power := atom ("^" unary)?
//	atom  := number | "[" int "/" int "]" | "(" expr ")"
//
// Результат точный (big.Rat), кроме дробных степеней.
func Evaluate(expr string) (Number, error) {
	s := Normalize(expr)
	toks, err := tokenize(s)
	if err != nil {
		return Number{}, err
	}
	p := &parser{src: s, toks: toks}
	if p.peek().kind == tokEOF {
		return Number{}, &ParseError{Kind: ErrSyntax, Expr: s, Pos: 0, Detail: "empty expression"}
	}
	v, err := p.expr()
	if err != nil {
		return Number{}, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return Number{}, p.fail(ErrSyntax, t, "trailing input")
	}
	return v, nil
}

type parser struct {
	src   string
	toks  []token
	i     int
	depth int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) fail(kind error, t token, detail string) error {
	return &ParseError{Kind: kind, Expr: p.src, Pos: t.pos, Detail: detail}
}

func (p *parser) enter(t token) error {
	p.depth++
	if p.depth > maxDepth {
		return p.fail(ErrUnsupported, t, "expression nested too deeply")
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) expr() (Number, error) {
	left, err := p.term()
	if err != nil {
		return Number{}, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.term()
			if err != nil {
				return Number{}, err
			}
			left = left.Add(right)
		case tokMinus:
			p.next()
			right, err := p.term()
			if err != nil {
				return Number{}, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

func (p *parser) term() (Number, error) {
	left, err := p.unary()
	if err != nil {
		return Number{}, err
	}
	for {
		switch t := p.peek(); t.kind {
		case tokStar:
			p.next()
			right, err := p.unary()
			if err != nil {
				return Number{}, err
			}
			left = left.Mul(right)
		case tokSlash:
			p.next()
			right, err := p.unary()
			if err != nil {
				return Number{}, err
			}
			q, err := left.Quo(right)
			if err != nil {
				return Number{}, p.fail(err, t, "")
			}
			left = q
		default:
			return left, nil
		}
	}
}

func (p *parser) unary() (Number, error) {
	t := p.peek()
	if t.kind != tokMinus && t.kind != tokPlus {
		return p.power()
	}
	if err := p.enter(t); err != nil {
		return Number{}, err
	}
	defer p.leave()
	p.next()
	v, err := p.unary()
	if err != nil {
		return Number{}, err
	}
	if t.kind == tokMinus {
		return v.Neg(), nil
	}
	return v, nil
}

func (p *parser) power() (Number, error) {
	base, err := p.atom()
	if err != nil {
		return Number{}, err
	}
	t := p.peek()
	if t.kind != tokCaret {
		return base, nil
	}
	if err := p.enter(t); err != nil {
		return Number{}, err
	}
	defer p.leave()
	p.next()
	exp, err := p.unary()
	if err != nil {
		return Number{}, err
	}
	v, err := base.Pow(exp)
	if err != nil {
		return Number{}, p.fail(err, t, fmt.Sprintf("%s^%s", base, exp))
	}
	return v, nil
}

func (p *parser) atom() (Number, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return Number{}, p.fail(ErrSyntax, t, "bad number "+t.text)
		}
		return RatNumber(r), nil
	case tokRat:
		num, den, _ := strings.Cut(t.text, "/")
		n, _ := new(big.Int).SetString(num, 10)
		d, _ := new(big.Int).SetString(den, 10)
		if d.Sign() == 0 {
			return Number{}, p.fail(ErrDivisionByZero, t, t.text)
		}
		return RatNumber(new(big.Rat).SetFrac(n, d)), nil
	case tokLParen:
		if err := p.enter(t); err != nil {
			return Number{}, err
		}
		defer p.leave()
		v, err := p.expr()
		if err != nil {
			return Number{}, err
		}
		if c := p.next(); c.kind != tokRParen {
			return Number{}, p.fail(ErrSyntax, c, "missing )")
		}
		return v, nil
	case tokEOF:
		return Number{}, p.fail(ErrSyntax, t, "unexpected end of expression")
	default:
		return Number{}, p.fail(ErrSyntax, t, "unexpected "+t.text)
	}
}
