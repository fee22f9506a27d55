package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parse.go is a recursive-descent parser for the surface syntax of the
// core language:
//
//	func(x) body end            single-parameter function
//	f(a)(b)  f(a, b)            application, curried by chaining
//	let x = e in body end       sugar for (func(x) body end)(e)
//	if c then a else b end
//	match e with | pat -> body ... end
//	{l = e, ...}  e.l           records and projection
//	#tuple(a, b)  #get(e, 0)    tuples and projection
//	[a, b, c]                   lists
//	fix f                       recursion combinator
//	sample weight dweight concat infer logpdf utest
//
// The operators + - * / == < are sugar for the corresponding builtin
// constants. Identifiers such as true, false, add or normal stay plain
// variables here; the resolve pass turns unshadowed ones into constants.

func parse(r io.Reader) (t Term, err error) {
	p := new(parser)
	p.lex.Init(r)
	defer func() {
		if e := recover(); e != nil {
			pe, ok := e.(parseError)
			if !ok {
				panic(e)
			}
			t, err = nil, pe.err
		}
	}()
	t = p.parseExpr()
	if p.lex.tok.kind != tEOF {
		p.errorf("unexpected %q after expression", p.lex.tok.text)
	}
	if p.lex.err != nil {
		return nil, p.lex.err
	}
	return t, nil
}

func parseString(src string) (Term, error) {
	return parse(strings.NewReader(src))
}

// mustParse is a test and tooling convenience.
func mustParse(src string) Term {
	t, err := parseString(src)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	lex lexer
}

type parseError struct {
	err error
}

func (p *parser) errorf(format string, args ...interface{}) {
	args = append([]interface{}{p.lex.scanner.Pos()}, args...)
	panic(parseError{fmt.Errorf("%v: "+format, args...)})
}

func (p *parser) peek() token {
	return p.lex.tok
}

func (p *parser) advance() token {
	t := p.lex.tok
	p.lex.next()
	return t
}

// accept consumes the next token if its text matches.
func (p *parser) accept(text string) bool {
	t := p.lex.tok
	if (t.kind == tPunct || t.kind == tIdent) && t.text == text {
		p.lex.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) {
	if !p.accept(text) {
		p.errorf("expected %q, found %q", text, p.lex.tok.text)
	}
}

func (p *parser) expectIdent() string {
	t := p.lex.tok
	if t.kind != tIdent || keywords[t.text] {
		p.errorf("expected identifier, found %q", t.text)
	}
	p.lex.next()
	return t.text
}

func binop(name string, l, r Term) Term {
	op := &Const{Val: BuiltinVal{name}, Arity: 2}
	return &App{&App{op, l}, r}
}

func (p *parser) parseExpr() Term {
	t := p.parseArith()
	for {
		switch {
		case p.accept("=="):
			t = binop("eq", t, p.parseArith())
		case p.accept("<"):
			t = binop("lt", t, p.parseArith())
		default:
			return t
		}
	}
}

func (p *parser) parseArith() Term {
	t := p.parseFactor()
	for {
		switch {
		case p.accept("+"):
			t = binop("add", t, p.parseFactor())
		case p.accept("-"):
			t = binop("sub", t, p.parseFactor())
		default:
			return t
		}
	}
}

func (p *parser) parseFactor() Term {
	t := p.parseApply()
	for {
		switch {
		case p.accept("*"):
			t = binop("mul", t, p.parseApply())
		case p.accept("/"):
			t = binop("div", t, p.parseApply())
		default:
			return t
		}
	}
}

// parseApply parses a primary expression followed by any number of
// application and projection suffixes.
func (p *parser) parseApply() Term {
	t := p.parsePrimary()
	for {
		switch {
		case p.accept("("):
			t = &App{t, p.parseExpr()}
			for p.accept(",") {
				t = &App{t, p.parseExpr()}
			}
			p.expect(")")
		case p.accept("."):
			t = &RecProj{t, p.expectIdent()}
		default:
			return t
		}
	}
}

func (p *parser) parsePrimary() Term {
	tok := p.peek()
	switch tok.kind {
	case tInt:
		p.advance()
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			p.errorf("bad integer literal %q", tok.text)
		}
		return &Const{Val: IntVal{n}}
	case tFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			p.errorf("bad float literal %q", tok.text)
		}
		return &Const{Val: FloatVal{f}}
	case tString:
		p.advance()
		s, err := strconv.Unquote(tok.text)
		if err != nil {
			p.errorf("bad string literal %s", tok.text)
		}
		return &Const{Val: StrVal{s}}
	case tIdent:
		switch tok.text {
		case "func":
			p.advance()
			p.expect("(")
			param := p.expectIdent()
			p.expect(")")
			body := p.parseExpr()
			p.expect("end")
			return &Lam{param, body}
		case "let":
			p.advance()
			name := p.expectIdent()
			p.expect("=")
			val := p.parseExpr()
			p.expect("in")
			body := p.parseExpr()
			p.expect("end")
			return &App{&Lam{name, body}, val}
		case "if":
			p.advance()
			cond := p.parseExpr()
			p.expect("then")
			thenB := p.parseExpr()
			p.expect("else")
			elseB := p.parseExpr()
			p.expect("end")
			return &If{cond, thenB, elseB}
		case "match":
			p.advance()
			scrut := p.parseExpr()
			p.expect("with")
			var arms []Arm
			for p.accept("|") {
				pat := p.parsePat()
				p.expect("->")
				arms = append(arms, Arm{pat, p.parseExpr()})
			}
			p.expect("end")
			if len(arms) == 0 {
				p.errorf("match with no arms")
			}
			return &Match{scrut, arms}
		case "fix":
			p.advance()
			return &Fix{p.parseApply()}
		case "sample":
			p.advance()
			return &Sample{}
		case "weight":
			p.advance()
			return &Weight{}
		case "dweight":
			p.advance()
			return &DWeight{}
		case "concat":
			p.advance()
			return &Concat{}
		case "infer":
			p.advance()
			return &Infer{}
		case "logpdf":
			p.advance()
			return &LogPdf{}
		case "utest":
			p.advance()
			return &Utest{}
		default:
			if keywords[tok.text] {
				p.errorf("unexpected keyword %q", tok.text)
			}
			p.advance()
			return &Var{tok.text}
		}
	case tPunct:
		switch tok.text {
		case "(":
			p.advance()
			if p.accept(")") {
				return &Const{Val: UnitVal{}}
			}
			t := p.parseExpr()
			p.expect(")")
			return t
		case "[":
			p.advance()
			var elems []Term
			if !p.accept("]") {
				elems = append(elems, p.parseExpr())
				for p.accept(",") {
					elems = append(elems, p.parseExpr())
				}
				p.expect("]")
			}
			return &List{elems}
		case "{":
			p.advance()
			var fields []Field
			if !p.accept("}") {
				for {
					label := p.expectIdent()
					p.expect("=")
					fields = append(fields, Field{label, p.parseExpr()})
					if !p.accept(",") {
						break
					}
				}
				p.expect("}")
			}
			return &Rec{fields}
		case "#":
			p.advance()
			switch name := p.expectIdent(); name {
			case "tuple":
				p.expect("(")
				var elems []Term
				if !p.accept(")") {
					elems = append(elems, p.parseExpr())
					for p.accept(",") {
						elems = append(elems, p.parseExpr())
					}
					p.expect(")")
				}
				return &Tup{elems}
			case "get":
				p.expect("(")
				base := p.parseExpr()
				p.expect(",")
				idx := p.advance()
				if idx.kind != tInt {
					p.errorf("expected tuple index, found %q", idx.text)
				}
				n, _ := strconv.Atoi(idx.text)
				p.expect(")")
				return &TupProj{base, n}
			default:
				p.errorf("unknown # form %q", name)
			}
		}
	}
	p.errorf("unexpected token %q", tok.text)
	return nil
}

func (p *parser) parsePat() Pat {
	tok := p.peek()
	switch tok.kind {
	case tInt:
		p.advance()
		n, _ := strconv.ParseInt(tok.text, 10, 64)
		return &PConst{IntVal{n}}
	case tFloat:
		p.advance()
		f, _ := strconv.ParseFloat(tok.text, 64)
		return &PConst{FloatVal{f}}
	case tString:
		p.advance()
		s, err := strconv.Unquote(tok.text)
		if err != nil {
			p.errorf("bad string literal %s", tok.text)
		}
		return &PConst{StrVal{s}}
	case tIdent:
		switch tok.text {
		case "true":
			p.advance()
			return &PConst{BoolVal{true}}
		case "false":
			p.advance()
			return &PConst{BoolVal{false}}
		}
		return &PVar{p.expectIdent()}
	case tPunct:
		switch tok.text {
		case "[":
			p.advance()
			var elems []Pat
			if !p.accept("]") {
				elems = append(elems, p.parsePat())
				for p.accept(",") {
					elems = append(elems, p.parsePat())
				}
				p.expect("]")
			}
			return &PList{elems}
		case "#":
			p.advance()
			if name := p.expectIdent(); name != "tuple" {
				p.errorf("unknown # pattern %q", name)
			}
			p.expect("(")
			var elems []Pat
			if !p.accept(")") {
				elems = append(elems, p.parsePat())
				for p.accept(",") {
					elems = append(elems, p.parsePat())
				}
				p.expect(")")
			}
			return &PTup{elems}
		}
	}
	p.errorf("unexpected token %q in pattern", tok.text)
	return nil
}
