package main

import (
	"fmt"
	"io"
	"text/scanner"
)

const scannerMode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats |
	scanner.ScanStrings | scanner.ScanComments | scanner.SkipComments

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tInt
	tFloat
	tString
	tPunct
)

type token struct {
	kind tokKind
	text string
}

var keywords = map[string]bool{
	"let": true, "in": true, "if": true, "then": true, "else": true,
	"func": true, "end": true, "match": true, "with": true, "fix": true,
	"sample": true, "weight": true, "dweight": true, "concat": true,
	"infer": true, "logpdf": true, "utest": true,
}

type lexer struct {
	scanner scanner.Scanner
	tok     token
	err     error
}

func (l *lexer) Init(r io.Reader) {
	l.scanner.Error = func(s *scanner.Scanner, msg string) {
		l.Error(msg)
	}
	l.scanner.Mode = scannerMode
	l.scanner.Init(r)
	l.next()
}

func (l *lexer) Error(e string) {
	if l.err == nil {
		l.err = fmt.Errorf("%v: %s", l.scanner.Pos(), e)
	}
}

// next advances to the following token, pairing up the two-rune
// punctuation "->" and "==".
func (l *lexer) next() {
	switch r := l.scanner.Scan(); r {
	case scanner.EOF:
		l.tok = token{tEOF, ""}
	case scanner.Ident:
		l.tok = token{tIdent, l.scanner.TokenText()}
	case scanner.Int:
		l.tok = token{tInt, l.scanner.TokenText()}
	case scanner.Float:
		l.tok = token{tFloat, l.scanner.TokenText()}
	case scanner.String:
		l.tok = token{tString, l.scanner.TokenText()}
	case '-':
		if l.scanner.Peek() == '>' {
			l.scanner.Next()
			l.tok = token{tPunct, "->"}
		} else {
			l.tok = token{tPunct, "-"}
		}
	case '=':
		if l.scanner.Peek() == '=' {
			l.scanner.Next()
			l.tok = token{tPunct, "=="}
		} else {
			l.tok = token{tPunct, "="}
		}
	default:
		l.tok = token{tPunct, string(r)}
	}
}
