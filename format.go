package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// format.go converts a term back to source text

type formatter struct {
	buf     bytes.Buffer
	nindent int
}

func formatTerm(t Term) string {
	var f formatter
	f.visitTerm(t)
	return f.buf.String()
}

func printTerm(t Term) {
	var f formatter
	f.visitTerm(t)
	f.write("\n")
	f.buf.WriteTo(os.Stdout)
}

func (f *formatter) visitTerm(t Term) {
	switch t := t.(type) {
	case *Var:
		f.write(t.Name)
	case *Lam:
		f.write("func(" + t.Param + ")")
		f.indent()
		f.visitTerm(t.Body)
		f.dedent()
		f.write("end")
	case *App:
		f.visitTerm(t.Fn)
		f.write("(")
		f.visitTerm(t.Arg)
		f.write(")")
	case *If:
		f.write("if ")
		f.visitTerm(t.Cond)
		f.write(" then")
		f.indent()
		f.visitTerm(t.Then)
		f.dedent()
		f.write("else")
		f.indent()
		f.visitTerm(t.Else)
		f.dedent()
		f.write("end")
	case *Match:
		f.write("match ")
		f.visitTerm(t.Scrut)
		f.write(" with")
		for _, a := range t.Arms {
			f.indent()
			f.write("| ")
			f.visitPat(a.Pat)
			f.write(" -> ")
			f.visitTerm(a.Body)
			f.nindent--
		}
		f.write("\n")
		f.pad()
		f.write("end")
	case *Rec:
		f.write("{")
		for i, fl := range t.Fields {
			if i != 0 {
				f.write(", ")
			}
			f.write(fl.Label + " = ")
			f.visitTerm(fl.Value)
		}
		f.write("}")
	case *Tup:
		f.write("#tuple(")
		for i, e := range t.Elems {
			if i != 0 {
				f.write(", ")
			}
			f.visitTerm(e)
		}
		f.write(")")
	case *List:
		f.write("[")
		for i, e := range t.Elems {
			if i != 0 {
				f.write(", ")
			}
			f.visitTerm(e)
		}
		f.write("]")
	case *RecProj:
		f.visitTerm(t.Base)
		f.write("." + t.Label)
	case *TupProj:
		f.write("#get(")
		f.visitTerm(t.Base)
		f.write(", " + strconv.Itoa(t.Index) + ")")
	case *Const:
		f.visitValue(t.Val)
		for _, a := range t.Args {
			f.write("(")
			f.visitTerm(a)
			f.write(")")
		}
	case *Fix:
		f.write("fix ")
		f.visitTerm(t.Target)
	case *Concat:
		f.visitBuiltin("concat", t.Lhs)
	case *Infer:
		f.visitBuiltin("infer", t.Model)
	case *LogPdf:
		f.visitBuiltin("logpdf", t.Arg)
	case *Utest:
		f.visitBuiltin("utest", t.Lhs)
	case *Sample:
		f.visitBuiltin2("sample", t.Cont, t.Dist)
	case *Weight:
		f.visitBuiltin2("weight", t.Cont, t.Arg)
	case *DWeight:
		f.visitBuiltin2("dweight", t.Cont, t.Arg)
	case *Closure:
		f.write("<closure " + t.Param + ">")
	default:
		panic(fmt.Sprintf("unhandled case in formatter.visitTerm: %T", t))
	}
}

// visitBuiltin prints an opaque builtin with any operands evaluation has
// already supplied.
func (f *formatter) visitBuiltin(name string, operands ...Term) {
	f.write(name)
	for _, op := range operands {
		if op == nil {
			continue
		}
		f.write("(")
		f.visitTerm(op)
		f.write(")")
	}
}

func (f *formatter) visitBuiltin2(name string, a, b Term) {
	f.visitBuiltin(name, a, b)
}

func (f *formatter) visitValue(v Value) {
	switch v := v.(type) {
	case IntVal:
		f.write(strconv.FormatInt(v.N, 10))
	case FloatVal:
		s := strconv.FormatFloat(v.F, 'g', -1, 64)
		// keep floats distinct from integer literals on reparse
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		f.write(s)
	case BoolVal:
		if v.B {
			f.write("true")
		} else {
			f.write("false")
		}
	case StrVal:
		f.write(strconv.Quote(v.S))
	case UnitVal:
		f.write("()")
	case BuiltinVal:
		f.write(v.Name)
	case DistVal:
		f.write(v.Name)
		f.write("<")
		for i, p := range v.Params {
			if i != 0 {
				f.write(", ")
			}
			f.visitTerm(p)
		}
		f.write(">")
	default:
		panic(fmt.Sprintf("unhandled case in formatter.visitValue: %T", v))
	}
}

func (f *formatter) visitPat(p Pat) {
	switch p := p.(type) {
	case *PVar:
		f.write(p.Name)
	case *PConst:
		f.visitValue(p.Val)
	case *PTup:
		f.write("#tuple(")
		for i, e := range p.Elems {
			if i != 0 {
				f.write(", ")
			}
			f.visitPat(e)
		}
		f.write(")")
	case *PList:
		f.write("[")
		for i, e := range p.Elems {
			if i != 0 {
				f.write(", ")
			}
			f.visitPat(e)
		}
		f.write("]")
	default:
		panic(fmt.Sprintf("unhandled case in formatter.visitPat: %T", p))
	}
}

func (f *formatter) indent() {
	f.nindent++
	f.write("\n")
	f.pad()
}

func (f *formatter) dedent() {
	f.nindent--
	f.write("\n")
	f.pad()
}

func (f *formatter) pad() {
	for i := 0; i < f.nindent; i++ {
		f.write("  ")
	}
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}
