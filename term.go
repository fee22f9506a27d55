package main

import (
	"strconv"
	"strings"
)

// term.go defines the core term language shared by every pass.
//
// Terms are immutable by convention: passes allocate new nodes and never
// write through child pointers of their input.

type Term interface{ isTerm() }

// Var is a reference to a bound identifier.
type Var struct {
	Name string
}

// Lam is a single-parameter function literal.
type Lam struct {
	Param string
	Body  Term
}

// App is function application.
type App struct {
	Fn  Term
	Arg Term
}

type If struct {
	Cond Term
	Then Term
	Else Term
}

// Match tries its arms in order; the first pattern that matches wins.
// Arm order is significant and must survive every pass untouched.
type Match struct {
	Scrut Term
	Arms  []Arm
}

type Arm struct {
	Pat  Pat
	Body Term
}

// Rec is a record literal with ordered fields.
type Rec struct {
	Fields []Field
}

type Field struct {
	Label string
	Value Term
}

type Tup struct {
	Elems []Term
}

type List struct {
	Elems []Term
}

type RecProj struct {
	Base  Term
	Label string
}

type TupProj struct {
	Base  Term
	Index int
}

// Const is an opaque primitive with a fixed arity. Args holds arguments
// already consumed by evaluation; it is always empty before evaluation.
type Const struct {
	Val   Value
	Arity int
	Args  []Term
}

// Fix applies the recursion combinator to a function value.
type Fix struct {
	Target Term
}

// The opaque builtin forms below carry their operands as they are applied
// during evaluation. In source position all operand fields are nil; a
// non-nil field before evaluation is an internal invariant breach.

type Concat struct {
	Lhs Term
}

type Infer struct {
	Model Term
}

type LogPdf struct {
	Arg Term
}

type Utest struct {
	Lhs Term
}

type Sample struct {
	Cont Term
	Dist Term
}

type Weight struct {
	Cont Term
	Arg  Term
}

type DWeight struct {
	Cont Term
	Arg  Term
}

// Closure is a runtime-only value produced by the evaluator. It never
// appears in source position.
type Closure struct {
	Param string
	Body  Term
	Env   *Env
}

func (*Var) isTerm()     {}
func (*Lam) isTerm()     {}
func (*App) isTerm()     {}
func (*If) isTerm()      {}
func (*Match) isTerm()   {}
func (*Rec) isTerm()     {}
func (*Tup) isTerm()     {}
func (*List) isTerm()    {}
func (*RecProj) isTerm() {}
func (*TupProj) isTerm() {}
func (*Const) isTerm()   {}
func (*Fix) isTerm()     {}
func (*Concat) isTerm()  {}
func (*Infer) isTerm()   {}
func (*LogPdf) isTerm()  {}
func (*Utest) isTerm()   {}
func (*Sample) isTerm()  {}
func (*Weight) isTerm()  {}
func (*DWeight) isTerm() {}
func (*Closure) isTerm() {}

// Value is the payload of a Const.
type Value interface{ isValue() }

type IntVal struct{ N int64 }
type FloatVal struct{ F float64 }
type BoolVal struct{ B bool }
type StrVal struct{ S string }
type UnitVal struct{}

// BuiltinVal names a primitive operation from the builtin table.
type BuiltinVal struct{ Name string }

// DistVal is a fully constructed probability distribution.
type DistVal struct {
	Name   string
	Params []Term
}

func (IntVal) isValue()     {}
func (FloatVal) isValue()   {}
func (BoolVal) isValue()    {}
func (StrVal) isValue()     {}
func (UnitVal) isValue()    {}
func (BuiltinVal) isValue() {}
func (DistVal) isValue()    {}

// Pat is a match pattern.
type Pat interface{ isPat() }

type PVar struct{ Name string }
type PConst struct{ Val Value }
type PTup struct{ Elems []Pat }
type PList struct{ Elems []Pat }

func (*PVar) isPat()   {}
func (*PConst) isPat() {}
func (*PTup) isPat()   {}
func (*PList) isPat()  {}

// walk calls f on t and every term reachable from it, preorder.
func walk(t Term, f func(Term)) {
	f(t)
	switch t := t.(type) {
	case *Var, *Const, *Sample, *Weight, *DWeight:
		// leaves in source position; builtin operand states are walked below
	case *Lam:
		walk(t.Body, f)
	case *App:
		walk(t.Fn, f)
		walk(t.Arg, f)
	case *If:
		walk(t.Cond, f)
		walk(t.Then, f)
		walk(t.Else, f)
	case *Match:
		walk(t.Scrut, f)
		for _, a := range t.Arms {
			walk(a.Body, f)
		}
	case *Rec:
		for _, fl := range t.Fields {
			walk(fl.Value, f)
		}
	case *Tup:
		for _, e := range t.Elems {
			walk(e, f)
		}
	case *List:
		for _, e := range t.Elems {
			walk(e, f)
		}
	case *RecProj:
		walk(t.Base, f)
	case *TupProj:
		walk(t.Base, f)
	case *Fix:
		walk(t.Target, f)
	case *Concat:
		if t.Lhs != nil {
			walk(t.Lhs, f)
		}
	case *Infer:
		if t.Model != nil {
			walk(t.Model, f)
		}
	case *LogPdf:
		if t.Arg != nil {
			walk(t.Arg, f)
		}
	case *Utest:
		if t.Lhs != nil {
			walk(t.Lhs, f)
		}
	case *Closure:
		walk(t.Body, f)
	}
}

// termSize counts the nodes of t.
func termSize(t Term) int {
	n := 0
	walk(t, func(Term) { n++ })
	return n
}

// termVars collects every variable name occurring in t, free or bound,
// including lambda parameters and pattern binders.
func termVars(t Term) map[string]bool {
	vars := map[string]bool{}
	walk(t, func(t Term) {
		switch t := t.(type) {
		case *Var:
			vars[t.Name] = true
		case *Lam:
			vars[t.Param] = true
		case *Closure:
			vars[t.Param] = true
		case *Match:
			for _, a := range t.Arms {
				patVars(a.Pat, vars)
			}
		}
	})
	return vars
}

func patVars(p Pat, vars map[string]bool) {
	switch p := p.(type) {
	case *PVar:
		vars[p.Name] = true
	case *PConst:
	case *PTup:
		for _, e := range p.Elems {
			patVars(e, vars)
		}
	case *PList:
		for _, e := range p.Elems {
			patVars(e, vars)
		}
	}
}

// gensym hands out fresh variable names. Generated names carry a "$"
// suffix the lexer cannot produce, so they never collide with names from
// source text. prime guards against programmatically built terms that
// already contain generated-looking names.
type gensym struct {
	n int
}

func (g *gensym) fresh(prefix string) string {
	g.n++
	return prefix + "$" + strconv.Itoa(g.n)
}

// prime bumps the counter past every $-suffixed name in t.
func (g *gensym) prime(t Term) {
	for name := range termVars(t) {
		i := strings.LastIndexByte(name, '$')
		if i < 0 {
			continue
		}
		if n, err := strconv.Atoi(name[i+1:]); err == nil && n > g.n {
			g.n = n
		}
	}
}
