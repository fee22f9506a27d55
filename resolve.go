package main

import "fmt"

// resolve.go is the front-end resolution pass. The parser leaves every
// identifier as a Var; this pass replaces any unshadowed reference to
// "true", "false" or a builtin operation with the corresponding constant.

// builtinArity lists the opaque primitive operations and the number of
// arguments each consumes before it fires.
var builtinArity = map[string]int{
	"add":   2,
	"sub":   2,
	"mul":   2,
	"div":   2,
	"neg":   1,
	"eq":    2,
	"lt":    2,
	"not":   1,
	"and":   2,
	"or":    2,
	"cons":  2,
	"head":  1,
	"tail":  1,
	"isnil": 1,
	"exp":   1,
	"log":   1,

	// distribution constructors
	"normal":  2,
	"beta":    2,
	"uniform": 2,
	"bern":    1,
}

type scope struct {
	parent *scope
	vars   map[string]bool
}

func newscope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]bool{}}
}

func (s *scope) push() *scope {
	return newscope(s)
}

func (s *scope) define(name string) {
	s.vars[name] = true
}

func (s *scope) has(name string) bool {
	for ; s != nil; s = s.parent {
		if s.vars[name] {
			return true
		}
	}
	return false
}

func resolvePrims(t Term) Term {
	return resolveExpr(newscope(nil), t)
}

func resolveExpr(s *scope, t Term) Term {
	// the Var case is the only one that does any work,
	// the rest just propagate the recursion
	switch t := t.(type) {
	case *Var:
		if s.has(t.Name) {
			return t
		}
		switch t.Name {
		case "true":
			return &Const{Val: BoolVal{true}}
		case "false":
			return &Const{Val: BoolVal{false}}
		}
		if arity, ok := builtinArity[t.Name]; ok {
			return &Const{Val: BuiltinVal{t.Name}, Arity: arity}
		}
		return t
	case *Const, *Sample, *Weight, *DWeight,
		*Concat, *Infer, *LogPdf, *Utest:
		return t
	case *Lam:
		inner := s.push()
		inner.define(t.Param)
		return &Lam{t.Param, resolveExpr(inner, t.Body)}
	case *App:
		return &App{resolveExpr(s, t.Fn), resolveExpr(s, t.Arg)}
	case *If:
		return &If{resolveExpr(s, t.Cond), resolveExpr(s, t.Then), resolveExpr(s, t.Else)}
	case *Match:
		arms := make([]Arm, len(t.Arms))
		for i, a := range t.Arms {
			inner := s.push()
			vars := map[string]bool{}
			patVars(a.Pat, vars)
			for name := range vars {
				inner.define(name)
			}
			arms[i] = Arm{a.Pat, resolveExpr(inner, a.Body)}
		}
		return &Match{resolveExpr(s, t.Scrut), arms}
	case *Rec:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{f.Label, resolveExpr(s, f.Value)}
		}
		return &Rec{fields}
	case *Tup:
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = resolveExpr(s, e)
		}
		return &Tup{elems}
	case *List:
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = resolveExpr(s, e)
		}
		return &List{elems}
	case *RecProj:
		return &RecProj{resolveExpr(s, t.Base), t.Label}
	case *TupProj:
		return &TupProj{resolveExpr(s, t.Base), t.Index}
	case *Fix:
		return &Fix{resolveExpr(s, t.Target)}
	default:
		panic(fmt.Sprintf("unhandled case in resolveExpr: %T", t))
	}
}
