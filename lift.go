package main

import "fmt"

// lift.go normalizes a term ahead of CPS conversion by hoisting complex
// subterms out of non-tail positions (the condition of an if, the scrutinee
// of a match, aggregate elements, projection bases, fix targets) into fresh
// bindings:
//
//	#tuple(f(x), y)   =>   let t = f(x) in #tuple(t, y) end
//
// encoded as App(Lam(t, ...), f(x)). After this pass the only node shapes
// that can still be complex are App, If and Match.
//
// Tail positions (both sides of an application, function bodies, branch
// and arm bodies) are lifted in place and never hoisted.

type lifter struct {
	gen *gensym
}

type binding struct {
	name string
	val  Term
}

func (l *lifter) lift(t Term) Term {
	switch t := t.(type) {
	case *Var, *Const, *Sample, *Weight, *DWeight,
		*Concat, *Infer, *LogPdf, *Utest:
		return t
	case *Lam:
		return &Lam{t.Param, l.lift(t.Body)}
	case *App:
		return &App{l.lift(t.Fn), l.lift(t.Arg)}
	case *If:
		var binds []binding
		cond := l.extract(t.Cond, &binds)
		out := &If{cond, l.lift(t.Then), l.lift(t.Else)}
		return wrapBindings(binds, out)
	case *Match:
		var binds []binding
		scrut := l.extract(t.Scrut, &binds)
		arms := make([]Arm, len(t.Arms))
		for i, a := range t.Arms {
			arms[i] = Arm{a.Pat, l.lift(a.Body)}
		}
		return wrapBindings(binds, &Match{scrut, arms})
	case *Rec:
		var binds []binding
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{f.Label, l.extract(f.Value, &binds)}
		}
		return wrapBindings(binds, &Rec{fields})
	case *Tup:
		var binds []binding
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = l.extract(e, &binds)
		}
		return wrapBindings(binds, &Tup{elems})
	case *List:
		var binds []binding
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = l.extract(e, &binds)
		}
		return wrapBindings(binds, &List{elems})
	case *RecProj:
		var binds []binding
		base := l.extract(t.Base, &binds)
		return wrapBindings(binds, &RecProj{base, t.Label})
	case *TupProj:
		var binds []binding
		base := l.extract(t.Base, &binds)
		return wrapBindings(binds, &TupProj{base, t.Index})
	case *Fix:
		// the converter wraps the target in place, so it must be atomic
		var binds []binding
		target := l.extract(t.Target, &binds)
		return wrapBindings(binds, &Fix{target})
	case *Closure:
		panic("lift: closure should not exist before evaluation")
	default:
		panic(fmt.Sprintf("unhandled case in lift: %T", t))
	}
}

// extract lifts a non-tail child in place and, if it is still complex,
// replaces it with a fresh variable and records the pending binding.
func (l *lifter) extract(t Term, binds *[]binding) Term {
	t = l.lift(t)
	if isAtomic(t) {
		return t
	}
	name := l.gen.fresh("t")
	*binds = append(*binds, binding{name, t})
	return &Var{name}
}

// wrapBindings wraps body in the pending bindings, first binding outermost,
// preserving the left-to-right evaluation order of the original children.
func wrapBindings(binds []binding, body Term) Term {
	for i := len(binds) - 1; i >= 0; i-- {
		body = &App{&Lam{binds[i].name, body}, binds[i].val}
	}
	return body
}
