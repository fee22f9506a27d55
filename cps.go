package main

import "fmt"

// cps.go does an ast-to-ast transformation from the lifted core language
// into continuation passing style.
//
// Every function gains a leading continuation parameter:
//
//	C[ func(x) body end ] = func(k) func(x) C[k][ body ] end end
//
// and every call site threads the continuation in front of the argument:
//
//	C[k][ f(e) ] = C[f](k)(C[e])
//
// so that a transformed function never returns; it tail-calls its
// continuation with the result.

// isAtomic reports whether a term can be evaluated without any control-flow
// sequencing. Atomic terms are converted by direct wrapping; complex terms
// need a continuation threaded through them.
func isAtomic(t Term) bool {
	switch t := t.(type) {
	case *Var, *Lam, *Closure, *Const, *Fix,
		*Concat, *Infer, *LogPdf, *Utest,
		*Sample, *Weight, *DWeight:
		return true
	case *App:
		// applications are where computation happens
		return false
	case *If:
		return isAtomic(t.Cond) && isAtomic(t.Then) && isAtomic(t.Else)
	case *Match:
		if !isAtomic(t.Scrut) {
			return false
		}
		for _, a := range t.Arms {
			if !isAtomic(a.Body) {
				return false
			}
		}
		return true
	case *Rec:
		for _, f := range t.Fields {
			if !isAtomic(f.Value) {
				return false
			}
		}
		return true
	case *Tup:
		for _, e := range t.Elems {
			if !isAtomic(e) {
				return false
			}
		}
		return true
	case *List:
		for _, e := range t.Elems {
			if !isAtomic(e) {
				return false
			}
		}
		return true
	case *RecProj:
		return isAtomic(t.Base)
	case *TupProj:
		return isAtomic(t.Base)
	default:
		panic(fmt.Sprintf("unhandled case in isAtomic: %T", t))
	}
}

type converter struct {
	gen *gensym
}

// identity builds the one-argument identity function.
func (c *converter) identity() *Lam {
	x := c.gen.fresh("x")
	return &Lam{x, &Var{x}}
}

// atomic converts a term that isAtomic reports true for, producing its CPS
// value directly.
func (c *converter) atomic(t Term) Term {
	switch t := t.(type) {
	case *Var:
		return t
	case *Lam:
		k := c.gen.fresh("k")
		return &Lam{k, &Lam{t.Param, c.complex(&Var{k}, t.Body)}}
	case *Const:
		if len(t.Args) != 0 {
			panic(fmt.Sprintf("cps: applied constant %v should not exist before evaluation", t.Val))
		}
		if t.Arity == 0 {
			return t
		}
		return c.wrapBuiltin(t, t.Arity)
	case *Fix:
		return c.wrapFix(t)
	case *Concat:
		if t.Lhs != nil {
			panic("cps: partially applied concat should not exist before evaluation")
		}
		return c.wrapBuiltin(t, 2)
	case *Infer:
		if t.Model != nil {
			panic("cps: partially applied infer should not exist before evaluation")
		}
		return c.wrapBuiltin(t, 1)
	case *LogPdf:
		if t.Arg != nil {
			panic("cps: partially applied logpdf should not exist before evaluation")
		}
		return c.wrapBuiltin(t, 2)
	case *Utest:
		if t.Lhs != nil {
			panic("cps: partially applied utest should not exist before evaluation")
		}
		return c.wrapBuiltin(t, 2)
	case *Sample:
		if t.Cont != nil || t.Dist != nil {
			panic("cps: partially applied sample should not exist before evaluation")
		}
		return t
	case *Weight:
		if t.Cont != nil || t.Arg != nil {
			panic("cps: partially applied weight should not exist before evaluation")
		}
		return t
	case *DWeight:
		if t.Cont != nil || t.Arg != nil {
			panic("cps: partially applied dweight should not exist before evaluation")
		}
		return t
	case *If:
		return &If{c.atomic(t.Cond), c.atomic(t.Then), c.atomic(t.Else)}
	case *Match:
		arms := make([]Arm, len(t.Arms))
		for i, a := range t.Arms {
			arms[i] = Arm{a.Pat, c.atomic(a.Body)}
		}
		return &Match{c.atomic(t.Scrut), arms}
	case *Rec:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{f.Label, c.atomic(f.Value)}
		}
		return &Rec{fields}
	case *Tup:
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.atomic(e)
		}
		return &Tup{elems}
	case *List:
		elems := make([]Term, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.atomic(e)
		}
		return &List{elems}
	case *RecProj:
		return &RecProj{c.atomic(t.Base), t.Label}
	case *TupProj:
		return &TupProj{c.atomic(t.Base), t.Index}
	case *Closure:
		panic("cps: closure should not exist before evaluation")
	case *App:
		panic("cps: atomic conversion of an application")
	default:
		panic(fmt.Sprintf("unhandled case in atomic: %T", t))
	}
}

// complex converts t so that its evaluation ends in a tail call of cont,
// a term denoting a one-argument continuation.
func (c *converter) complex(cont Term, t Term) Term {
	switch t := t.(type) {
	case *App:
		// operator before operand, left to right
		if !isAtomic(t.Fn) {
			f := c.gen.fresh("f")
			rest := c.complex(cont, &App{&Var{f}, t.Arg})
			return c.complex(&Lam{f, rest}, t.Fn)
		}
		fn := c.atomic(t.Fn)
		if !isAtomic(t.Arg) {
			e := c.gen.fresh("e")
			return c.complex(&Lam{e, &App{&App{fn, cont}, &Var{e}}}, t.Arg)
		}
		return &App{&App{fn, cont}, c.atomic(t.Arg)}
	case *If:
		if isAtomic(t) {
			return &App{cont, c.atomic(t)}
		}
		// Bind the continuation once and share it across both branches.
		// Substituting cont into each branch instead would duplicate the
		// downstream continuation at every branching point.
		k := c.gen.fresh("c")
		branched := &If{
			Cond: c.atomic(t.Cond),
			Then: c.complex(&Var{k}, t.Then),
			Else: c.complex(&Var{k}, t.Else),
		}
		return &App{&Lam{k, branched}, cont}
	case *Match:
		if isAtomic(t) {
			return &App{cont, c.atomic(t)}
		}
		// one shared continuation variable for every arm, as for If
		k := c.gen.fresh("c")
		arms := make([]Arm, len(t.Arms))
		for i, a := range t.Arms {
			arms[i] = Arm{a.Pat, c.complex(&Var{k}, a.Body)}
		}
		return &App{&Lam{k, &Match{c.atomic(t.Scrut), arms}}, cont}
	default:
		// after lifting, everything else is atomic
		return &App{cont, c.atomic(t)}
	}
}

// wrapBuiltin eta-expands an opaque operation of the given arity into
// curried CPS form: one (continuation, argument) lambda pair per parameter,
// with the innermost continuation receiving the saturated application.
func (c *converter) wrapBuiltin(t Term, arity int) Term {
	args := make([]string, arity)
	for i := range args {
		args[i] = c.gen.fresh("a")
	}
	inner := t
	for _, a := range args {
		inner = &App{inner, &Var{a}}
	}
	out := inner
	for i := arity - 1; i >= 0; i-- {
		k := c.gen.fresh("k")
		out = &Lam{k, &Lam{args[i], &App{&Var{k}, out}}}
	}
	return out
}

// wrapFix adapts the recursion combinator to the CPS calling convention.
// The converted target expects a continuation before its self parameter;
// applying it to the identity strips that administrative layer (the body
// under it is an immediate continuation call, so no effects can run there),
// leaving a function the combinator can unroll. The real continuation k
// still flows into the recursive body, so suspension inside the recursion
// captures the whole continuation.
func (c *converter) wrapFix(t *Fix) Term {
	target := c.atomic(t.Target)
	rec := &Fix{&App{target, c.identity()}}
	k := c.gen.fresh("k")
	v := c.gen.fresh("v")
	return &Lam{k, &Lam{v, &App{&App{rec, &Var{k}}, &Var{v}}}}
}

// cpsTransform lifts t and converts it to continuation passing style. When
// the lifted program is complex, the identity function serves as the
// top-level continuation.
func cpsTransform(t Term) Term {
	g := new(gensym)
	g.prime(t)
	lifted := (&lifter{gen: g}).lift(t)
	c := &converter{gen: g}
	if isAtomic(lifted) {
		return c.atomic(lifted)
	}
	return c.complex(c.identity(), lifted)
}
