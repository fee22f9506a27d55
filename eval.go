package main

import (
	"fmt"
	"math"
)

// eval.go is a small call-by-value evaluator over the term model. The
// compiler proper never evaluates anything; this exists so the driver and
// the tests can check that a program and its CPS conversion agree. The
// probabilistic operations have no meaning here and report that they need
// an inference runtime.

// Env is a chain of variable bindings captured by closures.
type Env struct {
	name string
	val  Term
	next *Env
}

func (e *Env) extend(name string, val Term) *Env {
	return &Env{name, val, e}
}

func (e *Env) lookup(name string) (Term, bool) {
	for ; e != nil; e = e.next {
		if e.name == name {
			return e.val, true
		}
	}
	return nil, false
}

func eval(t Term) (Term, error) {
	return evalTerm(nil, t)
}

func evalTerm(env *Env, t Term) (Term, error) {
	switch t := t.(type) {
	case *Var:
		v, ok := env.lookup(t.Name)
		if !ok {
			return nil, fmt.Errorf("unbound variable %s", t.Name)
		}
		return v, nil
	case *Lam:
		return &Closure{t.Param, t.Body, env}, nil
	case *Closure:
		return t, nil
	case *App:
		fn, err := evalTerm(env, t.Fn)
		if err != nil {
			return nil, err
		}
		arg, err := evalTerm(env, t.Arg)
		if err != nil {
			return nil, err
		}
		return apply(fn, arg)
	case *If:
		c, err := evalTerm(env, t.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := boolOf(c)
		if !ok {
			return nil, fmt.Errorf("if condition must be a boolean, found %s", formatTerm(c))
		}
		if b {
			return evalTerm(env, t.Then)
		}
		return evalTerm(env, t.Else)
	case *Match:
		v, err := evalTerm(env, t.Scrut)
		if err != nil {
			return nil, err
		}
		for _, a := range t.Arms {
			if env2, ok := matchPat(env, a.Pat, v); ok {
				return evalTerm(env2, a.Body)
			}
		}
		return nil, fmt.Errorf("no arm matched %s", formatTerm(v))
	case *Rec:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			v, err := evalTerm(env, f.Value)
			if err != nil {
				return nil, err
			}
			fields[i] = Field{f.Label, v}
		}
		return &Rec{fields}, nil
	case *Tup:
		elems, err := evalAll(env, t.Elems)
		if err != nil {
			return nil, err
		}
		return &Tup{elems}, nil
	case *List:
		elems, err := evalAll(env, t.Elems)
		if err != nil {
			return nil, err
		}
		return &List{elems}, nil
	case *RecProj:
		base, err := evalTerm(env, t.Base)
		if err != nil {
			return nil, err
		}
		rec, ok := base.(*Rec)
		if !ok {
			return nil, fmt.Errorf("projection .%s of non-record %s", t.Label, formatTerm(base))
		}
		for _, f := range rec.Fields {
			if f.Label == t.Label {
				return f.Value, nil
			}
		}
		return nil, fmt.Errorf("record has no field %s", t.Label)
	case *TupProj:
		base, err := evalTerm(env, t.Base)
		if err != nil {
			return nil, err
		}
		tup, ok := base.(*Tup)
		if !ok {
			return nil, fmt.Errorf("projection #get(_, %d) of non-tuple %s", t.Index, formatTerm(base))
		}
		if t.Index < 0 || t.Index >= len(tup.Elems) {
			return nil, fmt.Errorf("tuple index %d out of range", t.Index)
		}
		return tup.Elems[t.Index], nil
	case *Const:
		return t, nil
	case *Fix:
		fv, err := evalTerm(env, t.Target)
		if err != nil {
			return nil, err
		}
		return &Fix{fv}, nil
	case *Concat, *Infer, *LogPdf, *Utest, *Sample, *Weight, *DWeight:
		return t, nil
	default:
		panic(fmt.Sprintf("unhandled case in evalTerm: %T", t))
	}
}

func evalAll(env *Env, terms []Term) ([]Term, error) {
	out := make([]Term, len(terms))
	for i, t := range terms {
		v, err := evalTerm(env, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func apply(fn, arg Term) (Term, error) {
	switch fn := fn.(type) {
	case *Closure:
		return evalTerm(fn.Env.extend(fn.Param, arg), fn.Body)
	case *Const:
		b, ok := fn.Val.(BuiltinVal)
		if !ok {
			return nil, fmt.Errorf("cannot apply literal %s", formatTerm(fn))
		}
		args := make([]Term, 0, len(fn.Args)+1)
		args = append(args, fn.Args...)
		args = append(args, arg)
		if len(args) < fn.Arity {
			return &Const{fn.Val, fn.Arity, args}, nil
		}
		return delta(b.Name, args)
	case *Fix:
		// unroll one step: (fix f) v = (f (fix f)) v
		self, err := apply(fn.Target, fn)
		if err != nil {
			return nil, err
		}
		return apply(self, arg)
	case *Concat:
		if fn.Lhs == nil {
			return &Concat{arg}, nil
		}
		return concatValues(fn.Lhs, arg)
	case *Utest:
		if fn.Lhs == nil {
			return &Utest{arg}, nil
		}
		return &Const{Val: BoolVal{valueEqual(fn.Lhs, arg)}}, nil
	case *Infer, *LogPdf, *Sample, *Weight, *DWeight:
		return nil, fmt.Errorf("%s requires an inference runtime", formatTerm(fn))
	default:
		return nil, fmt.Errorf("cannot apply non-function %s", formatTerm(fn))
	}
}

func delta(name string, args []Term) (Term, error) {
	switch name {
	case "add", "sub", "mul", "div":
		return arith(name, args[0], args[1])
	case "neg":
		return arith("sub", &Const{Val: IntVal{0}}, args[0])
	case "eq":
		return &Const{Val: BoolVal{valueEqual(args[0], args[1])}}, nil
	case "lt":
		a, aok := numOf(args[0])
		b, bok := numOf(args[1])
		if !aok || !bok {
			return nil, fmt.Errorf("operands to lt must be numbers")
		}
		return &Const{Val: BoolVal{a < b}}, nil
	case "not":
		b, ok := boolOf(args[0])
		if !ok {
			return nil, fmt.Errorf("operand to not must be a boolean")
		}
		return &Const{Val: BoolVal{!b}}, nil
	case "and", "or":
		a, aok := boolOf(args[0])
		b, bok := boolOf(args[1])
		if !aok || !bok {
			return nil, fmt.Errorf("operands to %s must be booleans", name)
		}
		if name == "and" {
			return &Const{Val: BoolVal{a && b}}, nil
		}
		return &Const{Val: BoolVal{a || b}}, nil
	case "cons":
		l, ok := args[1].(*List)
		if !ok {
			return nil, fmt.Errorf("second operand to cons must be a list")
		}
		elems := make([]Term, 0, len(l.Elems)+1)
		elems = append(elems, args[0])
		elems = append(elems, l.Elems...)
		return &List{elems}, nil
	case "head":
		l, ok := args[0].(*List)
		if !ok || len(l.Elems) == 0 {
			return nil, fmt.Errorf("head of a non-list or empty list")
		}
		return l.Elems[0], nil
	case "tail":
		l, ok := args[0].(*List)
		if !ok || len(l.Elems) == 0 {
			return nil, fmt.Errorf("tail of a non-list or empty list")
		}
		return &List{l.Elems[1:]}, nil
	case "isnil":
		l, ok := args[0].(*List)
		if !ok {
			return nil, fmt.Errorf("operand to isnil must be a list")
		}
		return &Const{Val: BoolVal{len(l.Elems) == 0}}, nil
	case "exp", "log":
		x, ok := numOf(args[0])
		if !ok {
			return nil, fmt.Errorf("operand to %s must be a number", name)
		}
		if name == "exp" {
			return &Const{Val: FloatVal{math.Exp(x)}}, nil
		}
		return &Const{Val: FloatVal{math.Log(x)}}, nil
	case "normal", "beta", "uniform", "bern":
		return &Const{Val: DistVal{name, args}}, nil
	default:
		panic(fmt.Sprintf("unhandled builtin in delta: %s", name))
	}
}

func arith(name string, a, b Term) (Term, error) {
	ca, aok := a.(*Const)
	cb, bok := b.(*Const)
	if !aok || !bok {
		return nil, fmt.Errorf("operands to %s must be numbers", name)
	}
	if ia, ok := ca.Val.(IntVal); ok {
		if ib, ok := cb.Val.(IntVal); ok {
			switch name {
			case "add":
				return &Const{Val: IntVal{ia.N + ib.N}}, nil
			case "sub":
				return &Const{Val: IntVal{ia.N - ib.N}}, nil
			case "mul":
				return &Const{Val: IntVal{ia.N * ib.N}}, nil
			case "div":
				if ib.N == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				return &Const{Val: IntVal{ia.N / ib.N}}, nil
			}
		}
	}
	fa, aok := numOf(a)
	fb, bok := numOf(b)
	if !aok || !bok {
		return nil, fmt.Errorf("operands to %s must be numbers", name)
	}
	switch name {
	case "add":
		return &Const{Val: FloatVal{fa + fb}}, nil
	case "sub":
		return &Const{Val: FloatVal{fa - fb}}, nil
	case "mul":
		return &Const{Val: FloatVal{fa * fb}}, nil
	case "div":
		return &Const{Val: FloatVal{fa / fb}}, nil
	}
	panic("unreachable")
}

func numOf(t Term) (float64, bool) {
	c, ok := t.(*Const)
	if !ok {
		return 0, false
	}
	switch v := c.Val.(type) {
	case IntVal:
		return float64(v.N), true
	case FloatVal:
		return v.F, true
	}
	return 0, false
}

func boolOf(t Term) (bool, bool) {
	c, ok := t.(*Const)
	if !ok {
		return false, false
	}
	v, ok := c.Val.(BoolVal)
	return v.B, ok
}

func concatValues(a, b Term) (Term, error) {
	if la, ok := a.(*List); ok {
		lb, ok := b.(*List)
		if !ok {
			return nil, fmt.Errorf("concat of a list and %s", formatTerm(b))
		}
		elems := make([]Term, 0, len(la.Elems)+len(lb.Elems))
		elems = append(elems, la.Elems...)
		elems = append(elems, lb.Elems...)
		return &List{elems}, nil
	}
	ca, aok := a.(*Const)
	cb, bok := b.(*Const)
	if aok && bok {
		sa, aok := ca.Val.(StrVal)
		sb, bok := cb.Val.(StrVal)
		if aok && bok {
			return &Const{Val: StrVal{sa.S + sb.S}}, nil
		}
	}
	return nil, fmt.Errorf("concat of %s and %s", formatTerm(a), formatTerm(b))
}

// valueEqual is structural equality on first-order values.
func valueEqual(a, b Term) bool {
	switch a := a.(type) {
	case *Const:
		cb, ok := b.(*Const)
		if !ok || len(a.Args) != 0 || len(cb.Args) != 0 {
			return false
		}
		if da, ok := a.Val.(DistVal); ok {
			db, ok := cb.Val.(DistVal)
			return ok && da.Name == db.Name && elemsEqual(da.Params, db.Params)
		}
		if _, ok := cb.Val.(DistVal); ok {
			return false
		}
		return a.Val == cb.Val
	case *Rec:
		rb, ok := b.(*Rec)
		if !ok || len(a.Fields) != len(rb.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Label != rb.Fields[i].Label ||
				!valueEqual(a.Fields[i].Value, rb.Fields[i].Value) {
				return false
			}
		}
		return true
	case *Tup:
		tb, ok := b.(*Tup)
		if !ok {
			return false
		}
		return elemsEqual(a.Elems, tb.Elems)
	case *List:
		lb, ok := b.(*List)
		if !ok {
			return false
		}
		return elemsEqual(a.Elems, lb.Elems)
	default:
		return false
	}
}

func elemsEqual(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func matchPat(env *Env, p Pat, v Term) (*Env, bool) {
	switch p := p.(type) {
	case *PVar:
		return env.extend(p.Name, v), true
	case *PConst:
		return env, valueEqual(&Const{Val: p.Val}, v)
	case *PTup:
		tup, ok := v.(*Tup)
		if !ok || len(tup.Elems) != len(p.Elems) {
			return env, false
		}
		for i, e := range p.Elems {
			env, ok = matchPat(env, e, tup.Elems[i])
			if !ok {
				return env, false
			}
		}
		return env, true
	case *PList:
		l, ok := v.(*List)
		if !ok || len(l.Elems) != len(p.Elems) {
			return env, false
		}
		for i, e := range p.Elems {
			env, ok = matchPat(env, e, l.Elems[i])
			if !ok {
				return env, false
			}
		}
		return env, true
	default:
		panic(fmt.Sprintf("unhandled case in matchPat: %T", p))
	}
}
