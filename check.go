package main

import (
	"fmt"
	"strings"
)

// check.go validates the shapes the transformation relies on: checkSource
// rejects inputs that violate the canonical pre-transformation invariants,
// and checkTailCalls verifies the tail-call discipline of transformed
// output. Both return ordinary errors; the passes themselves panic when
// they trip over the same breaches mid-rewrite.

func checkSource(t Term) error {
	var errs []error
	walk(t, func(t Term) {
		switch t := t.(type) {
		case *Closure:
			errs = append(errs, fmt.Errorf("closure should not exist before evaluation"))
		case *Const:
			if len(t.Args) != 0 {
				errs = append(errs, fmt.Errorf("constant %s is partially applied", formatTerm(&Const{Val: t.Val})))
			}
		case *Concat:
			if t.Lhs != nil {
				errs = append(errs, fmt.Errorf("concat is partially applied"))
			}
		case *Infer:
			if t.Model != nil {
				errs = append(errs, fmt.Errorf("infer is partially applied"))
			}
		case *LogPdf:
			if t.Arg != nil {
				errs = append(errs, fmt.Errorf("logpdf is partially applied"))
			}
		case *Utest:
			if t.Lhs != nil {
				errs = append(errs, fmt.Errorf("utest is partially applied"))
			}
		case *Sample:
			if t.Cont != nil || t.Dist != nil {
				errs = append(errs, fmt.Errorf("sample is partially applied"))
			}
		case *Weight:
			if t.Cont != nil || t.Arg != nil {
				errs = append(errs, fmt.Errorf("weight is partially applied"))
			}
		case *DWeight:
			if t.Cont != nil || t.Arg != nil {
				errs = append(errs, fmt.Errorf("dweight is partially applied"))
			}
		}
	})
	return multiError(errs...)
}

// checkTailCalls walks transformed output and reports every function body
// that escapes the tail-call discipline. A function either returns its own
// parameter (an identity continuation), is the outer half of a curried
// continuation/parameter pair, or ends in a tail call threading the
// continuation in scope.
func checkTailCalls(t Term) error {
	c := new(tailChecker)
	if _, ok := t.(*App); ok {
		// a complex program tail-calls the top-level identity continuation
		c.tail("", t)
	} else {
		c.value(t)
	}
	return multiError(c.errs...)
}

type tailChecker struct {
	errs []error
}

func (c *tailChecker) errorf(format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

// value checks a term standing for a value: a converted atom or a saturated
// primitive application.
func (c *tailChecker) value(t Term) {
	switch t := t.(type) {
	case *Var, *Const, *Sample, *Weight, *DWeight,
		*Concat, *Infer, *LogPdf, *Utest:
	case *Lam:
		c.lam(t)
	case *Fix:
		// the combinator is applied to the converted functional with its
		// administrative continuation already stripped
		if app, ok := t.Target.(*App); ok {
			c.value(app.Fn)
			c.cont("", app.Arg)
			return
		}
		c.value(t.Target)
	case *App:
		spine := Term(t)
		for {
			app, ok := spine.(*App)
			if !ok {
				break
			}
			c.value(app.Arg)
			spine = app.Fn
		}
		switch spine.(type) {
		case *Const, *Sample, *Weight, *DWeight,
			*Concat, *Infer, *LogPdf, *Utest:
		default:
			c.errorf("application of %s is not a tail call", formatTerm(spine))
		}
	case *If:
		c.value(t.Cond)
		c.value(t.Then)
		c.value(t.Else)
	case *Match:
		c.value(t.Scrut)
		for _, a := range t.Arms {
			c.value(a.Body)
		}
	case *Rec:
		for _, f := range t.Fields {
			c.value(f.Value)
		}
	case *Tup:
		for _, e := range t.Elems {
			c.value(e)
		}
	case *List:
		for _, e := range t.Elems {
			c.value(e)
		}
	case *RecProj:
		c.value(t.Base)
	case *TupProj:
		c.value(t.Base)
	case *Closure:
		c.errorf("closure in transformed output")
	default:
		panic(fmt.Sprintf("unhandled case in tailChecker.value: %T", t))
	}
}

// lam checks a function in value position.
func (c *tailChecker) lam(l *Lam) {
	switch body := l.Body.(type) {
	case *Var:
		if body.Name != l.Param {
			c.errorf("function of %s returns the foreign variable %s", l.Param, body.Name)
		}
	case *Lam:
		// curried pair: l binds the continuation, body binds the parameter
		c.tail(l.Param, body.Body)
	case *If, *Match:
		c.branches(l.Param, l.Body)
	default:
		c.errorf("function of %s returns a bare %T", l.Param, l.Body)
	}
}

// tail checks a term whose evaluation must end in a call of the continuation
// named k. The empty name stands for the top level, where the continuation is
// an identity literal.
func (c *tailChecker) tail(k string, t Term) {
	app, ok := t.(*App)
	if !ok {
		c.errorf("%T in tail position, want an application", t)
		return
	}
	switch fn := app.Fn.(type) {
	case *Var:
		if fn.Name != k {
			c.errorf("tail call of %s bypasses the continuation in scope", fn.Name)
		}
		c.value(app.Arg)
	case *Lam:
		switch fn.Body.(type) {
		case *If, *Match:
			// a continuation bound once and shared across branches
			c.branches(fn.Param, fn.Body)
			c.cont(k, app.Arg)
		default:
			// continuation literal in callee position
			c.cont(k, fn)
			c.value(app.Arg)
		}
	case *App:
		// converted callee applied to the continuation, then the argument
		c.value(fn.Fn)
		c.cont(k, fn.Arg)
		c.value(app.Arg)
	default:
		c.errorf("tail call through a %T callee", app.Fn)
	}
}

// cont checks a term standing in continuation position: the continuation in
// scope, an identity, or a literal that itself ends in a tail call of the
// continuation in scope.
func (c *tailChecker) cont(k string, t Term) {
	switch t := t.(type) {
	case *Var:
		if t.Name != k {
			c.errorf("continuation %s is not the one in scope", t.Name)
		}
	case *Lam:
		if v, ok := t.Body.(*Var); ok {
			if v.Name != t.Param {
				c.errorf("function of %s returns the foreign variable %s", t.Param, v.Name)
			}
			return
		}
		c.tail(k, t.Body)
	default:
		c.errorf("%T in continuation position", t)
	}
}

// branches checks a branching body whose arms must all tail-call the shared
// continuation k.
func (c *tailChecker) branches(k string, t Term) {
	switch t := t.(type) {
	case *If:
		c.value(t.Cond)
		c.tail(k, t.Then)
		c.tail(k, t.Else)
	case *Match:
		c.value(t.Scrut)
		for _, a := range t.Arms {
			c.tail(k, a.Body)
		}
	}
}

type ErrorList []error

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// multiError compacts its arguments, dropping nils.
func multiError(errors ...error) error {
	j := 0
	for i := range errors {
		if errors[i] != nil {
			if i != j {
				errors[j] = errors[i]
			}
			j++
		}
	}
	switch j {
	case 0:
		return nil
	case 1:
		return errors[0]
	default:
		return ErrorList(errors[:j])
	}
}
