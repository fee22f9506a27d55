package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var atomicTests = []struct {
	input string
	want  bool
}{
	{"x", true},
	{"func(x) x end", true},
	{"func(x) f(x) end", true}, // the body is sequenced later, inside the lambda
	{"f(x)", false},
	{"if x then y else z end", true},
	{"if f(x) then y else z end", false},
	{"if x then f(y) else z end", false},
	{"match x with | a -> a end", true},
	{"match x with | a -> f(a) end", false},
	{"match f(x) with | a -> a end", false},
	{"#tuple(x, y)", true},
	{"#tuple(x, f(y))", false},
	{"[x, y]", true},
	{"[f(x)]", false},
	{"{a = x}", true},
	{"{a = f(x)}", false},
	{"x.lbl", true},
	{"f(x).lbl", false},
	{"#get(x, 0)", true},
	{"#get(f(x), 0)", false},
	{"5", true},
	{"sample", true},
	{"weight", true},
	{"concat", true},
	{"infer", true},
	{"logpdf", true},
	{"utest", true},
	{"fix f", true},
}

func TestIsAtomic(t *testing.T) {
	for _, tt := range atomicTests {
		if got := isAtomic(mustParse(tt.input)); got != tt.want {
			t.Errorf("isAtomic(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// A complex conditional binds one continuation variable shared by every
// branch; the downstream continuation appears exactly once.
func TestSharedBranchContinuation(t *testing.T) {
	out := cpsTransform(resolvePrims(mustParse("if true then f(x) else g(y) end")))

	top, ok := out.(*App)
	require.True(t, ok, "output is %T, want binding application", out)
	bind, ok := top.Fn.(*Lam)
	require.True(t, ok, "output head is %T, want continuation binding", top.Fn)
	_, ok = top.Arg.(*Lam)
	require.True(t, ok, "top-level continuation is %T, want identity lambda", top.Arg)

	cond, ok := bind.Body.(*If)
	require.True(t, ok, "binding body is %T, want If", bind.Body)

	wantBranch := func(fn, arg string) Term {
		return &App{&App{&Var{fn}, &Var{bind.Param}}, &Var{arg}}
	}
	require.Empty(t, cmp.Diff(wantBranch("f", "x"), cond.Then))
	require.Empty(t, cmp.Diff(wantBranch("g", "y"), cond.Else))
}

func TestMatchSharesOneContinuation(t *testing.T) {
	out := cpsTransform(mustParse("match s with | 1 -> f(x) | y -> g(y) end"))

	top, ok := out.(*App)
	require.True(t, ok, "output is %T, want binding application", out)
	bind := top.Fn.(*Lam)
	m, ok := bind.Body.(*Match)
	require.True(t, ok, "binding body is %T, want Match", bind.Body)
	require.Len(t, m.Arms, 2)
	for i, a := range m.Arms {
		call, ok := a.Body.(*App)
		require.True(t, ok, "arm %d body is %T, want App", i, a.Body)
		inner, ok := call.Fn.(*App)
		require.True(t, ok, "arm %d callee is %T, want App", i, call.Fn)
		k, ok := inner.Arg.(*Var)
		require.True(t, ok, "arm %d continuation is %T, want Var", i, inner.Arg)
		require.Equal(t, bind.Param, k.Name, "arm %d uses a different continuation", i)
	}
}

// (func(x) x end)(5) must reduce to a tail call of the top-level
// continuation with 5.
func TestApplyIdentityFunction(t *testing.T) {
	src := "(func(x) x end)(5)"
	out := cpsTransform(mustParse(src))

	require.NoError(t, checkTailCalls(out))
	v, err := eval(out)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(&Const{Val: IntVal{5}}, v))

	// shape: converted operator applied to the continuation, then to 5
	top, ok := out.(*App)
	require.True(t, ok)
	inner, ok := top.Fn.(*App)
	require.True(t, ok)
	fn, ok := inner.Fn.(*Lam)
	require.True(t, ok, "operator is %T, want converted lambda", inner.Fn)
	_, ok = fn.Body.(*Lam)
	require.True(t, ok, "converted lambda must take its continuation first")
	require.Empty(t, cmp.Diff(&Const{Val: IntVal{5}}, top.Arg))
}

var agreementTests = []string{
	"42",
	"1 + 2 * 3",
	"let x = 1 + 2 in x * x end",
	"if 1 < 2 then 10 else 20 end",
	"if 2 < 1 then 10 else 20 end",
	"let f = func(x) x + 1 end in f(f(40)) end",
	"match #tuple(1, 2) with | #tuple(a, b) -> a + b end",
	"match 1 with | 2 -> 10 | x -> x end",
	"{a = 1 + 1, b = 2}.a",
	"#get(#tuple(1 + 1, 5), 1)",
	"[1, 2] == [1, 2]",
	"[1, 2] == [1, 3]",
	"concat([1, 2])([3])",
	"concat(\"foo\")(\"bar\")",
	"utest(1 + 1)(2)",
	"let xs = cons(1, [2, 3]) in head(tail(xs)) end",
	"or(not(true), and(1 == 1, 0 < 1))",
	"let fact = fix func(self) func(n) if n < 1 then 1 else n * self(n - 1) end end end in fact(5) end",
	"let sum = fix func(self) func(xs) if isnil(xs) then 0 else head(xs) + self(tail(xs)) end end end in sum([1, 2, 3, 4]) end",
	"let fib = fix func(self) func(n) if n < 2 then n else self(n - 1) + self(n - 2) end end end in fib(10) end",
	"match [1, 2] with | [] -> 0 | [a, b] -> a * 10 + b end",
	"normal(0.0, 1.0) == normal(0.0, 1.0)",
	"let mk = func(u) func(self) func(n) if n < 1 then u else self(n - 1) end end end end in (fix mk(7))(3) end",
}

// Direct evaluation of a program and direct evaluation of its CPS
// conversion (whose top-level continuation is the identity) must agree.
func TestDirectAndConvertedAgree(t *testing.T) {
	for _, src := range agreementTests {
		prog := resolvePrims(mustParse(src))
		require.NoError(t, checkSource(prog), src)

		direct, err := eval(prog)
		require.NoError(t, err, src)

		out := cpsTransform(prog)
		require.NoError(t, checkTailCalls(out), src)
		converted, err := eval(out)
		require.NoError(t, err, src)

		if !valueEqual(direct, converted) {
			t.Errorf("%q: direct %s, converted %s",
				src, formatTerm(direct), formatTerm(converted))
		}
	}
}

func nestedIfs(n int) string {
	src := "f(x)"
	for i := 0; i < n; i++ {
		src = "if c then " + src + " else g(y) end"
	}
	return src
}

// Output size for a chain of conditionals with complex branches must grow
// linearly; substituting the continuation into both branches instead of
// binding it once would grow exponentially.
func TestLinearGrowthOnConditionals(t *testing.T) {
	size := func(n int) int {
		return termSize(cpsTransform(mustParse(nestedIfs(n))))
	}
	s1, s5, s10, s20 := size(1), size(5), size(10), size(20)
	t.Logf("sizes: n=1:%d n=5:%d n=10:%d n=20:%d", s1, s5, s10, s20)

	// per-level cost must be constant: the second half of the chain can
	// cost no more than the first
	require.LessOrEqual(t, s20-s10, 2*(s10-s5)+10)
	require.LessOrEqual(t, s20, 25*s1)
}

var freshnessTests = []string{
	"if f(x) then g(y) else h(z) end",
	"#tuple(f(x), g(y))",
	"let a = f(x) in a(a) end",
	"match f(x) with | a -> g(a) | b -> h(b) end",
	"concat(f(x))(g(y))",
	"fix func(self) func(n) self(n) end end",
}

func TestGeneratedNamesAreFresh(t *testing.T) {
	for _, src := range freshnessTests {
		in := mustParse(src)
		inVars := termVars(in)
		out := cpsTransform(in)
		for name := range termVars(out) {
			if !strings.Contains(name, "$") {
				continue
			}
			if inVars[name] {
				t.Errorf("%q: generated name %s collides with an input variable", src, name)
			}
		}
	}
}

// Renaming the variables of the input must not change the shape of the
// output.
func TestRenamingInvariance(t *testing.T) {
	a := cpsTransform(mustParse("if f(x) then g(x) else x end"))
	b := cpsTransform(mustParse("if foo(bar) then baz(bar) else bar end"))
	require.Equal(t, termSize(a), termSize(b))
}

// The generator must also stay clear of $-suffixed names in terms built
// programmatically rather than parsed.
func TestGensymPriming(t *testing.T) {
	in := &If{
		&App{&Var{"f"}, &Var{"t$7"}},
		&Var{"t$7"},
		&Var{"x$3"},
	}
	out := cpsTransform(in)
	// t$7 is taken, so the first generated name must be numbered past it
	found := false
	walk(out, func(t Term) {
		if v, ok := t.(*Var); ok && v.Name == "t$8" {
			found = true
		}
	})
	if !found {
		t.Errorf("expected the lifted binding to use t$8, got %s", formatTerm(out))
	}
}

// Every source function gains exactly one leading continuation parameter.
func TestLambdaGainsContinuation(t *testing.T) {
	out := cpsTransform(mustParse("func(x) func(y) x end end"))
	outer, ok := out.(*Lam)
	require.True(t, ok)
	xLam, ok := outer.Body.(*Lam)
	require.True(t, ok)
	require.Equal(t, "x", xLam.Param)
	// body tail-calls the continuation with the converted inner function
	call, ok := xLam.Body.(*App)
	require.True(t, ok)
	require.Equal(t, &Var{outer.Param}, call.Fn)
	inner, ok := call.Arg.(*Lam)
	require.True(t, ok, "inner function is %T, want converted lambda", call.Arg)
	yLam, ok := inner.Body.(*Lam)
	require.True(t, ok, "inner function must take its continuation first")
	require.Equal(t, "y", yLam.Param)
}

func TestBuiltinWrapperShape(t *testing.T) {
	c := &converter{gen: new(gensym)}
	got := c.wrapBuiltin(&Concat{}, 2)
	want := &Lam{"k$4", &Lam{"a$1",
		&App{&Var{"k$4"}, &Lam{"k$3", &Lam{"a$2",
			&App{&Var{"k$3"},
				&App{&App{&Concat{}, &Var{"a$1"}}, &Var{"a$2"}}},
		}}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrapBuiltin(concat, 2) mismatch (-want +got):\n%s", diff)
	}
}

func TestProbabilisticPrimitivesPassThrough(t *testing.T) {
	out := cpsTransform(resolvePrims(mustParse("sample(normal(0.0, 1.0))")))
	require.NoError(t, checkTailCalls(out))

	samples := 0
	walk(out, func(t Term) {
		if s, ok := t.(*Sample); ok {
			samples++
			if s.Cont != nil || s.Dist != nil {
				panic("sample left its canonical shape")
			}
		}
	})
	require.Equal(t, 1, samples, "sample must pass through unchanged")
}

var panicTests = []struct {
	name string
	in   Term
}{
	{"closure in source", &Closure{Param: "x", Body: &Var{"x"}}},
	{"partial concat", &Concat{Lhs: &Var{"x"}}},
	{"partial infer", &Infer{Model: &Var{"m"}}},
	{"partial logpdf", &LogPdf{Arg: &Var{"v"}}},
	{"partial utest", &Utest{Lhs: &Var{"x"}}},
	{"partial sample", &Sample{Cont: &Var{"k"}}},
	{"partial weight", &Weight{Arg: &Var{"w"}}},
	{"applied constant", &Const{Val: BuiltinVal{"add"}, Arity: 2, Args: []Term{&Var{"x"}}}},
}

func TestInvariantBreachesPanic(t *testing.T) {
	for _, tt := range panicTests {
		require.Panics(t, func() { cpsTransform(tt.in) }, tt.name)
	}
}

func TestCheckSourceReportsBreaches(t *testing.T) {
	for _, tt := range panicTests {
		if err := checkSource(tt.in); err == nil {
			t.Errorf("checkSource(%s): expected an error but found none", tt.name)
		}
	}
	if err := checkSource(mustParse("if f(x) then sample else weight end")); err != nil {
		t.Errorf("checkSource on canonical input: unexpected error: %v", err)
	}
}

// A computed fixpoint target is hoisted by the lifting pass instead of
// slipping into the atomic conversion path.
func TestComplexFixTarget(t *testing.T) {
	var out Term
	require.NotPanics(t, func() { out = cpsTransform(mustParse("fix f(x)")) })
	require.NoError(t, checkTailCalls(out))

	// shape: f called with a continuation that binds the hoisted target
	top, ok := out.(*App)
	require.True(t, ok, "output is %T, want App", out)
	inner, ok := top.Fn.(*App)
	require.True(t, ok, "output head is %T, want App", top.Fn)
	require.Equal(t, &Var{"f"}, inner.Fn)
	_, ok = inner.Arg.(*Lam)
	require.True(t, ok, "continuation is %T, want lambda", inner.Arg)
	require.Equal(t, &Var{"x"}, top.Arg)
}

func TestTailFormViolations(t *testing.T) {
	bad := []struct {
		name string
		in   Term
	}{
		{"foreign variable body", &Lam{"x", &Var{"y"}}},
		{"call bypassing the continuation", &Lam{"k", &Lam{"x", &App{&Var{"f"}, &Var{"f"}}}}},
		{"bare branch body", &Lam{"k", &Lam{"x", &If{&Var{"c"}, &Var{"x"}, &Var{"x"}}}}},
	}
	for _, tt := range bad {
		if err := checkTailCalls(tt.in); err == nil {
			t.Errorf("%s: expected an error but found none", tt.name)
		}
	}
}

func TestAtomicFastPath(t *testing.T) {
	// a fully atomic program converts without a top-level continuation
	out := cpsTransform(mustParse("#tuple(x, [y], {a = z}.a)"))
	if _, ok := out.(*Tup); !ok {
		t.Fatalf("atomic program converted to %T, want Tup", out)
	}
	require.NoError(t, checkTailCalls(out))
}

func TestTailCallDiscipline(t *testing.T) {
	for _, src := range append(append([]string{}, agreementTests...), freshnessTests...) {
		out := cpsTransform(resolvePrims(mustParse(src)))
		if err := checkTailCalls(out); err != nil {
			t.Errorf("%q: %v", src, err)
		}
	}
}

func ExampleformatTerm() {
	fmt.Println(formatTerm(mustParse("let x = 1 in x end")))
	// Output:
	// func(x)
	//   x
	// end(1)
}
