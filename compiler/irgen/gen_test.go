package irgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toylang/toyc/compiler/front"
	"github.com/toylang/toyc/compiler/ir"
)

const fibSrc = `
func fib(n: Int64): Int64 {
	if n < 2 {
		return 1;
	} else {
		return fib(n - 1) + fib(n - 2);
	}
}
`

func lower(t *testing.T, src string) *ir.Module {
	t.Helper()

	ctx := context.Background()

	s := front.New()
	s.AddFile(ctx, "test.toy", []byte(src))

	f, err := s.Parse(ctx)
	require.NoError(t, err)

	m, err := Generate(ctx, f)
	require.NoError(t, err)

	for _, fn := range m.Funcs {
		require.NoError(t, fn.Validate(), "func %v", fn.Name)
	}

	return m
}

func lowerErr(t *testing.T, src string) error {
	t.Helper()

	ctx := context.Background()

	s := front.New()
	s.AddFile(ctx, "test.toy", []byte(src))

	f, err := s.Parse(ctx)
	require.NoError(t, err)

	_, err = Generate(ctx, f)
	require.Error(t, err)

	return err
}

func TestFib(t *testing.T) {
	m := lower(t, fibSrc)

	f := m.Func("fib")
	require.NotNil(t, f)

	assert.Len(t, f.Blocks, 4) // entry, then, else, exit

	exp := `define @fib(%0) {
bb_1:
	%2 = alloca
	store %0, %2
	%5 = load %2
	%6 = lt %5, $2
	cjump %6, bb_7, bb_10
bb_7:
	return $1
bb_10:
	%12 = load %2
	%13 = sub %12, $1
	fib = call @fib(%13)
	%15 = load %2
	%16 = sub %15, $2
	fib = call @fib(%16)
	%17 = add fib, fib
	return %17
bb_20:
	return
}
`

	assert.Equal(t, exp, string(f.Dump(nil)))
}

func TestVarAndAssign(t *testing.T) {
	m := lower(t, `
func f() {
	var a: Int64 = 1;
	a = a + 1;
}
`)

	f := m.Func("f")
	require.Len(t, f.Blocks, 1)

	var ops []ir.Op
	for _, x := range f.Entry().Insts {
		ops = append(ops, x.Op)
	}

	// assignment must not auto-load its left-hand side
	assert.Equal(t, []ir.Op{ir.Alloca, ir.Store, ir.Load, ir.Add, ir.Store, ir.Return}, ops)

	exp := `define @f() {
bb_0:
	%1 = alloca
	store $1, %1
	%5 = load %1
	%6 = add %5, $1
	store %6, %1
	return
}
`

	assert.Equal(t, exp, string(f.Dump(nil)))
}

func TestWhile(t *testing.T) {
	m := lower(t, `
func count(n: Int64): Int64 {
	var i: Int64 = 0;
	while i < n {
		i = i + 1;
	}
	return i;
}
`)

	f := m.Func("count")

	exp := `define @count(%0) {
bb_1:
	%2 = alloca
	store %0, %2
	%4 = alloca
	store $0, %4
	jump bb_7
bb_7:
	%11 = load %4
	%12 = load %2
	%13 = lt %11, %12
	cjump %13, bb_8, bb_9
bb_8:
	%16 = load %4
	%17 = add %16, $1
	store %17, %4
	jump bb_7
bb_9:
	%20 = load %4
	return %20
}
`

	assert.Equal(t, exp, string(f.Dump(nil)))

	// the condition block is entered from the loop head and from the body end
	cond := f.Blocks[1]

	preds := 0
	for _, bb := range f.Blocks {
		for _, x := range bb.Insts {
			if x.Op == ir.Jump && x.Then == cond {
				preds++
			}
		}
	}

	assert.Equal(t, 2, preds)
}

func TestIfNoElse(t *testing.T) {
	m := lower(t, `
func f(x: Int64): Int64 {
	if x < 0 {
		x = 0;
	}
	return x;
}
`)

	f := m.Func("f")
	require.Len(t, f.Blocks, 3) // entry, then, exit

	entry, then, exit := f.Blocks[0], f.Blocks[1], f.Blocks[2]

	cj := entry.Insts[len(entry.Insts)-1]
	require.Equal(t, ir.CJump, cj.Op)
	assert.Same(t, then, cj.Then)
	assert.Same(t, exit, cj.Else)

	j := then.Insts[len(then.Insts)-1]
	require.Equal(t, ir.Jump, j.Op)
	assert.Same(t, exit, j.Then)
}

func TestDeadExitTolerated(t *testing.T) {
	m := lower(t, `
func f(x: Int64): Int64 {
	if x < 0 {
		return 0;
	} else {
		return 1;
	}
}
`)

	f := m.Func("f")
	require.Len(t, f.Blocks, 4)

	// the exit block is unreachable but still terminated
	exit := f.Blocks[3]
	require.Len(t, exit.Insts, 1)
	assert.Equal(t, ir.Return, exit.Insts[0].Op)
	assert.Empty(t, exit.Insts[0].Args)
}

func TestVoidFallOff(t *testing.T) {
	m := lower(t, `
func noop() {
	var a: Int64 = 1;
}
`)

	f := m.Func("noop")

	last := f.Cur.Insts[len(f.Cur.Insts)-1]
	assert.Equal(t, ir.Return, last.Op)
	assert.Empty(t, last.Args)
}

func TestFlatArithmetic(t *testing.T) {
	m := lower(t, `
func f(a: Int64, b: Int64): Int64 {
	return a + b * a - b;
}
`)

	f := m.Func("f")
	require.Len(t, f.Blocks, 1)

	counts := map[ir.Op]int{}
	for _, x := range f.Entry().Insts {
		counts[x.Op]++
	}

	assert.Equal(t, 1, counts[ir.Add])
	assert.Equal(t, 1, counts[ir.Sub])
	assert.Equal(t, 1, counts[ir.Mul])
	assert.Equal(t, 4, counts[ir.Load], "one load per lvalue operand occurrence")
}

func TestUnaryRewrites(t *testing.T) {
	m := lower(t, `
func f(x: Int64): Int64 {
	return -x + ~x;
}
`)

	f := m.Func("f")

	b := string(f.Dump(nil))
	assert.Contains(t, b, "= sub $0, ")
	assert.Contains(t, b, ", $18446744073709551615")
}

func TestShadowing(t *testing.T) {
	m := lower(t, `
func f(): Int64 {
	var a: Int64 = 1;
	{
		var a: Int64 = 2;
		a = 3;
	}
	return a;
}
`)

	f := m.Func("f")

	// two distinct slots; the inner assignment targets the inner one
	allocas := 0
	for _, x := range f.Entry().Insts {
		if x.Op == ir.Alloca {
			allocas++
		}
	}

	assert.Equal(t, 2, allocas)

	// the final return loads the outer slot
	insts := f.Entry().Insts
	ret := insts[len(insts)-1]
	require.Equal(t, ir.Return, ret.Op)

	ld := ret.Args[0].(*ir.Inst)
	require.Equal(t, ir.Load, ld.Op)

	var outer *ir.Inst
	for _, x := range insts {
		if x.Op == ir.Alloca {
			outer = x
			break
		}
	}

	assert.Same(t, outer, ld.Args[0].(*ir.Inst))
}

func TestChainedAssign(t *testing.T) {
	m := lower(t, `
func f() {
	var a: Int64;
	var b: Int64;
	a = b = 7;
}
`)

	f := m.Func("f")

	stores := 0
	for _, x := range f.Entry().Insts {
		if x.Op == ir.Store {
			stores++

			// both stores store the same constant
			assert.Equal(t, "$7", x.Args[0].Name())
		}
	}

	assert.Equal(t, 2, stores)
}

func TestExternCallResolution(t *testing.T) {
	m := lower(t, `
extern func putchar(c: Int64): Int64;

func main() {
	putchar(72);
}
`)

	pc := m.Func("putchar")
	require.NotNil(t, pc)
	assert.True(t, pc.Extern)
	assert.Empty(t, pc.Blocks)

	f := m.Func("main")

	found := false
	for _, x := range f.Entry().Insts {
		if x.Op == ir.Call {
			found = true
			assert.Same(t, pc, x.Callee)
		}
	}

	assert.True(t, found)
}

func TestUndefinedVariable(t *testing.T) {
	err := lowerErr(t, `func f() { x = 1; }`)
	assert.ErrorContains(t, err, "undefined: x")
}

func TestUnknownFunction(t *testing.T) {
	err := lowerErr(t, `func f() { g(); }`)
	assert.ErrorContains(t, err, "unknown function: g")
}

func TestScopeEndsWithBlock(t *testing.T) {
	err := lowerErr(t, `
func f() {
	{
		var a: Int64 = 1;
	}
	a = 2;
}
`)

	assert.ErrorContains(t, err, "undefined: a")
}

func TestAssignToRvalue(t *testing.T) {
	err := lowerErr(t, `func f(x: Int64) { x + 1 = 2; }`)
	assert.ErrorContains(t, err, "cannot assign")
}

func TestRedefinition(t *testing.T) {
	err := lowerErr(t, `
func f() {}
func f() {}
`)

	assert.ErrorContains(t, err, "redefined")
}

func TestForwardCallFails(t *testing.T) {
	err := lowerErr(t, `
func main() { helper(); }
func helper() {}
`)

	assert.ErrorContains(t, err, "unknown function: helper")
}
