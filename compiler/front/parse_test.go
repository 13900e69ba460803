package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toylang/toyc/compiler/ast"
	"github.com/toylang/toyc/compiler/tp"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()

	ctx := context.Background()

	s := New()
	s.AddFile(ctx, "test.toy", []byte(src))

	f, err := s.Parse(ctx)
	require.NoError(t, err)

	return f
}

func parseErr(t *testing.T, src string) error {
	t.Helper()

	ctx := context.Background()

	s := New()
	s.AddFile(ctx, "test.toy", []byte(src))

	_, err := s.Parse(ctx)
	require.Error(t, err)

	return err
}

func TestFunc(t *testing.T) {
	f := parse(t, `
# toy fib
func fib(n: Int64): Int64 {
	if n < 2 {
		return 1;
	} else {
		return fib(n - 1) + fib(n - 2);
	}
}
`)

	require.Len(t, f.Decls, 1)

	d := f.Decls[0]
	assert.Equal(t, "fib", d.Name)
	require.Len(t, d.Params, 1)
	assert.Equal(t, "n", d.Params[0].Name)
	assert.Equal(t, tp.Int64(), d.Params[0].Type)
	assert.Equal(t, tp.Int64(), d.Ret)
	require.NotNil(t, d.Body)
	require.Len(t, d.Body.Stmts, 1)

	iff, ok := d.Body.Stmts[0].(ast.If)
	require.True(t, ok)

	cond, ok := iff.Cond.(ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.Lt, cond.Kind)

	require.NotNil(t, iff.Else)
	require.Len(t, iff.Else.Stmts, 1)

	ret, ok := iff.Else.Stmts[0].(ast.Return)
	require.True(t, ok)

	sum, ok := ret.X.(ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.Add, sum.Kind)

	call, ok := sum.L.(ast.Call)
	require.True(t, ok)
	assert.Equal(t, "fib", call.Name)
	require.Len(t, call.Args, 1)
}

func TestExtern(t *testing.T) {
	f := parse(t, `
extern func putchar(c: Int64): Int64;

func main() {
	putchar(72);
}
`)

	require.Len(t, f.Decls, 2)

	assert.Equal(t, "putchar", f.Decls[0].Name)
	assert.Nil(t, f.Decls[0].Body)

	assert.Equal(t, "main", f.Decls[1].Name)
	assert.Equal(t, tp.Void{}, f.Decls[1].Ret)
	require.NotNil(t, f.Decls[1].Body)
}

func TestPrecedence(t *testing.T) {
	f := parse(t, `func f(): Int64 { return 1 + 2 * 3; }`)

	ret := f.Decls[0].Body.Stmts[0].(ast.Return)

	sum, ok := ret.X.(ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.Add, sum.Kind)

	assert.Equal(t, ast.Num{Pos: 25, Val: 1}, sum.L)

	mul, ok := sum.R.(ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.Mul, mul.Kind)
}

func TestAssignRightAssoc(t *testing.T) {
	f := parse(t, `
func f() {
	var a: Int64;
	var b: Int64;
	a = b = 1;
}
`)

	st := f.Decls[0].Body.Stmts[2].(ast.ExprStmt)

	outer, ok := st.X.(ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.Assign, outer.Kind)

	inner, ok := outer.R.(ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.Assign, inner.Kind)
}

func TestUnary(t *testing.T) {
	f := parse(t, `func f(x: Int64): Int64 { return -~x; }`)

	ret := f.Decls[0].Body.Stmts[0].(ast.Return)

	neg, ok := ret.X.(ast.UnOp)
	require.True(t, ok)
	require.Equal(t, ast.Neg, neg.Kind)

	not, ok := neg.X.(ast.UnOp)
	require.True(t, ok)
	assert.Equal(t, ast.BitNot, not.Kind)
}

func TestParens(t *testing.T) {
	f := parse(t, `func f(): Int64 { return (1 + 2) * 3; }`)

	ret := f.Decls[0].Body.Stmts[0].(ast.Return)

	mul, ok := ret.X.(ast.BinOp)
	require.True(t, ok)
	require.Equal(t, ast.Mul, mul.Kind)

	sum, ok := mul.L.(ast.BinOp)
	require.True(t, ok)
	assert.Equal(t, ast.Add, sum.Kind)
}

func TestWhile(t *testing.T) {
	f := parse(t, `
func f(n: Int64) {
	var i: Int64 = 0;
	while i < n {
		i = i + 1;
	}
}
`)

	w, ok := f.Decls[0].Body.Stmts[1].(ast.While)
	require.True(t, ok)
	require.Len(t, w.Body.Stmts, 1)
}

func TestElseIf(t *testing.T) {
	f := parse(t, `
func sign(x: Int64): Int64 {
	if x < 0 {
		return 0 - 1;
	} else if x > 0 {
		return 1;
	} else {
		return 0;
	}
}
`)

	iff := f.Decls[0].Body.Stmts[0].(ast.If)
	require.NotNil(t, iff.Else)
	require.Len(t, iff.Else.Stmts, 1)

	nested, ok := iff.Else.Stmts[0].(ast.If)
	require.True(t, ok)
	assert.NotNil(t, nested.Else)
}

func TestExternNoFuncKeyword(t *testing.T) {
	f := parse(t, `extern foo(a: Int64, b: Int64): Int64;`)

	require.Len(t, f.Decls, 1)

	d := f.Decls[0]
	assert.Equal(t, "foo", d.Name)
	assert.Nil(t, d.Body)
	require.Len(t, d.Params, 2)
	assert.Equal(t, tp.Int64(), d.Ret)
}

func TestPtrType(t *testing.T) {
	f := parse(t, `func f(p: *Int64) {}`)

	assert.Equal(t, tp.Ptr{X: tp.Int64()}, f.Decls[0].Params[0].Type)

	f = parse(t, `func g(pp: **Int64) {}`)

	assert.Equal(t, tp.Ptr{X: tp.Ptr{X: tp.Int64()}}, f.Decls[0].Params[0].Type)
}

func TestPtrVarDecl(t *testing.T) {
	f := parse(t, `func f() { var a: *Int64; }`)

	v, ok := f.Decls[0].Body.Stmts[0].(ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, tp.Ptr{X: tp.Int64()}, v.Type)
}

func TestComments(t *testing.T) {
	f := parse(t, `
# leading comment
func f() { # trailing
	# a line of its own
	return;
}
`)

	require.Len(t, f.Decls, 1)
	require.Len(t, f.Decls[0].Body.Stmts, 1)
}

func TestForUnsupported(t *testing.T) {
	err := parseErr(t, `func f() { for; }`)
	assert.ErrorContains(t, err, "not supported")
}

func TestLogicalUnsupported(t *testing.T) {
	err := parseErr(t, `func f(a: Int64, b: Int64) { var x: Int64 = a && b; }`)
	assert.ErrorContains(t, err, "not supported")

	err = parseErr(t, `func f(a: Int64) { var x: Int64 = !a; }`)
	assert.ErrorContains(t, err, "not supported")
}

func TestMissingSemicolon(t *testing.T) {
	err := parseErr(t, `func f() { return 1 }`)

	var u UnexpectedError
	require.ErrorAs(t, err, &u)
	assert.Equal(t, Char('}'), u.Token)
}

func TestBadToken(t *testing.T) {
	err := parseErr(t, `func f() { return @; }`)

	var u UnexpectedError
	require.ErrorAs(t, err, &u)
}

func TestNext(t *testing.T) {
	s := New()
	s.AddFile(context.Background(), "test.toy", []byte("x >= 10;"))

	tk, _, i := s.next(0)
	assert.Equal(t, Ident("x"), tk)

	tk, _, i = s.next(i)
	assert.Equal(t, Op(">="), tk)

	tk, _, i = s.next(i)
	assert.Equal(t, Number("10"), tk)

	tk, _, i = s.next(i)
	assert.Equal(t, Char(';'), tk)

	tk, _, _ = s.next(i)
	assert.Nil(t, tk)
}
