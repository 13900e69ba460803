package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestCompileFib(t *testing.T) {
	ctx := context.Background()

	asm, err := Compile(ctx, "fib.toy", []byte(fibSrc), true)
	require.NoError(t, err)

	b := string(asm)

	assert.Contains(t, b, "\t.global\t_fib")
	assert.Contains(t, b, "\t.p2align\t2")
	assert.Contains(t, b, "_fib:")
	assert.Contains(t, b, "fib_epilogue:")

	assert.Equal(t, 2, strings.Count(b, "bl\t_fib"))
	assert.Equal(t, 1, strings.Count(b, "sub\tsp, sp, #80"))

	t.Logf("asm:\n%s", b)
}

func TestCompileNoRegalloc(t *testing.T) {
	ctx := context.Background()

	asm, err := Compile(ctx, "fib.toy", []byte(fibSrc), false)
	require.NoError(t, err)

	assert.Contains(t, string(asm), "v0")
	assert.NotContains(t, string(asm), "stp\t")
}

func TestCompileExtern(t *testing.T) {
	ctx := context.Background()

	asm, err := Compile(ctx, "hello.toy", []byte(`
extern func putchar(c: Int64): Int64;

func main() {
	var i: Int64 = 0;
	while i < 3 {
		putchar(72);
		i = i + 1;
	}
}
`), true)
	require.NoError(t, err)

	b := string(asm)

	assert.Contains(t, b, "\t.global\t_main")
	assert.Contains(t, b, "bl\t_putchar")
	assert.NotContains(t, b, "_putchar:")
}

func TestDumpIR(t *testing.T) {
	ctx := context.Background()

	b, err := DumpIR(ctx, "fib.toy", []byte(fibSrc))
	require.NoError(t, err)

	assert.Contains(t, string(b), "define @fib(%0) {")
	assert.Contains(t, string(b), "cjump %6, bb_7, bb_10")
}

func TestCompileParseError(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, "bad.toy", []byte(`func f( {}`), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse text")
}

func TestCompileLoweringError(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, "bad.toy", []byte(`func f() { g(); }`), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown function")
}
