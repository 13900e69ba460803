package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler/aarch64"
	"github.com/toylang/toyc/compiler/ast"
	"github.com/toylang/toyc/compiler/front"
	"github.com/toylang/toyc/compiler/ir"
	"github.com/toylang/toyc/compiler/irgen"
)

func CompileFile(ctx context.Context, name string, regalloc bool) (asm []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, regalloc)
}

func Compile(ctx context.Context, name string, text []byte, regalloc bool) (asm []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	m, err := IR(ctx, name, text)
	if err != nil {
		return nil, err
	}

	tm, err := aarch64.Generate(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "select instructions")
	}

	if tr.If("dump_asm_vregs") {
		tr.Printw("asm before allocation", "asm", string(tm.Dump(nil)))
	}

	if !regalloc {
		return tm.Dump(nil), nil
	}

	aarch64.Allocate(ctx, tm)

	if tr.If("dump_asm") {
		tr.Printw("asm", "asm", string(tm.Dump(nil)))
	}

	return tm.Dump(nil), nil
}

// IR runs the front half of the pipeline: parse and lower.
func IR(ctx context.Context, name string, text []byte) (m *ir.Module, err error) {
	tr := tlog.SpanFromContext(ctx)

	f, err := Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	m, err = irgen.Generate(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "generate ir")
	}

	if tr.If("dump_ir") {
		tr.Printw("ir", "module", m.Name, "dump", string(m.Dump(nil)))
	}

	if tr.If("validate") {
		for _, f := range m.Funcs {
			err = f.Validate()
			if err != nil {
				return nil, errors.Wrap(err, "validate func %v", f.Name)
			}
		}
	}

	return m, nil
}

func DumpIR(ctx context.Context, name string, text []byte) (b []byte, err error) {
	m, err := IR(ctx, name, text)
	if err != nil {
		return nil, err
	}

	return m.Dump(nil), nil
}

func Parse(ctx context.Context, name string, text []byte) (f *ast.File, err error) {
	st := front.New()

	st.AddFile(ctx, name, text)

	return st.Parse(ctx)
}
