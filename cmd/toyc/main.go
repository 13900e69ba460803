package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler"
)

func main() {
	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("dump-ir", false, "write the ir dump next to the assembly"),
			cli.NewFlag("no-regalloc", false, "emit virtual-register assembly"),
		},
	}

	irCmd := &cli.Command{
		Name:   "ir",
		Action: irAct,
		Args:   cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "toyc",
		Description: "toyc compiles toy source files to aarch64 assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("debug", env.Str("TOYC_DEBUG", ""), "debug log topics"),
		},
		Commands: []*cli.Command{
			compileCmd,
			irCmd,
			parseCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("debug"))

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		asm, err := compiler.Compile(ctx, a, text, !c.Bool("no-regalloc"))
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		out := outName(a, ".s")

		err = os.WriteFile(out, asm, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}

		if !c.Bool("dump-ir") {
			continue
		}

		b, err := compiler.DumpIR(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "dump ir %v", a)
		}

		out = outName(a, ".ir")

		err = os.WriteFile(out, b, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		b, err := compiler.DumpIR(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "dump ir %v", a)
		}

		fmt.Printf("%s", b)
	}

	return nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		x, err := compiler.Parse(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("ast: %+v\n", x)
	}

	return nil
}

func outName(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
