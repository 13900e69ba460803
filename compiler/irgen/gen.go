package irgen

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler/ast"
	"github.com/toylang/toyc/compiler/ir"
)

type (
	generator struct {
		m *ir.Module
		f *ir.Func

		scope []map[string]ir.Value
	}
)

var binOp = map[ast.BinKind]ir.Op{
	ast.Or:  ir.Or,
	ast.Xor: ir.Xor,
	ast.And: ir.And,

	ast.Eq: ir.Eq,
	ast.Ne: ir.Ne,
	ast.Lt: ir.Lt,
	ast.Le: ir.Le,
	ast.Gt: ir.Gt,
	ast.Ge: ir.Ge,

	ast.Shl: ir.LShl,
	ast.Shr: ir.AShr,

	ast.Add: ir.Add,
	ast.Sub: ir.Sub,
	ast.Mul: ir.Mul,
	ast.Div: ir.Div,
	ast.Mod: ir.Mod,
}

// Generate lowers the file to an IR module, one function at a time,
// in declaration order.
func Generate(ctx context.Context, file *ast.File) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "irgen", "file", file.Name)
	defer tr.Finish("err", &err)

	m = ir.NewModule(file.Name)

	for _, d := range file.Decls {
		err = generateFunc(ctx, m, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", d.Name)
		}
	}

	return m, nil
}

func generateFunc(ctx context.Context, m *ir.Module, d *ast.FuncDecl) (err error) {
	if d.Body == nil {
		return m.AddFunc(ir.NewExtern(d.Name, len(d.Params)))
	}

	f := ir.NewFunc(d.Name, len(d.Params))

	err = m.AddFunc(f)
	if err != nil {
		return err
	}

	g := &generator{m: m, f: f}

	defer g.enter()()

	// all parameter slots exist before any of the stores
	allocas := make([]*ir.Inst, len(d.Params))

	for i, p := range d.Params {
		allocas[i] = f.Alloca()
		g.bind(p.Name, allocas[i])
	}

	for i, p := range f.Params {
		f.Store(p, allocas[i])
	}

	err = g.block(ctx, d.Body)
	if err != nil {
		return err
	}

	if !f.Cur.Terminated() {
		f.Return(nil)
	}

	tlog.SpanFromContext(ctx).V("irgen").Printw("func", "name", f.Name, "blocks", len(f.Blocks))

	return nil
}

func (g *generator) block(ctx context.Context, b *ast.Block) (err error) {
	defer g.enter()()

	for _, x := range b.Stmts {
		err = g.stmt(ctx, x)
		if err != nil {
			return errors.Wrap(err, "at pos 0x%x", stmtPos(x))
		}
	}

	return nil
}

func (g *generator) stmt(ctx context.Context, x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.Block:
		return g.block(ctx, x)
	case ast.VarDecl:
		return g.varDecl(ctx, x)
	case ast.If:
		return g.ifStmt(ctx, x)
	case ast.While:
		return g.whileStmt(ctx, x)
	case ast.Return:
		return g.retStmt(ctx, x)
	case ast.ExprStmt:
		_, err = g.expr(ctx, x.X)
		return err
	default:
		panic(x)
	}
}

func (g *generator) varDecl(ctx context.Context, x ast.VarDecl) (err error) {
	a := g.f.Alloca()
	g.bind(x.Name, a)

	if x.Init == nil {
		return nil
	}

	v, err := g.expr(ctx, x.Init)
	if err != nil {
		return errors.Wrap(err, "var %v", x.Name)
	}

	g.f.Store(g.load(v), a)

	return nil
}

func (g *generator) ifStmt(ctx context.Context, x ast.If) (err error) {
	f := g.f

	cond, err := g.expr(ctx, x.Cond)
	if err != nil {
		return errors.Wrap(err, "condition")
	}

	cond = g.load(cond)

	cur := f.Cur

	then := f.NewBlock()
	f.Cur = then

	err = g.block(ctx, x.Then)
	if err != nil {
		return err
	}

	thenEnd := f.Cur

	if x.Else == nil {
		f.Cur = cur

		exit := f.NewBlock()
		f.CJump(cond, then, exit)

		if !thenEnd.Terminated() {
			f.Cur = thenEnd
			f.Jump(exit)
		}

		f.Cur = exit

		return nil
	}

	els := f.NewBlock()
	f.Cur = els

	err = g.block(ctx, x.Else)
	if err != nil {
		return err
	}

	elsEnd := f.Cur

	f.Cur = cur
	f.CJump(cond, then, els)

	// the exit may be unreachable, but later statements still need a cursor
	exit := f.NewBlock()

	if !thenEnd.Terminated() {
		f.Cur = thenEnd
		f.Jump(exit)
	}

	if !elsEnd.Terminated() {
		f.Cur = elsEnd
		f.Jump(exit)
	}

	f.Cur = exit

	return nil
}

func (g *generator) whileStmt(ctx context.Context, x ast.While) (err error) {
	f := g.f

	// all three exist before any code so forward jumps are well-formed
	cond := f.NewBlock()
	body := f.NewBlock()
	exit := f.NewBlock()

	f.Jump(cond)
	f.Cur = cond

	c, err := g.expr(ctx, x.Cond)
	if err != nil {
		return errors.Wrap(err, "condition")
	}

	f.CJump(g.load(c), body, exit)

	f.Cur = body

	err = g.block(ctx, x.Body)
	if err != nil {
		return err
	}

	if !f.Cur.Terminated() {
		f.Jump(cond)
	}

	f.Cur = exit

	return nil
}

func (g *generator) retStmt(ctx context.Context, x ast.Return) (err error) {
	if x.X == nil {
		g.f.Return(nil)
		return nil
	}

	v, err := g.expr(ctx, x.X)
	if err != nil {
		return errors.Wrap(err, "return")
	}

	g.f.Return(g.load(v))

	return nil
}

func (g *generator) expr(ctx context.Context, x ast.Expr) (v ir.Value, err error) {
	f := g.f

	switch x := x.(type) {
	case ast.Num:
		return f.Const(x.Val), nil
	case ast.Ident:
		v = g.lookup(x.Name)
		if v == nil {
			return nil, errors.New("undefined: %v", x.Name)
		}

		return v, nil
	case ast.BinOp:
		return g.binExpr(ctx, x)
	case ast.UnOp:
		return g.unExpr(ctx, x)
	case ast.Call:
		return g.callExpr(ctx, x)
	default:
		panic(x)
	}
}

func (g *generator) binExpr(ctx context.Context, x ast.BinOp) (v ir.Value, err error) {
	l, err := g.expr(ctx, x.L)
	if err != nil {
		return nil, errors.Wrap(err, "%v: left", x.Kind)
	}

	r, err := g.expr(ctx, x.R)
	if err != nil {
		return nil, errors.Wrap(err, "%v: right", x.Kind)
	}

	if x.Kind == ast.Assign {
		if !l.Lvalue() {
			return nil, errors.New("cannot assign to %v", l.Name())
		}

		r = g.load(r)
		g.f.Store(r, l)

		// the stored value, so assignments chain
		return r, nil
	}

	op, ok := binOp[x.Kind]
	if !ok {
		panic(x.Kind)
	}

	return g.f.BinOp(op, g.load(l), g.load(r)), nil
}

func (g *generator) unExpr(ctx context.Context, x ast.UnOp) (v ir.Value, err error) {
	switch x.Kind {
	case ast.Neg:
		zero := g.f.Const(0)

		v, err = g.expr(ctx, x.X)
		if err != nil {
			return nil, err
		}

		return g.f.BinOp(ir.Sub, zero, g.load(v)), nil
	case ast.BitNot:
		v, err = g.expr(ctx, x.X)
		if err != nil {
			return nil, err
		}

		ones := g.f.Const(^uint64(0))

		return g.f.BinOp(ir.Xor, g.load(v), ones), nil
	default:
		panic(x.Kind)
	}
}

func (g *generator) callExpr(ctx context.Context, x ast.Call) (v ir.Value, err error) {
	callee := g.m.Func(x.Name)
	if callee == nil {
		return nil, errors.New("unknown function: %v", x.Name)
	}

	args := make([]ir.Value, len(x.Args))

	for i, a := range x.Args {
		v, err = g.expr(ctx, a)
		if err != nil {
			return nil, errors.Wrap(err, "call %v: arg %d", x.Name, i)
		}

		args[i] = g.load(v)
	}

	return g.f.Call(callee, args), nil
}

func (g *generator) load(v ir.Value) ir.Value {
	if v.Lvalue() {
		return g.f.Load(v)
	}

	return v
}

func (g *generator) enter() func() {
	g.scope = append(g.scope, map[string]ir.Value{})

	return func() {
		g.scope = g.scope[:len(g.scope)-1]
	}
}

func (g *generator) bind(name string, v ir.Value) {
	g.scope[len(g.scope)-1][name] = v
}

func (g *generator) lookup(name string) ir.Value {
	for i := len(g.scope) - 1; i >= 0; i-- {
		if v, ok := g.scope[i][name]; ok {
			return v
		}
	}

	return nil
}

func stmtPos(x ast.Stmt) int {
	switch x := x.(type) {
	case *ast.Block:
		return x.Pos
	case ast.VarDecl:
		return x.Pos
	case ast.If:
		return x.Pos
	case ast.While:
		return x.Pos
	case ast.Return:
		return x.Pos
	case ast.ExprStmt:
		return x.Pos
	default:
		return 0
	}
}
