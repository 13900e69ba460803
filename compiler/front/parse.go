package front

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler/ast"
	"github.com/toylang/toyc/compiler/tp"
)

var binLevel = []map[Op]ast.BinKind{
	{"|": ast.Or},
	{"^": ast.Xor},
	{"&": ast.And},
	{"==": ast.Eq, "!=": ast.Ne},
	{"<": ast.Lt, "<=": ast.Le, ">": ast.Gt, ">=": ast.Ge},
	{"<<": ast.Shl, ">>": ast.Shr},
	{"+": ast.Add, "-": ast.Sub},
	{"*": ast.Mul, "/": ast.Div, "%": ast.Mod},
}

func (s *State) Parse(ctx context.Context) (f *ast.File, err error) {
	tr := tlog.SpanFromContext(ctx)

	f = &ast.File{Name: s.name}

	i := 0

	for {
		tk, _, _ := s.next(i)
		if tk == nil {
			break
		}

		var d *ast.FuncDecl

		d, i, err = s.parseDecl(ctx, i)
		if err != nil {
			return nil, errors.Wrap(err, "at pos 0x%x", i)
		}

		f.Decls = append(f.Decls, d)

		tr.V("parse").Printw("decl", "name", d.Name, "params", len(d.Params), "extern", d.Body == nil)
	}

	return f, nil
}

func (s *State) parseDecl(ctx context.Context, st int) (d *ast.FuncDecl, i int, err error) {
	tk, tst, i := s.next(st)

	ext := false
	if tk == Keyword("extern") {
		ext = true
		tk, tst, i = s.next(i)
	}

	// extern declarations name the function directly, func is optional
	if tk == Keyword("func") {
		tk, tst, i = s.next(i)
	} else if !ext {
		return nil, tst, NewUnexpected(tk, Keyword("func"))
	}

	name, ok := tk.(Ident)
	if !ok {
		return nil, tst, NewUnexpected(tk, Ident(""))
	}

	d = &ast.FuncDecl{Pos: st, Name: string(name), Ret: tp.Void{}}

	d.Params, i, err = s.parseParams(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v: params", name)
	}

	tk, _, e := s.next(i)
	if tk == Char(':') {
		d.Ret, i, err = s.parseType(ctx, e)
		if err != nil {
			return nil, i, errors.Wrap(err, "func %v: return type", name)
		}
	}

	if ext {
		tk, _, e = s.next(i)
		if tk == Char(';') {
			i = e
		}

		return d, i, nil
	}

	d.Body, i, err = s.parseBlock(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v", name)
	}

	return d, i, nil
}

func (s *State) parseParams(ctx context.Context, st int) (p []ast.Param, i int, err error) {
	tk, tst, i := s.next(st)
	if tk != Char('(') {
		return nil, tst, NewUnexpected(tk, Char('('))
	}

loop:
	for {
		j := i
		tk, tst, i = s.next(i)

		switch tk {
		case Char(','):
			continue
		case Char(')'):
			break loop
		default:
			i = j
		}

		tk, tst, i = s.next(i)

		name, ok := tk.(Ident)
		if !ok {
			return nil, tst, NewUnexpected(tk, Ident(""))
		}

		tk, tst, i = s.next(i)
		if tk != Char(':') {
			return nil, tst, NewUnexpected(tk, Char(':'))
		}

		var typ tp.Type

		typ, i, err = s.parseType(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "param %v", name)
		}

		p = append(p, ast.Param{Name: string(name), Type: typ})
	}

	return p, i, nil
}

func (s *State) parseType(ctx context.Context, st int) (t tp.Type, i int, err error) {
	tk, tst, i := s.next(st)

	if tk == Op("*") {
		t, i, err = s.parseType(ctx, i)
		if err != nil {
			return nil, i, err
		}

		return tp.Ptr{X: t}, i, nil
	}

	name, ok := tk.(Ident)
	if !ok {
		return nil, tst, NewUnexpected(tk, Ident(""))
	}

	switch name {
	case "Int64":
		t = tp.Int64()
	case "Void":
		t = tp.Void{}
	default:
		return nil, tst, errors.New("unknown type: %v", name)
	}

	return t, i, nil
}

func (s *State) parseBlock(ctx context.Context, st int) (b *ast.Block, i int, err error) {
	tk, tst, i := s.next(st)
	if tk != Char('{') {
		return nil, tst, NewUnexpected(tk, Char('{'))
	}

	b = &ast.Block{Pos: tst}

	for {
		tk, tst, e := s.next(i)

		switch tk {
		case Char('}'):
			return b, e, nil
		case nil:
			return nil, tst, NewUnexpected(nil, Char('}'))
		case Char(';'):
			i = e
			continue
		}

		var x ast.Stmt

		x, i, err = s.parseStmt(ctx, i)
		if err != nil {
			return nil, i, err
		}

		b.Stmts = append(b.Stmts, x)
	}
}

func (s *State) parseStmt(ctx context.Context, st int) (x ast.Stmt, i int, err error) {
	tk, tst, i := s.next(st)

	switch tk {
	case Keyword("var"):
		return s.parseVar(ctx, tst, i)
	case Keyword("if"):
		return s.parseIf(ctx, tst, i)
	case Keyword("while"):
		return s.parseWhile(ctx, tst, i)
	case Keyword("return"):
		return s.parseReturn(ctx, tst, i)
	case Keyword("for"):
		return nil, tst, errors.New("for loops are not supported")
	case Char('{'):
		var b *ast.Block

		b, i, err = s.parseBlock(ctx, tst)
		if err != nil {
			return nil, i, err
		}

		return b, i, nil
	}

	x, i, err = s.parseExpr(ctx, tst)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return ast.ExprStmt{Pos: tst, X: x}, i, nil
}

func (s *State) parseVar(ctx context.Context, st, vst int) (x ast.Stmt, i int, err error) {
	tk, tst, i := s.next(vst)

	name, ok := tk.(Ident)
	if !ok {
		return nil, tst, NewUnexpected(tk, Ident(""))
	}

	i, err = s.expect(i, Char(':'))
	if err != nil {
		return nil, i, err
	}

	v := ast.VarDecl{Pos: st, Name: string(name)}

	v.Type, i, err = s.parseType(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "var %v", name)
	}

	tk, _, e := s.next(i)
	if tk == Op("=") {
		v.Init, i, err = s.parseExpr(ctx, e)
		if err != nil {
			return nil, i, errors.Wrap(err, "var %v: initializer", name)
		}
	}

	i, err = s.expect(i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return v, i, nil
}

func (s *State) parseIf(ctx context.Context, st, vst int) (x ast.Stmt, i int, err error) {
	v := ast.If{Pos: st}

	v.Cond, i, err = s.parseExpr(ctx, vst)
	if err != nil {
		return nil, i, errors.Wrap(err, "if: condition")
	}

	v.Then, i, err = s.parseBlock(ctx, i)
	if err != nil {
		return nil, i, err
	}

	tk, tst, e := s.next(i)
	if tk != Keyword("else") {
		return v, i, nil
	}

	tk, _, _ = s.next(e)
	if tk == Keyword("if") {
		var nested ast.Stmt

		nested, i, err = s.parseStmt(ctx, e)
		if err != nil {
			return nil, i, err
		}

		v.Else = &ast.Block{Pos: tst, Stmts: []ast.Stmt{nested}}

		return v, i, nil
	}

	v.Else, i, err = s.parseBlock(ctx, e)
	if err != nil {
		return nil, i, err
	}

	return v, i, nil
}

func (s *State) parseWhile(ctx context.Context, st, vst int) (x ast.Stmt, i int, err error) {
	v := ast.While{Pos: st}

	v.Cond, i, err = s.parseExpr(ctx, vst)
	if err != nil {
		return nil, i, errors.Wrap(err, "while: condition")
	}

	v.Body, i, err = s.parseBlock(ctx, i)
	if err != nil {
		return nil, i, err
	}

	return v, i, nil
}

func (s *State) parseReturn(ctx context.Context, st, vst int) (x ast.Stmt, i int, err error) {
	v := ast.Return{Pos: st}

	tk, _, e := s.next(vst)
	if tk == Char(';') {
		return v, e, nil
	}

	v.X, i, err = s.parseExpr(ctx, vst)
	if err != nil {
		return nil, i, errors.Wrap(err, "return")
	}

	i, err = s.expect(i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return v, i, nil
}

func (s *State) parseExpr(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	x, i, err = s.parseBin(ctx, st, 0)
	if err != nil {
		return nil, i, err
	}

	tk, tst, e := s.next(i)
	if tk != Op("=") {
		return x, i, nil
	}

	// right-associative
	var r ast.Expr

	r, i, err = s.parseExpr(ctx, e)
	if err != nil {
		return nil, i, err
	}

	return ast.BinOp{Pos: tst, Kind: ast.Assign, L: x, R: r}, i, nil
}

func (s *State) parseBin(ctx context.Context, st, lvl int) (x ast.Expr, i int, err error) {
	if lvl == len(binLevel) {
		return s.parseUnary(ctx, st)
	}

	x, i, err = s.parseBin(ctx, st, lvl+1)
	if err != nil {
		return nil, i, err
	}

	for {
		tk, tst, e := s.next(i)

		op, ok := tk.(Op)
		if !ok {
			return x, i, nil
		}

		if op == "||" || op == "&&" {
			return nil, tst, errors.New("logical operators are not supported")
		}

		kind, ok := binLevel[lvl][op]
		if !ok {
			return x, i, nil
		}

		var r ast.Expr

		r, i, err = s.parseBin(ctx, e, lvl+1)
		if err != nil {
			return nil, i, err
		}

		x = ast.BinOp{Pos: tst, Kind: kind, L: x, R: r}
	}
}

func (s *State) parseUnary(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	tk, tst, e := s.next(st)

	switch tk {
	case Op("-"):
		x, i, err = s.parseUnary(ctx, e)
		if err != nil {
			return nil, i, err
		}

		return ast.UnOp{Pos: tst, Kind: ast.Neg, X: x}, i, nil
	case Op("~"):
		x, i, err = s.parseUnary(ctx, e)
		if err != nil {
			return nil, i, err
		}

		return ast.UnOp{Pos: tst, Kind: ast.BitNot, X: x}, i, nil
	case Op("!"):
		return nil, tst, errors.New("logical operators are not supported")
	case Op("*"), Op("&"):
		return nil, tst, errors.New("pointer operators are not supported")
	}

	return s.parsePrimary(ctx, st)
}

func (s *State) parsePrimary(ctx context.Context, st int) (x ast.Expr, i int, err error) {
	tk, tst, i := s.next(st)

	switch tk := tk.(type) {
	case Number:
		v, err := strconv.ParseUint(string(tk), 10, 64)
		if err != nil {
			return nil, i, errors.Wrap(err, "parse number")
		}

		return ast.Num{Pos: tst, Val: v}, i, nil
	case Ident:
		next, _, e := s.next(i)
		if next != Char('(') {
			return ast.Ident{Pos: tst, Name: string(tk)}, i, nil
		}

		return s.parseCall(ctx, tst, string(tk), e)
	case Char:
		if tk == '(' {
			x, i, err = s.parseExpr(ctx, i)
			if err != nil {
				return nil, i, err
			}

			i, err = s.expect(i, Char(')'))
			if err != nil {
				return nil, i, err
			}

			return x, i, nil
		}
	}

	return nil, tst, NewUnexpected(tk, Number(""), Ident(""), Char('('))
}

func (s *State) parseCall(ctx context.Context, st int, name string, vst int) (x ast.Expr, i int, err error) {
	c := ast.Call{Pos: st, Name: name}

	i = vst

loop:
	for {
		j := i

		var tk Token

		tk, _, i = s.next(i)

		switch tk {
		case Char(','):
			continue
		case Char(')'):
			break loop
		default:
			i = j
		}

		var a ast.Expr

		a, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "call %v: arg %d", name, len(c.Args))
		}

		c.Args = append(c.Args, a)
	}

	return c, i, nil
}

func (s *State) expect(st int, want Token) (i int, err error) {
	tk, tst, i := s.next(st)
	if tk != want {
		return tst, NewUnexpected(tk, want)
	}

	return i, nil
}
