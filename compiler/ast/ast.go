package ast

import "github.com/toylang/toyc/compiler/tp"

type (
	Node = any
	Stmt = any
	Expr = any

	File struct {
		Name  string
		Decls []*FuncDecl
	}

	FuncDecl struct {
		Pos    int
		Name   string
		Params []Param
		Ret    tp.Type
		Body   *Block // nil for extern prototypes
	}

	Param struct {
		Name string
		Type tp.Type
	}

	Block struct {
		Pos   int
		Stmts []Stmt
	}

	If struct {
		Pos  int
		Cond Expr
		Then *Block
		Else *Block // nil if absent
	}

	While struct {
		Pos  int
		Cond Expr
		Body *Block
	}

	VarDecl struct {
		Pos  int
		Name string
		Type tp.Type
		Init Expr // nil if absent
	}

	Return struct {
		Pos int
		X   Expr // nil for bare return
	}

	ExprStmt struct {
		Pos int
		X   Expr
	}

	BinKind int
	UnKind  int

	BinOp struct {
		Pos  int
		Kind BinKind
		L, R Expr
	}

	UnOp struct {
		Pos  int
		Kind UnKind
		X    Expr
	}

	Call struct {
		Pos  int
		Name string
		Args []Expr
	}

	Ident struct {
		Pos  int
		Name string
	}

	Num struct {
		Pos int
		Val uint64
	}
)

const (
	Assign BinKind = iota

	Or
	Xor
	And

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	Shl
	Shr

	Add
	Sub
	Mul
	Div
	Mod
)

const (
	Neg UnKind = iota
	BitNot
)

func (k BinKind) String() string {
	switch k {
	case Assign:
		return "="
	case Or:
		return "|"
	case Xor:
		return "^"
	case And:
		return "&"
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	default:
		panic(k)
	}
}

func (k UnKind) String() string {
	switch k {
	case Neg:
		return "-"
	case BitNot:
		return "~"
	default:
		panic(k)
	}
}
