package ir

import (
	"fmt"

	"tlog.app/go/errors"
)

type (
	// Value is anything usable as an instruction operand.
	// Values compare by identity: the same pointer is the same value.
	Value interface {
		Name() string
		Lvalue() bool

		eid() int
	}

	Constant struct {
		Val uint64

		id, ent int
	}

	Param struct {
		id, ent int
	}

	Op int

	Inst struct {
		Op   Op
		Args []Value

		Then, Else *BasicBlock // Jump uses Then only
		Callee     *Func

		id, ent int
	}

	BasicBlock struct {
		Insts []*Inst

		id int
	}

	Func struct {
		Name   string
		Extern bool

		Params []*Param
		Consts []*Constant
		Blocks []*BasicBlock

		// Cur is the insertion cursor: the block receiving emitted instructions.
		Cur *BasicBlock

		next int // value and block numbering
		ents int // value identity space, used by Validate
	}

	Module struct {
		Name string

		Funcs []*Func

		byName map[string]*Func
	}
)

const (
	Alloca Op = iota
	Store
	Load

	Eq
	Ne
	Gt
	Ge
	Lt
	Le

	Add
	Sub
	Mul
	Div
	Mod

	Or
	Xor
	And

	LShl
	LShr
	AShr

	Jump
	CJump
	Call
	Return
)

func NewModule(name string) *Module {
	return &Module{
		Name:   name,
		byName: map[string]*Func{},
	}
}

func (m *Module) AddFunc(f *Func) error {
	if _, ok := m.byName[f.Name]; ok {
		return errors.New("function redefined: %v", f.Name)
	}

	m.Funcs = append(m.Funcs, f)
	m.byName[f.Name] = f

	return nil
}

func (m *Module) Func(name string) *Func {
	return m.byName[name]
}

func NewFunc(name string, params int) *Func {
	f := newFunc(name, params)
	f.Cur = f.NewBlock()

	return f
}

func NewExtern(name string, params int) *Func {
	f := newFunc(name, params)
	f.Extern = true

	return f
}

func newFunc(name string, params int) *Func {
	f := &Func{Name: name}

	for i := 0; i < params; i++ {
		f.Params = append(f.Params, &Param{id: f.nextID(), ent: f.nextEnt()})
	}

	return f
}

func (f *Func) NewBlock() *BasicBlock {
	b := &BasicBlock{id: f.nextID()}
	f.Blocks = append(f.Blocks, b)

	return b
}

func (f *Func) Entry() *BasicBlock { return f.Blocks[0] }

// Const adds an immediate to the function's pool.
// Each literal occurrence gets its own entity.
func (f *Func) Const(val uint64) *Constant {
	c := &Constant{Val: val, id: f.nextID(), ent: f.nextEnt()}
	f.Consts = append(f.Consts, c)

	return c
}

func (f *Func) Alloca() *Inst {
	return f.emit(&Inst{Op: Alloca})
}

func (f *Func) Store(val, ptr Value) *Inst {
	return f.emit(&Inst{Op: Store, Args: []Value{val, ptr}})
}

func (f *Func) Load(ptr Value) *Inst {
	return f.emit(&Inst{Op: Load, Args: []Value{ptr}})
}

func (f *Func) BinOp(op Op, l, r Value) *Inst {
	switch op {
	case Eq, Ne, Gt, Ge, Lt, Le,
		Add, Sub, Mul, Div, Mod,
		Or, Xor, And,
		LShl, LShr, AShr:
	default:
		panic(op)
	}

	return f.emit(&Inst{Op: op, Args: []Value{l, r}})
}

func (f *Func) Jump(to *BasicBlock) *Inst {
	return f.emit(&Inst{Op: Jump, Then: to})
}

func (f *Func) CJump(cond Value, then, els *BasicBlock) *Inst {
	return f.emit(&Inst{Op: CJump, Args: []Value{cond}, Then: then, Else: els})
}

// Call results are named after the callee and take no number.
func (f *Func) Call(callee *Func, args []Value) *Inst {
	x := &Inst{Op: Call, Args: args, Callee: callee, id: -1, ent: f.nextEnt()}
	f.Cur.Insts = append(f.Cur.Insts, x)

	return x
}

// Return emits a return of val, or a bare return if val is nil.
func (f *Func) Return(val Value) *Inst {
	x := &Inst{Op: Return}
	if val != nil {
		x.Args = []Value{val}
	}

	return f.emit(x)
}

func (f *Func) emit(x *Inst) *Inst {
	x.id = f.nextID()
	x.ent = f.nextEnt()

	f.Cur.Insts = append(f.Cur.Insts, x)

	return x
}

func (f *Func) nextID() (id int) {
	id = f.next
	f.next++

	return id
}

func (f *Func) nextEnt() (ent int) {
	ent = f.ents
	f.ents++

	return ent
}

func (c *Constant) Name() string { return fmt.Sprintf("$%d", c.Val) }
func (c *Constant) Lvalue() bool { return false }
func (c *Constant) eid() int     { return c.ent }

func (p *Param) Name() string { return fmt.Sprintf("%%%d", p.id) }
func (p *Param) Lvalue() bool { return false }
func (p *Param) eid() int     { return p.ent }

func (x *Inst) Name() string {
	if x.Op == Call {
		return x.Callee.Name
	}

	return fmt.Sprintf("%%%d", x.id)
}

func (x *Inst) Lvalue() bool { return x.Op == Alloca }
func (x *Inst) eid() int     { return x.ent }

// Terminator reports whether x ends a basic block.
func (x *Inst) Terminator() bool {
	switch x.Op {
	case Jump, CJump, Return:
		return true
	}

	return false
}

// Void reports whether x produces no usable result.
func (x *Inst) Void() bool {
	switch x.Op {
	case Store, Jump, CJump, Return:
		return true
	}

	return false
}

func (b *BasicBlock) Name() string { return fmt.Sprintf("bb_%d", b.id) }

// Terminated reports whether the block already ends with a terminator.
func (b *BasicBlock) Terminated() bool {
	if len(b.Insts) == 0 {
		return false
	}

	return b.Insts[len(b.Insts)-1].Terminator()
}

func (o Op) String() string {
	switch o {
	case Alloca:
		return "alloca"
	case Store:
		return "store"
	case Load:
		return "load"
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Gt:
		return "gt"
	case Ge:
		return "ge"
	case Lt:
		return "lt"
	case Le:
		return "le"
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Mod:
		return "mod"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case And:
		return "and"
	case LShl:
		return "lshl"
	case LShr:
		return "lshr"
	case AShr:
		return "ashr"
	case Jump:
		return "jump"
	case CJump:
		return "cjump"
	case Call:
		return "call"
	case Return:
		return "return"
	default:
		panic(o)
	}
}
