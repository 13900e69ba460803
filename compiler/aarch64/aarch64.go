package aarch64

import "fmt"

type (
	// Reg is a physical register (index 0-31, 31 is sp) or a virtual one.
	Reg struct {
		Virtual bool
		Index   int
	}

	// RegImm is a register-or-immediate source operand.
	RegImm struct {
		Imm bool
		Reg Reg
		Val uint64
	}

	MemKind int

	// Mem is a base-register, base-plus-offset, or frame-relative location.
	Mem struct {
		Kind MemKind
		Base Reg
		Off  int64
	}

	Cond string

	// Label is an ordered instruction list. The allocator rewrites it in place.
	Label struct {
		Name  string
		Insts []Inst
	}

	Func struct {
		Name     string
		Prologue *Label
		Body     []*Label
		Epilogue *Label

		// stack slot high-water mark, shared by selection and allocation
		slots int64
	}

	Module struct {
		Funcs []*Func
	}
)

const (
	MemBase MemKind = iota
	MemOffset
	MemFrame
)

const (
	EQ Cond = "eq"
	NE Cond = "ne"
	GT Cond = "gt"
	GE Cond = "ge"
	LT Cond = "lt"
	LE Cond = "le"
)

const (
	FP = 29
	LR = 30
	SP = 31
)

func Phys(i int) Reg    { return Reg{Index: i} }
func Virt(id int) Reg   { return Reg{Virtual: true, Index: id} }
func Imm(v uint64) RegImm {
	return RegImm{Imm: true, Val: v}
}

func FromReg(r Reg) RegImm { return RegImm{Reg: r} }

func (r Reg) String() string {
	if r.Virtual {
		return fmt.Sprintf("v%d", r.Index)
	}

	if r.Index == SP {
		return "sp"
	}

	return fmt.Sprintf("x%d", r.Index)
}

func (o RegImm) String() string {
	if o.Imm {
		return fmt.Sprintf("#%d", o.Val)
	}

	return o.Reg.String()
}

func (m Mem) String() string {
	switch m.Kind {
	case MemBase:
		return fmt.Sprintf("[%v]", m.Base)
	case MemOffset:
		if m.Off == 0 {
			return fmt.Sprintf("[%v]", m.Base)
		}

		return fmt.Sprintf("[%v, #%d]", m.Base, m.Off)
	case MemFrame:
		if m.Off == 0 {
			return "[sp]"
		}

		return fmt.Sprintf("[sp, #%d]", m.Off)
	default:
		panic(m.Kind)
	}
}

func (m *Module) Dump(b []byte) []byte {
	for i, f := range m.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = f.Dump(b)
	}

	return b
}

func (f *Func) Dump(b []byte) []byte {
	b = fmt.Appendf(b, "\t.global\t%s\n\t.p2align\t2\n", f.Prologue.Name)

	b = f.Prologue.Dump(b)

	for _, lb := range f.Body {
		b = lb.Dump(b)
	}

	b = f.Epilogue.Dump(b)

	return b
}

func (l *Label) Dump(b []byte) []byte {
	b = fmt.Appendf(b, "%s:\n", l.Name)

	for _, x := range l.Insts {
		b = fmt.Appendf(b, "\t%v\n", x)
	}

	return b
}
