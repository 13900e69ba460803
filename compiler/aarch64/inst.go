package aarch64

import "fmt"

type (
	Inst = any

	Mov struct {
		Dst Reg
		Src RegImm
	}

	Ldr struct {
		Dst Reg
		Src Mem
	}

	Str struct {
		Src Reg
		Dst Mem
	}

	Cmp struct {
		L Reg
		R RegImm
	}

	CSet struct {
		Dst  Reg
		Cond Cond
	}

	BinInst struct {
		Mnem string // add, sub, orr, and, eor, lsl, lsr, asr
		Dst  Reg
		L    Reg
		R    RegImm
	}

	Mul struct {
		Dst, L, R Reg
	}

	SDiv struct {
		Dst, L, R Reg
	}

	// MSub computes Dst = A - L*R.
	MSub struct {
		Dst, L, R, A Reg
	}

	Mvn struct {
		Dst Reg
		Src Reg
	}

	B struct {
		Target string
	}

	Cbnz struct {
		Src    Reg
		Target string
	}

	Bl struct {
		Target string
	}

	Ret struct{}

	Stp struct {
		R1, R2 Reg
		Dst    Mem
	}

	Ldp struct {
		R1, R2 Reg
		Src    Mem
	}
)

func (x *Mov) String() string  { return fmt.Sprintf("mov\t%v, %v", x.Dst, x.Src) }
func (x *Ldr) String() string  { return fmt.Sprintf("ldr\t%v, %v", x.Dst, x.Src) }
func (x *Str) String() string  { return fmt.Sprintf("str\t%v, %v", x.Src, x.Dst) }
func (x *Cmp) String() string  { return fmt.Sprintf("cmp\t%v, %v", x.L, x.R) }
func (x *CSet) String() string { return fmt.Sprintf("cset\t%v, %v", x.Dst, x.Cond) }

func (x *BinInst) String() string {
	return fmt.Sprintf("%s\t%v, %v, %v", x.Mnem, x.Dst, x.L, x.R)
}

func (x *Mul) String() string  { return fmt.Sprintf("mul\t%v, %v, %v", x.Dst, x.L, x.R) }
func (x *SDiv) String() string { return fmt.Sprintf("sdiv\t%v, %v, %v", x.Dst, x.L, x.R) }
func (x *MSub) String() string { return fmt.Sprintf("msub\t%v, %v, %v, %v", x.Dst, x.L, x.R, x.A) }
func (x *Mvn) String() string  { return fmt.Sprintf("mvn\t%v, %v", x.Dst, x.Src) }
func (x *B) String() string    { return fmt.Sprintf("b\t%s", x.Target) }
func (x *Cbnz) String() string { return fmt.Sprintf("cbnz\t%v, %s", x.Src, x.Target) }
func (x *Bl) String() string   { return fmt.Sprintf("bl\t%s", x.Target) }
func (x *Ret) String() string  { return "ret" }
func (x *Stp) String() string  { return fmt.Sprintf("stp\t%v, %v, %v", x.R1, x.R2, x.Dst) }
func (x *Ldp) String() string  { return fmt.Sprintf("ldp\t%v, %v, %v", x.R1, x.R2, x.Src) }

// collectRegs classifies the instruction's register operands into reads and
// writes, returning pointers so the allocator can rewrite them in place.
// A base register inside a memory operand is always a read.
func collectRegs(x Inst) (reads, writes []*Reg) {
	switch x := x.(type) {
	case *Mov:
		reads = regImm(reads, &x.Src)
		writes = append(writes, &x.Dst)
	case *Ldr:
		reads = memBase(reads, &x.Src)
		writes = append(writes, &x.Dst)
	case *Str:
		reads = append(reads, &x.Src)
		reads = memBase(reads, &x.Dst)
	case *Cmp:
		reads = append(reads, &x.L)
		reads = regImm(reads, &x.R)
	case *CSet:
		writes = append(writes, &x.Dst)
	case *BinInst:
		reads = append(reads, &x.L)
		reads = regImm(reads, &x.R)
		writes = append(writes, &x.Dst)
	case *Mul:
		reads = append(reads, &x.L, &x.R)
		writes = append(writes, &x.Dst)
	case *SDiv:
		reads = append(reads, &x.L, &x.R)
		writes = append(writes, &x.Dst)
	case *MSub:
		reads = append(reads, &x.L, &x.R, &x.A)
		writes = append(writes, &x.Dst)
	case *Mvn:
		reads = append(reads, &x.Src)
		writes = append(writes, &x.Dst)
	case *Cbnz:
		reads = append(reads, &x.Src)
	case *Stp:
		reads = append(reads, &x.R1, &x.R2)
		reads = memBase(reads, &x.Dst)
	case *Ldp:
		reads = memBase(reads, &x.Src)
		writes = append(writes, &x.R1, &x.R2)
	case *B, *Bl, *Ret:
	default:
		panic(x)
	}

	return reads, writes
}

func regImm(l []*Reg, o *RegImm) []*Reg {
	if o.Imm {
		return l
	}

	return append(l, &o.Reg)
}

func memBase(l []*Reg, m *Mem) []*Reg {
	if m.Kind == MemFrame {
		return l
	}

	return append(l, &m.Base)
}
