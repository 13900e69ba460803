package aarch64

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler/ir"
)

type (
	selector struct {
		f   *ir.Func
		out *Func

		regs   map[ir.Value]Reg
		mem    map[ir.Value]Mem
		labels map[*ir.BasicBlock]*Label

		nextV int
	}
)

var cmpCond = map[ir.Op]Cond{
	ir.Eq: EQ,
	ir.Ne: NE,
	ir.Gt: GT,
	ir.Ge: GE,
	ir.Lt: LT,
	ir.Le: LE,
}

var binMnem = map[ir.Op]string{
	ir.Add:  "add",
	ir.Sub:  "sub",
	ir.Or:   "orr",
	ir.Xor:  "eor",
	ir.And:  "and",
	ir.LShl: "lsl",
	ir.LShr: "lsr",
	ir.AShr: "asr",
}

// Generate selects target instructions for every defined function,
// over freshly minted virtual registers.
func Generate(ctx context.Context, m *ir.Module) (tm *Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "isel", "module", m.Name)
	defer tr.Finish("err", &err)

	tm = &Module{}

	for _, f := range m.Funcs {
		if f.Extern {
			continue
		}

		tf, err := generateFunc(ctx, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		tm.Funcs = append(tm.Funcs, tf)
	}

	return tm, nil
}

func generateFunc(ctx context.Context, f *ir.Func) (_ *Func, err error) {
	if len(f.Params) > 8 {
		return nil, errors.New("more than 8 parameters")
	}

	s := &selector{
		f: f,
		out: &Func{
			Name:     f.Name,
			Prologue: &Label{Name: "_" + f.Name},
			Epilogue: &Label{Name: f.Name + "_epilogue"},
		},
		regs:   map[ir.Value]Reg{},
		mem:    map[ir.Value]Mem{},
		labels: map[*ir.BasicBlock]*Label{},
	}

	for i, p := range f.Params {
		s.regs[p] = Phys(i)
	}

	// labels mirror the blocks one-to-one, created up front
	// so branches can name them before their code is selected
	for _, bb := range f.Blocks {
		lb := &Label{Name: f.Name + "_" + bb.Name()}
		s.labels[bb] = lb
		s.out.Body = append(s.out.Body, lb)
	}

	for _, bb := range f.Blocks {
		lb := s.labels[bb]

		for _, x := range bb.Insts {
			err = s.inst(lb, x)
			if err != nil {
				return nil, errors.Wrap(err, "%v: %v", bb.Name(), x.Op)
			}
		}
	}

	tlog.SpanFromContext(ctx).V("isel").Printw("func", "name", f.Name, "vregs", s.nextV, "slots", s.out.slots)

	return s.out, nil
}

func (s *selector) inst(lb *Label, x *ir.Inst) error {
	switch x.Op {
	case ir.Alloca:
		s.mem[x] = s.slot()
	case ir.Store:
		src := s.reg(lb, x.Args[0])
		s.emit(lb, &Str{Src: src, Dst: s.memOf(x.Args[1])})
	case ir.Load:
		dst := s.vreg()
		s.emit(lb, &Ldr{Dst: dst, Src: s.memOf(x.Args[0])})
		s.regs[x] = dst
	case ir.Eq, ir.Ne, ir.Gt, ir.Ge, ir.Lt, ir.Le:
		dst := s.vreg()
		s.emit(lb, &Cmp{L: s.reg(lb, x.Args[0]), R: s.opnd(lb, x.Args[1])})
		s.emit(lb, &CSet{Dst: dst, Cond: cmpCond[x.Op]})
		s.regs[x] = dst
	case ir.Xor:
		if c, ok := x.Args[1].(*ir.Constant); ok && c.Val == ^uint64(0) {
			// the bitwise-not rewrite comes through as x ^ all-ones
			dst := s.vreg()
			s.emit(lb, &Mvn{Dst: dst, Src: s.reg(lb, x.Args[0])})
			s.regs[x] = dst

			break
		}

		fallthrough
	case ir.Add, ir.Sub, ir.Or, ir.And, ir.LShl, ir.LShr, ir.AShr:
		// the destination vreg is minted before operand moves
		dst := s.vreg()
		l := s.reg(lb, x.Args[0])
		r := s.opnd(lb, x.Args[1])

		s.emit(lb, &BinInst{Mnem: binMnem[x.Op], Dst: dst, L: l, R: r})
		s.regs[x] = dst
	case ir.Mul:
		dst := s.vreg()
		s.emit(lb, &Mul{Dst: dst, L: s.reg(lb, x.Args[0]), R: s.reg(lb, x.Args[1])})
		s.regs[x] = dst
	case ir.Div:
		dst := s.vreg()
		s.emit(lb, &SDiv{Dst: dst, L: s.reg(lb, x.Args[0]), R: s.reg(lb, x.Args[1])})
		s.regs[x] = dst
	case ir.Mod:
		q := s.vreg()
		dst := s.vreg()

		l := s.reg(lb, x.Args[0])
		r := s.reg(lb, x.Args[1])

		s.emit(lb, &SDiv{Dst: q, L: l, R: r})
		s.emit(lb, &MSub{Dst: dst, L: q, R: r, A: l})
		s.regs[x] = dst
	case ir.Jump:
		s.emit(lb, &B{Target: s.labels[x.Then].Name})
	case ir.CJump:
		// the fallthrough branch is never elided
		s.emit(lb, &Cbnz{Src: s.reg(lb, x.Args[0]), Target: s.labels[x.Then].Name})
		s.emit(lb, &B{Target: s.labels[x.Else].Name})
	case ir.Call:
		if len(x.Args) > 8 {
			return errors.New("more than 8 call arguments")
		}

		for i, a := range x.Args {
			s.emit(lb, &Mov{Dst: Phys(i), Src: s.opnd(lb, a)})
		}

		s.emit(lb, &Bl{Target: "_" + x.Callee.Name})

		dst := s.vreg()
		s.emit(lb, &Mov{Dst: dst, Src: FromReg(Phys(0))})
		s.regs[x] = dst
	case ir.Return:
		if len(x.Args) == 0 {
			s.emit(lb, &Ret{})
			break
		}

		s.emit(lb, &Mov{Dst: Phys(0), Src: s.opnd(lb, x.Args[0])})
		s.emit(lb, &B{Target: s.out.Epilogue.Name})
	default:
		panic(x.Op)
	}

	return nil
}

func (s *selector) emit(lb *Label, x Inst) {
	lb.Insts = append(lb.Insts, x)
}

// reg resolves v to a register, materializing immediates via a move.
func (s *selector) reg(lb *Label, v ir.Value) Reg {
	if c, ok := v.(*ir.Constant); ok {
		dst := s.vreg()
		s.emit(lb, &Mov{Dst: dst, Src: Imm(c.Val)})

		return dst
	}

	r, ok := s.regs[v]
	if !ok {
		panic(fmt.Sprintf("no register operand for %v", v.Name()))
	}

	return r
}

func (s *selector) opnd(lb *Label, v ir.Value) RegImm {
	if c, ok := v.(*ir.Constant); ok {
		return Imm(c.Val)
	}

	return FromReg(s.reg(lb, v))
}

func (s *selector) memOf(v ir.Value) Mem {
	m, ok := s.mem[v]
	if !ok {
		panic(fmt.Sprintf("no memory operand for %v", v.Name()))
	}

	return m
}

func (s *selector) slot() Mem {
	m := Mem{Kind: MemFrame, Off: s.out.slots}
	s.out.slots += 8

	return m
}

func (s *selector) vreg() Reg {
	r := Virt(s.nextV)
	s.nextV++

	return r
}
