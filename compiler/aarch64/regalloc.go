package aarch64

import (
	"context"
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/toylang/toyc/compiler/set"
)

type (
	allocator struct {
		f *Func

		// virtual id -> spill slot or deferred load source
		vmem map[int]Mem

		// virtual ids seen so far, for the rewrite log
		seen *set.Bitmap

		tr tlog.Span
	}
)

// scratch physical registers are handed out from x8 up, per operand
const scratchBase = 8

// Allocate rewrites every virtual register of every instruction into a
// physical scratch register backed by a stack slot, then synthesizes the
// prologue and epilogue once the frame size is known.
//
// A chosen scratch register is not checked against fixed physical operands
// the instruction already uses. Selection is shaped so they don't collide.
func Allocate(ctx context.Context, m *Module) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "regalloc")
	defer tr.Finish()

	for _, f := range m.Funcs {
		allocateFunc(ctx, f)
	}
}

func allocateFunc(ctx context.Context, f *Func) {
	a := &allocator{
		f:    f,
		vmem: map[int]Mem{},
		seen: set.NewBitmap(0),
		tr:   tlog.SpanFromContext(ctx),
	}

	a.label(f.Prologue)

	for _, lb := range f.Body {
		a.label(lb)
	}

	a.label(f.Epilogue)

	frame := (f.slots + 15) &^ 15

	a.tr.V("regalloc").Printw("frame", "func", f.Name, "vregs", a.seen, "slots", f.slots, "frame", frame, "from", loc.Caller(0))

	// extra 16 bytes hold the saved fp/lr pair, above the spill region
	f.Prologue.Insts = append([]Inst{
		&BinInst{Mnem: "sub", Dst: Phys(SP), L: Phys(SP), R: Imm(uint64(frame + 16))},
		&Stp{R1: Phys(FP), R2: Phys(LR), Dst: Mem{Kind: MemFrame, Off: frame}},
		&BinInst{Mnem: "add", Dst: Phys(FP), L: Phys(SP), R: Imm(uint64(frame))},
	}, f.Prologue.Insts...)

	f.Epilogue.Insts = append(f.Epilogue.Insts,
		&Ldp{R1: Phys(FP), R2: Phys(LR), Src: Mem{Kind: MemFrame, Off: frame}},
		&BinInst{Mnem: "add", Dst: Phys(SP), L: Phys(SP), R: Imm(uint64(frame + 16))},
		&Ret{},
	)
}

func (a *allocator) label(lb *Label) {
	out := make([]Inst, 0, len(lb.Insts))

	for _, x := range lb.Insts {
		if ld, ok := x.(*Ldr); ok && ld.Dst.Virtual {
			// a load into a vreg is a deferred fetch: the value is
			// fetched fresh at each point of use instead
			a.vmem[ld.Dst.Index] = ld.Src
			a.seen.Set(ld.Dst.Index)

			if a.tr.If("regalloc") {
				a.tr.Printw("defer load", "label", lb.Name, "vreg", ld.Dst.Index, "mem", ld.Src)
			}

			continue
		}

		reads, writes := collectRegs(x)

		scratch := scratchBase

		var stores []Inst

		for _, r := range reads {
			if !r.Virtual {
				continue
			}

			m, ok := a.vmem[r.Index]
			if !ok {
				panic(fmt.Sprintf("%v: v%d read before assigned", lb.Name, r.Index))
			}

			p := Phys(scratch)
			scratch++

			out = append(out, &Ldr{Dst: p, Src: m})

			if a.tr.If("regalloc") {
				a.tr.Printw("read", "label", lb.Name, "vreg", r.Index, "phys", p, "mem", m)
			}

			*r = p
		}

		for _, w := range writes {
			if !w.Virtual {
				continue
			}

			m, ok := a.vmem[w.Index]
			if !ok {
				m = Mem{Kind: MemFrame, Off: a.f.slots}
				a.f.slots += 8
				a.vmem[w.Index] = m
				a.seen.Set(w.Index)
			}

			p := Phys(scratch)
			scratch++

			if a.tr.If("regalloc") {
				a.tr.Printw("write", "label", lb.Name, "vreg", w.Index, "phys", p, "mem", m)
			}

			*w = p

			stores = append(stores, &Str{Src: p, Dst: m})
		}

		out = append(out, x)
		out = append(out, stores...)
	}

	lb.Insts = out
}
