package ir

import (
	"tlog.app/go/errors"

	"github.com/toylang/toyc/compiler/set"
)

// Validate checks the function's structural invariants: every block is
// non-empty and ends with exactly one terminator, every jump target is a
// block of this function, and every operand is defined before its use in
// block order.
func (f *Func) Validate() (err error) {
	if f.Extern {
		return nil
	}

	if len(f.Blocks) == 0 {
		return errors.New("no blocks")
	}

	blocks := set.MakeBitmap(f.next)

	for _, bb := range f.Blocks {
		blocks.Set(bb.id)
	}

	def := set.MakeBitmap(f.ents)

	for _, p := range f.Params {
		def.Set(p.ent)
	}

	for _, c := range f.Consts {
		def.Set(c.ent)
	}

	for _, bb := range f.Blocks {
		if len(bb.Insts) == 0 {
			return errors.New("%v: empty block", bb.Name())
		}

		for i, x := range bb.Insts {
			last := i == len(bb.Insts)-1

			if x.Terminator() != last {
				if last {
					return errors.New("%v: doesn't end with a terminator", bb.Name())
				}

				return errors.New("%v: terminator %v before the end of the block", bb.Name(), x.Op)
			}

			for _, a := range x.Args {
				if !def.IsSet(a.eid()) {
					return errors.New("%v: %v: operand %v used before defined", bb.Name(), x.Op, a.Name())
				}
			}

			for _, t := range []*BasicBlock{x.Then, x.Else} {
				if t != nil && !blocks.IsSet(t.id) {
					return errors.New("%v: %v: target %v is not a block of @%v", bb.Name(), x.Op, t.Name(), f.Name)
				}
			}

			if !x.Void() {
				def.Set(x.ent)
			}
		}
	}

	return nil
}
