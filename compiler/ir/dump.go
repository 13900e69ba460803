package ir

import "fmt"

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
	kw := "define"
	if f.Extern {
		kw = "extern"
	}

	b = fmt.Appendf(b, "%s @%s(", kw, f.Name)

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = append(b, p.Name()...)
	}

	b = append(b, ')')

	if f.Extern {
		return append(b, '\n')
	}

	b = append(b, " {\n"...)

	for _, bb := range f.Blocks {
		b = fmt.Appendf(b, "%s:\n", bb.Name())

		for _, x := range bb.Insts {
			b = append(b, '\t')
			b = x.Dump(b)
			b = append(b, '\n')
		}
	}

	b = append(b, "}\n"...)

	return b
}

func (x *Inst) Dump(b []byte) []byte {
	switch x.Op {
	case Alloca:
		b = fmt.Appendf(b, "%s = alloca", x.Name())
	case Store:
		b = fmt.Appendf(b, "store %s, %s", x.Args[0].Name(), x.Args[1].Name())
	case Load:
		b = fmt.Appendf(b, "%s = load %s", x.Name(), x.Args[0].Name())
	case Jump:
		b = fmt.Appendf(b, "jump %s", x.Then.Name())
	case CJump:
		b = fmt.Appendf(b, "cjump %s, %s, %s", x.Args[0].Name(), x.Then.Name(), x.Else.Name())
	case Call:
		b = fmt.Appendf(b, "%s = call @%s(", x.Name(), x.Callee.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b = append(b, a.Name()...)
		}

		b = append(b, ')')
	case Return:
		b = append(b, "return"...)

		if len(x.Args) != 0 {
			b = fmt.Appendf(b, " %s", x.Args[0].Name())
		}
	default:
		b = fmt.Appendf(b, "%s = %v %s, %s", x.Name(), x.Op, x.Args[0].Name(), x.Args[1].Name())
	}

	return b
}
