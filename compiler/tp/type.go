package tp

type (
	Type interface {
		Size() int
	}

	Void struct{}

	Int struct {
		Bits   int16
		Signed bool
	}

	Ptr struct {
		X Type
	}

	Func struct {
		In  []Type
		Out Type
	}
)

func Int64() Int { return Int{Bits: 64, Signed: true} }

func (x Void) Size() int { return 0 }

func (x Int) Size() int {
	return int(x.Bits) / 8
}

func (x Ptr) Size() int {
	return 8
}

func (x Func) Size() int {
	return 8
}

func (x Void) String() string { return "void" }

func (x Int) String() string {
	if x.Signed {
		return "int"
	}

	return "uint"
}

func (x Ptr) String() string {
	if s, ok := x.X.(interface{ String() string }); ok {
		return s.String() + "*"
	}

	return "ptr"
}
