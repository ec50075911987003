package oberon

type Kind int

const (
	ProcedureKind Kind = iota
	ConstantKind
	VariableKind
	TypeNameKind
)

func (k Kind) String() string {
	switch k {
	case ProcedureKind:
		return "procedure"
	case ConstantKind:
		return "constant"
	case VariableKind:
		return "variable"
	case TypeNameKind:
		return "type"
	}
	panic("unreachable")
}

// IdentInfo is what a declared name is bound to while checking.
type IdentInfo struct {
	Name string
	Kind Kind
	// Node is the declaring *ConstDecl, *TypeDecl, *VarDecl, *FPSection or
	// *ProcDecl.
	Node Node
	Type *Type
	// Level is the procedure nesting depth of the declaration, 0 for the
	// module.
	Level int
}

type Param struct {
	Name  string
	Type  *Type
	ByRef bool
}

type Signature struct {
	Params []Param
}
