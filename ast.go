package oberon

type Node interface {
	pos() Pos
}

type Module struct {
	Module  Token
	Name    Token
	Decls   *Declarations
	Body    []Stmt
	EndName Token
}

func (m *Module) pos() Pos {
	return m.Module.Pos
}

// Declarations keeps the grouping of the source: constants, types and
// variables are checked in that order, procedures last.
type Declarations struct {
	Consts []*ConstDecl
	Types  []*TypeDecl
	Vars   []*VarDecl
	Procs  []*ProcDecl
}

type ConstDecl struct {
	Name  Token
	Value Expr
}

type TypeDecl struct {
	Name Token
	Type TypeExpr
}

type VarDecl struct {
	Names []Token
	Type  TypeExpr
}

type ProcDecl struct {
	Procedure Token
	Name      Token
	Params    []*FPSection
	Decls     *Declarations
	Body      []Stmt
	EndName   Token
}

// FPSection is one group of formal parameters sharing a type, e.g.
// "VAR a, b: INTEGER".
type FPSection struct {
	Var   bool
	Names []Token
	Type  TypeExpr
}

func (c *ConstDecl) pos() Pos {
	return c.Name.Pos
}
func (t *TypeDecl) pos() Pos {
	return t.Name.Pos
}
func (v *VarDecl) pos() Pos {
	if len(v.Names) == 0 {
		return v.Type.pos()
	}
	return v.Names[0].Pos
}
func (p *ProcDecl) pos() Pos {
	return p.Procedure.Pos
}
func (f *FPSection) pos() Pos {
	if len(f.Names) == 0 {
		return f.Type.pos()
	}
	return f.Names[0].Pos
}

// ParamCount is the number of formal parameters over all sections.
func (p *ProcDecl) ParamCount() int {
	n := 0
	for _, section := range p.Params {
		n += len(section.Names)
	}
	return n
}

type TypeExpr interface {
	Node
	typeExpr()
}

type IdentType struct {
	Name Token
}

type ArrayType struct {
	Array Token
	Len   Expr
	Elem  TypeExpr
}

type RecordType struct {
	Record Token
	Fields []*FieldList
}

type FieldList struct {
	Names []Token
	Type  TypeExpr
}

func (i *IdentType) pos() Pos {
	return i.Name.Pos
}
func (a *ArrayType) pos() Pos {
	return a.Array.Pos
}
func (r *RecordType) pos() Pos {
	return r.Record.Pos
}

func (i *IdentType) typeExpr()  {}
func (a *ArrayType) typeExpr()  {}
func (r *RecordType) typeExpr() {}

type Stmt interface {
	Node
	stmt()
}

type AssignStmt struct {
	Target  *IdentSelectorExpr
	Becomes Token
	Value   Expr
}

type CallStmt struct {
	Callee *IdentSelectorExpr
	Args   []Expr
}

type IfStmt struct {
	If     Token
	Cond   Expr
	Then   []Stmt
	Elsifs []*ElsifClause
	Else   []Stmt
}

type ElsifClause struct {
	Cond Expr
	Body []Stmt
}

type WhileStmt struct {
	While Token
	Cond  Expr
	Body  []Stmt
}

type RepeatStmt struct {
	Repeat Token
	Body   []Stmt
	Cond   Expr
}

func (a *AssignStmt) pos() Pos {
	return a.Target.pos()
}
func (c *CallStmt) pos() Pos {
	return c.Callee.pos()
}
func (i *IfStmt) pos() Pos {
	return i.If.Pos
}
func (w *WhileStmt) pos() Pos {
	return w.While.Pos
}
func (r *RepeatStmt) pos() Pos {
	return r.Repeat.Pos
}

func (a *AssignStmt) stmt() {}
func (c *CallStmt) stmt()   {}
func (i *IfStmt) stmt()     {}
func (w *WhileStmt) stmt()  {}
func (r *RepeatStmt) stmt() {}

type Expr interface {
	Node
	expr()
}

// UnaryExpr covers "-x", "~x" and the no-op "+x".
type UnaryExpr struct {
	Operator Token
	Operand  Expr
}

type BinaryExpr struct {
	Left  Expr
	Op    Token
	Right Expr
}

type ParenExpr struct {
	Left  Token
	Inner Expr
	Right Token
}

// IdentSelectorExpr is an identifier followed by a possibly empty
// selector chain, e.g. "a", "a[i]" or "r.f[2].g".
type IdentSelectorExpr struct {
	Name      Token
	Selectors []Selector
}

type IntegerLiteral struct {
	Token
	Value int64
}

func (u *UnaryExpr) pos() Pos {
	return u.Operator.Pos
}
func (b *BinaryExpr) pos() Pos {
	return b.Op.Pos
}
func (p *ParenExpr) pos() Pos {
	return p.Left.Pos
}
func (i *IdentSelectorExpr) pos() Pos {
	return i.Name.Pos
}
func (l *IntegerLiteral) pos() Pos {
	return l.Token.Pos
}

func (u *UnaryExpr) expr()         {}
func (b *BinaryExpr) expr()        {}
func (p *ParenExpr) expr()         {}
func (i *IdentSelectorExpr) expr() {}
func (l *IntegerLiteral) expr()    {}

type Selector interface {
	Node
	selector()
}

type FieldSelector struct {
	Period Token
	Name   Token
}

type IndexSelector struct {
	Left  Token
	Index Expr
}

func (f *FieldSelector) pos() Pos {
	return f.Period.Pos
}
func (i *IndexSelector) pos() Pos {
	return i.Left.Pos
}

func (f *FieldSelector) selector() {}
func (i *IndexSelector) selector() {}
