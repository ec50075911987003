package oberon

import (
	"fmt"
	"strings"
)

// TypeAndValue is the type recorded for a checked expression. Actual is
// Formal with aliases traced away.
type TypeAndValue struct {
	Formal *Type
	Actual *Type
}

// NamedType is a type declaration in the order the checker met it. Scope
// is the dotted path of the declaring module and procedures.
type NamedType struct {
	Scope string `msgpack:"scope"`
	Name  string `msgpack:"name"`
	Type  *Type  `msgpack:"type"`
}

// Info holds everything the checker learned about a module.
type Info struct {
	Types map[Expr]TypeAndValue
	// Consts holds the folded value of every constant declaration that
	// folded.
	Consts map[*ConstDecl]int64
	// Defs maps *TypeDecl, *VarDecl, *FPSection and TypeExpr nodes to the
	// type they denote.
	Defs       map[Node]*Type
	Calls      map[*CallStmt]*ProcDecl
	Signatures map[*ProcDecl]*Signature
	Named      []NamedType
}

func newInfo() *Info {
	return &Info{
		Types:      make(map[Expr]TypeAndValue),
		Consts:     make(map[*ConstDecl]int64),
		Defs:       make(map[Node]*Type),
		Calls:      make(map[*CallStmt]*ProcDecl),
		Signatures: make(map[*ProcDecl]*Signature),
	}
}

// Check validates m, reporting problems to reporter. It returns what it
// learned and the number of errors reported.
func Check(m *Module, reporter Reporter) (*Info, int) {
	c := NewChecker(reporter)
	c.CheckModule(m)
	return c.Info(), c.ErrorCount()
}

type Checker struct {
	reporter Reporter
	scopes   *ScopeStack[*IdentInfo]
	records  *ScopeStack[*Type]
	info     *Info
	path     []string
	level    int
	errors   int
}

func NewChecker(reporter Reporter) *Checker {
	return &Checker{
		reporter: reporter,
		scopes:   NewScopeStack[*IdentInfo](),
		records:  NewScopeStack[*Type](),
		info:     newInfo(),
	}
}

func (c *Checker) Info() *Info {
	return c.info
}

func (c *Checker) ErrorCount() int {
	return c.errors
}

func (c *Checker) errorf(pos Pos, format string, args ...any) {
	c.errors++
	c.reporter.Report(Diagnostic{Severity: SevError, Pos: pos, HasPos: true, Message: fmt.Sprintf(format, args...)})
}

func (c *Checker) warningf(pos Pos, format string, args ...any) {
	c.reporter.Report(Diagnostic{Severity: SevWarning, Pos: pos, HasPos: true, Message: fmt.Sprintf(format, args...)})
}

// openScope pushes one scope on both stacks and returns the matching pop.
func (c *Checker) openScope(name string) func() {
	closeIdents := c.scopes.Open()
	closeRecords := c.records.Open()
	c.path = append(c.path, name)
	return func() {
		c.path = c.path[:len(c.path)-1]
		closeRecords()
		closeIdents()
	}
}

func (c *Checker) declarePredeclared() {
	c.scopes.Insert("INTEGER", &IdentInfo{Name: "INTEGER", Kind: TypeNameKind, Type: Integer})
	c.scopes.Insert("BOOLEAN", &IdentInfo{Name: "BOOLEAN", Kind: TypeNameKind, Type: Boolean})
}

func (c *Checker) trace(t *Type) *Type {
	return Trace(t, c.scopes)
}

// Trace follows ALIAS types through the type names bound in scopes. It
// yields ErrorType when a name does not resolve to a type name, or when the
// chain is longer than the number of bound names.
func Trace(t *Type, scopes *ScopeStack[*IdentInfo]) *Type {
	if t == nil {
		return ErrorType
	}
	limit := scopes.Len()
	for hops := 0; t.Tag == AliasTag; hops++ {
		if hops > limit {
			return ErrorType
		}
		info, ok := scopes.Lookup(t.Name)
		if !ok || info.Kind != TypeNameKind || info.Type == nil {
			return ErrorType
		}
		t = info.Type
	}
	return t
}

func (c *Checker) CheckModule(m *Module) {
	closeScope := c.openScope(m.Name.Text())
	defer closeScope()
	c.declarePredeclared()
	if m.Name.Text() != m.EndName.Text() {
		c.errorf(m.EndName.Pos, "module %s is closed with the name %s", m.Name.Content, m.EndName.Content)
	}
	c.checkDeclarations(m.Decls)
	c.checkStmts(m.Body)
}

func (c *Checker) declare(name Token, info *IdentInfo) {
	if !c.scopes.Insert(name.Text(), info) {
		c.errorf(name.Pos, "multiple declarations of identifier '%s'", name.Content)
	}
}

func (c *Checker) checkDeclarations(d *Declarations) {
	if d == nil {
		return
	}
	for _, decl := range d.Consts {
		c.checkConstDecl(decl)
	}
	for _, decl := range d.Types {
		c.checkTypeDecl(decl)
	}
	for _, decl := range d.Vars {
		typ := c.resolveType(decl.Type)
		c.info.Defs[decl] = typ
		for _, name := range decl.Names {
			c.declare(name, &IdentInfo{Name: name.Text(), Kind: VariableKind, Node: decl, Type: typ, Level: c.level})
		}
	}
	for _, decl := range d.Procs {
		c.checkProcDecl(decl)
	}
}

func (c *Checker) checkConstDecl(decl *ConstDecl) {
	typ := c.checkExpr(decl.Value)
	if value, ok := c.fold(decl.Value, true); ok {
		c.info.Consts[decl] = value
	} else {
		c.errorf(decl.Value.pos(), "right hand side of constant '%s' does not evaluate to a constant", decl.Name.Content)
	}
	c.declare(decl.Name, &IdentInfo{Name: decl.Name.Text(), Kind: ConstantKind, Node: decl, Type: typ, Level: c.level})
}

func (c *Checker) checkTypeDecl(decl *TypeDecl) {
	typ := c.resolveType(decl.Type)
	c.info.Defs[decl] = typ
	name := decl.Name.Text()
	c.declare(decl.Name, &IdentInfo{Name: name, Kind: TypeNameKind, Node: decl, Type: typ, Level: c.level})
	if _, ok := decl.Type.(*RecordType); ok && typ.Tag == RecordTag {
		c.records.Insert(name, typ)
	}
	c.info.Named = append(c.info.Named, NamedType{
		Scope: strings.Join(c.path, "."),
		Name:  name,
		Type:  typ,
	})
}

// resolveType builds the type denoted by te. Named types other than the
// primitives stay ALIAS so that equality is by name.
func (c *Checker) resolveType(te TypeExpr) *Type {
	typ := c.buildType(te)
	c.info.Defs[te] = typ
	return typ
}

func (c *Checker) buildType(te TypeExpr) *Type {
	switch te := te.(type) {
	case *IdentType:
		name := te.Name.Text()
		info, ok := c.scopes.Lookup(name)
		if !ok {
			c.errorf(te.pos(), "use of unknown identifier '%s'", name)
			return ErrorType
		}
		if info.Kind != TypeNameKind {
			c.errorf(te.pos(), "identifier '%s' does not refer to a type", name)
			return ErrorType
		}
		switch traced := c.trace(info.Type); traced.Tag {
		case ErrorTag:
			if info.Type.Tag != ErrorTag {
				c.errorf(te.pos(), "type '%s' does not resolve to a type", name)
			}
			return ErrorType
		case IntegerTag, BooleanTag:
			return traced
		}
		return NewAlias(name)
	case *ArrayType:
		length, ok := c.fold(te.Len, true)
		valid := true
		if !ok {
			c.errorf(te.Len.pos(), "array length does not evaluate to a constant")
			valid = false
		} else if length <= 0 {
			c.errorf(te.Len.pos(), "cannot create array of size %d", length)
			valid = false
		}
		elem := c.resolveType(te.Elem)
		if !valid {
			return ErrorType
		}
		return NewArray(length, elem)
	case *RecordType:
		seen := NewScope[Token]()
		fields := make([]Field, 0)
		for _, list := range te.Fields {
			typ := c.resolveType(list.Type)
			for _, name := range list.Names {
				if !seen.Insert(name.Text(), name) {
					c.errorf(name.Pos, "multiple definitions of record field '%s'", name.Content)
					continue
				}
				fields = append(fields, Field{Name: name.Text(), Type: typ})
			}
		}
		return NewRecord(fields)
	}
	panic("unreachable")
}

func (c *Checker) checkProcDecl(p *ProcDecl) {
	name := p.Name.Text()
	if p.Name.Text() != p.EndName.Text() {
		c.errorf(p.EndName.Pos, "procedure %s is closed with the name %s", p.Name.Content, p.EndName.Content)
	}
	sig := &Signature{}
	for _, section := range p.Params {
		if _, ok := section.Type.(*IdentType); !ok {
			c.errorf(section.Type.pos(), "formal parameter declares a new type that no actual parameter can match")
		}
		typ := c.resolveType(section.Type)
		c.info.Defs[section] = typ
		for _, param := range section.Names {
			sig.Params = append(sig.Params, Param{Name: param.Text(), Type: typ, ByRef: section.Var})
		}
	}
	c.info.Signatures[p] = sig
	if !c.scopes.Insert(name, &IdentInfo{Name: name, Kind: ProcedureKind, Node: p, Type: ErrorType, Level: c.level}) {
		c.errorf(p.Name.Pos, "multiple declarations of procedure '%s'", name)
	}

	closeScope := c.openScope(name)
	defer closeScope()
	c.level++
	defer func() { c.level-- }()
	for _, section := range p.Params {
		for _, param := range section.Names {
			info := &IdentInfo{Name: param.Text(), Kind: VariableKind, Node: section, Type: c.info.Defs[section], Level: c.level}
			if !c.scopes.Insert(param.Text(), info) {
				c.errorf(param.Pos, "multiple use of parameter name '%s'", param.Content)
			}
		}
	}
	c.checkDeclarations(p.Decls)
	c.checkStmts(p.Body)
}

func (c *Checker) checkStmts(stmts []Stmt) {
	for _, stmt := range stmts {
		c.checkStmt(stmt)
	}
}

func (c *Checker) checkStmt(stmt Stmt) {
	switch stmt := stmt.(type) {
	case *AssignStmt:
		c.checkAssign(stmt)
	case *CallStmt:
		c.checkCall(stmt)
	case *IfStmt:
		c.checkCondition(stmt.Cond, "IF")
		c.checkStmts(stmt.Then)
		for _, elsif := range stmt.Elsifs {
			c.checkCondition(elsif.Cond, "ELSIF")
			c.checkStmts(elsif.Body)
		}
		c.checkStmts(stmt.Else)
	case *WhileStmt:
		c.checkCondition(stmt.Cond, "WHILE")
		c.checkStmts(stmt.Body)
	case *RepeatStmt:
		c.checkStmts(stmt.Body)
		c.checkCondition(stmt.Cond, "REPEAT")
	default:
		panic("unreachable")
	}
}

func (c *Checker) checkCondition(cond Expr, statement string) {
	typ := c.checkExpr(cond)
	if typ.Tag != ErrorTag && typ.Tag != BooleanTag {
		c.errorf(cond.pos(), "condition of %s statement is not of type BOOLEAN", statement)
	}
}

func (c *Checker) checkAssign(stmt *AssignStmt) {
	name := stmt.Target.Name.Text()
	info, ok := c.scopes.Lookup(name)
	if !ok {
		c.errorf(stmt.Target.pos(), "use of unknown identifier '%s'", name)
		return
	}
	switch info.Kind {
	case VariableKind:
	case ConstantKind:
		c.errorf(stmt.Target.pos(), "cannot assign to constant '%s'", name)
		return
	default:
		c.errorf(stmt.Target.pos(), "cannot assign to %s '%s'", info.Kind, name)
		return
	}
	lhs := c.checkExpr(stmt.Target)
	if lhs.Tag == ErrorTag {
		return
	}
	rhs := c.checkExpr(stmt.Value)
	if rhs.Tag == ErrorTag {
		return
	}
	if !Equal(lhs, rhs) {
		c.errorf(stmt.Becomes.Pos, "cannot assign a value of type %s to a variable of type %s", rhs, lhs)
	}
}

func (c *Checker) checkCall(stmt *CallStmt) {
	name := stmt.Callee.Name.Text()
	info, ok := c.scopes.Lookup(name)
	if !ok {
		c.errorf(stmt.Callee.pos(), "call of unknown procedure '%s'", name)
		return
	}
	if info.Kind != ProcedureKind {
		c.errorf(stmt.Callee.pos(), "'%s' does not refer to a procedure", name)
		return
	}
	if len(stmt.Callee.Selectors) != 0 {
		c.errorf(stmt.Callee.Selectors[0].pos(), "a procedure cannot be called through a selector")
		return
	}
	proc := info.Node.(*ProcDecl)
	sig := c.info.Signatures[proc]
	c.info.Calls[stmt] = proc
	if len(stmt.Args) != len(sig.Params) {
		c.errorf(stmt.Callee.pos(), "number of actual parameters does not match the declaration of '%s' (expected %d, got %d)", name, len(sig.Params), len(stmt.Args))
		return
	}
	for i, arg := range stmt.Args {
		formal := sig.Params[i]
		actual := c.checkExpr(arg)
		if formal.ByRef {
			ident, ok := arg.(*IdentSelectorExpr)
			if !ok {
				c.errorf(arg.pos(), "expression passed as VAR parameter '%s' in call to '%s'", formal.Name, name)
				continue
			}
			if _, constant := c.fold(ident, true); constant {
				c.errorf(arg.pos(), "constant passed as VAR parameter '%s' in call to '%s'", formal.Name, name)
				continue
			}
		}
		if actual.Tag == ErrorTag || formal.Type.Tag == ErrorTag || Equal(formal.Type, actual) {
			continue
		}
		if c.trace(formal.Type).Tag == RecordTag && c.trace(actual).Tag == RecordTag {
			c.warningf(arg.pos(), "record parameter '%s' of '%s' can only be checked by name (expected %s, got %s)", formal.Name, name, formal.Type, actual)
			continue
		}
		c.errorf(arg.pos(), "type of actual parameter does not match formal parameter '%s' of '%s' (expected %s, got %s)", formal.Name, name, formal.Type, actual)
	}
}

// checkExpr returns the formal type of e and records it in Info.Types.
func (c *Checker) checkExpr(e Expr) *Type {
	typ := c.exprType(e)
	c.info.Types[e] = TypeAndValue{Formal: typ, Actual: c.trace(typ)}
	return typ
}

func (c *Checker) exprType(e Expr) *Type {
	switch e := e.(type) {
	case *IntegerLiteral:
		return Integer
	case *ParenExpr:
		return c.checkExpr(e.Inner)
	case *UnaryExpr:
		operand := c.checkExpr(e.Operand)
		if operand.Tag == ErrorTag {
			return ErrorType
		}
		switch e.Operator.Kind {
		case TILDE:
			if operand.Tag != BooleanTag {
				c.errorf(e.pos(), "cannot negate an expression that is not of type BOOLEAN")
				return ErrorType
			}
			return Boolean
		case MINUS:
			if c.trace(operand).Tag != IntegerTag {
				c.errorf(e.pos(), "expression is not of type INTEGER")
				return ErrorType
			}
			return Integer
		case PLUS:
			return operand
		}
	case *BinaryExpr:
		return c.binaryType(e)
	case *IdentSelectorExpr:
		return c.identSelectorType(e)
	}
	c.errorf(e.pos(), "could not deduce expression type")
	return ErrorType
}

func (c *Checker) binaryType(e *BinaryExpr) *Type {
	lhs := c.checkExpr(e.Left)
	rhs := c.checkExpr(e.Right)
	op := e.Op.Kind
	switch {
	case op.IsComparison():
		if lhs.Tag == ErrorTag || rhs.Tag == ErrorTag {
			return ErrorType
		}
		left, right := c.trace(lhs), c.trace(rhs)
		if left.IsComposite() || right.IsComposite() {
			c.errorf(e.pos(), "illegal comparison of composite types")
			return ErrorType
		}
		if left.Tag != right.Tag || left.Name != right.Name {
			c.errorf(e.pos(), "operands of %s do not have equal types (%s and %s)", op, lhs, rhs)
			return ErrorType
		}
		return Boolean
	case op.IsArithmetic():
		ok := true
		if lhs.Tag != ErrorTag && c.trace(lhs).Tag != IntegerTag {
			c.errorf(e.pos(), "left operand of %s is not of type INTEGER", op)
			ok = false
		}
		if rhs.Tag != ErrorTag && c.trace(rhs).Tag != IntegerTag {
			c.errorf(e.pos(), "right operand of %s is not of type INTEGER", op)
			ok = false
		}
		if !ok || lhs.Tag == ErrorTag || rhs.Tag == ErrorTag {
			return ErrorType
		}
		return Integer
	case op.IsLogical():
		ok := true
		if lhs.Tag != ErrorTag && lhs.Tag != BooleanTag {
			c.errorf(e.pos(), "left operand of %s is not of type BOOLEAN", op)
			ok = false
		}
		if rhs.Tag != ErrorTag && rhs.Tag != BooleanTag {
			c.errorf(e.pos(), "right operand of %s is not of type BOOLEAN", op)
			ok = false
		}
		if !ok || lhs.Tag == ErrorTag || rhs.Tag == ErrorTag {
			return ErrorType
		}
		return Boolean
	}
	c.errorf(e.pos(), "invalid binary operator %s", op)
	return ErrorType
}

func (c *Checker) identSelectorType(e *IdentSelectorExpr) *Type {
	name := e.Name.Text()
	info, ok := c.scopes.Lookup(name)
	if !ok {
		c.errorf(e.pos(), "use of unknown identifier '%s'", name)
		return ErrorType
	}
	switch info.Kind {
	case ProcedureKind, TypeNameKind:
		c.errorf(e.pos(), "%s '%s' cannot be used as a value", info.Kind, name)
		return ErrorType
	case VariableKind:
		if info.Level != 0 && info.Level != c.level {
			c.errorf(e.pos(), "cannot access local variable '%s' of an enclosing procedure", name)
			return ErrorType
		}
	}
	typ := c.checkSelectors(info.Type, e.Selectors)
	if !c.resolves(typ, e.pos()) {
		return ErrorType
	}
	return typ
}

// resolves reports an alias that names no type in the current scope, e.g.
// a local "TYPE T = T" shadowing the T a variable was declared with.
func (c *Checker) resolves(t *Type, pos Pos) bool {
	if t.Tag != AliasTag || c.trace(t).Tag != ErrorTag {
		return true
	}
	c.errorf(pos, "type '%s' does not resolve to a type", t.Name)
	return false
}

// checkSelectors folds the selector chain over seed, stopping at the first
// step that fails.
func (c *Checker) checkSelectors(seed *Type, selectors []Selector) *Type {
	for _, sel := range selectors {
		if seed.Tag == ErrorTag || !c.resolves(seed, sel.pos()) {
			return ErrorType
		}
		switch sel := sel.(type) {
		case *IndexSelector:
			array := c.trace(seed)
			if array.Tag != ArrayTag {
				if array.Tag != ErrorTag {
					c.errorf(sel.pos(), "cannot index a value of type %s", seed)
				}
				return ErrorType
			}
			index := c.checkExpr(sel.Index)
			if index.Tag == ErrorTag {
				return ErrorType
			}
			if c.trace(index).Tag != IntegerTag {
				c.errorf(sel.Index.pos(), "array index is not of type INTEGER")
				return ErrorType
			}
			if value, ok := c.fold(sel.Index, true); ok && value >= array.Len {
				c.errorf(sel.Index.pos(), "array index out of bounds (index %d for size %d)", value, array.Len)
			}
			seed = array.Elem
		case *FieldSelector:
			record := c.trace(seed)
			if record.Tag != RecordTag {
				if record.Tag != ErrorTag {
					c.errorf(sel.Name.Pos, "cannot access field '%s' of a value of type %s", sel.Name.Content, seed)
				}
				return ErrorType
			}
			layout := record
			if seed.Tag == AliasTag {
				if named, ok := c.records.Lookup(seed.Name); ok {
					layout = named
				}
			}
			field := layout.Field(sel.Name.Text())
			if field == nil {
				c.errorf(sel.Name.Pos, "record type %s has no field '%s'", seed, sel.Name.Content)
				return ErrorType
			}
			seed = field.Type
		default:
			panic("unreachable")
		}
	}
	return seed
}
