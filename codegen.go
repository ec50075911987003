package oberon

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	"tinygo.org/x/go-llvm"
)

// Codegen lowers a module that checked without errors. The module-level
// statements become the body of main.
func Codegen(m *Module, info *Info) (llvm.Module, error) {
	g := newGenerator(m.Name.Text(), info)
	defer g.builder.Dispose()
	g.genModule(m)
	if err := llvm.VerifyModule(g.module, llvm.ReturnStatusAction); err != nil {
		return g.module, fmt.Errorf("verify module %s: %w", m.Name.Content, err)
	}
	return g.module, nil
}

// codegenValue is what a name is bound to during generation. Variables
// and non-folded uses of constants go through addr, folded constants
// through imm.
type codegenValue struct {
	addr     llvm.Value
	imm      llvm.Value
	typ      *Type
	byRef    bool
	constant bool
	proc     *ProcDecl
	fnType   llvm.Type
}

type backendType struct {
	llvm   llvm.Type
	traced *Type
}

type generator struct {
	ctx     llvm.Context
	module  llvm.Module
	builder llvm.Builder
	info    *Info
	values  *ScopeStack[*codegenValue]
	types   *ScopeStack[*backendType]
	fn      llvm.Value
	path    []string
}

func newGenerator(name string, info *Info) *generator {
	ctx := llvm.NewContext()
	return &generator{
		ctx:     ctx,
		module:  ctx.NewModule(name),
		builder: ctx.NewBuilder(),
		info:    info,
		values:  NewScopeStack[*codegenValue](),
		types:   NewScopeStack[*backendType](),
	}
}

func (g *generator) openScope(name string) func() {
	closeValues := g.values.Open()
	closeTypes := g.types.Open()
	g.path = append(g.path, name)
	return func() {
		g.path = g.path[:len(g.path)-1]
		closeTypes()
		closeValues()
	}
}

// qualified names a symbol after the procedures enclosing it.
func (g *generator) qualified(name string) string {
	if len(g.path) <= 1 {
		return name
	}
	return strings.Join(g.path[1:], ".") + "." + name
}

func (g *generator) lookup(name string) *codegenValue {
	v, ok := g.values.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("codegen: unbound identifier %s", name))
	}
	return v
}

func (g *generator) trace(t *Type) *Type {
	for t.Tag == AliasTag {
		bt, ok := g.types.Lookup(t.Name)
		if !ok {
			panic(fmt.Sprintf("codegen: unbound type %s", t.Name))
		}
		t = bt.traced
	}
	return t
}

func (g *generator) llvmType(t *Type) llvm.Type {
	switch t.Tag {
	case IntegerTag:
		return g.ctx.Int64Type()
	case BooleanTag:
		return g.ctx.Int1Type()
	case AliasTag:
		bt, ok := g.types.Lookup(t.Name)
		if !ok {
			panic(fmt.Sprintf("codegen: unbound type %s", t.Name))
		}
		return bt.llvm
	case ArrayTag:
		n, err := safecast.Conv[int](t.Len)
		if err != nil {
			panic(fmt.Sprintf("codegen: array length %d: %v", t.Len, err))
		}
		return llvm.ArrayType(g.llvmType(t.Elem), n)
	case RecordTag:
		return g.ctx.StructType(g.fieldTypes(t), false)
	}
	panic("unreachable")
}

func (g *generator) fieldTypes(t *Type) []llvm.Type {
	elems := make([]llvm.Type, 0, len(t.Fields))
	for _, f := range t.Fields {
		elems = append(elems, g.llvmType(f.Type))
	}
	return elems
}

func (g *generator) genModule(m *Module) {
	mainType := llvm.FunctionType(g.ctx.Int32Type(), nil, false)
	main := llvm.AddFunction(g.module, "main", mainType)
	entry := g.ctx.AddBasicBlock(main, "entry")
	g.builder.SetInsertPointAtEnd(entry)
	g.fn = main

	closeScope := g.openScope(m.Name.Text())
	defer closeScope()
	g.genDeclarations(m.Decls, true)
	g.genStmts(m.Body)
	g.builder.CreateRet(llvm.ConstInt(g.ctx.Int32Type(), 0, false))
}

func (g *generator) genDeclarations(d *Declarations, global bool) {
	if d == nil {
		return
	}
	for _, decl := range d.Types {
		g.genTypeDecl(decl)
	}
	i64 := g.ctx.Int64Type()
	for _, decl := range d.Consts {
		name := decl.Name.Text()
		value := llvm.ConstInt(i64, uint64(g.info.Consts[decl]), true)
		var slot llvm.Value
		if global {
			slot = llvm.AddGlobal(g.module, i64, name)
			slot.SetInitializer(value)
			slot.SetGlobalConstant(true)
			slot.SetLinkage(llvm.InternalLinkage)
		} else {
			slot = g.builder.CreateAlloca(i64, name)
			g.builder.CreateStore(value, slot)
		}
		g.values.Insert(name, &codegenValue{addr: slot, imm: value, typ: Integer, constant: true})
	}
	for _, decl := range d.Vars {
		typ := g.info.Defs[decl]
		lt := g.llvmType(typ)
		for _, ident := range decl.Names {
			name := ident.Text()
			var slot llvm.Value
			if global {
				slot = llvm.AddGlobal(g.module, lt, name)
				slot.SetInitializer(llvm.ConstNull(lt))
				slot.SetLinkage(llvm.InternalLinkage)
			} else {
				slot = g.builder.CreateAlloca(lt, name)
			}
			g.values.Insert(name, &codegenValue{addr: slot, typ: typ})
		}
	}
	for _, decl := range d.Procs {
		g.genProcDecl(decl)
	}
}

func (g *generator) genTypeDecl(decl *TypeDecl) {
	typ := g.info.Defs[decl]
	name := decl.Name.Text()
	var lt llvm.Type
	if typ.Tag == RecordTag {
		lt = g.ctx.StructCreateNamed(g.qualified(name))
		lt.StructSetBody(g.fieldTypes(typ), false)
	} else {
		lt = g.llvmType(typ)
	}
	g.types.Insert(name, &backendType{llvm: lt, traced: g.trace(typ)})
}

func (g *generator) genProcDecl(p *ProcDecl) {
	name := p.Name.Text()
	sig := g.info.Signatures[p]
	params := make([]llvm.Type, 0, len(sig.Params))
	for _, param := range sig.Params {
		lt := g.llvmType(param.Type)
		if param.ByRef {
			lt = llvm.PointerType(lt, 0)
		}
		params = append(params, lt)
	}
	fnType := llvm.FunctionType(g.ctx.VoidType(), params, false)
	fn := llvm.AddFunction(g.module, g.qualified(name), fnType)
	g.values.Insert(name, &codegenValue{addr: fn, proc: p, fnType: fnType})

	savedBlock := g.builder.GetInsertBlock()
	savedFn := g.fn
	closeScope := g.openScope(name)
	defer func() {
		closeScope()
		g.fn = savedFn
		g.builder.SetInsertPointAtEnd(savedBlock)
	}()
	g.fn = fn
	g.builder.SetInsertPointAtEnd(g.ctx.AddBasicBlock(fn, "entry"))
	for i, param := range sig.Params {
		arg := fn.Param(i)
		arg.SetName(param.Name)
		slot := g.builder.CreateAlloca(params[i], param.Name+".addr")
		g.builder.CreateStore(arg, slot)
		g.values.Insert(param.Name, &codegenValue{addr: slot, typ: param.Type, byRef: param.ByRef})
	}
	g.genDeclarations(p.Decls, false)
	g.genStmts(p.Body)
	g.builder.CreateRetVoid()
}

func (g *generator) genStmts(stmts []Stmt) {
	for _, stmt := range stmts {
		g.genStmt(stmt)
	}
}

func (g *generator) genStmt(stmt Stmt) {
	switch stmt := stmt.(type) {
	case *AssignStmt:
		addr, _ := g.address(stmt.Target)
		value := g.genExpr(stmt.Value)
		g.builder.CreateStore(value, addr)
	case *CallStmt:
		g.genCall(stmt)
	case *IfStmt:
		g.genIf(stmt)
	case *WhileStmt:
		check := g.ctx.AddBasicBlock(g.fn, "check")
		loop := g.ctx.AddBasicBlock(g.fn, "loop")
		tail := g.ctx.AddBasicBlock(g.fn, "tail")
		g.builder.CreateBr(check)
		g.builder.SetInsertPointAtEnd(check)
		cond := g.genExpr(stmt.Cond)
		g.builder.CreateCondBr(cond, loop, tail)
		g.builder.SetInsertPointAtEnd(loop)
		g.genStmts(stmt.Body)
		g.builder.CreateBr(check)
		g.builder.SetInsertPointAtEnd(tail)
	case *RepeatStmt:
		loop := g.ctx.AddBasicBlock(g.fn, "loop")
		tail := g.ctx.AddBasicBlock(g.fn, "tail")
		g.builder.CreateBr(loop)
		g.builder.SetInsertPointAtEnd(loop)
		g.genStmts(stmt.Body)
		cond := g.genExpr(stmt.Cond)
		g.builder.CreateCondBr(cond, tail, loop)
		g.builder.SetInsertPointAtEnd(tail)
	default:
		panic("unreachable")
	}
}

func (g *generator) genIf(stmt *IfStmt) {
	clauses := append([]*ElsifClause{{Cond: stmt.Cond, Body: stmt.Then}}, stmt.Elsifs...)
	post := g.ctx.AddBasicBlock(g.fn, "post_branch")
	for i, clause := range clauses {
		cond := g.genExpr(clause.Cond)
		then := g.ctx.AddBasicBlock(g.fn, "then")
		next := post
		switch {
		case i+1 < len(clauses):
			next = g.ctx.AddBasicBlock(g.fn, "elsif")
		case stmt.Else != nil:
			next = g.ctx.AddBasicBlock(g.fn, "else")
		}
		g.builder.CreateCondBr(cond, then, next)
		g.builder.SetInsertPointAtEnd(then)
		g.genStmts(clause.Body)
		g.builder.CreateBr(post)
		g.builder.SetInsertPointAtEnd(next)
	}
	if stmt.Else != nil {
		g.genStmts(stmt.Else)
		g.builder.CreateBr(post)
		g.builder.SetInsertPointAtEnd(post)
	}
}

func (g *generator) genCall(stmt *CallStmt) {
	callee := g.lookup(stmt.Callee.Name.Text())
	sig := g.info.Signatures[callee.proc]
	args := make([]llvm.Value, 0, len(stmt.Args))
	for i, arg := range stmt.Args {
		param := sig.Params[i]
		want := g.llvmType(param.Type)
		if param.ByRef {
			addr, typ := g.address(arg.(*IdentSelectorExpr))
			if g.llvmType(typ) != want {
				addr = g.builder.CreateBitCast(addr, llvm.PointerType(want, 0), "cast")
			}
			args = append(args, addr)
			continue
		}
		if ident, ok := arg.(*IdentSelectorExpr); ok && g.trace(param.Type).Tag == RecordTag {
			addr, typ := g.address(ident)
			if g.llvmType(typ) != want {
				addr = g.builder.CreateBitCast(addr, llvm.PointerType(want, 0), "cast")
				args = append(args, g.builder.CreateLoad(want, addr, param.Name))
				continue
			}
		}
		args = append(args, g.genExpr(arg))
	}
	g.builder.CreateCall(callee.fnType, callee.addr, args, "")
}

// address computes the location denoted by e, walking its selectors.
func (g *generator) address(e *IdentSelectorExpr) (llvm.Value, *Type) {
	v := g.lookup(e.Name.Text())
	addr, typ := v.addr, v.typ
	if v.byRef {
		addr = g.builder.CreateLoad(llvm.PointerType(g.llvmType(typ), 0), addr, e.Name.Text()+".ref")
	}
	for _, sel := range e.Selectors {
		switch sel := sel.(type) {
		case *IndexSelector:
			array := g.trace(typ)
			if array.Tag != ArrayTag {
				panic("codegen: index of non-array value")
			}
			index := g.genExpr(sel.Index)
			zero := llvm.ConstInt(g.ctx.Int64Type(), 0, false)
			addr = g.builder.CreateGEP(g.llvmType(array), addr, []llvm.Value{zero, index}, "elem")
			typ = array.Elem
		case *FieldSelector:
			record := g.trace(typ)
			if record.Tag != RecordTag {
				panic("codegen: field of non-record value")
			}
			n, err := safecast.Conv[uint64](record.FieldIndex(sel.Name.Text()))
			if err != nil {
				panic(fmt.Sprintf("codegen: unknown field %s", sel.Name.Content))
			}
			i32 := g.ctx.Int32Type()
			indices := []llvm.Value{llvm.ConstInt(i32, 0, false), llvm.ConstInt(i32, n, false)}
			addr = g.builder.CreateGEP(g.llvmType(typ), addr, indices, sel.Name.Text())
			typ = record.Fields[n].Type
		default:
			panic("unreachable")
		}
	}
	return addr, typ
}

func (g *generator) genExpr(e Expr) llvm.Value {
	switch e := e.(type) {
	case *IntegerLiteral:
		return llvm.ConstInt(g.ctx.Int64Type(), uint64(e.Value), true)
	case *ParenExpr:
		return g.genExpr(e.Inner)
	case *UnaryExpr:
		operand := g.genExpr(e.Operand)
		switch e.Operator.Kind {
		case PLUS:
			return operand
		case MINUS:
			return g.builder.CreateNeg(operand, "neg")
		case TILDE:
			return g.builder.CreateNot(operand, "not")
		}
	case *BinaryExpr:
		if e.Op.Kind.IsLogical() {
			return g.genShortCircuit(e)
		}
		return g.genBinary(e)
	case *IdentSelectorExpr:
		v := g.lookup(e.Name.Text())
		if v.constant && len(e.Selectors) == 0 {
			return v.imm
		}
		addr, typ := g.address(e)
		return g.builder.CreateLoad(g.llvmType(typ), addr, e.Name.Text())
	}
	panic("unreachable")
}

var signedPredicates = map[TokenKind]llvm.IntPredicate{
	EQ:   llvm.IntEQ,
	HASH: llvm.IntNE,
	LT:   llvm.IntSLT,
	LEQ:  llvm.IntSLE,
	GT:   llvm.IntSGT,
	GEQ:  llvm.IntSGE,
}

// BOOLEAN compares as unsigned so that TRUE > FALSE.
var unsignedPredicates = map[TokenKind]llvm.IntPredicate{
	EQ:   llvm.IntEQ,
	HASH: llvm.IntNE,
	LT:   llvm.IntULT,
	LEQ:  llvm.IntULE,
	GT:   llvm.IntUGT,
	GEQ:  llvm.IntUGE,
}

func (g *generator) genBinary(e *BinaryExpr) llvm.Value {
	lhs := g.genExpr(e.Left)
	rhs := g.genExpr(e.Right)
	switch e.Op.Kind {
	case PLUS:
		return g.builder.CreateAdd(lhs, rhs, "add")
	case MINUS:
		return g.builder.CreateSub(lhs, rhs, "sub")
	case STAR:
		return g.builder.CreateMul(lhs, rhs, "mul")
	case DIV:
		return g.builder.CreateSDiv(lhs, rhs, "div")
	case MOD:
		return g.builder.CreateSRem(lhs, rhs, "mod")
	}
	predicates := signedPredicates
	if tv, ok := g.info.Types[e.Left]; ok && tv.Actual.Tag == BooleanTag {
		predicates = unsignedPredicates
	}
	if pred, ok := predicates[e.Op.Kind]; ok {
		return g.builder.CreateICmp(pred, lhs, rhs, "cmp")
	}
	panic("unreachable")
}

// genShortCircuit lowers & and OR to a branch on the left operand and a
// phi in a merge block. The incoming blocks are the ones current after
// each operand was generated.
func (g *generator) genShortCircuit(e *BinaryExpr) llvm.Value {
	prefix := "and"
	if e.Op.Kind == OR {
		prefix = "or"
	}
	lhs := g.genExpr(e.Left)
	lhsBlock := g.builder.GetInsertBlock()
	rhsBlock := g.ctx.AddBasicBlock(g.fn, prefix+".rhs")
	endBlock := g.ctx.AddBasicBlock(g.fn, prefix+".end")
	if e.Op.Kind == AMPERSAND {
		g.builder.CreateCondBr(lhs, rhsBlock, endBlock)
	} else {
		g.builder.CreateCondBr(lhs, endBlock, rhsBlock)
	}
	g.builder.SetInsertPointAtEnd(rhsBlock)
	rhs := g.genExpr(e.Right)
	rhsEnd := g.builder.GetInsertBlock()
	g.builder.CreateBr(endBlock)
	g.builder.SetInsertPointAtEnd(endBlock)
	phi := g.builder.CreatePHI(g.ctx.Int1Type(), prefix)
	phi.AddIncoming([]llvm.Value{lhs, rhs}, []llvm.BasicBlock{lhsBlock, rhsEnd})
	return phi
}
