package oberon_test

import (
	"oberon"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/go-llvm"
)

func init() {
	llvm.LinkInInterpreter()
}

func generate(t *testing.T, source string) llvm.Module {
	t.Helper()
	m, err := oberon.ParseFile("<test>", []byte(source))
	require.NoError(t, err)
	c := &collector{}
	info, n := oberon.Check(m, c)
	require.Zero(t, n, "%v", c.items)
	ir, err := oberon.Codegen(m, info)
	require.NoError(t, err)
	return ir
}

type execution struct {
	t      *testing.T
	ee     llvm.ExecutionEngine
	module llvm.Module
}

// execute runs main through the LLVM interpreter.
func execute(t *testing.T, source string) *execution {
	t.Helper()
	ir := generate(t, source)
	ee, err := llvm.NewInterpreter(ir)
	if err != nil {
		t.Skipf("LLVM interpreter unavailable: %v", err)
	}
	t.Cleanup(ee.Dispose)
	ret := ee.RunFunction(ir.NamedFunction("main"), []llvm.GenericValue{})
	assert.Equal(t, uint64(0), ret.Int(true))
	ret.Dispose()
	return &execution{t: t, ee: ee, module: ir}
}

// ints reads n consecutive INTEGERs stored at the global called name.
func (e *execution) ints(name string, n int) []int64 {
	g := e.module.NamedGlobal(name)
	require.False(e.t, g.IsNil(), "no global %s", name)
	return unsafe.Slice((*int64)(e.ee.PointerToGlobal(g)), n)
}

func (e *execution) int(name string) int64 {
	return e.ints(name, 1)[0]
}

func instructions(fn llvm.Value, opcode llvm.Opcode) []llvm.Value {
	var found []llvm.Value
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		for inst := bb.FirstInstruction(); !inst.IsNil(); inst = llvm.NextInstruction(inst) {
			if inst.InstructionOpcode() == opcode {
				found = append(found, inst)
			}
		}
	}
	return found
}

func blockNames(fn llvm.Value) []string {
	var names []string
	for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
		names = append(names, bb.AsValue().Name())
	}
	return names
}

// sameAddress reports whether a and b compute the same location: either
// the same value or element pointers over the same operands.
func sameAddress(a, b llvm.Value) bool {
	if a == b {
		return true
	}
	if a.IsAGetElementPtrInst().IsNil() || b.IsAGetElementPtrInst().IsNil() {
		return false
	}
	if a.OperandsCount() != b.OperandsCount() {
		return false
	}
	for i := 0; i < a.OperandsCount(); i++ {
		if !sameAddress(a.Operand(i), b.Operand(i)) {
			return false
		}
	}
	return true
}

func TestCodegen_ArrayStoreLoadAddress(t *testing.T) {
	source := "MODULE A; TYPE V = ARRAY 3 OF INTEGER; VAR a: V; i: INTEGER; BEGIN a[1] := 5; i := a[1] END A."
	ir := generate(t, source)
	main := ir.NamedFunction("main")
	require.False(t, main.IsNil())

	stores := instructions(main, llvm.Store)
	loads := instructions(main, llvm.Load)
	require.Len(t, stores, 2)
	require.Len(t, loads, 1)
	assert.True(t, sameAddress(stores[0].Operand(1), loads[0].Operand(0)))

	run := execute(t, source)
	assert.Equal(t, []int64{0, 5, 0}, run.ints("a", 3))
	assert.Equal(t, int64(5), run.int("i"))
}

func TestCodegen_ShortCircuitIncomingBlocks(t *testing.T) {
	// nested on the left: the outer merge is entered from the inner merge
	ir := generate(t, "MODULE S; VAR a, b, c, r: BOOLEAN; BEGIN r := (a & b) & c END S.")
	phis := instructions(ir.NamedFunction("main"), llvm.PHI)
	require.Len(t, phis, 2)
	inner, outer := phis[0], phis[1]
	require.Equal(t, 2, outer.IncomingCount())
	assert.Equal(t, inner.InstructionParent(), outer.IncomingBlock(0))

	// nested on the right: the outer merge is entered from the inner merge
	// on the taken path
	ir = generate(t, "MODULE S; VAR a, b, c, r: BOOLEAN; BEGIN r := a OR (b & c) END S.")
	phis = instructions(ir.NamedFunction("main"), llvm.PHI)
	require.Len(t, phis, 2)
	outer, inner = phis[0], phis[1]
	require.Equal(t, 2, outer.IncomingCount())
	assert.Equal(t, inner.InstructionParent(), outer.IncomingBlock(1))
	assert.Equal(t, ir.NamedFunction("main").EntryBasicBlock(), outer.IncomingBlock(0))
}

func TestCodegen_ShortCircuitSkipsRightOperand(t *testing.T) {
	run := execute(t, `MODULE S;
VAR x, conj, disj: INTEGER; b: BOOLEAN;
BEGIN
  x := 0;
  b := (x # 0) & (10 DIV x > 1);
  IF b THEN conj := 1 ELSE conj := 2 END;
  b := (x = 0) OR (10 DIV x > 1);
  IF b THEN disj := 1 ELSE disj := 2 END
END S.`)
	assert.Equal(t, int64(2), run.int("conj"))
	assert.Equal(t, int64(1), run.int("disj"))
}

func TestCodegen_Loops(t *testing.T) {
	source := `MODULE Loops;
VAR i, sum, n, fact, k, never, sign: INTEGER;
BEGIN
  i := 0; sum := 0;
  WHILE i < 5 DO i := i + 1; sum := sum + i END;
  n := 0; fact := 1;
  REPEAT n := n + 1; fact := fact * n UNTIL n >= 5;
  k := 0;
  REPEAT k := k + 1 UNTIL 1 = 1;
  WHILE 1 = 0 DO never := 1 END;
  IF sum < 10 THEN sign := 1 ELSIF sum < 20 THEN sign := 2 ELSE sign := 3 END
END Loops.`
	run := execute(t, source)
	assert.Equal(t, int64(15), run.int("sum"))
	assert.Equal(t, int64(120), run.int("fact"))
	assert.Equal(t, int64(1), run.int("k"))
	assert.Equal(t, int64(0), run.int("never"))
	assert.Equal(t, int64(2), run.int("sign"))
}

func TestCodegen_LoopBlocks(t *testing.T) {
	ir := generate(t, "MODULE W; VAR i: INTEGER; BEGIN WHILE i < 3 DO i := i + 1 END END W.")
	assert.Equal(t, []string{"entry", "check", "loop", "tail"}, blockNames(ir.NamedFunction("main")))

	ir = generate(t, "MODULE R; VAR i: INTEGER; BEGIN REPEAT i := i + 1 UNTIL i > 3 END R.")
	assert.Equal(t, []string{"entry", "loop", "tail"}, blockNames(ir.NamedFunction("main")))
}

func TestCodegen_IfChains(t *testing.T) {
	run := execute(t, `MODULE I;
VAR x, a, b, c: INTEGER;
BEGIN
  x := 7;
  IF x > 5 THEN a := 1 END;
  IF x > 10 THEN b := 1 ELSIF x > 8 THEN b := 2 END;
  IF x = 1 THEN c := 1 ELSIF x = 2 THEN c := 2 ELSIF x = 7 THEN c := 7 ELSE c := 9 END
END I.`)
	assert.Equal(t, int64(1), run.int("a"))
	assert.Equal(t, int64(0), run.int("b"))
	assert.Equal(t, int64(7), run.int("c"))
}

const procsModule = `MODULE Procs;
TYPE Point = RECORD x, y: INTEGER END; Vec = ARRAY 4 OF INTEGER;
VAR a, b, q, calls: INTEGER; p: Point; v: Vec;

PROCEDURE Swap(VAR x, y: INTEGER);
  VAR t: INTEGER;
BEGIN t := x; x := y; y := t END Swap;

PROCEDURE Fill(VAR w: Vec; n: INTEGER);
  VAR i: INTEGER;
BEGIN
  i := 0;
  WHILE i < 4 DO w[i] := n * i; i := i + 1 END
END Fill;

PROCEDURE Move(VAR pt: Point; dx: INTEGER);
BEGIN pt.x := pt.x + dx; pt.y := pt.y - dx END Move;

PROCEDURE Ignore(n: INTEGER);
BEGIN n := 100 END Ignore;

PROCEDURE Count(n: INTEGER);
BEGIN
  IF n > 0 THEN calls := calls + 1; Count(n - 1) END
END Count;

BEGIN
  a := 1; b := 2; Swap(a, b);
  Fill(v, 3);
  p.x := 10; p.y := 20; Move(p, 5);
  q := 7; Ignore(q);
  Count(5)
END Procs.`

func TestCodegen_Procedures(t *testing.T) {
	run := execute(t, procsModule)
	assert.Equal(t, int64(2), run.int("a"))
	assert.Equal(t, int64(1), run.int("b"))
	assert.Equal(t, []int64{0, 3, 6, 9}, run.ints("v", 4))
	assert.Equal(t, []int64{15, 15}, run.ints("p", 2))
	assert.Equal(t, int64(7), run.int("q"))
	assert.Equal(t, int64(5), run.int("calls"))
}

func TestCodegen_ProcedureSignatures(t *testing.T) {
	ir := generate(t, procsModule)
	swap := ir.NamedFunction("Swap")
	require.False(t, swap.IsNil())
	require.Equal(t, 2, swap.ParamsCount())
	assert.Equal(t, llvm.PointerTypeKind, swap.Param(0).Type().TypeKind())
	assert.Equal(t, "x", swap.Param(0).Name())

	ignore := ir.NamedFunction("Ignore")
	require.False(t, ignore.IsNil())
	require.Equal(t, 1, ignore.ParamsCount())
	assert.Equal(t, ir.Context().Int64Type(), ignore.Param(0).Type())
}

func TestCodegen_NestedProcedures(t *testing.T) {
	source := `MODULE Nest;
CONST base = 40;
VAR out: INTEGER;
PROCEDURE Outer;
  CONST two = 2;
  TYPE R = RECORD f: INTEGER END;
  VAR r: R;
  PROCEDURE Inner;
  BEGIN out := base + two END Inner;
BEGIN r.f := 1; Inner END Outer;
BEGIN Outer END Nest.`
	ir := generate(t, source)
	assert.False(t, ir.NamedFunction("Outer.Inner").IsNil())
	assert.Contains(t, ir.String(), "%Outer.R = type")

	run := execute(t, source)
	assert.Equal(t, int64(42), run.int("out"))
}

func TestCodegen_Arithmetic(t *testing.T) {
	run := execute(t, `MODULE Arith;
CONST k = 3;
VAR sum, diff, prod, quot, rem, neg, trunc, truncRem, gt, logic: INTEGER; bt, bf: BOOLEAN;
BEGIN
  sum := 2 + k; diff := 2 - k; prod := 4 * k;
  quot := 17 DIV k; rem := 17 MOD k; neg := -k + 1;
  trunc := (0 - 7) DIV 2; truncRem := (0 - 7) MOD 2;
  bt := 1 = 1; bf := ~bt;
  IF bt > bf THEN gt := 1 END;
  IF (bt OR bf) & ~(bt & bf) THEN logic := 1 END
END Arith.`)
	assert.Equal(t, int64(5), run.int("sum"))
	assert.Equal(t, int64(-1), run.int("diff"))
	assert.Equal(t, int64(12), run.int("prod"))
	assert.Equal(t, int64(5), run.int("quot"))
	assert.Equal(t, int64(2), run.int("rem"))
	assert.Equal(t, int64(-2), run.int("neg"))
	assert.Equal(t, int64(-3), run.int("trunc"))
	assert.Equal(t, int64(-1), run.int("truncRem"))
	assert.Equal(t, int64(1), run.int("gt"))
	assert.Equal(t, int64(1), run.int("logic"))
}

func TestCodegen_Globals(t *testing.T) {
	ir := generate(t, "MODULE G; CONST n = 10; TYPE P = RECORD x, y: INTEGER END; VAR a: INTEGER; b: BOOLEAN; p: P; END G.")
	text := ir.String()
	assert.Contains(t, text, "@n = internal constant i64 10")
	assert.Contains(t, text, "@a = internal global i64 0")
	assert.Contains(t, text, "@b = internal global i1 false")
	assert.Contains(t, text, "%P = type { i64, i64 }")
	assert.Contains(t, text, "define i32 @main()")
}

func TestCodegen_RecordParametersByName(t *testing.T) {
	m, err := oberon.ParseFile("<test>", []byte(`MODULE Rec;
TYPE R = RECORD a, b: INTEGER END; S = RECORD a, b: INTEGER END;
VAR s: S; out: INTEGER;
PROCEDURE Sum(r: R); BEGIN out := r.a + r.b END Sum;
PROCEDURE Set(VAR r: R); BEGIN r.a := 3; r.b := 4 END Set;
BEGIN Set(s); Sum(s) END Rec.`))
	require.NoError(t, err)
	c := &collector{}
	info, n := oberon.Check(m, c)
	require.Zero(t, n)
	assert.Len(t, c.warnings(), 2)
	_, err = oberon.Codegen(m, info)
	assert.NoError(t, err)
}

func TestCodegen_PanicInProcedureKeepsCause(t *testing.T) {
	// x is left without a type by the failed check
	m, info, c := check(t, "MODULE M; PROCEDURE P; VAR x: Q; END P; END M.")
	require.Len(t, c.errors(), 1)
	assert.PanicsWithValue(t, "unreachable", func() {
		_, _ = oberon.Codegen(m, info)
	})
}
