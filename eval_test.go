package oberon_test

import (
	"errors"
	"oberon"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evaluateTest struct {
	source string
	result int64
}

var evaluateTests = []evaluateTest{
	{"123", 123},
	{"5 + 3 * 2", 11},
	{"(5 + 3) * 2", 16},
	{"10 - 2 - 3", 5},
	{"+4", 4},
	{"-7 DIV 2", -3},
	{"7 MOD 3", 1},
	{"-(2 - 5)", 3},
	{"((1))", 1},
}

func TestEvaluator_Evaluate(t *testing.T) {
	for _, test := range evaluateTests {
		t.Logf("testing %s", test.source)
		c := &collector{}
		eval := oberon.NewEvaluator(c)
		result, err := eval.Evaluate(parseExpr(t, test.source))
		require.NoError(t, err)
		assert.Equal(t, test.result, result)
		assert.Empty(t, c.items)
	}
}

type evaluateErrorTest struct {
	source  string
	message string
}

var evaluateErrorTests = []evaluateErrorTest{
	{"1 DIV 0", "division by zero"},
	{"5 MOD (2 - 2)", "division by zero"},
	{"x", "use of unknown identifier 'x'"},
	{"1 = 1", "could not evaluate expression to an integer"},
	{"~1", "could not evaluate expression to an integer"},
	{"INTEGER", "constant expression contains non-constant identifier 'INTEGER'"},
	{"a[1]", "constant expression contains array indexing or record fields"},
	{"a.b", "constant expression contains array indexing or record fields"},
}

func TestEvaluator_Errors(t *testing.T) {
	for _, test := range evaluateErrorTests {
		t.Logf("testing %s", test.source)
		c := &collector{}
		eval := oberon.NewEvaluator(c)
		_, err := eval.Evaluate(parseExpr(t, test.source))
		assert.ErrorIs(t, err, oberon.ErrSemantic)
		errs := c.errors()
		if assert.Len(t, errs, 1) {
			assert.Equal(t, test.message, errs[0])
		}
	}
}

func TestEvaluator_Define(t *testing.T) {
	c := &collector{}
	eval := oberon.NewEvaluator(c)
	x := oberon.Token{Kind: oberon.IDENTIFIER, Content: []byte("x")}
	value, err := eval.Define(x, parseExpr(t, "2 + 3"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), value)

	y := oberon.Token{Kind: oberon.IDENTIFIER, Content: []byte("y")}
	value, err = eval.Define(y, parseExpr(t, "x * x"))
	require.NoError(t, err)
	assert.Equal(t, int64(25), value)

	value, err = eval.Evaluate(parseExpr(t, "y - x"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), value)
	assert.Empty(t, c.items)

	_, err = eval.Define(x, parseExpr(t, "1"))
	var perr oberon.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "constant 'x' is already defined", perr.Message())

	value, err = eval.Evaluate(parseExpr(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), value)
}

func TestEvaluator_DivisionByConstantZero(t *testing.T) {
	c := &collector{}
	eval := oberon.NewEvaluator(c)
	x := oberon.Token{Kind: oberon.IDENTIFIER, Content: []byte("x")}
	_, err := eval.Define(x, parseExpr(t, "5"))
	require.NoError(t, err)

	_, err = eval.Evaluate(parseExpr(t, "x DIV 0"))
	assert.ErrorIs(t, err, oberon.ErrSemantic)
	assert.Equal(t, []string{"division by zero"}, c.errors())
}

func TestEvaluator_FailedDefineBindsNothing(t *testing.T) {
	c := &collector{}
	eval := oberon.NewEvaluator(c)
	z := oberon.Token{Kind: oberon.IDENTIFIER, Content: []byte("z")}
	_, err := eval.Define(z, parseExpr(t, "1 DIV 0"))
	assert.ErrorIs(t, err, oberon.ErrSemantic)

	_, err = eval.Evaluate(parseExpr(t, "z"))
	assert.ErrorIs(t, err, oberon.ErrSemantic)
	assert.Equal(t, []string{"division by zero", "use of unknown identifier 'z'"}, c.errors())
}
