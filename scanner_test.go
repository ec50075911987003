package oberon_test

import (
	"oberon"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanTokensTest struct {
	source   []byte
	expected []oberon.TokenKind
}

var scanTokensTests = []scanTokensTest{
	{[]byte(""), []oberon.TokenKind{oberon.EOF}},
	{[]byte("\t"), []oberon.TokenKind{oberon.EOF}},
	{[]byte("\r\n"), []oberon.TokenKind{oberon.EOF}},
	{[]byte("abc"), []oberon.TokenKind{oberon.IDENTIFIER, oberon.EOF}},
	{[]byte("a1b2"), []oberon.TokenKind{oberon.IDENTIFIER, oberon.EOF}},
	{[]byte("123"), []oberon.TokenKind{oberon.INTEGER, oberon.EOF}},
	{[]byte("123*123"), []oberon.TokenKind{oberon.INTEGER, oberon.STAR, oberon.INTEGER, oberon.EOF}},
	{[]byte("-1"), []oberon.TokenKind{oberon.MINUS, oberon.INTEGER, oberon.EOF}},
	{[]byte("+ - * & ~"), []oberon.TokenKind{oberon.PLUS, oberon.MINUS, oberon.STAR, oberon.AMPERSAND, oberon.TILDE, oberon.EOF}},
	{[]byte("= # < <= > >="), []oberon.TokenKind{oberon.EQ, oberon.HASH, oberon.LT, oberon.LEQ, oberon.GT, oberon.GEQ, oberon.EOF}},
	{[]byte("a := b"), []oberon.TokenKind{oberon.IDENTIFIER, oberon.BECOMES, oberon.IDENTIFIER, oberon.EOF}},
	{[]byte(": ; , ."), []oberon.TokenKind{oberon.COLON, oberon.SEMICOLON, oberon.COMMA, oberon.PERIOD, oberon.EOF}},
	{[]byte("()[]"), []oberon.TokenKind{oberon.LEFTPAREN, oberon.RIGHTPAREN, oberon.LEFTBRACKET, oberon.RIGHTBRACKET, oberon.EOF}},
	{[]byte("(* comment *)"), []oberon.TokenKind{oberon.EOF}},
	{[]byte("(* outer (* inner *) still *)x"), []oberon.TokenKind{oberon.IDENTIFIER, oberon.EOF}},
	{[]byte("MODULE BEGIN END"), []oberon.TokenKind{oberon.MODULE, oberon.BEGIN, oberon.END, oberon.EOF}},
	{[]byte("CONST TYPE VAR PROCEDURE"), []oberon.TokenKind{oberon.CONST, oberon.TYPE, oberon.VAR, oberon.PROCEDURE, oberon.EOF}},
	{[]byte("ARRAY OF RECORD"), []oberon.TokenKind{oberon.ARRAY, oberon.OF, oberon.RECORD, oberon.EOF}},
	{[]byte("IF THEN ELSIF ELSE WHILE DO REPEAT UNTIL"), []oberon.TokenKind{oberon.IF, oberon.THEN, oberon.ELSIF, oberon.ELSE, oberon.WHILE, oberon.DO, oberon.REPEAT, oberon.UNTIL, oberon.EOF}},
	{[]byte("OR DIV MOD"), []oberon.TokenKind{oberon.OR, oberon.DIV, oberon.MOD, oberon.EOF}},
	{[]byte("module"), []oberon.TokenKind{oberon.IDENTIFIER, oberon.EOF}},
}

func TestScanTokens(t *testing.T) {
	for _, test := range scanTokensTests {
		t.Logf("running test '%s'", test.source)
		tokens, err := oberon.ScanTokens("<test>", test.source)
		assert.NoError(t, err)
		kinds := []oberon.TokenKind{}
		for _, tok := range tokens {
			kinds = append(kinds, tok.Kind)
		}
		assert.Equal(t, test.expected, kinds)
	}
}

type scannerScanTest struct {
	source  []byte
	kind    oberon.TokenKind
	content []byte
}

var scannerScanTests = []scannerScanTest{
	{[]byte("123"), oberon.INTEGER, []byte("123")},
	{[]byte("123*123"), oberon.INTEGER, []byte("123")},
	{[]byte("a"), oberon.IDENTIFIER, []byte("a")},
	{[]byte("  <= 1"), oberon.LEQ, []byte("<=")},
	{[]byte("(* x *) WHILE"), oberon.WHILE, []byte("WHILE")},
}

func TestScanner_Scan(t *testing.T) {
	for _, test := range scannerScanTests {
		t.Logf("running test '%s'", test.source)
		sc := oberon.NewScanner("<test>", test.source)
		tok, err := sc.Scan()
		assert.NoError(t, err)
		assert.Equal(t, test.kind, tok.Kind)
		assert.Equal(t, test.content, tok.Content)
	}
}

func TestScanner_Positions(t *testing.T) {
	tokens, err := oberon.ScanTokens("a.mod", []byte("x\n  y (* \n *) z"))
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, oberon.Pos{Filename: "a.mod", Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, oberon.Pos{Filename: "a.mod", Line: 2, Column: 3}, tokens[1].Pos)
	assert.Equal(t, oberon.Pos{Filename: "a.mod", Line: 3, Column: 5}, tokens[2].Pos)
	assert.Equal(t, "a.mod:2:3", tokens[1].Pos.String())
}

func TestScanner_Errors(t *testing.T) {
	sources := []string{
		"(* never closed",
		"(* (* *)",
		"a ! b",
		"\"string\"",
	}
	for _, source := range sources {
		t.Logf("running test '%s'", source)
		_, err := oberon.ScanTokens("<test>", []byte(source))
		assert.Error(t, err)
	}
}
