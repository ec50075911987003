package oberon

import (
	"fmt"

	"github.com/cznic/mathutil"
)

type TokenKind int

const (
	EOF TokenKind = iota
	IDENTIFIER
	INTEGER
	PLUS
	MINUS
	STAR
	AMPERSAND
	TILDE
	EQ
	HASH
	LT
	LEQ
	GT
	GEQ
	BECOMES
	COLON
	SEMICOLON
	COMMA
	PERIOD
	LEFTPAREN
	RIGHTPAREN
	LEFTBRACKET
	RIGHTBRACKET

	// keywords
	MODULE
	BEGIN
	END
	CONST
	TYPE
	VAR
	PROCEDURE
	ARRAY
	OF
	RECORD
	IF
	THEN
	ELSIF
	ELSE
	WHILE
	DO
	REPEAT
	UNTIL
	OR
	DIV
	MOD
)

var keywords = map[string]TokenKind{
	"MODULE":    MODULE,
	"BEGIN":     BEGIN,
	"END":       END,
	"CONST":     CONST,
	"TYPE":      TYPE,
	"VAR":       VAR,
	"PROCEDURE": PROCEDURE,
	"ARRAY":     ARRAY,
	"OF":        OF,
	"RECORD":    RECORD,
	"IF":        IF,
	"THEN":      THEN,
	"ELSIF":     ELSIF,
	"ELSE":      ELSE,
	"WHILE":     WHILE,
	"DO":        DO,
	"REPEAT":    REPEAT,
	"UNTIL":     UNTIL,
	"OR":        OR,
	"DIV":       DIV,
	"MOD":       MOD,
}

func (t TokenKind) String() string {
	switch t {
	case EOF:
		return "EOF"
	case IDENTIFIER:
		return "IDENTIFIER"
	case INTEGER:
		return "INTEGER"
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case AMPERSAND:
		return "&"
	case TILDE:
		return "~"
	case EQ:
		return "="
	case HASH:
		return "#"
	case LT:
		return "<"
	case LEQ:
		return "<="
	case GT:
		return ">"
	case GEQ:
		return ">="
	case BECOMES:
		return ":="
	case COLON:
		return ":"
	case SEMICOLON:
		return ";"
	case COMMA:
		return ","
	case PERIOD:
		return "."
	case LEFTPAREN:
		return "("
	case RIGHTPAREN:
		return ")"
	case LEFTBRACKET:
		return "["
	case RIGHTBRACKET:
		return "]"
	}
	for word, kind := range keywords {
		if kind == t {
			return word
		}
	}
	panic("unreachable")
}

// IsComparison reports whether t is one of = # < <= > >=.
func (t TokenKind) IsComparison() bool {
	switch t {
	case EQ, HASH, LT, LEQ, GT, GEQ:
		return true
	}
	return false
}

func (t TokenKind) IsArithmetic() bool {
	switch t {
	case PLUS, MINUS, STAR, DIV, MOD:
		return true
	}
	return false
}

func (t TokenKind) IsLogical() bool {
	return t == AMPERSAND || t == OR
}

type Pos struct {
	Filename string
	Line     int
	Column   int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return p.Filename
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

type Token struct {
	Pos
	Kind    TokenKind
	Content []byte
}

func (t Token) Text() string {
	return string(t.Content)
}

func ScanTokens(filename string, source []byte) ([]Token, error) {
	sc := NewScanner(filename, source)
	tokens := []Token{}
	for {
		tok, err := sc.Scan()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return tokens, nil
}

type Scanner struct {
	filename string
	source   []byte
	start    int
	end      int
	line     int
	column   int
	startPos Pos
}

func NewScanner(filename string, source []byte) Scanner {
	const DEFAULT_LINE = 1
	return Scanner{
		filename: filename,
		source:   source,
		line:     DEFAULT_LINE,
		column:   1,
	}
}

func (s *Scanner) Scan() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return s.token(EOF), err
	}
	s.start = s.end
	s.startPos = s.pos()
	var t Token
	switch c := s.next(); c {
	case 0:
		t = s.token(EOF)
	case '+':
		s.advance()
		t = s.token(PLUS)
	case '-':
		s.advance()
		t = s.token(MINUS)
	case '*':
		s.advance()
		t = s.token(STAR)
	case '&':
		s.advance()
		t = s.token(AMPERSAND)
	case '~':
		s.advance()
		t = s.token(TILDE)
	case '=':
		s.advance()
		t = s.token(EQ)
	case '#':
		s.advance()
		t = s.token(HASH)
	case '<':
		s.advance()
		t = s.either('=', LEQ, LT)
	case '>':
		s.advance()
		t = s.either('=', GEQ, GT)
	case ':':
		s.advance()
		t = s.either('=', BECOMES, COLON)
	case ';':
		s.advance()
		t = s.token(SEMICOLON)
	case ',':
		s.advance()
		t = s.token(COMMA)
	case '.':
		s.advance()
		t = s.token(PERIOD)
	case '(':
		s.advance()
		t = s.token(LEFTPAREN)
	case ')':
		s.advance()
		t = s.token(RIGHTPAREN)
	case '[':
		s.advance()
		t = s.token(LEFTBRACKET)
	case ']':
		s.advance()
		t = s.token(RIGHTBRACKET)
	default:
		if isId(c) {
			return s.id(), nil
		}
		if isNum(c) {
			return s.num(), nil
		}
		return s.token(EOF), NewError(s.startPos, "unexpected character: %c", c)
	}
	return t, nil
}

func isId(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

func isNum(c byte) bool {
	return '0' <= c && c <= '9'
}

func (s *Scanner) either(second byte, ifMatched, otherwise TokenKind) Token {
	if s.next() == second {
		s.advance()
		return s.token(ifMatched)
	}
	return s.token(otherwise)
}

func (s *Scanner) id() Token {
	for {
		c := s.next()
		if !isId(c) && !isNum(c) {
			break
		}
		s.advance()
	}
	t := s.token(IDENTIFIER)
	if kw, ok := keywords[string(t.Content)]; ok {
		t.Kind = kw
	}
	return t
}

func (s *Scanner) num() Token {
	for isNum(s.next()) {
		s.advance()
	}
	return s.token(INTEGER)
}

func (s *Scanner) skipWhitespaceAndComments() error {
	for {
		switch s.next() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		case '(':
			if s.peek(1) != '*' {
				return nil
			}
			if err := s.comment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// comment skips a (possibly nested) comment starting at "(*".
func (s *Scanner) comment() error {
	open := s.pos()
	depth := 0
	for {
		switch {
		case s.end >= len(s.source):
			return NewError(open, "unterminated comment")
		case s.next() == '(' && s.peek(1) == '*':
			s.advance()
			s.advance()
			depth++
		case s.next() == '*' && s.peek(1) == ')':
			s.advance()
			s.advance()
			depth--
			if depth == 0 {
				return nil
			}
		default:
			s.advance()
		}
	}
}

func (s *Scanner) pos() Pos {
	return Pos{
		Filename: s.filename,
		Line:     s.line,
		Column:   s.column,
	}
}

func (s *Scanner) peek(offset int) byte {
	if s.end+offset >= len(s.source) {
		return 0
	}
	return s.source[s.end+offset]
}

func (s *Scanner) next() byte {
	return s.peek(0)
}

func (s *Scanner) advance() byte {
	c := s.next()
	s.end++
	if c == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return c
}

func (s *Scanner) token(t TokenKind) Token {
	end := mathutil.Clamp(s.end, 0, len(s.source))
	start := mathutil.Clamp(s.start, 0, end)
	content := s.source[start:end]
	s.start = end
	return Token{
		Pos:     s.startPos,
		Kind:    t,
		Content: content,
	}
}
