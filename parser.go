package oberon

import (
	"strconv"
)

func ParseFile(filename string, source []byte) (*Module, error) {
	tokens, err := ScanTokens(filename, source)
	if err != nil {
		return nil, err
	}
	psr := NewParser(tokens)
	return psr.ParseModule()
}

type Parser struct {
	tokens []Token
	index  int
}

func NewParser(tokens []Token) Parser {
	if len(tokens) == 0 {
		tokens = append(tokens, Token{})
	}
	if tokens[len(tokens)-1].Kind != EOF {
		tokens = append(tokens, Token{Kind: EOF})
	}
	return Parser{
		tokens: tokens,
		index:  0,
	}
}

func (p *Parser) ParseModule() (*Module, error) {
	kw, err := p.match(MODULE)
	if err != nil {
		return nil, err
	}
	name, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.match(SEMICOLON); err != nil {
		return nil, err
	}
	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	endName, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.match(PERIOD); err != nil {
		return nil, err
	}
	if _, err := p.match(EOF); err != nil {
		return nil, err
	}
	return &Module{
		Module:  kw,
		Name:    name,
		Decls:   decls,
		Body:    body,
		EndName: endName,
	}, nil
}

// parseBody parses "[BEGIN StatementSequence] END".
func (p *Parser) parseBody() ([]Stmt, error) {
	var body []Stmt
	if p.next().Kind == BEGIN {
		p.advance()
		var err error
		body, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.match(END); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) parseDeclarations() (*Declarations, error) {
	decls := &Declarations{}
	if p.next().Kind == CONST {
		p.advance()
		for p.next().Kind == IDENTIFIER {
			name := p.advance()
			if _, err := p.match(EQ); err != nil {
				return nil, err
			}
			value, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.match(SEMICOLON); err != nil {
				return nil, err
			}
			decls.Consts = append(decls.Consts, &ConstDecl{Name: name, Value: value})
		}
	}
	if p.next().Kind == TYPE {
		p.advance()
		for p.next().Kind == IDENTIFIER {
			name := p.advance()
			if _, err := p.match(EQ); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.match(SEMICOLON); err != nil {
				return nil, err
			}
			decls.Types = append(decls.Types, &TypeDecl{Name: name, Type: typ})
		}
	}
	if p.next().Kind == VAR {
		p.advance()
		for p.next().Kind == IDENTIFIER {
			names, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			if _, err := p.match(COLON); err != nil {
				return nil, err
			}
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if _, err := p.match(SEMICOLON); err != nil {
				return nil, err
			}
			decls.Vars = append(decls.Vars, &VarDecl{Names: names, Type: typ})
		}
	}
	for p.next().Kind == PROCEDURE {
		proc, err := p.parseProcedure()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(SEMICOLON); err != nil {
			return nil, err
		}
		decls.Procs = append(decls.Procs, proc)
	}
	return decls, nil
}

func (p *Parser) parseProcedure() (*ProcDecl, error) {
	kw := p.advance()
	name, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var params []*FPSection
	if p.next().Kind == LEFTPAREN {
		params, err = p.parseFormalParams()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.match(SEMICOLON); err != nil {
		return nil, err
	}
	decls, err := p.parseDeclarations()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	endName, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	return &ProcDecl{
		Procedure: kw,
		Name:      name,
		Params:    params,
		Decls:     decls,
		Body:      body,
		EndName:   endName,
	}, nil
}

func (p *Parser) parseFormalParams() ([]*FPSection, error) {
	p.advance()
	sections := make([]*FPSection, 0)
	if p.next().Kind == RIGHTPAREN {
		p.advance()
		return sections, nil
	}
	for {
		section := &FPSection{}
		if p.next().Kind == VAR {
			p.advance()
			section.Var = true
		}
		names, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		section.Names = names
		if _, err := p.match(COLON); err != nil {
			return nil, err
		}
		section.Type, err = p.parseType()
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
		if p.next().Kind == SEMICOLON {
			p.advance()
			continue
		}
		if _, err := p.match(RIGHTPAREN); err != nil {
			return nil, err
		}
		return sections, nil
	}
}

func (p *Parser) parseIdentList() ([]Token, error) {
	first, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	names := []Token{first}
	for p.next().Kind == COMMA {
		p.advance()
		name, err := p.match(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (p *Parser) parseType() (TypeExpr, error) {
	switch p.next().Kind {
	case IDENTIFIER:
		return &IdentType{Name: p.advance()}, nil
	case ARRAY:
		kw := p.advance()
		length, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(OF); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return &ArrayType{Array: kw, Len: length, Elem: elem}, nil
	case RECORD:
		kw := p.advance()
		record := &RecordType{Record: kw}
		for {
			if p.next().Kind == IDENTIFIER {
				names, err := p.parseIdentList()
				if err != nil {
					return nil, err
				}
				if _, err := p.match(COLON); err != nil {
					return nil, err
				}
				typ, err := p.parseType()
				if err != nil {
					return nil, err
				}
				record.Fields = append(record.Fields, &FieldList{Names: names, Type: typ})
			}
			if p.next().Kind != SEMICOLON {
				break
			}
			p.advance()
		}
		if _, err := p.match(END); err != nil {
			return nil, err
		}
		return record, nil
	}
	return nil, NewError(p.next().Pos, "expected type, but got %s", p.next().Kind)
}

func (p *Parser) parseStatements() ([]Stmt, error) {
	stmts := make([]Stmt, 0)
	for {
		stmt, err := p.ParseStmt()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.next().Kind != SEMICOLON {
			return stmts, nil
		}
		p.advance()
	}
}

// ParseStmt parses a single statement. The empty statement yields nil.
func (p *Parser) ParseStmt() (Stmt, error) {
	switch p.next().Kind {
	case IDENTIFIER:
		target, err := p.parseIdentSelector()
		if err != nil {
			return nil, err
		}
		if p.next().Kind == BECOMES {
			becomes := p.advance()
			value, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{Target: target, Becomes: becomes, Value: value}, nil
		}
		call := &CallStmt{Callee: target}
		if p.next().Kind == LEFTPAREN {
			call.Args, err = p.parseActualParams()
			if err != nil {
				return nil, err
			}
		}
		return call, nil
	case IF:
		return p.parseIf()
	case WHILE:
		kw := p.advance()
		cond, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(DO); err != nil {
			return nil, err
		}
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(END); err != nil {
			return nil, err
		}
		return &WhileStmt{While: kw, Cond: cond, Body: body}, nil
	case REPEAT:
		kw := p.advance()
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(UNTIL); err != nil {
			return nil, err
		}
		cond, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		return &RepeatStmt{Repeat: kw, Body: body, Cond: cond}, nil
	case SEMICOLON, END, ELSE, ELSIF, UNTIL:
		return nil, nil
	}
	return nil, NewError(p.next().Pos, "expected statement, but got %s", p.next().Kind)
}

func (p *Parser) parseIf() (Stmt, error) {
	kw := p.advance()
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.match(THEN); err != nil {
		return nil, err
	}
	then, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{If: kw, Cond: cond, Then: then}
	for p.next().Kind == ELSIF {
		p.advance()
		cond, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(THEN); err != nil {
			return nil, err
		}
		body, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		stmt.Elsifs = append(stmt.Elsifs, &ElsifClause{Cond: cond, Body: body})
	}
	if p.next().Kind == ELSE {
		p.advance()
		stmt.Else, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.match(END); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseActualParams() ([]Expr, error) {
	p.advance()
	args := make([]Expr, 0)
	if p.next().Kind == RIGHTPAREN {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.next().Kind == COMMA {
			p.advance()
			continue
		}
		if _, err := p.match(RIGHTPAREN); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func (p *Parser) parseIdentSelector() (*IdentSelectorExpr, error) {
	name, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	expr := &IdentSelectorExpr{Name: name}
	for {
		switch p.next().Kind {
		case PERIOD:
			// "END name." closes the module; a field name must follow a selector period.
			if p.peek(1).Kind != IDENTIFIER {
				return expr, nil
			}
			period := p.advance()
			field := p.advance()
			expr.Selectors = append(expr.Selectors, &FieldSelector{Period: period, Name: field})
		case LEFTBRACKET:
			left := p.advance()
			index, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.match(RIGHTBRACKET); err != nil {
				return nil, err
			}
			expr.Selectors = append(expr.Selectors, &IndexSelector{Left: left, Index: index})
		default:
			return expr, nil
		}
	}
}

func (p *Parser) ParseExpr() (Expr, error) {
	lhs, err := p.parseSimpleExpr()
	if err != nil {
		return nil, err
	}
	if p.next().Kind.IsComparison() {
		op := p.advance()
		rhs, err := p.parseSimpleExpr()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: lhs, Op: op, Right: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) ParseExprAndEof() (Expr, error) {
	expr, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	_, err = p.match(EOF)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// parseSimpleExpr parses ["+"|"-"] term {("+"|"-"|OR) term}; a leading
// sign applies to the first term only.
func (p *Parser) parseSimpleExpr() (Expr, error) {
	var sign *Token
	if k := p.next().Kind; k == PLUS || k == MINUS {
		t := p.advance()
		sign = &t
	}
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if sign != nil {
		lhs = &UnaryExpr{Operator: *sign, Operand: lhs}
	}
	for k := p.next().Kind; k == PLUS || k == MINUS || k == OR; k = p.next().Kind {
		op := p.advance()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Left: lhs, Op: op, Right: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	lhs, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for k := p.next().Kind; k == STAR || k == DIV || k == MOD || k == AMPERSAND; k = p.next().Kind {
		op := p.advance()
		rhs, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Left: lhs, Op: op, Right: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseFactor() (Expr, error) {
	switch t := p.next(); t.Kind {
	case IDENTIFIER:
		return p.parseIdentSelector()
	case INTEGER:
		p.advance()
		value, err := strconv.ParseInt(t.Text(), 10, 64)
		if err != nil {
			return nil, NewError(t.Pos, "integer literal out of range: %s", t.Content)
		}
		return &IntegerLiteral{Token: t, Value: value}, nil
	case LEFTPAREN:
		left := p.advance()
		inner, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		right, err := p.match(RIGHTPAREN)
		if err != nil {
			return nil, err
		}
		return &ParenExpr{Left: left, Inner: inner, Right: right}, nil
	case TILDE:
		operator := p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: operator, Operand: operand}, nil
	}
	return nil, NewError(p.next().Pos, "expected expression, but got %s", p.next().Kind)
}

func (p *Parser) next() Token {
	return p.peek(0)
}

func (p *Parser) peek(offset int) Token {
	if p.index+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.index+offset]
}

func (p *Parser) advance() Token {
	t := p.next()
	p.index++
	return t
}

func (p *Parser) match(k TokenKind) (Token, error) {
	t := p.next()
	if t.Kind != k {
		return Token{Kind: k}, NewError(t.Pos, "expected %s, but got %s", k, t.Kind)
	}
	p.index++
	return t, nil
}
