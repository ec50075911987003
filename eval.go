package oberon

import "fmt"

// fold evaluates e at compile time. Division by a folded zero is always
// reported; other failures only when suppress is false.
func (c *Checker) fold(e Expr, suppress bool) (int64, bool) {
	fail := func(format string, args ...any) (int64, bool) {
		if !suppress {
			c.errorf(e.pos(), format, args...)
		}
		return 0, false
	}
	switch e := e.(type) {
	case *IntegerLiteral:
		return e.Value, true
	case *ParenExpr:
		return c.fold(e.Inner, suppress)
	case *UnaryExpr:
		operand, ok := c.fold(e.Operand, suppress)
		if !ok {
			return 0, false
		}
		switch e.Operator.Kind {
		case MINUS:
			return -operand, true
		case PLUS:
			return operand, true
		}
		return fail("could not evaluate expression to an integer")
	case *BinaryExpr:
		lhs, lok := c.fold(e.Left, suppress)
		rhs, rok := c.fold(e.Right, suppress)
		division := e.Op.Kind == DIV || e.Op.Kind == MOD
		if division && rok && rhs == 0 {
			c.errorf(e.pos(), "division by zero")
			return 0, false
		}
		if !lok || !rok {
			return 0, false
		}
		switch e.Op.Kind {
		case PLUS:
			return lhs + rhs, true
		case MINUS:
			return lhs - rhs, true
		case STAR:
			return lhs * rhs, true
		case DIV, MOD:
			if e.Op.Kind == DIV {
				return lhs / rhs, true
			}
			return lhs % rhs, true
		}
		return fail("could not evaluate expression to an integer")
	case *IdentSelectorExpr:
		name := e.Name.Text()
		if len(e.Selectors) != 0 {
			return fail("constant expression contains array indexing or record fields")
		}
		info, ok := c.scopes.Lookup(name)
		if !ok {
			return fail("use of unknown identifier '%s'", name)
		}
		if info.Kind != ConstantKind {
			return fail("constant expression contains non-constant identifier '%s'", name)
		}
		decl, ok := info.Node.(*ConstDecl)
		if !ok {
			return fail("could not find value of the constant '%s'", name)
		}
		if value, ok := c.info.Consts[decl]; ok {
			return value, true
		}
		return c.fold(decl.Value, suppress)
	}
	return fail("could not evaluate expression to an integer")
}

// Evaluator folds constant expressions against a growing set of constant
// definitions, reporting failures to its reporter.
type Evaluator struct {
	checker *Checker
}

func NewEvaluator(reporter Reporter) *Evaluator {
	c := NewChecker(reporter)
	c.openScope("eval")
	c.declarePredeclared()
	return &Evaluator{checker: c}
}

// Define binds name to the value of expr. Redefinition is an error.
func (e *Evaluator) Define(name Token, expr Expr) (int64, error) {
	value, err := e.Evaluate(expr)
	if err != nil {
		return 0, err
	}
	decl := &ConstDecl{Name: name, Value: expr}
	e.checker.info.Consts[decl] = value
	info := &IdentInfo{Name: name.Text(), Kind: ConstantKind, Node: decl, Type: Integer}
	if !e.checker.scopes.Insert(name.Text(), info) {
		return 0, NewError(name.Pos, "constant '%s' is already defined", name.Content)
	}
	return value, nil
}

func (e *Evaluator) Evaluate(expr Expr) (int64, error) {
	before := e.checker.ErrorCount()
	value, ok := e.checker.fold(expr, false)
	if !ok {
		if e.checker.ErrorCount() == before {
			return 0, NewError(expr.pos(), "expression is not constant")
		}
		return 0, fmt.Errorf("%w: %d error(s)", ErrSemantic, e.checker.ErrorCount()-before)
	}
	return value, nil
}
