package compiler

import (
	"github.com/embedscript/kong/ast"
	"github.com/embedscript/kong/object"
	"github.com/embedscript/kong/token"
)

// Optimize runs a pure constant-folding pass over program: an infix
// expression with two numeric or boolean literal operands, two string
// literals joined by `+`, or a prefix `-`/`!` on a literal, is replaced
// by a single literal node carrying the computed value. Every other node
// is returned unchanged (recursively rebuilt so folding also reaches
// nested expressions, e.g. inside a function body or an array literal).
//
// Numeric semantics are delegated to object.EvalNumericBinary, the same
// helper the VM uses for runtime arithmetic, so the two never disagree
// about e.g. modulus or shift results.
func Optimize(program *ast.Program) *ast.Program {
	statements := make([]ast.Statement, len(program.Statements))
	for i, s := range program.Statements {
		statements[i] = optimizeStatement(s)
	}
	return &ast.Program{Statements: statements}
}

func optimizeStatement(stmt ast.Statement) ast.Statement {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return &ast.ExpressionStatement{Token: s.Token, Expression: optimizeExpr(s.Expression)}
	case *ast.LetStatement:
		return &ast.LetStatement{Token: s.Token, Name: s.Name, Value: optimizeExpr(s.Value)}
	case *ast.ReturnStatement:
		if s.ReturnValue == nil {
			return s
		}
		return &ast.ReturnStatement{Token: s.Token, ReturnValue: optimizeExpr(s.ReturnValue)}
	case *ast.BlockStatement:
		return optimizeBlock(s)
	case *ast.WhileStatement:
		return &ast.WhileStatement{
			Token:     s.Token,
			Condition: optimizeExpr(s.Condition),
			Body:      optimizeBlock(s.Body),
		}
	case *ast.ForStatement:
		out := &ast.ForStatement{Token: s.Token, Body: optimizeBlock(s.Body)}
		if s.Init != nil {
			out.Init = optimizeStatement(s.Init)
		}
		if s.Condition != nil {
			out.Condition = optimizeExpr(s.Condition)
		}
		if s.Update != nil {
			out.Update = optimizeStatement(s.Update)
		}
		return out
	case *ast.ForEachStatement:
		return &ast.ForEachStatement{
			Token:    s.Token,
			Iterator: s.Iterator,
			Source:   optimizeExpr(s.Source),
			Body:     optimizeBlock(s.Body),
		}
	case *ast.RecoverStatement:
		return &ast.RecoverStatement{Token: s.Token, Name: s.Name, Body: optimizeBlock(s.Body)}
	default:
		return stmt
	}
}

func optimizeBlock(b *ast.BlockStatement) *ast.BlockStatement {
	if b == nil {
		return nil
	}
	statements := make([]ast.Statement, len(b.Statements))
	for i, s := range b.Statements {
		statements[i] = optimizeStatement(s)
	}
	return &ast.BlockStatement{Token: b.Token, Statements: statements}
}

func optimizeExpr(expr ast.Expression) ast.Expression {
	switch e := expr.(type) {
	case *ast.PrefixExpression:
		right := optimizeExpr(e.Right)
		if folded, ok := foldPrefix(e, right); ok {
			return folded
		}
		return &ast.PrefixExpression{Token: e.Token, Operator: e.Operator, Right: right}

	case *ast.InfixExpression:
		left := optimizeExpr(e.Left)
		right := optimizeExpr(e.Right)
		if folded, ok := foldInfix(e, left, right); ok {
			return folded
		}
		return &ast.InfixExpression{Token: e.Token, Left: left, Operator: e.Operator, Right: right}

	case *ast.TernaryExpression:
		return &ast.TernaryExpression{
			Token:       e.Token,
			Condition:   optimizeExpr(e.Condition),
			Consequence: optimizeExpr(e.Consequence),
			Alternative: optimizeExpr(e.Alternative),
		}

	case *ast.AssignExpression:
		return &ast.AssignExpression{Token: e.Token, Target: e.Target, Value: optimizeExpr(e.Value)}

	case *ast.IfExpression:
		elifs := make([]ast.ElifArm, len(e.Elifs))
		for i, arm := range e.Elifs {
			elifs[i] = ast.ElifArm{Condition: optimizeExpr(arm.Condition), Consequence: optimizeBlock(arm.Consequence)}
		}
		out := &ast.IfExpression{
			Token:       e.Token,
			Condition:   optimizeExpr(e.Condition),
			Consequence: optimizeBlock(e.Consequence),
			Elifs:       elifs,
		}
		if e.Alternative != nil {
			out.Alternative = optimizeBlock(e.Alternative)
		}
		return out

	case *ast.CallExpression:
		args := make([]ast.Expression, len(e.Arguments))
		for i, a := range e.Arguments {
			args[i] = optimizeExpr(a)
		}
		return &ast.CallExpression{Token: e.Token, Function: optimizeExpr(e.Function), Arguments: args}

	case *ast.ArrayLiteral:
		elements := make([]ast.Expression, len(e.Elements))
		for i, el := range e.Elements {
			elements[i] = optimizeExpr(el)
		}
		return &ast.ArrayLiteral{Token: e.Token, Elements: elements}

	case *ast.MapLiteral:
		keys := make([]ast.Expression, len(e.Keys))
		values := make([]ast.Expression, len(e.Values))
		for i := range e.Keys {
			keys[i] = optimizeExpr(e.Keys[i])
			values[i] = optimizeExpr(e.Values[i])
		}
		return &ast.MapLiteral{Token: e.Token, Keys: keys, Values: values}

	case *ast.IndexExpression:
		return &ast.IndexExpression{Token: e.Token, Left: optimizeExpr(e.Left), Index: optimizeExpr(e.Index)}

	case *ast.FunctionLiteral:
		return &ast.FunctionLiteral{
			Token:      e.Token,
			Parameters: e.Parameters,
			Body:       optimizeBlock(e.Body),
			Name:       e.Name,
		}

	default:
		return expr
	}
}

// foldPrefix folds `-`/`!` on a literal operand.
func foldPrefix(e *ast.PrefixExpression, right ast.Expression) (ast.Expression, bool) {
	switch e.Operator {
	case "-":
		switch r := right.(type) {
		case *ast.IntegerLiteral:
			return &ast.IntegerLiteral{Token: e.Token, Value: -r.Value}, true
		case *ast.FloatLiteral:
			return &ast.FloatLiteral{Token: e.Token, Value: -r.Value}, true
		}
	case "!":
		if b, ok := right.(*ast.Boolean); ok {
			return &ast.Boolean{Token: e.Token, Value: !b.Value}, true
		}
	}
	return nil, false
}

// foldInfix folds an infix expression whose operands are both numeric
// literals, both boolean literals (`&&`/`||`/`==`/`!=`), or both string
// literals joined by `+`.
func foldInfix(e *ast.InfixExpression, left, right ast.Expression) (ast.Expression, bool) {
	if ls, lok := left.(*ast.StringLiteral); lok {
		if rs, rok := right.(*ast.StringLiteral); rok && e.Operator == "+" {
			return &ast.StringLiteral{Token: e.Token, Value: ls.Value + rs.Value}, true
		}
		return nil, false
	}

	if lb, lok := left.(*ast.Boolean); lok {
		if rb, rok := right.(*ast.Boolean); rok {
			return foldBooleanInfix(e, lb, rb)
		}
		return nil, false
	}

	lo, lok := literalNumericObject(left)
	ro, rok := literalNumericObject(right)
	if !lok || !rok {
		return nil, false
	}

	switch op := object.NumericBinaryOp(e.Operator); op {
	case object.NumAdd, object.NumSub, object.NumMul, object.NumDiv, object.NumMod,
		object.NumBitOr, object.NumBitXor, object.NumBitAnd, object.NumLeftShift, object.NumRightShift:
		result, ok := object.EvalNumericBinary(op, lo, ro)
		if !ok {
			return nil, false
		}
		return numericObjectToLiteral(e.Token, result), true
	default:
		// fall through to the ordered/equality comparisons below
	}

	lf, _ := object.AsFloat(lo)
	rf, _ := object.AsFloat(ro)
	switch e.Operator {
	case "<":
		return &ast.Boolean{Token: e.Token, Value: lf < rf}, true
	case "<=":
		return &ast.Boolean{Token: e.Token, Value: lf <= rf}, true
	case ">":
		return &ast.Boolean{Token: e.Token, Value: lf > rf}, true
	case ">=":
		return &ast.Boolean{Token: e.Token, Value: lf >= rf}, true
	case "==":
		return &ast.Boolean{Token: e.Token, Value: lf == rf}, true
	case "!=":
		return &ast.Boolean{Token: e.Token, Value: lf != rf}, true
	}
	return nil, false
}

func foldBooleanInfix(e *ast.InfixExpression, l, r *ast.Boolean) (ast.Expression, bool) {
	switch e.Operator {
	case "&&":
		return &ast.Boolean{Token: e.Token, Value: l.Value && r.Value}, true
	case "||":
		return &ast.Boolean{Token: e.Token, Value: l.Value || r.Value}, true
	case "==":
		return &ast.Boolean{Token: e.Token, Value: l.Value == r.Value}, true
	case "!=":
		return &ast.Boolean{Token: e.Token, Value: l.Value != r.Value}, true
	}
	return nil, false
}

func literalNumericObject(expr ast.Expression) (object.Object, bool) {
	switch v := expr.(type) {
	case *ast.IntegerLiteral:
		return &object.Integer{Value: v.Value}, true
	case *ast.FloatLiteral:
		return &object.Float{Value: v.Value}, true
	}
	return nil, false
}

func numericObjectToLiteral(tok token.Token, result object.Object) ast.Expression {
	switch v := result.(type) {
	case *object.Integer:
		return &ast.IntegerLiteral{Token: tok, Value: v.Value}
	case *object.Float:
		return &ast.FloatLiteral{Token: tok, Value: v.Value}
	}
	return nil
}
