package compiler

import (
	"testing"

	"github.com/embedscript/kong/ast"
)

func optimizeSource(t *testing.T, input string) *ast.Program {
	t.Helper()
	return Optimize(parse(input))
}

func onlyExprStatement(t *testing.T, program *ast.Program) ast.Expression {
	t.Helper()
	if len(program.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(program.Statements))
	}
	es, ok := program.Statements[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("statement is not an ExpressionStatement, got %T", program.Statements[0])
	}
	return es.Expression
}

func TestFoldsIntegerArithmetic(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "1 + 2 * 3;"))
	lit, ok := expr.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected IntegerLiteral, got %T", expr)
	}
	if lit.Value != 7 {
		t.Errorf("value = %d, want 7", lit.Value)
	}
}

func TestFoldsFloatContaminatesResult(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "1 + 2.5;"))
	lit, ok := expr.(*ast.FloatLiteral)
	if !ok {
		t.Fatalf("expected FloatLiteral, got %T", expr)
	}
	if lit.Value != 3.5 {
		t.Errorf("value = %v, want 3.5", lit.Value)
	}
}

func TestFoldsStringConcatenation(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, `"foo" + "bar";`))
	lit, ok := expr.(*ast.StringLiteral)
	if !ok {
		t.Fatalf("expected StringLiteral, got %T", expr)
	}
	if lit.Value != "foobar" {
		t.Errorf("value = %q, want foobar", lit.Value)
	}
}

func TestDoesNotFoldStringWithNonString(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, `"foo" + 1;`))
	if _, ok := expr.(*ast.StringLiteral); ok {
		t.Fatalf("should not fold string + non-string, got %T", expr)
	}
}

func TestFoldsPrefixMinus(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "-5;"))
	lit, ok := expr.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected IntegerLiteral, got %T", expr)
	}
	if lit.Value != -5 {
		t.Errorf("value = %d, want -5", lit.Value)
	}
}

func TestFoldsPrefixNot(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "!true;"))
	b, ok := expr.(*ast.Boolean)
	if !ok {
		t.Fatalf("expected Boolean, got %T", expr)
	}
	if b.Value != false {
		t.Errorf("value = %v, want false", b.Value)
	}
}

func TestFoldsBooleanLogic(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "true && false;"))
	b, ok := expr.(*ast.Boolean)
	if !ok {
		t.Fatalf("expected Boolean, got %T", expr)
	}
	if b.Value != false {
		t.Errorf("value = %v, want false", b.Value)
	}
}

func TestFoldsComparison(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "1 < 2;"))
	b, ok := expr.(*ast.Boolean)
	if !ok {
		t.Fatalf("expected Boolean, got %T", expr)
	}
	if b.Value != true {
		t.Errorf("value = %v, want true", b.Value)
	}
}

func TestDoesNotFoldNonLiteralOperands(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "x + 1;"))
	if _, ok := expr.(*ast.IntegerLiteral); ok {
		t.Fatalf("should not fold an identifier operand")
	}
}

func TestFoldsNestedInsideFunctionBody(t *testing.T) {
	program := optimizeSource(t, "fn() { return 2 + 3; };")
	es := program.Statements[0].(*ast.ExpressionStatement)
	fn := es.Expression.(*ast.FunctionLiteral)
	ret := fn.Body.Statements[0].(*ast.ReturnStatement)
	lit, ok := ret.ReturnValue.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected folded IntegerLiteral inside function body, got %T", ret.ReturnValue)
	}
	if lit.Value != 5 {
		t.Errorf("value = %d, want 5", lit.Value)
	}
}

func TestFoldsModulus(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "7 % 3;"))
	lit, ok := expr.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected IntegerLiteral, got %T", expr)
	}
	if lit.Value != 1 {
		t.Errorf("value = %d, want 1", lit.Value)
	}
}

func TestFoldsBitwiseAnd(t *testing.T) {
	expr := onlyExprStatement(t, optimizeSource(t, "6 & 3;"))
	lit, ok := expr.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("expected IntegerLiteral, got %T", expr)
	}
	if lit.Value != 2 {
		t.Errorf("value = %d, want 2", lit.Value)
	}
}
