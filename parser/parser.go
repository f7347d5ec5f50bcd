// Package parser implements the syntactic analyzer for the Kong programming
// language.
//
// The parser takes a stream of tokens from the lexer and constructs an
// abstract syntax tree representing the structure of the program. It is a
// recursive-descent parser using Pratt parsing (precedence climbing) for
// expressions.
package parser

import (
	"fmt"
	"strconv"

	"github.com/embedscript/kong/ast"
	"github.com/embedscript/kong/lexer"
	"github.com/embedscript/kong/token"
)

// Operator precedence levels, lowest to highest.
const (
	Lowest int = iota
	Assign
	Ternary
	LogicOr
	LogicAnd
	Equals
	LessGreater
	BitOr
	BitXor
	BitAnd
	Shift
	Sum
	Product
	Prefix
	Call
	Index
)

var precedences = map[token.Type]int{
	token.Assign:      Assign,
	token.PlusAssign:  Assign,
	token.MinusAssign: Assign,
	token.StarAssign:  Assign,
	token.SlashAssign: Assign,
	token.Question:    Ternary,
	token.Or:          LogicOr,
	token.And:         LogicAnd,
	token.Eq:          Equals,
	token.NotEq:       Equals,
	token.Lt:          LessGreater,
	token.Gt:          LessGreater,
	token.Lte:         LessGreater,
	token.Gte:         LessGreater,
	token.BitOr:       BitOr,
	token.BitXor:      BitXor,
	token.BitAnd:      BitAnd,
	token.Lshift:      Shift,
	token.Rshift:      Shift,
	token.Plus:        Sum,
	token.Minus:       Sum,
	token.Asterisk:    Product,
	token.Slash:       Product,
	token.Percent:     Product,
	token.Lparen:      Call,
	token.Lbracket:    Index,
	token.Dot:         Index,
	token.Incr:        Index,
	token.Decr:        Index,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser parses a token stream into an [ast.Program].
type Parser struct {
	l      *lexer.Lexer
	errors []string

	currentToken token.Token
	peekToken    token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.Ident, p.parseIdentifier)
	p.registerPrefix(token.Int, p.parseIntegerLiteral)
	p.registerPrefix(token.Float, p.parseFloatLiteral)
	p.registerPrefix(token.Bang, p.parsePrefixExpression)
	p.registerPrefix(token.Minus, p.parsePrefixExpression)
	p.registerPrefix(token.True, p.parseBoolean)
	p.registerPrefix(token.False, p.parseBoolean)
	p.registerPrefix(token.Null, p.parseNull)
	p.registerPrefix(token.Lparen, p.parseGroupedExpression)
	p.registerPrefix(token.If, p.parseIfExpression)
	p.registerPrefix(token.Function, p.parseFunctionLiteral)
	p.registerPrefix(token.String, p.parseStringLiteral)
	p.registerPrefix(token.Lbracket, p.parseArrayLiteral)
	p.registerPrefix(token.Lbrace, p.parseMapLiteral)
	p.registerPrefix(token.Incr, p.parsePrefixExpression)
	p.registerPrefix(token.Decr, p.parsePrefixExpression)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerInfix(token.Plus, p.parseInfixExpression)
	p.registerInfix(token.Minus, p.parseInfixExpression)
	p.registerInfix(token.Slash, p.parseInfixExpression)
	p.registerInfix(token.Asterisk, p.parseInfixExpression)
	p.registerInfix(token.Percent, p.parseInfixExpression)
	p.registerInfix(token.Eq, p.parseInfixExpression)
	p.registerInfix(token.NotEq, p.parseInfixExpression)
	p.registerInfix(token.Lt, p.parseInfixExpression)
	p.registerInfix(token.Gt, p.parseInfixExpression)
	p.registerInfix(token.Lte, p.parseInfixExpression)
	p.registerInfix(token.Gte, p.parseInfixExpression)
	p.registerInfix(token.BitOr, p.parseInfixExpression)
	p.registerInfix(token.BitXor, p.parseInfixExpression)
	p.registerInfix(token.BitAnd, p.parseInfixExpression)
	p.registerInfix(token.Lshift, p.parseInfixExpression)
	p.registerInfix(token.Rshift, p.parseInfixExpression)
	p.registerInfix(token.And, p.parseInfixExpression)
	p.registerInfix(token.Or, p.parseInfixExpression)
	p.registerInfix(token.Lparen, p.parseCallExpression)
	p.registerInfix(token.Lbracket, p.parseIndexExpression)
	p.registerInfix(token.Dot, p.parseDotExpression)
	p.registerInfix(token.Question, p.parseTernaryExpression)
	p.registerInfix(token.Assign, p.parseAssignExpression)
	p.registerInfix(token.PlusAssign, p.parseCompoundAssignExpression)
	p.registerInfix(token.MinusAssign, p.parseCompoundAssignExpression)
	p.registerInfix(token.StarAssign, p.parseCompoundAssignExpression)
	p.registerInfix(token.SlashAssign, p.parseCompoundAssignExpression)
	p.registerInfix(token.Incr, p.parsePostfixExpression)
	p.registerInfix(token.Decr, p.parsePostfixExpression)

	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns accumulated parse error messages.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.currentToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("%d:%d: expected next token to be %s, got %s instead",
		p.peekToken.Pos.Line, p.peekToken.Pos.Column, t, p.peekToken.Type)
	p.errors = append(p.errors, msg)
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	msg := fmt.Sprintf("%d:%d: no prefix parse function for %s found",
		p.currentToken.Pos.Line, p.currentToken.Pos.Column, t)
	p.errors = append(p.errors, msg)
}

func (p *Parser) currentTokenIs(t token.Type) bool { return p.currentToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool    { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.currentToken.Type]; ok {
		return pr
	}
	return Lowest
}

// ParseProgram parses the full token stream into an [ast.Program].
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.currentTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.currentToken.Type {
	case token.Let:
		return p.parseLetStatement()
	case token.Return:
		return p.parseReturnStatement()
	case token.Break:
		return p.parseBreakStatement()
	case token.Continue:
		return p.parseContinueStatement()
	case token.Include:
		return p.parseIncludeStatement()
	case token.Recover:
		return p.parseRecoverStatement()
	case token.While:
		return p.parseWhileStatement()
	case token.For:
		return p.parseForStatement()
	case token.Lbrace:
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() *ast.LetStatement {
	stmt := &ast.LetStatement{Token: p.currentToken}

	if !p.expectPeek(token.Ident) {
		return nil
	}

	stmt.Name = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if !p.expectPeek(token.Assign) {
		return nil
	}

	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)

	if fl, ok := stmt.Value.(*ast.FunctionLiteral); ok {
		fl.Name = stmt.Name.Value
	}

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	stmt := &ast.ReturnStatement{Token: p.currentToken}

	p.nextToken()

	if !p.currentTokenIs(token.Semicolon) {
		stmt.ReturnValue = p.parseExpression(Lowest)
	}

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseBreakStatement() *ast.BreakStatement {
	stmt := &ast.BreakStatement{Token: p.currentToken}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseContinueStatement() *ast.ContinueStatement {
	stmt := &ast.ContinueStatement{Token: p.currentToken}
	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseIncludeStatement() *ast.IncludeStatement {
	stmt := &ast.IncludeStatement{Token: p.currentToken}

	if !p.expectPeek(token.String) {
		return nil
	}
	stmt.Path = p.currentToken.Literal

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseRecoverStatement() *ast.RecoverStatement {
	stmt := &ast.RecoverStatement{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

func (p *Parser) parseWhileStatement() *ast.WhileStatement {
	stmt := &ast.WhileStatement{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

// parseForStatement handles both the C-style `for(init; cond; update)` and
// the `for (x in source)` foreach forms, disambiguated by scanning ahead for
// `in` before the matching `)`.
func (p *Parser) parseForStatement() ast.Statement {
	forTok := p.currentToken

	if !p.expectPeek(token.Lparen) {
		return nil
	}

	if p.peekTokenIs(token.Ident) {
		// Speculative lookahead: `for (x in src)` vs `for (init; cond; update)`
		// are only distinguishable after seeing the token past the identifier,
		// one token further than this parser's 2-token lookahead reaches, so
		// the lexer's (pointer-free) state is snapshotted and rewound on miss.
		savedLexer := *p.l
		savedCur, savedPeek := p.currentToken, p.peekToken

		p.nextToken()
		ident := &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
		if p.peekTokenIs(token.In) {
			p.nextToken()
			p.nextToken()
			source := p.parseExpression(Lowest)
			if !p.expectPeek(token.Rparen) {
				return nil
			}
			if !p.expectPeek(token.Lbrace) {
				return nil
			}
			body := p.parseBlockStatement()
			return &ast.ForEachStatement{Token: forTok, Iterator: ident, Source: source, Body: body}
		}

		*p.l = savedLexer
		p.currentToken, p.peekToken = savedCur, savedPeek
	}

	stmt := &ast.ForStatement{Token: forTok}

	p.nextToken()
	if !p.currentTokenIs(token.Semicolon) {
		stmt.Init = p.parseStatement()
	} else {
		stmt.Init = nil
	}
	if !p.currentTokenIs(token.Semicolon) {
		if !p.expectPeek(token.Semicolon) {
			return nil
		}
	}

	p.nextToken()
	if !p.currentTokenIs(token.Semicolon) {
		stmt.Condition = p.parseExpression(Lowest)
		if !p.expectPeek(token.Semicolon) {
			return nil
		}
	}

	p.nextToken()
	if !p.currentTokenIs(token.Rparen) {
		stmt.Update = p.parseSimpleStatement()
		if !p.expectPeek(token.Rparen) {
			return nil
		}
	}
	if !p.currentTokenIs(token.Rparen) {
		if !p.expectPeek(token.Rparen) {
			return nil
		}
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()

	return stmt
}

// parseSimpleStatement parses a bare expression statement without requiring
// a trailing semicolon, used for a for-loop's update clause.
func (p *Parser) parseSimpleStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.currentToken}
	stmt.Expression = p.parseExpression(Lowest)
	return stmt
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.currentToken}
	stmt.Expression = p.parseExpression(Lowest)

	if p.peekTokenIs(token.Semicolon) {
		p.nextToken()
	}

	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.currentToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.currentTokenIs(token.Rbrace) && !p.currentTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	return block
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.currentToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.currentToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.Semicolon) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.currentToken}

	value, err := strconv.ParseInt(p.currentToken.Literal, 0, 64)
	if err != nil {
		msg := fmt.Sprintf("could not parse %q as integer", p.currentToken.Literal)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.currentToken}

	value, err := strconv.ParseFloat(p.currentToken.Literal, 64)
	if err != nil {
		msg := fmt.Sprintf("could not parse %q as float", p.currentToken.Literal)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.currentToken, Value: p.currentTokenIs(token.True)}
}

func (p *Parser) parseNull() ast.Expression {
	return &ast.NullLiteral{Token: p.currentToken}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.currentToken, Operator: p.currentToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(Prefix)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.currentToken,
		Operator: p.currentToken.Literal,
		Left:     left,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseTernaryExpression(cond ast.Expression) ast.Expression {
	expr := &ast.TernaryExpression{Token: p.currentToken, Condition: cond}
	p.nextToken()
	expr.Consequence = p.parseExpression(Ternary)
	if !p.expectPeek(token.Colon) {
		return nil
	}
	p.nextToken()
	expr.Alternative = p.parseExpression(Ternary)
	return expr
}

func (p *Parser) parseAssignExpression(target ast.Expression) ast.Expression {
	expr := &ast.AssignExpression{Token: p.currentToken, Target: target}
	p.nextToken()
	expr.Value = p.parseExpression(Lowest)
	return expr
}

// parseCompoundAssignExpression desugars `x += y` into `x = x + y`.
func (p *Parser) parseCompoundAssignExpression(target ast.Expression) ast.Expression {
	opTok := p.currentToken
	var op string
	switch opTok.Type {
	case token.PlusAssign:
		op = "+"
	case token.MinusAssign:
		op = "-"
	case token.StarAssign:
		op = "*"
	case token.SlashAssign:
		op = "/"
	}
	p.nextToken()
	rhs := p.parseExpression(Lowest)
	combined := &ast.InfixExpression{Token: opTok, Operator: op, Left: target, Right: rhs}
	return &ast.AssignExpression{Token: opTok, Target: target, Value: combined}
}

// parsePostfixExpression desugars `x++`/`x--` into `x = x + 1`/`x = x - 1`.
func (p *Parser) parsePostfixExpression(target ast.Expression) ast.Expression {
	opTok := p.currentToken
	op := "+"
	if opTok.Type == token.Decr {
		op = "-"
	}
	one := &ast.IntegerLiteral{Token: opTok, Value: 1}
	combined := &ast.InfixExpression{Token: opTok, Operator: op, Left: target, Right: one}
	return &ast.AssignExpression{Token: opTok, Target: target, Value: combined}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(Lowest)
	if !p.expectPeek(token.Rparen) {
		return nil
	}
	return expr
}

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	p.nextToken()
	expr.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.Rparen) {
		return nil
	}
	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	expr.Consequence = p.parseBlockStatement()

	for p.peekTokenIs(token.Elif) {
		p.nextToken()
		arm := ast.ElifArm{}
		if !p.expectPeek(token.Lparen) {
			return nil
		}
		p.nextToken()
		arm.Condition = p.parseExpression(Lowest)
		if !p.expectPeek(token.Rparen) {
			return nil
		}
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		arm.Consequence = p.parseBlockStatement()
		expr.Elifs = append(expr.Elifs, arm)
	}

	if p.peekTokenIs(token.Else) {
		p.nextToken()
		if !p.expectPeek(token.Lbrace) {
			return nil
		}
		expr.Alternative = p.parseBlockStatement()
	}

	return expr
}

func (p *Parser) parseFunctionLiteral() ast.Expression {
	lit := &ast.FunctionLiteral{Token: p.currentToken}

	if !p.expectPeek(token.Lparen) {
		return nil
	}
	lit.Parameters = p.parseFunctionParameters()

	if !p.expectPeek(token.Lbrace) {
		return nil
	}
	lit.Body = p.parseBlockStatement()

	return lit
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	identifiers := []*ast.Identifier{}

	if p.peekTokenIs(token.Rparen) {
		p.nextToken()
		return identifiers
	}

	p.nextToken()
	identifiers = append(identifiers, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		identifiers = append(identifiers, &ast.Identifier{Token: p.currentToken, Value: p.currentToken.Literal})
	}

	if !p.expectPeek(token.Rparen) {
		return nil
	}

	return identifiers
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	expr := &ast.CallExpression{Token: p.currentToken, Function: function}
	expr.Arguments = p.parseExpressionList(token.Rparen)
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	arr := &ast.ArrayLiteral{Token: p.currentToken}
	arr.Elements = p.parseExpressionList(token.Rbracket)
	return arr
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.Comma) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.currentToken, Left: left}

	p.nextToken()
	expr.Index = p.parseExpression(Lowest)

	if !p.expectPeek(token.Rbracket) {
		return nil
	}

	return expr
}

// parseDotExpression handles `left.name`, the member-access sugar for
// `left["name"]`: the member name must be a bare identifier, never an
// arbitrary expression.
func (p *Parser) parseDotExpression(left ast.Expression) ast.Expression {
	tok := p.currentToken

	if !p.expectPeek(token.Ident) {
		return nil
	}
	name := &ast.StringLiteral{Token: p.currentToken, Value: p.currentToken.Literal}

	return &ast.IndexExpression{Token: tok, Left: left, Index: name}
}

func (p *Parser) parseMapLiteral() ast.Expression {
	m := &ast.MapLiteral{Token: p.currentToken}

	for !p.peekTokenIs(token.Rbrace) {
		p.nextToken()
		key := p.parseExpression(Lowest)

		if !p.expectPeek(token.Colon) {
			return nil
		}

		p.nextToken()
		value := p.parseExpression(Lowest)

		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, value)

		if !p.peekTokenIs(token.Rbrace) && !p.expectPeek(token.Comma) {
			return nil
		}
	}

	if !p.expectPeek(token.Rbrace) {
		return nil
	}

	return m
}
