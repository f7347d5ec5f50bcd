package lexer

import (
	"testing"

	"github.com/embedscript/kong/token"
)

func TestNextToken(t *testing.T) {
	input := `let five = 5;
let ten = 10.5;
let add = fn(x, y) {
  x + y;
};
let result = add(five, ten);
!-/*5;
5 < 10 > 5;
5 <= 10 >= 5;

if (5 < 10) {
	return true;
} elif (5 > 10) {
	return false;
} else {
	return false;
}

10 == 10;
10 != 9;
"foobar"
"foo bar"
[1, 2];
{"foo": "bar"}
while (x < 3) { x = x + 1; }
for (i in arr) { break; continue; }
x += 1;
x++;
x--;
5 % 2;
1 | 2 ^ 3 & 4;
1 << 2 >> 3;
true && false || true;
a ? b : c;
include "mod";
recover (e) { return e; }
null;
mod::name;
// a comment
5;
`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.Let, "let"},
		{token.Ident, "five"},
		{token.Assign, "="},
		{token.Int, "5"},
		{token.Semicolon, ";"},
		{token.Let, "let"},
		{token.Ident, "ten"},
		{token.Assign, "="},
		{token.Float, "10.5"},
		{token.Semicolon, ";"},
		{token.Let, "let"},
		{token.Ident, "add"},
		{token.Assign, "="},
		{token.Function, "fn"},
		{token.Lparen, "("},
		{token.Ident, "x"},
		{token.Comma, ","},
		{token.Ident, "y"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Ident, "x"},
		{token.Plus, "+"},
		{token.Ident, "y"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Semicolon, ";"},
		{token.Let, "let"},
		{token.Ident, "result"},
		{token.Assign, "="},
		{token.Ident, "add"},
		{token.Lparen, "("},
		{token.Ident, "five"},
		{token.Comma, ","},
		{token.Ident, "ten"},
		{token.Rparen, ")"},
		{token.Semicolon, ";"},
		{token.Bang, "!"},
		{token.Minus, "-"},
		{token.Slash, "/"},
		{token.Asterisk, "*"},
		{token.Int, "5"},
		{token.Semicolon, ";"},
		{token.Int, "5"},
		{token.Lt, "<"},
		{token.Int, "10"},
		{token.Gt, ">"},
		{token.Int, "5"},
		{token.Semicolon, ";"},
		{token.Int, "5"},
		{token.Lte, "<="},
		{token.Int, "10"},
		{token.Gte, ">="},
		{token.Int, "5"},
		{token.Semicolon, ";"},
		{token.If, "if"},
		{token.Lparen, "("},
		{token.Int, "5"},
		{token.Lt, "<"},
		{token.Int, "10"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Return, "return"},
		{token.True, "true"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Elif, "elif"},
		{token.Lparen, "("},
		{token.Int, "5"},
		{token.Gt, ">"},
		{token.Int, "10"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Return, "return"},
		{token.False, "false"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Else, "else"},
		{token.Lbrace, "{"},
		{token.Return, "return"},
		{token.False, "false"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Int, "10"},
		{token.Eq, "=="},
		{token.Int, "10"},
		{token.Semicolon, ";"},
		{token.Int, "10"},
		{token.NotEq, "!="},
		{token.Int, "9"},
		{token.Semicolon, ";"},
		{token.String, "foobar"},
		{token.String, "foo bar"},
		{token.Lbracket, "["},
		{token.Int, "1"},
		{token.Comma, ","},
		{token.Int, "2"},
		{token.Rbracket, "]"},
		{token.Semicolon, ";"},
		{token.Lbrace, "{"},
		{token.String, "foo"},
		{token.Colon, ":"},
		{token.String, "bar"},
		{token.Rbrace, "}"},
		{token.While, "while"},
		{token.Lparen, "("},
		{token.Ident, "x"},
		{token.Lt, "<"},
		{token.Int, "3"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Ident, "x"},
		{token.Assign, "="},
		{token.Ident, "x"},
		{token.Plus, "+"},
		{token.Int, "1"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.For, "for"},
		{token.Lparen, "("},
		{token.Ident, "i"},
		{token.In, "in"},
		{token.Ident, "arr"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Break, "break"},
		{token.Semicolon, ";"},
		{token.Continue, "continue"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Ident, "x"},
		{token.PlusAssign, "+="},
		{token.Int, "1"},
		{token.Semicolon, ";"},
		{token.Ident, "x"},
		{token.Incr, "++"},
		{token.Semicolon, ";"},
		{token.Ident, "x"},
		{token.Decr, "--"},
		{token.Semicolon, ";"},
		{token.Int, "5"},
		{token.Percent, "%"},
		{token.Int, "2"},
		{token.Semicolon, ";"},
		{token.Int, "1"},
		{token.BitOr, "|"},
		{token.Int, "2"},
		{token.BitXor, "^"},
		{token.Int, "3"},
		{token.BitAnd, "&"},
		{token.Int, "4"},
		{token.Semicolon, ";"},
		{token.Int, "1"},
		{token.Lshift, "<<"},
		{token.Int, "2"},
		{token.Rshift, ">>"},
		{token.Int, "3"},
		{token.Semicolon, ";"},
		{token.True, "true"},
		{token.And, "&&"},
		{token.False, "false"},
		{token.Or, "||"},
		{token.True, "true"},
		{token.Semicolon, ";"},
		{token.Ident, "a"},
		{token.Question, "?"},
		{token.Ident, "b"},
		{token.Colon, ":"},
		{token.Ident, "c"},
		{token.Semicolon, ";"},
		{token.Include, "include"},
		{token.String, "mod"},
		{token.Semicolon, ";"},
		{token.Recover, "recover"},
		{token.Lparen, "("},
		{token.Ident, "e"},
		{token.Rparen, ")"},
		{token.Lbrace, "{"},
		{token.Return, "return"},
		{token.Ident, "e"},
		{token.Semicolon, ";"},
		{token.Rbrace, "}"},
		{token.Null, "null"},
		{token.Semicolon, ";"},
		{token.Ident, "mod"},
		{token.DoubleColon, "::"},
		{token.Ident, "name"},
		{token.Semicolon, ";"},
		{token.Int, "5"},
		{token.Semicolon, ";"},
		{token.EOF, ""},
	}

	l := New(input, "test.kong")

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"unterminated`, "test.kong")
	tok := l.NextToken()
	if tok.Type != token.Illegal {
		t.Fatalf("expected Illegal token, got %q", tok.Type)
	}
}
