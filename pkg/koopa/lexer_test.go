package koopa

import (
	"testing"
)

func TestLexerTokens(t *testing.T) {
	src := `global @x = alloc [i32, 2], {1, -2}
fun @main(): i32 {
%entry:
  %0 = getelemptr @x, 1 // tail comment
  /* block
     comment */
  ret %0
}`

	want := []struct {
		typ    TokenType
		lexeme string
	}{
		{GLOBAL, "global"}, {SYMBOL, "@x"}, {ASSIGN, "="}, {ALLOC, "alloc"},
		{LBRACKET, "["}, {I32, "i32"}, {COMMA, ","}, {INT, "2"}, {RBRACKET, "]"},
		{COMMA, ","}, {LBRACE, "{"}, {INT, "1"}, {COMMA, ","}, {INT, "-2"}, {RBRACE, "}"},
		{FUN, "fun"}, {SYMBOL, "@main"}, {LPAREN, "("}, {RPAREN, ")"}, {COLON, ":"}, {I32, "i32"}, {LBRACE, "{"},
		{SYMBOL, "%entry"}, {COLON, ":"},
		{SYMBOL, "%0"}, {ASSIGN, "="}, {GETELEMPTR, "getelemptr"}, {SYMBOL, "@x"}, {COMMA, ","}, {INT, "1"},
		{RET, "ret"}, {SYMBOL, "%0"},
		{RBRACE, "}"},
		{EOF, ""},
	}

	toks := NewLexer(src).Tokenize()
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Lexeme != w.lexeme {
			t.Errorf("token %d = %v %q, want %v %q", i, toks[i].Type, toks[i].Lexeme, w.typ, w.lexeme)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	toks := NewLexer("fun @f() {\n  ret\n}").Tokenize()

	var ret Token
	for _, tok := range toks {
		if tok.Type == RET {
			ret = tok
		}
	}
	if ret.Line != 2 || ret.Col != 3 {
		t.Errorf("ret at %d:%d, want 2:3", ret.Line, ret.Col)
	}
}

func TestLexerBinaryOperators(t *testing.T) {
	for _, op := range []string{"ne", "eq", "gt", "lt", "ge", "le", "add", "sub", "mul", "div", "mod", "and", "or", "xor", "shl", "shr", "sar"} {
		t.Run(op, func(t *testing.T) {
			tok := NewLexer(op).Next()
			if tok.Type != BINOP || tok.Lexeme != op {
				t.Errorf("Next() = %v %q, want BINOP", tok.Type, tok.Lexeme)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown keyword", "fun @f() { foo }", "unknown keyword: foo"},
		{"unexpected character", "global @x = alloc i32, 1;", "unexpected character: ;"},
		{"empty symbol", "@ = 1", "empty symbol name"},
		{"unterminated comment", "fun /* never closed", "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := NewLexer(tt.src).Tokenize()
			last := toks[len(toks)-1]
			if last.Type != ILLEGAL {
				t.Fatalf("last token is %v, want ILLEGAL", last.Type)
			}
			if last.Lexeme != tt.want {
				t.Errorf("error = %q, want %q", last.Lexeme, tt.want)
			}
		})
	}
}
