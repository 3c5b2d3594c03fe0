// Package koopa reads Koopa IR text into an ir.Program.
// Design: hand-written scanner and recursive descent parser, one token of lookahead.
package koopa

import (
	"fmt"
	"unicode"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
)

type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Literals
	INT
	SYMBOL // @name or %name

	// Keywords
	GLOBAL
	FUN
	DECL
	ALLOC
	LOAD
	STORE
	GETPTR
	GETELEMPTR
	BR
	JUMP
	CALL
	RET
	ZEROINIT
	UNDEF
	I32
	BINOP // ne, eq, add, ...

	// Delimiters
	ASSIGN
	COMMA
	COLON
	STAR
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
)

var tokenNames = map[TokenType]string{
	EOF: "end of input", ILLEGAL: "illegal token", INT: "integer", SYMBOL: "symbol",
	GLOBAL: "'global'", FUN: "'fun'", DECL: "'decl'", ALLOC: "'alloc'", LOAD: "'load'",
	STORE: "'store'", GETPTR: "'getptr'", GETELEMPTR: "'getelemptr'", BR: "'br'",
	JUMP: "'jump'", CALL: "'call'", RET: "'ret'", ZEROINIT: "'zeroinit'", UNDEF: "'undef'",
	I32: "'i32'", BINOP: "binary operator",
	ASSIGN: "'='", COMMA: "','", COLON: "':'", STAR: "'*'", LPAREN: "'('", RPAREN: "')'",
	LBRACE: "'{'", RBRACE: "'}'", LBRACKET: "'['", RBRACKET: "']'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"global":     GLOBAL,
	"fun":        FUN,
	"decl":       DECL,
	"alloc":      ALLOC,
	"load":       LOAD,
	"store":      STORE,
	"getptr":     GETPTR,
	"getelemptr": GETELEMPTR,
	"br":         BR,
	"jump":       JUMP,
	"call":       CALL,
	"ret":        RET,
	"zeroinit":   ZEROINIT,
	"undef":      UNDEF,
	"i32":        I32,
}

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Col    int
}

type Lexer struct {
	source []rune
	start  int
	pos    int
	line   int
	col    int

	startLine int
	startCol  int
}

func NewLexer(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		line:   1,
		col:    1,
	}
}

// Tokenize scans the whole input. The last token is EOF or ILLEGAL.
func (l *Lexer) Tokenize() []Token {
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return toks
		}
	}
}

func (l *Lexer) Next() Token {
	if msg := l.skipWhitespace(); msg != "" {
		return l.error(msg)
	}

	l.start = l.pos
	l.startLine, l.startCol = l.line, l.col
	if l.isAtEnd() {
		return l.makeToken(EOF)
	}

	c := l.advance()
	switch c {
	case '=':
		return l.makeToken(ASSIGN)
	case ',':
		return l.makeToken(COMMA)
	case ':':
		return l.makeToken(COLON)
	case '*':
		return l.makeToken(STAR)
	case '(':
		return l.makeToken(LPAREN)
	case ')':
		return l.makeToken(RPAREN)
	case '{':
		return l.makeToken(LBRACE)
	case '}':
		return l.makeToken(RBRACE)
	case '[':
		return l.makeToken(LBRACKET)
	case ']':
		return l.makeToken(RBRACKET)
	case '@', '%':
		return l.symbol()
	case '-':
		if unicode.IsDigit(l.peek()) {
			return l.number()
		}
	}

	if unicode.IsDigit(c) {
		return l.number()
	}

	if unicode.IsLetter(c) || c == '_' {
		return l.identifier()
	}

	return l.error(fmt.Sprintf("unexpected character: %c", c))
}

// skipWhitespace skips blanks and comments; it returns a message for an
// unterminated block comment.
func (l *Lexer) skipWhitespace() string {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == '\n':
			l.advance()
			l.line++
			l.col = 1
		case unicode.IsSpace(c):
			l.advance()
		case c == '/' && l.peekNext() == '/':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekNext() == '*':
			l.startLine, l.startCol = l.line, l.col
			l.advance()
			l.advance()
			for !(l.peek() == '*' && l.peekNext() == '/') {
				if l.isAtEnd() {
					return "unterminated block comment"
				}
				if l.advance() == '\n' {
					l.line++
					l.col = 1
				}
			}
			l.advance()
			l.advance()
		default:
			return ""
		}
	}
	return ""
}

func (l *Lexer) symbol() Token {
	if !isIdentRune(l.peek()) {
		return l.error("empty symbol name")
	}
	for isIdentRune(l.peek()) {
		l.advance()
	}
	return l.makeToken(SYMBOL)
}

func (l *Lexer) number() Token {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(INT)
}

func (l *Lexer) identifier() Token {
	for isIdentRune(l.peek()) {
		l.advance()
	}

	text := string(l.source[l.start:l.pos])
	if typ, ok := keywords[text]; ok {
		return l.makeToken(typ)
	}
	if _, ok := ir.ParseBinaryOp(text); ok {
		return l.makeToken(BINOP)
	}
	return l.error(fmt.Sprintf("unknown keyword: %s", text))
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return '\x00'
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return '\x00'
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	c := l.source[l.pos]
	l.pos++
	l.col++
	return c
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) makeToken(typ TokenType) Token {
	return Token{
		Type:   typ,
		Lexeme: string(l.source[l.start:l.pos]),
		Line:   l.startLine,
		Col:    l.startCol,
	}
}

func (l *Lexer) error(msg string) Token {
	return Token{
		Type:   ILLEGAL,
		Lexeme: msg,
		Line:   l.startLine,
		Col:    l.startCol,
	}
}
