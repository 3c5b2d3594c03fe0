// Package koopa - Recursive descent parser for Koopa IR text
// Design: two passes. The first creates every function with its signature and
// blocks, so calls and branches may refer forward; the second fills in bodies.
package koopa

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

type Parser struct {
	toks []Token
	pos  int
	prog *ir.Program

	globals map[string]ir.Value

	// Per function
	fn     *ir.Function
	b      *ir.Builder
	locals map[string]ir.Value
	blocks map[*ir.Function]map[string]*ir.BasicBlock
	params map[*ir.Function][]string // parameter symbols, sigil included
}

func NewParser(source string) *Parser {
	return &Parser{
		toks:    NewLexer(source).Tokenize(),
		prog:    ir.NewProgram(),
		globals: make(map[string]ir.Value),
		blocks:  make(map[*ir.Function]map[string]*ir.BasicBlock),
		params:  make(map[*ir.Function][]string),
	}
}

// Parse parses Koopa IR text into a program.
func Parse(source string) (*ir.Program, error) {
	return NewParser(source).Parse()
}

func (p *Parser) Parse() (*ir.Program, error) {
	if last := p.toks[len(p.toks)-1]; last.Type == ILLEGAL {
		return nil, p.errorAt(last, "%s", last.Lexeme)
	}
	logger.LogLexing("koopa", len(p.toks))

	if err := p.declareFunctions(); err != nil {
		return nil, err
	}

	p.pos = 0
	for !p.check(EOF) {
		var err error
		switch p.current().Type {
		case GLOBAL:
			err = p.global()
		case DECL:
			err = p.skipDecl()
		case FUN:
			err = p.function()
		default:
			err = p.unexpected("'global', 'decl' or 'fun'")
		}
		if err != nil {
			return nil, err
		}
	}

	logger.LogParsing("koopa", len(p.prog.Functions()))
	return p.prog, nil
}

// Pass one

// declareFunctions creates every function and, for definitions, every block
// in textual order.
func (p *Parser) declareFunctions() error {
	depth := 0
	for !p.check(EOF) {
		tok := p.current()
		switch {
		case depth == 0 && (tok.Type == FUN || tok.Type == DECL):
			fn, err := p.signature()
			if err != nil {
				return err
			}
			if tok.Type == FUN {
				if err := p.declareBlocks(fn); err != nil {
					return err
				}
			}
			continue
		case tok.Type == LBRACE:
			depth++
		case tok.Type == RBRACE:
			depth--
		}
		p.advance()
	}
	return nil
}

// signature parses `fun @f(@a: i32, ...): i32` or `decl @f(i32, ...): i32`.
func (p *Parser) signature() (*ir.Function, error) {
	def := p.current().Type == FUN
	p.advance()

	nameTok := p.current()
	if err := p.consume(SYMBOL, "function name"); err != nil {
		return nil, err
	}
	name, ok := global(nameTok)
	if !ok {
		return nil, p.errorAt(nameTok, "function name must start with '@': %s", nameTok.Lexeme)
	}
	if p.prog.Function(name) != nil {
		return nil, p.errorAt(nameTok, "function @%s redefined", name)
	}

	if err := p.consume(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var names []string
	var types []ir.Type
	for !p.check(RPAREN) {
		if len(types) > 0 {
			if err := p.consume(COMMA, "','"); err != nil {
				return nil, err
			}
		}
		if def {
			tok := p.current()
			if err := p.consume(SYMBOL, "parameter name"); err != nil {
				return nil, err
			}
			if err := p.consume(COLON, "':'"); err != nil {
				return nil, err
			}
			names = append(names, tok.Lexeme)
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	p.advance()

	var ret ir.Type
	if p.check(COLON) {
		p.advance()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ret = t
	}

	fn := p.prog.NewFunction(name, ret, types...)
	if def {
		for i, param := range fn.Params {
			fn.Value(param).Name = strings.TrimLeft(names[i], "@%")
		}
		p.params[fn] = names
	}
	return fn, nil
}

// declareBlocks creates fn's blocks in the order their labels appear.
func (p *Parser) declareBlocks(fn *ir.Function) error {
	if err := p.consume(LBRACE, "'{'"); err != nil {
		return err
	}
	blocks := make(map[string]*ir.BasicBlock)
	p.blocks[fn] = blocks

	depth := 1
	for depth > 0 {
		tok := p.current()
		switch tok.Type {
		case EOF:
			return p.errorAt(tok, "unterminated body of @%s", fn.Name)
		case LBRACE:
			depth++
		case RBRACE:
			depth--
		case SYMBOL:
			if p.peek().Type == COLON {
				if _, dup := blocks[tok.Lexeme]; dup {
					return p.errorAt(tok, "block %s redefined", tok.Lexeme)
				}
				blocks[tok.Lexeme] = fn.NewBlock(strings.TrimLeft(tok.Lexeme, "@%"))
			}
		}
		p.advance()
	}
	if fn.IsDecl() {
		return p.errorAt(p.current(), "function @%s has no blocks", fn.Name)
	}
	return nil
}

// Pass two

// global parses `global @x = alloc T, init`.
func (p *Parser) global() error {
	p.advance()
	nameTok := p.current()
	if err := p.consume(SYMBOL, "global name"); err != nil {
		return err
	}
	name, ok := global(nameTok)
	if !ok {
		return p.errorAt(nameTok, "global name must start with '@': %s", nameTok.Lexeme)
	}
	if _, dup := p.globals[nameTok.Lexeme]; dup {
		return p.errorAt(nameTok, "global %s redefined", nameTok.Lexeme)
	}
	if err := p.consume(ASSIGN, "'='"); err != nil {
		return err
	}
	if err := p.consume(ALLOC, "'alloc'"); err != nil {
		return err
	}
	t, err := p.parseType()
	if err != nil {
		return err
	}
	if err := p.consume(COMMA, "','"); err != nil {
		return err
	}
	init, err := p.initializer(t)
	if err != nil {
		return err
	}
	p.globals[nameTok.Lexeme] = p.prog.NewGlobal(name, t, init)
	return nil
}

// initializer parses an integer, zeroinit, undef or {...} of type t.
func (p *Parser) initializer(t ir.Type) (ir.Value, error) {
	tok := p.current()
	switch tok.Type {
	case INT:
		if _, ok := t.(ir.Int32Type); !ok {
			return ir.NoValue, p.errorAt(tok, "integer initializer for %s", t)
		}
		n, err := p.integer()
		if err != nil {
			return ir.NoValue, err
		}
		return p.prog.Integer(n), nil
	case ZEROINIT, UNDEF:
		p.advance()
		return p.prog.ZeroInit(t), nil
	case LBRACE:
		arr, ok := t.(ir.ArrayType)
		if !ok {
			return ir.NoValue, p.errorAt(tok, "aggregate initializer for %s", t)
		}
		p.advance()
		elems := make([]ir.Value, 0, arr.Len)
		for !p.check(RBRACE) {
			if len(elems) > 0 {
				if err := p.consume(COMMA, "','"); err != nil {
					return ir.NoValue, err
				}
			}
			e, err := p.initializer(arr.Elem)
			if err != nil {
				return ir.NoValue, err
			}
			elems = append(elems, e)
		}
		p.advance()
		if len(elems) != arr.Len {
			return ir.NoValue, p.errorAt(tok, "aggregate has %d elements, %s needs %d", len(elems), t, arr.Len)
		}
		return p.prog.Aggregate(t, elems...), nil
	}
	return ir.NoValue, p.unexpected("initializer")
}

// skipDecl steps over a declaration already handled in pass one.
func (p *Parser) skipDecl() error {
	for !p.check(RPAREN) {
		if p.check(EOF) {
			return p.unexpected("')'")
		}
		p.advance()
	}
	p.advance()
	if p.check(COLON) {
		p.advance()
		if _, err := p.parseType(); err != nil {
			return err
		}
	}
	return nil
}

// function parses a definition body.
func (p *Parser) function() error {
	p.advance()
	name, _ := global(p.current())
	p.fn = p.prog.Function(name)
	p.b = ir.NewBuilder(p.fn)
	p.locals = make(map[string]ir.Value)

	// The signature was parsed in pass one.
	for !p.check(LBRACE) {
		p.advance()
	}
	p.advance()

	for i, param := range p.fn.Params {
		p.locals[p.params[p.fn][i]] = param
	}

	for !p.check(RBRACE) {
		tok := p.current()
		if tok.Type != SYMBOL || p.peek().Type != COLON {
			return p.unexpected("block label")
		}
		p.b.SetBlock(p.blocks[p.fn][tok.Lexeme])
		p.advance()
		p.advance()

		for !p.check(RBRACE) && !(p.check(SYMBOL) && p.peek().Type == COLON) {
			if err := p.statement(); err != nil {
				return errors.Wrap(err, "@%s", p.fn.Name)
			}
		}
	}
	p.advance()
	return nil
}

func (p *Parser) statement() error {
	tok := p.current()
	switch tok.Type {
	case SYMBOL:
		if _, dup := p.locals[tok.Lexeme]; dup {
			return p.errorAt(tok, "%s redefined", tok.Lexeme)
		}
		p.advance()
		if err := p.consume(ASSIGN, "'='"); err != nil {
			return err
		}
		v, err := p.definition(strings.TrimLeft(tok.Lexeme, "@%"))
		if err != nil {
			return err
		}
		p.locals[tok.Lexeme] = v
		return nil

	case STORE:
		p.advance()
		val, err := p.value()
		if err != nil {
			return err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return err
		}
		dest, err := p.pointer()
		if err != nil {
			return err
		}
		p.b.Store(val, dest)
		return nil

	case BR:
		p.advance()
		cond, err := p.value()
		if err != nil {
			return err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return err
		}
		t, err := p.block()
		if err != nil {
			return err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return err
		}
		f, err := p.block()
		if err != nil {
			return err
		}
		p.b.Branch(cond, t, f)
		return nil

	case JUMP:
		p.advance()
		target, err := p.block()
		if err != nil {
			return err
		}
		p.b.Jump(target)
		return nil

	case RET:
		p.advance()
		// A returned value sits on the same line as ret.
		if next := p.current(); next.Line != tok.Line || next.Type == RBRACE {
			p.b.Return(ir.NoValue)
			return nil
		}
		v, err := p.value()
		if err != nil {
			return err
		}
		p.b.Return(v)
		return nil

	case CALL:
		_, err := p.call("")
		return err
	}
	return p.unexpected("statement")
}

// definition parses the right-hand side of `%x = ...`.
func (p *Parser) definition(name string) (ir.Value, error) {
	tok := p.current()
	switch tok.Type {
	case ALLOC:
		p.advance()
		t, err := p.parseType()
		if err != nil {
			return ir.NoValue, err
		}
		return p.b.Alloc(name, t), nil

	case LOAD:
		p.advance()
		src, err := p.pointer()
		if err != nil {
			return ir.NoValue, err
		}
		return p.b.Load(name, src), nil

	case GETPTR, GETELEMPTR:
		p.advance()
		srcTok := p.current()
		src, err := p.pointer()
		if err != nil {
			return ir.NoValue, err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return ir.NoValue, err
		}
		idx, err := p.value()
		if err != nil {
			return ir.NoValue, err
		}
		if tok.Type == GETPTR {
			return p.b.GetPtr(name, src, idx), nil
		}
		if _, ok := ir.ElemOfArrayPtr(p.fn.Value(src).Type); !ok {
			return ir.NoValue, p.errorAt(srcTok, "getelemptr on %s", p.fn.Value(src).Type)
		}
		return p.b.GetElemPtr(name, src, idx), nil

	case BINOP:
		op, _ := ir.ParseBinaryOp(tok.Lexeme)
		p.advance()
		lhs, err := p.value()
		if err != nil {
			return ir.NoValue, err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return ir.NoValue, err
		}
		rhs, err := p.value()
		if err != nil {
			return ir.NoValue, err
		}
		return p.b.Binary(name, op, lhs, rhs), nil

	case CALL:
		return p.call(name)
	}
	return ir.NoValue, p.unexpected("value definition")
}

// call parses `call @f(args)`. A named call must return a value.
func (p *Parser) call(name string) (ir.Value, error) {
	p.advance()
	calleeTok := p.current()
	if err := p.consume(SYMBOL, "function name"); err != nil {
		return ir.NoValue, err
	}
	fname, _ := global(calleeTok)
	callee := p.prog.Function(fname)
	if callee == nil {
		return ir.NoValue, p.errorAt(calleeTok, "call to undeclared function %s", calleeTok.Lexeme)
	}
	if _, void := callee.RetType.(ir.UnitType); void && name != "" {
		return ir.NoValue, p.errorAt(calleeTok, "%s returns nothing", calleeTok.Lexeme)
	}

	if err := p.consume(LPAREN, "'('"); err != nil {
		return ir.NoValue, err
	}
	var args []ir.Value
	for !p.check(RPAREN) {
		if len(args) > 0 {
			if err := p.consume(COMMA, "','"); err != nil {
				return ir.NoValue, err
			}
		}
		v, err := p.value()
		if err != nil {
			return ir.NoValue, err
		}
		args = append(args, v)
	}
	p.advance()

	if len(args) != len(callee.Params) {
		return ir.NoValue, p.errorAt(calleeTok, "%s takes %d arguments, got %d", calleeTok.Lexeme, len(callee.Params), len(args))
	}
	return p.b.Call(name, callee, args...), nil
}

// value parses an operand: a defined symbol, an integer, or undef.
func (p *Parser) value() (ir.Value, error) {
	tok := p.current()
	switch tok.Type {
	case INT:
		n, err := p.integer()
		if err != nil {
			return ir.NoValue, err
		}
		return p.b.Integer(n), nil
	case UNDEF:
		p.advance()
		return p.b.Integer(0), nil
	case SYMBOL:
		p.advance()
		if v, ok := p.locals[tok.Lexeme]; ok {
			return v, nil
		}
		if v, ok := p.globals[tok.Lexeme]; ok {
			return v, nil
		}
		return ir.NoValue, p.errorAt(tok, "%s used before definition", tok.Lexeme)
	}
	return ir.NoValue, p.unexpected("value")
}

// pointer parses a symbol operand of pointer type.
func (p *Parser) pointer() (ir.Value, error) {
	tok := p.current()
	v, err := p.value()
	if err != nil {
		return ir.NoValue, err
	}
	if _, ok := ir.Deref(p.fn.Value(v).Type); !ok {
		return ir.NoValue, p.errorAt(tok, "%s is not a pointer", tok.Lexeme)
	}
	return v, nil
}

func (p *Parser) block() (*ir.BasicBlock, error) {
	tok := p.current()
	if err := p.consume(SYMBOL, "block label"); err != nil {
		return nil, err
	}
	bb, ok := p.blocks[p.fn][tok.Lexeme]
	if !ok {
		return nil, p.errorAt(tok, "undefined block %s", tok.Lexeme)
	}
	return bb, nil
}

// parseType parses i32, *T or [T, N].
func (p *Parser) parseType() (ir.Type, error) {
	tok := p.current()
	switch tok.Type {
	case I32:
		p.advance()
		return ir.Int32, nil
	case STAR:
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ir.PointerTo(elem), nil
	case LBRACKET:
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.consume(COMMA, "','"); err != nil {
			return nil, err
		}
		lenTok := p.current()
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, p.errorAt(lenTok, "array length must be positive")
		}
		if err := p.consume(RBRACKET, "']'"); err != nil {
			return nil, err
		}
		return ir.ArrayOf(elem, int(n)), nil
	}
	return nil, p.unexpected("type")
}

func (p *Parser) integer() (int32, error) {
	tok := p.current()
	if err := p.consume(INT, "integer"); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(tok.Lexeme, 10, 32)
	if err != nil {
		return 0, p.errorAt(tok, "integer out of range: %s", tok.Lexeme)
	}
	return int32(n), nil
}

// global returns the name of an @-symbol without its sigil.
func global(tok Token) (string, bool) {
	if tok.Type != SYMBOL || !strings.HasPrefix(tok.Lexeme, "@") {
		return "", false
	}
	return tok.Lexeme[1:], true
}

// Token stream helpers

func (p *Parser) current() Token {
	return p.toks[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+1]
}

func (p *Parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) check(typ TokenType) bool {
	return p.current().Type == typ
}

func (p *Parser) consume(typ TokenType, what string) error {
	if !p.check(typ) {
		return p.unexpected(what)
	}
	p.advance()
	return nil
}

func (p *Parser) unexpected(what string) error {
	tok := p.current()
	if tok.Type == EOF {
		return p.errorAt(tok, "expected %s, got end of input", what)
	}
	return p.errorAt(tok, "expected %s, got %q", what, tok.Lexeme)
}

func (p *Parser) errorAt(tok Token, format string, args ...any) error {
	return errors.Wrap(errors.New(format, args...), "%d:%d", tok.Line, tok.Col)
}
