// Package ir implements the intermediate representation consumed by the backend.
//
// Design: Koopa-style SSA. Each function owns an arena of values addressed by
// integer handles; blocks list handles in layout order; every value records
// which other values use it. Producers build it, the backend only reads it.
package ir

import "fmt"

// Value is an opaque handle to one IR value. The zero Value is the nil handle.
// Handles of global values carry a flag, so globals never collide with locals.
type Value uint32

const globalFlag Value = 1 << 31

// NoValue is the nil handle.
const NoValue Value = 0

// IsGlobal reports whether the handle refers to the program's global arena.
func (v Value) IsGlobal() bool {
	return v&globalFlag != 0
}

func (v Value) index() int {
	return int(v&^globalFlag) - 1
}

func (v Value) String() string {
	if v == NoValue {
		return "<nil>"
	}
	if v.IsGlobal() {
		return fmt.Sprintf("g%d", v.index())
	}
	return fmt.Sprintf("v%d", v.index())
}

// ValueData is everything known about one value.
type ValueData struct {
	Name   string // without sigil; empty for anonymous values
	Type   Type
	Kind   Kind
	usedBy []Value
}

// UsedBy returns the values that use this one, in first-use order.
func (d *ValueData) UsedBy() []Value {
	return d.usedBy
}

// IsUsed reports whether at least one other value uses this one.
func (d *ValueData) IsUsed() bool {
	return len(d.usedBy) > 0
}

func (d *ValueData) addUser(user Value) {
	for _, u := range d.usedBy {
		if u == user {
			return
		}
	}
	d.usedBy = append(d.usedBy, user)
}

// arena stores values and maintains the used-by index.
type arena struct {
	global bool
	values []*ValueData
}

func (a *arena) add(d *ValueData) Value {
	a.values = append(a.values, d)
	h := Value(len(a.values))
	if a.global {
		h |= globalFlag
	}
	for _, op := range d.Kind.Operands() {
		if op == NoValue || op.IsGlobal() != a.global {
			continue
		}
		a.get(op).addUser(h)
	}
	return h
}

func (a *arena) get(v Value) *ValueData {
	i := v.index()
	if v == NoValue || v.IsGlobal() != a.global || i >= len(a.values) {
		panic(fmt.Sprintf("ir: invalid value handle %v", v))
	}
	return a.values[i]
}

// Program is the top-level IR container
type Program struct {
	globals   arena
	globalDef []Value
	funcs     []*Function
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{globals: arena{global: true}}
}

// Value returns the data of a global value.
func (p *Program) Value(v Value) *ValueData {
	return p.globals.get(v)
}

// Globals returns the global allocations in definition order.
func (p *Program) Globals() []Value {
	return p.globalDef
}

// Functions returns all functions, declarations included, in definition order.
func (p *Program) Functions() []*Function {
	return p.funcs
}

// Function looks up a function by name.
func (p *Program) Function(name string) *Function {
	for _, f := range p.funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Function represents a function definition or declaration
type Function struct {
	Name    string
	Params  []Value
	RetType Type
	prog    *Program
	dfg     arena
	blocks  []*BasicBlock
}

// Program returns the program the function belongs to.
func (f *Function) Program() *Program {
	return f.prog
}

// Value returns the data of a value visible in this function: one of its own
// values or a global.
func (f *Function) Value(v Value) *ValueData {
	if v.IsGlobal() {
		return f.prog.globals.get(v)
	}
	return f.dfg.get(v)
}

// Blocks returns the basic blocks in layout order.
func (f *Function) Blocks() []*BasicBlock {
	return f.blocks
}

// Entry returns the entry block, or nil for a declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// IsDecl reports whether the function is only declared (has no body).
func (f *Function) IsDecl() bool {
	return len(f.blocks) == 0
}

// Type returns the function's signature.
func (f *Function) Type() FuncType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = f.dfg.get(p).Type
	}
	return FuncType{Params: params, Ret: f.RetType}
}

// BasicBlock is a named run of values ending in a terminator.
type BasicBlock struct {
	Name  string
	fn    *Function
	insts []Value
}

// Function returns the owning function.
func (b *BasicBlock) Function() *Function {
	return b.fn
}

// Insts returns the block's values in layout order.
func (b *BasicBlock) Insts() []Value {
	return b.insts
}
