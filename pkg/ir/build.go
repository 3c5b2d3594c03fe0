package ir

import "fmt"

// Global-arena constructors

// Integer creates a global integer constant, used in initializers.
func (p *Program) Integer(val int32) Value {
	return p.globals.add(&ValueData{Type: Int32, Kind: &Integer{Val: val}})
}

// ZeroInit creates a zero initializer of type t.
func (p *Program) ZeroInit(t Type) Value {
	return p.globals.add(&ValueData{Type: t, Kind: &ZeroInit{}})
}

// Aggregate creates an aggregate initializer of type t.
func (p *Program) Aggregate(t Type, elems ...Value) Value {
	return p.globals.add(&ValueData{Type: t, Kind: &Aggregate{Elems: elems}})
}

// NewGlobal defines a global variable of type elem initialized by init.
func (p *Program) NewGlobal(name string, elem Type, init Value) Value {
	v := p.globals.add(&ValueData{
		Name: name,
		Type: PointerTo(elem),
		Kind: &GlobalAlloc{Init: init},
	})
	p.globalDef = append(p.globalDef, v)
	return v
}

// NewFunction adds a function. It stays a declaration until a block is added.
func (p *Program) NewFunction(name string, ret Type, params ...Type) *Function {
	if ret == nil {
		ret = Unit
	}
	f := &Function{Name: name, RetType: ret, prog: p}
	for i, t := range params {
		f.Params = append(f.Params, f.dfg.add(&ValueData{
			Name: fmt.Sprintf("arg%d", i),
			Type: t,
			Kind: &FuncArgRef{Index: i},
		}))
	}
	p.funcs = append(p.funcs, f)
	return f
}

// NewBlock appends an empty basic block to the function's layout.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{Name: name, fn: f}
	f.blocks = append(f.blocks, b)
	return b
}

// Builder appends values to a function's blocks, computing result types.
// Type mismatches are programming errors and panic.
type Builder struct {
	fn *Function
	bb *BasicBlock
}

// NewBuilder creates a builder for fn.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// SetBlock sets the block new values are appended to.
func (b *Builder) SetBlock(bb *BasicBlock) {
	b.bb = bb
}

// Block returns the current insertion block.
func (b *Builder) Block() *BasicBlock {
	return b.bb
}

// Integer creates a constant. Constants are not placed in any block.
func (b *Builder) Integer(val int32) Value {
	return b.fn.dfg.add(&ValueData{Type: Int32, Kind: &Integer{Val: val}})
}

func (b *Builder) push(name string, t Type, k Kind) Value {
	if b.bb == nil {
		panic("ir: builder has no insertion block")
	}
	v := b.fn.dfg.add(&ValueData{Name: name, Type: t, Kind: k})
	b.bb.insts = append(b.bb.insts, v)
	return v
}

func (b *Builder) typeOf(v Value) Type {
	return b.fn.Value(v).Type
}

// Alloc reserves a local of type elem and yields its address.
func (b *Builder) Alloc(name string, elem Type) Value {
	return b.push(name, PointerTo(elem), &Alloc{})
}

func (b *Builder) Load(name string, src Value) Value {
	elem, ok := Deref(b.typeOf(src))
	if !ok {
		panic(fmt.Sprintf("ir: load from non-pointer %s", b.typeOf(src)))
	}
	return b.push(name, elem, &Load{Src: src})
}

func (b *Builder) Store(val, dest Value) Value {
	if _, ok := Deref(b.typeOf(dest)); !ok {
		panic(fmt.Sprintf("ir: store to non-pointer %s", b.typeOf(dest)))
	}
	return b.push("", Unit, &Store{Val: val, Dest: dest})
}

func (b *Builder) GetPtr(name string, src, index Value) Value {
	t := b.typeOf(src)
	if _, ok := Deref(t); !ok {
		panic(fmt.Sprintf("ir: getptr on non-pointer %s", t))
	}
	return b.push(name, t, &GetPtr{Src: src, Index: index})
}

func (b *Builder) GetElemPtr(name string, src, index Value) Value {
	elem, ok := ElemOfArrayPtr(b.typeOf(src))
	if !ok {
		panic(fmt.Sprintf("ir: getelemptr on %s", b.typeOf(src)))
	}
	return b.push(name, PointerTo(elem), &GetElemPtr{Src: src, Index: index})
}

func (b *Builder) Binary(name string, op BinaryOp, lhs, rhs Value) Value {
	return b.push(name, Int32, &Binary{Op: op, LHS: lhs, RHS: rhs})
}

func (b *Builder) Branch(cond Value, t, f *BasicBlock) Value {
	return b.push("", Unit, &Branch{Cond: cond, True: t, False: f})
}

func (b *Builder) Jump(target *BasicBlock) Value {
	return b.push("", Unit, &Jump{Target: target})
}

func (b *Builder) Call(name string, callee *Function, args ...Value) Value {
	return b.push(name, callee.RetType, &Call{Callee: callee, Args: args})
}

// Return returns val, or nothing when val is NoValue.
func (b *Builder) Return(val Value) Value {
	return b.push("", Unit, &Return{Val: val})
}
