package riscv

// Program is the in-memory assembly program. It only grows: globals,
// functions, blocks and instructions are appended in output order.
type Program struct {
	Globals []*GlobalDef
	Funcs   []*Func
}

// MemFill is one piece of a global's initial contents.
type MemFill interface {
	memFill()
}

// Word is a 32-bit initialized word.
type Word int32

// Zero is a run of zero bytes.
type Zero int

func (Word) memFill() {}
func (Zero) memFill() {}

// GlobalDef is a global variable in the data section.
type GlobalDef struct {
	Name string
	Init []MemFill
}

// Func is a function in the text section.
type Func struct {
	Name   string
	Blocks []*Block
}

// Block is a labeled run of instructions. An empty label emits no label line.
type Block struct {
	Label string
	Insts []Inst
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{}
}

// AddGlobal appends a global definition.
func (p *Program) AddGlobal(name string, init []MemFill) *GlobalDef {
	g := &GlobalDef{Name: name, Init: init}
	p.Globals = append(p.Globals, g)
	return g
}

// AddFunc appends a function and returns it for block construction.
func (p *Program) AddFunc(name string) *Func {
	f := &Func{Name: name}
	p.Funcs = append(p.Funcs, f)
	return f
}

// AddBlock appends a block to the function.
func (f *Func) AddBlock(label string) *Block {
	b := &Block{Label: label}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Push appends instructions to the block.
func (b *Block) Push(insts ...Inst) {
	b.Insts = append(b.Insts, insts...)
}

// InstCount returns the number of instructions in the function.
func (f *Func) InstCount() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Insts)
	}
	return n
}

// Insts returns the function's instructions in emission order.
func (f *Func) Insts() []Inst {
	out := make([]Inst, 0, f.InstCount())
	for _, b := range f.Blocks {
		out = append(out, b.Insts...)
	}
	return out
}

// Func looks a function up by name.
func (p *Program) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
