package ir

// Kind is what a value computes. The set is closed; Accept dispatches to the
// matching Visitor method, so a new kind cannot be added without every
// visitor growing an arm for it.
type Kind interface {
	Accept(v Visitor)
	Operands() []Value
}

// Visitor has one method per kind.
type Visitor interface {
	VisitInteger(*Integer)
	VisitZeroInit(*ZeroInit)
	VisitAggregate(*Aggregate)
	VisitFuncArgRef(*FuncArgRef)
	VisitGlobalAlloc(*GlobalAlloc)
	VisitAlloc(*Alloc)
	VisitLoad(*Load)
	VisitStore(*Store)
	VisitGetPtr(*GetPtr)
	VisitGetElemPtr(*GetElemPtr)
	VisitBinary(*Binary)
	VisitBranch(*Branch)
	VisitJump(*Jump)
	VisitCall(*Call)
	VisitReturn(*Return)
}

// Constants
type Integer struct {
	Val int32
}

type ZeroInit struct{}

type Aggregate struct {
	Elems []Value
}

// FuncArgRef is the Index-th parameter of the enclosing function.
type FuncArgRef struct {
	Index int
}

// Global allocation; its type is a pointer to the allocated type.
type GlobalAlloc struct {
	Init Value
}

// Memory
type Alloc struct{}

type Load struct {
	Src Value
}

type Store struct {
	Val  Value
	Dest Value
}

// GetPtr offsets a pointer *T by Index elements of T.
type GetPtr struct {
	Src   Value
	Index Value
}

// GetElemPtr addresses element Index of the array *[T, N] points to.
type GetElemPtr struct {
	Src   Value
	Index Value
}

type Binary struct {
	Op  BinaryOp
	LHS Value
	RHS Value
}

// Control flow
type Branch struct {
	Cond  Value
	True  *BasicBlock
	False *BasicBlock
}

type Jump struct {
	Target *BasicBlock
}

type Call struct {
	Callee *Function
	Args   []Value
}

// Return with Val == NoValue returns nothing.
type Return struct {
	Val Value
}

func (k *Integer) Accept(v Visitor)     { v.VisitInteger(k) }
func (k *ZeroInit) Accept(v Visitor)    { v.VisitZeroInit(k) }
func (k *Aggregate) Accept(v Visitor)   { v.VisitAggregate(k) }
func (k *FuncArgRef) Accept(v Visitor)  { v.VisitFuncArgRef(k) }
func (k *GlobalAlloc) Accept(v Visitor) { v.VisitGlobalAlloc(k) }
func (k *Alloc) Accept(v Visitor)       { v.VisitAlloc(k) }
func (k *Load) Accept(v Visitor)        { v.VisitLoad(k) }
func (k *Store) Accept(v Visitor)       { v.VisitStore(k) }
func (k *GetPtr) Accept(v Visitor)      { v.VisitGetPtr(k) }
func (k *GetElemPtr) Accept(v Visitor)  { v.VisitGetElemPtr(k) }
func (k *Binary) Accept(v Visitor)      { v.VisitBinary(k) }
func (k *Branch) Accept(v Visitor)      { v.VisitBranch(k) }
func (k *Jump) Accept(v Visitor)        { v.VisitJump(k) }
func (k *Call) Accept(v Visitor)        { v.VisitCall(k) }
func (k *Return) Accept(v Visitor)      { v.VisitReturn(k) }

func (*Integer) Operands() []Value     { return nil }
func (*ZeroInit) Operands() []Value    { return nil }
func (k *Aggregate) Operands() []Value { return k.Elems }
func (*FuncArgRef) Operands() []Value  { return nil }
func (k *GlobalAlloc) Operands() []Value {
	return []Value{k.Init}
}
func (*Alloc) Operands() []Value        { return nil }
func (k *Load) Operands() []Value       { return []Value{k.Src} }
func (k *Store) Operands() []Value      { return []Value{k.Val, k.Dest} }
func (k *GetPtr) Operands() []Value     { return []Value{k.Src, k.Index} }
func (k *GetElemPtr) Operands() []Value { return []Value{k.Src, k.Index} }
func (k *Binary) Operands() []Value     { return []Value{k.LHS, k.RHS} }
func (k *Branch) Operands() []Value     { return []Value{k.Cond} }
func (*Jump) Operands() []Value         { return nil }
func (k *Call) Operands() []Value       { return k.Args }
func (k *Return) Operands() []Value {
	if k.Val == NoValue {
		return nil
	}
	return []Value{k.Val}
}

// BinaryOp is a Koopa binary operator.
type BinaryOp int

const (
	OpNotEq BinaryOp = iota
	OpEq
	OpGt
	OpLt
	OpGe
	OpLe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSar
)

var opNames = [...]string{
	OpNotEq: "ne",
	OpEq:    "eq",
	OpGt:    "gt",
	OpLt:    "lt",
	OpGe:    "ge",
	OpLe:    "le",
	OpAdd:   "add",
	OpSub:   "sub",
	OpMul:   "mul",
	OpDiv:   "div",
	OpMod:   "mod",
	OpAnd:   "and",
	OpOr:    "or",
	OpXor:   "xor",
	OpShl:   "shl",
	OpShr:   "shr",
	OpSar:   "sar",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "?"
	}
	return opNames[op]
}

// ParseBinaryOp maps a Koopa operator name to its BinaryOp.
func ParseBinaryOp(name string) (BinaryOp, bool) {
	for op, n := range opNames {
		if n == name {
			return BinaryOp(op), true
		}
	}
	return 0, false
}
