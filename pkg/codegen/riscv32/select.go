package riscv32

import (
	"fmt"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// selector lowers the body of one function. It implements ir.Visitor; the
// value being lowered is held in cur while its kind's Visit method runs.
type selector struct {
	fn     *ir.Function
	pool   *regalloc.Pool
	frame  *Frame
	out    *riscv.Func
	block  *riscv.Block
	labels map[*ir.BasicBlock]string

	uses   map[ir.Value]int  // remaining users of each register-held value
	staged map[ir.Value]bool // values parked in their frame slot for a call

	cur ir.Value
	err error
}

func (s *selector) run() error {
	s.prologue()

	for _, bb := range s.fn.Blocks() {
		if bb != s.fn.Entry() {
			s.block = s.out.AddBlock(s.labels[bb])
		}
		for _, v := range bb.Insts() {
			s.cur = v
			s.fn.Value(v).Kind.Accept(s)
			if s.err != nil {
				return s.err
			}
		}
	}
	return nil
}

// prologue opens the entry block, allocates the frame and binds register
// parameters that are used.
func (s *selector) prologue() {
	s.block = s.out.AddBlock(s.fn.Name)

	s.addi(riscv.SP, riscv.SP, -s.frame.Size)
	if !s.frame.Leaf {
		s.sw(riscv.RA, riscv.SP, s.frame.RAOffset())
	}

	for i, p := range s.fn.Params {
		if i >= maxRegArgs {
			break
		}
		if n := len(s.fn.Value(p).UsedBy()); n > 0 {
			s.pool.AllocateIn(p, riscv.ArgRegs[i])
			s.uses[p] = n
		}
	}
}

func (s *selector) emit(insts ...riscv.Inst) {
	s.block.Push(insts...)
}

func (s *selector) fail(format string, args ...any) {
	if s.err == nil {
		s.err = errors.New(format, args...)
	}
}

// Operand handling.
//
// Literals, local and global addresses, and stack parameters are
// rematerialized into a fresh register at every use and freed right after.
// Everything else lives in the register it was produced in until its last
// user releases it.

func (s *selector) rematerialized(v ir.Value) bool {
	switch k := s.fn.Value(v).Kind.(type) {
	case *ir.Integer, *ir.Alloc, *ir.GlobalAlloc:
		return true
	case *ir.FuncArgRef:
		return k.Index >= maxRegArgs
	}
	return false
}

// use returns a register holding v. The zero literal is x0.
func (s *selector) use(v ir.Value) riscv.Reg {
	data := s.fn.Value(v)
	switch k := data.Kind.(type) {
	case *ir.Integer:
		if k.Val == 0 {
			return riscv.X0
		}
		r := s.pool.Allocate(v)
		s.emit(riscv.Li{Rd: r, Imm: k.Val})
		return r
	case *ir.Alloc:
		r := s.pool.Allocate(v)
		s.addi(r, riscv.SP, s.frame.MustOffset(v))
		return r
	case *ir.GlobalAlloc:
		r := s.pool.Allocate(v)
		s.emit(riscv.La{Rd: r, Label: data.Name})
		return r
	case *ir.FuncArgRef:
		if k.Index >= maxRegArgs {
			r := s.pool.Allocate(v)
			s.lw(r, riscv.SP, s.stackParamOffset(k.Index))
			return r
		}
	}

	r, ok := s.pool.RegOf(v)
	if !ok {
		panic(fmt.Sprintf("riscv32: %v (%s) used while not in a register", v, data.Name))
	}
	return r
}

// release drops one use of v, freeing its register after the last one.
func (s *selector) release(v ir.Value, r riscv.Reg) {
	if s.rematerialized(v) {
		s.pool.Free(v, r)
		return
	}
	s.uses[v]--
	if s.uses[v] <= 0 {
		delete(s.uses, v)
		s.pool.Free(v, r)
	}
}

// define records that the current value was produced into r.
func (s *selector) define(r riscv.Reg) {
	v := s.cur
	data := s.fn.Value(v)
	switch {
	case !data.IsUsed():
		s.pool.Free(v, r)
	case isCallArg(s.fn, v):
		s.sw(r, riscv.SP, s.frame.MustOffset(v))
		s.pool.Free(v, r)
		s.staged[v] = true
	default:
		s.uses[v] = len(data.UsedBy())
	}
}

// Incoming parameters past the eighth sit just above this frame.
func (s *selector) stackParamOffset(index int) int {
	return s.frame.Size + wordSize*(index-maxRegArgs)
}

// Value kinds that only occur as operands or initializers.

func (s *selector) VisitInteger(*ir.Integer)         { s.misplaced() }
func (s *selector) VisitZeroInit(*ir.ZeroInit)       { s.misplaced() }
func (s *selector) VisitAggregate(*ir.Aggregate)     { s.misplaced() }
func (s *selector) VisitFuncArgRef(*ir.FuncArgRef)   { s.misplaced() }
func (s *selector) VisitGlobalAlloc(*ir.GlobalAlloc) { s.misplaced() }

func (s *selector) misplaced() {
	s.fail("%v: %T cannot appear in a basic block", s.cur, s.fn.Value(s.cur).Kind)
}

// VisitAlloc emits nothing; the frame already holds the slot.
func (s *selector) VisitAlloc(*ir.Alloc) {}

func (s *selector) VisitLoad(k *ir.Load) {
	src := s.fn.Value(k.Src)
	switch src.Kind.(type) {
	case *ir.GlobalAlloc:
		rd := s.pool.Allocate(s.cur)
		s.emit(riscv.La{Rd: rd, Label: src.Name}, riscv.Lw{Rd: rd, Imm: 0, Rs: rd})
		s.define(rd)
	case *ir.Alloc:
		rd := s.pool.Allocate(s.cur)
		s.lw(rd, riscv.SP, s.frame.MustOffset(k.Src))
		s.define(rd)
	default:
		rs := s.use(k.Src)
		rd := s.pool.Allocate(s.cur)
		s.emit(riscv.Lw{Rd: rd, Imm: 0, Rs: rs})
		s.release(k.Src, rs)
		s.define(rd)
	}
}

func (s *selector) VisitStore(k *ir.Store) {
	rs := s.use(k.Val)
	dest := s.fn.Value(k.Dest)
	switch dest.Kind.(type) {
	case *ir.GlobalAlloc:
		s.emit(riscv.La{Rd: riscv.Scratch, Label: dest.Name}, riscv.Sw{Rs: rs, Imm: 0, Base: riscv.Scratch})
	case *ir.Alloc:
		s.sw(rs, riscv.SP, s.frame.MustOffset(k.Dest))
	default:
		rd := s.use(k.Dest)
		s.emit(riscv.Sw{Rs: rs, Imm: 0, Base: rd})
		s.release(k.Dest, rd)
	}
	s.release(k.Val, rs)
}

func (s *selector) VisitGetPtr(k *ir.GetPtr) {
	elem, ok := ir.Deref(s.fn.Value(k.Src).Type)
	if !ok {
		s.fail("%v: getptr on %s", s.cur, s.fn.Value(k.Src).Type)
		return
	}
	s.elemAddr(k.Src, k.Index, elem.Size())
}

func (s *selector) VisitGetElemPtr(k *ir.GetElemPtr) {
	elem, ok := ir.ElemOfArrayPtr(s.fn.Value(k.Src).Type)
	if !ok {
		s.fail("%v: getelemptr on %s", s.cur, s.fn.Value(k.Src).Type)
		return
	}
	s.elemAddr(k.Src, k.Index, elem.Size())
}

// elemAddr computes src + index*size into a register for the current value.
func (s *selector) elemAddr(src, index ir.Value, size int) {
	ri := s.use(index)
	rd := s.pool.Allocate(s.cur)
	scaled := ri != riscv.X0
	if scaled {
		s.muli(rd, ri, size)
	}
	s.release(index, ri)

	base := s.fn.Value(src)
	switch base.Kind.(type) {
	case *ir.GlobalAlloc:
		if !scaled {
			s.emit(riscv.La{Rd: rd, Label: base.Name})
			break
		}
		s.emit(riscv.La{Rd: riscv.Scratch, Label: base.Name}, riscv.Add{Rd: rd, Rs1: riscv.Scratch, Rs2: rd})
	case *ir.Alloc:
		if !scaled {
			s.addi(rd, riscv.SP, s.frame.MustOffset(src))
			break
		}
		s.addi(riscv.Scratch, riscv.SP, s.frame.MustOffset(src))
		s.emit(riscv.Add{Rd: rd, Rs1: riscv.Scratch, Rs2: rd})
	default:
		rs := s.use(src)
		if scaled {
			s.emit(riscv.Add{Rd: rd, Rs1: rs, Rs2: rd})
		} else {
			s.emit(riscv.Mv{Rd: rd, Rs: rs})
		}
		s.release(src, rs)
	}
	s.define(rd)
}

func (s *selector) VisitBinary(k *ir.Binary) {
	l := s.use(k.LHS)
	r := l
	if k.RHS != k.LHS {
		r = s.use(k.RHS)
	}
	rd := s.pool.Allocate(s.cur)

	switch k.Op {
	case ir.OpAdd:
		s.emit(riscv.Add{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpSub:
		s.emit(riscv.Sub{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpMul:
		s.emit(riscv.Mul{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpDiv:
		s.emit(riscv.Div{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpMod:
		s.emit(riscv.Rem{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpAnd:
		s.emit(riscv.And{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpOr:
		s.emit(riscv.Or{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpXor:
		s.emit(riscv.Xor{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpShl:
		s.emit(riscv.Sll{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpShr:
		s.emit(riscv.Srl{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpSar:
		s.emit(riscv.Sra{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpEq:
		s.emit(riscv.Seqz{Rd: rd, Rs: s.diff(rd, l, r)})
	case ir.OpNotEq:
		s.emit(riscv.Snez{Rd: rd, Rs: s.diff(rd, l, r)})
	case ir.OpGt:
		s.emit(riscv.Sgt{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpLt:
		s.emit(riscv.Slt{Rd: rd, Rs1: l, Rs2: r})
	case ir.OpGe:
		s.emit(riscv.Slt{Rd: rd, Rs1: l, Rs2: r}, riscv.Xori{Rd: rd, Rs: rd, Imm: 1})
	case ir.OpLe:
		s.emit(riscv.Sgt{Rd: rd, Rs1: l, Rs2: r}, riscv.Xori{Rd: rd, Rs: rd, Imm: 1})
	default:
		s.fail("%v: unknown binary operator %v", s.cur, k.Op)
	}

	s.release(k.LHS, l)
	if k.RHS != k.LHS {
		s.release(k.RHS, r)
	}
	s.define(rd)
}

// diff returns a register that is zero iff l == r. Comparing against x0
// needs no xor.
func (s *selector) diff(rd, l, r riscv.Reg) riscv.Reg {
	switch {
	case l == riscv.X0:
		return r
	case r == riscv.X0:
		return l
	}
	s.emit(riscv.Xor{Rd: rd, Rs1: l, Rs2: r})
	return rd
}

func (s *selector) VisitBranch(k *ir.Branch) {
	c := s.use(k.Cond)
	s.emit(
		riscv.Beqz{Rs: c, Label: s.labels[k.False]},
		riscv.J{Label: s.labels[k.True]},
	)
	s.release(k.Cond, c)
}

func (s *selector) VisitJump(k *ir.Jump) {
	s.emit(riscv.J{Label: s.labels[k.Target]})
}

func (s *selector) VisitReturn(k *ir.Return) {
	if k.Val != ir.NoValue {
		if lit, ok := s.fn.Value(k.Val).Kind.(*ir.Integer); ok {
			s.emit(riscv.Li{Rd: riscv.RetReg, Imm: lit.Val})
		} else {
			// The path ends here, so a0 is overwritten without rebinding
			// whatever the pool holds in it for blocks laid out later.
			r := s.use(k.Val)
			if r != riscv.RetReg {
				s.emit(riscv.Mv{Rd: riscv.RetReg, Rs: r})
			}
			s.release(k.Val, r)
		}
	}

	if !s.frame.Leaf {
		s.lw(riscv.RA, riscv.SP, s.frame.RAOffset())
	}
	s.addi(riscv.SP, riscv.SP, s.frame.Size)
	s.emit(riscv.Ret{})
}
