package riscv32

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// VisitCall lowers a call:
//
//  1. sp moves down one word per live register and each live register is
//     saved above the outgoing-argument area;
//  2. arguments past the eighth are stored to the outgoing area, then the
//     first eight are placed in a0-a7;
//  3. call;
//  4. the result, if used, is copied out of a0;
//  5. the saved registers are reloaded and sp moves back.
func (s *selector) VisitCall(k *ir.Call) {
	if k.Callee == nil || s.fn.Program().Function(k.Callee.Name) != k.Callee {
		s.fail("%v: call to a function outside the program", s.cur)
		return
	}

	live := s.pool.Live()
	shift := wordSize * len(live)
	s.addi(riscv.SP, riscv.SP, -shift)
	saved := make(map[riscv.Reg]int, len(live))
	for i, r := range live {
		saved[r] = s.frame.ArgSize + wordSize*i
		s.sw(r, riscv.SP, saved[r])
	}

	// Stack arguments go first: they read live registers directly, and
	// nothing has overwritten an argument register yet.
	for i := maxRegArgs; i < len(k.Args); i++ {
		off := wordSize * (i - maxRegArgs)
		if r, ok := s.pool.RegOf(k.Args[i]); ok {
			s.sw(r, riscv.SP, off)
			continue
		}
		s.marshal(k.Args[i], riscv.Scratch, shift)
		s.sw(riscv.Scratch, riscv.SP, off)
	}

	for i := 0; i < len(k.Args) && i < maxRegArgs; i++ {
		dst := riscv.ArgRegs[i]
		r, ok := s.pool.RegOf(k.Args[i])
		if !ok {
			s.marshal(k.Args[i], dst, shift)
			continue
		}
		// a0..a(i-1) were just overwritten; their values are in the save area.
		if j := argIndex(r); j >= 0 && j < i {
			s.lw(dst, riscv.SP, saved[r])
		} else if r != dst {
			s.emit(riscv.Mv{Rd: dst, Rs: r})
		}
	}

	s.emit(riscv.Call{Label: k.Callee.Name})

	used := s.fn.Value(s.cur).IsUsed()
	var rd riscv.Reg
	if used {
		rd = s.pool.Allocate(s.cur)
		s.emit(riscv.Mv{Rd: rd, Rs: riscv.RetReg})
	}

	for _, r := range live {
		s.lw(r, riscv.SP, saved[r])
	}
	s.addi(riscv.SP, riscv.SP, shift)

	released := make(map[ir.Value]bool, len(k.Args))
	for _, a := range k.Args {
		if released[a] || s.rematerialized(a) {
			continue
		}
		released[a] = true
		if r, ok := s.pool.RegOf(a); ok {
			s.release(a, r)
		}
	}

	if used {
		s.define(rd)
	}
}

// marshal places an argument that is not held in a register into dst. All
// sp-relative offsets are corrected by shift.
func (s *selector) marshal(v ir.Value, dst riscv.Reg, shift int) {
	data := s.fn.Value(v)
	switch k := data.Kind.(type) {
	case *ir.Integer:
		s.emit(riscv.Li{Rd: dst, Imm: k.Val})
	case *ir.Alloc:
		s.addi(dst, riscv.SP, s.frame.MustOffset(v)+shift)
	case *ir.GlobalAlloc:
		s.emit(riscv.La{Rd: dst, Label: data.Name})
	case *ir.FuncArgRef:
		if k.Index < maxRegArgs {
			panic(fmt.Sprintf("riscv32: parameter %d passed on while not in a register", k.Index))
		}
		s.lw(dst, riscv.SP, s.stackParamOffset(k.Index)+shift)
	default:
		if !s.staged[v] {
			panic(fmt.Sprintf("riscv32: argument %v (%s) is neither staged nor live", v, data.Name))
		}
		s.lw(dst, riscv.SP, s.frame.MustOffset(v)+shift)
	}
}

func argIndex(r riscv.Reg) int {
	for i, a := range riscv.ArgRegs {
		if a == r {
			return i
		}
	}
	return -1
}
