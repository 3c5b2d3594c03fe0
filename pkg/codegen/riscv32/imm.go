package riscv32

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// Immediate policy: an offset or immediate outside the 12-bit signed range
// is materialized in the scratch register and added to the base first.

// lw loads rd from off(base).
func (s *selector) lw(rd, base riscv.Reg, off int) {
	imm := int32(off)
	if riscv.IsImm12(imm) {
		s.emit(riscv.Lw{Rd: rd, Imm: imm, Rs: base})
		return
	}
	s.emit(
		riscv.Li{Rd: riscv.Scratch, Imm: imm},
		riscv.Add{Rd: riscv.Scratch, Rs1: base, Rs2: riscv.Scratch},
		riscv.Lw{Rd: rd, Imm: 0, Rs: riscv.Scratch},
	)
}

// sw stores rs to off(base). rs must not be the scratch register when off
// is out of range.
func (s *selector) sw(rs, base riscv.Reg, off int) {
	imm := int32(off)
	if riscv.IsImm12(imm) {
		s.emit(riscv.Sw{Rs: rs, Imm: imm, Base: base})
		return
	}
	if rs == riscv.Scratch {
		panic(fmt.Sprintf("riscv32: sw of scratch register to out-of-range offset %d", off))
	}
	s.emit(
		riscv.Li{Rd: riscv.Scratch, Imm: imm},
		riscv.Add{Rd: riscv.Scratch, Rs1: base, Rs2: riscv.Scratch},
		riscv.Sw{Rs: rs, Imm: 0, Base: riscv.Scratch},
	)
}

// addi sets rd = rs + imm. A zero immediate is a move, or nothing.
func (s *selector) addi(rd, rs riscv.Reg, imm int) {
	if imm == 0 {
		if rd != rs {
			s.emit(riscv.Mv{Rd: rd, Rs: rs})
		}
		return
	}
	if riscv.IsImm12(int32(imm)) {
		s.emit(riscv.Addi{Rd: rd, Rs: rs, Imm: int32(imm)})
		return
	}
	s.emit(
		riscv.Li{Rd: riscv.Scratch, Imm: int32(imm)},
		riscv.Add{Rd: rd, Rs1: rs, Rs2: riscv.Scratch},
	)
}

// muli sets rd = rs * imm.
func (s *selector) muli(rd, rs riscv.Reg, imm int) {
	s.emit(
		riscv.Li{Rd: riscv.Scratch, Imm: int32(imm)},
		riscv.Mul{Rd: rd, Rs1: rs, Rs2: riscv.Scratch},
	)
}
