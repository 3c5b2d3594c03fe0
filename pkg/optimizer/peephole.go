// Package optimizer - Peephole optimization pass
// Recognizes and optimizes common instruction patterns
package optimizer

import (
	"math/bits"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// PeepholeOptimize rewrites one block's instructions and reports how many
// patterns fired.
func PeepholeOptimize(insts []riscv.Inst) ([]riscv.Inst, int) {
	if len(insts) == 0 {
		return insts, 0
	}

	result := make([]riscv.Inst, 0, len(insts))
	fired := 0
	i := 0

	for i < len(insts) {
		// Try two-instruction patterns first
		if i+1 < len(insts) {
			if optimized, ok := tryTwoInstPattern(insts[i], insts[i+1]); ok {
				result = append(result, optimized...)
				fired++
				i += 2
				continue
			}
		}

		if optimized, ok := trySingleInstPattern(insts[i]); ok {
			result = append(result, optimized...)
			fired++
			i++
			continue
		}

		result = append(result, insts[i])
		i++
	}

	return result, fired
}

// move is `mv rd, rs`, or nothing when the registers are the same.
func move(rd, rs riscv.Reg) []riscv.Inst {
	if rd == rs {
		return []riscv.Inst{}
	}
	return []riscv.Inst{riscv.Mv{Rd: rd, Rs: rs}}
}

// trySingleInstPattern simplifies an instruction with a zero operand.
func trySingleInstPattern(inst riscv.Inst) ([]riscv.Inst, bool) {
	const zero = riscv.X0

	switch in := inst.(type) {
	case riscv.Mv:
		// Pattern: mv a, a  =>  (nothing)
		if in.Rd == in.Rs {
			logger.Debug("Peephole: eliminated self move")
			return []riscv.Inst{}, true
		}

	case riscv.Addi:
		// Pattern: addi a, b, 0  =>  mv a, b
		if in.Imm == 0 {
			return move(in.Rd, in.Rs), true
		}
	case riscv.Ori:
		if in.Imm == 0 {
			return move(in.Rd, in.Rs), true
		}
	case riscv.Xori:
		if in.Imm == 0 {
			return move(in.Rd, in.Rs), true
		}
	case riscv.Slli:
		if in.Imm == 0 {
			return move(in.Rd, in.Rs), true
		}

	case riscv.Add:
		// Pattern: add a, b, x0  =>  mv a, b
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
		if in.Rs1 == zero {
			return move(in.Rd, in.Rs2), true
		}
	case riscv.Or:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
		if in.Rs1 == zero {
			return move(in.Rd, in.Rs2), true
		}
	case riscv.Xor:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
		if in.Rs1 == zero {
			return move(in.Rd, in.Rs2), true
		}
	case riscv.Sub:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
	case riscv.Sll:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
	case riscv.Srl:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}
	case riscv.Sra:
		if in.Rs2 == zero {
			return move(in.Rd, in.Rs1), true
		}

	case riscv.Mul:
		// Pattern: mul a, b, x0  =>  li a, 0
		if in.Rs1 == zero || in.Rs2 == zero {
			logger.Debug("Peephole: eliminated multiply-by-zero")
			return []riscv.Inst{riscv.Li{Rd: in.Rd, Imm: 0}}, true
		}
	case riscv.And:
		if in.Rs1 == zero || in.Rs2 == zero {
			logger.Debug("Peephole: eliminated and-with-zero")
			return []riscv.Inst{riscv.Li{Rd: in.Rd, Imm: 0}}, true
		}
	}

	return nil, false
}

// tryTwoInstPattern tries to optimize a pair of adjacent instructions
func tryTwoInstPattern(inst1, inst2 riscv.Inst) ([]riscv.Inst, bool) {
	// Pattern: li t0, 2^k; mul a, b, t0  =>  slli a, b, k
	if li, ok := inst1.(riscv.Li); ok && li.Rd == riscv.Scratch {
		if mul, ok := inst2.(riscv.Mul); ok && mul.Rs2 == riscv.Scratch && mul.Rs1 != riscv.Scratch {
			switch {
			case li.Imm == 0:
				return []riscv.Inst{riscv.Li{Rd: mul.Rd, Imm: 0}}, true
			case li.Imm == 1:
				logger.Debug("Peephole: eliminated multiply-by-one")
				return move(mul.Rd, mul.Rs1), true
			case isPowerOfTwo(li.Imm):
				shift := log2(li.Imm)
				logger.Debug("Peephole: converted multiply to shift", "value", li.Imm, "shift", shift)
				return []riscv.Inst{riscv.Slli{Rd: mul.Rd, Rs: mul.Rs1, Imm: shift}}, true
			}
		}
	}

	// Pattern: store followed by load of the same location
	if sw, ok := inst1.(riscv.Sw); ok {
		if lw, ok := inst2.(riscv.Lw); ok && lw.Rs == sw.Base && lw.Imm == sw.Imm {
			logger.Debug("Peephole: forwarded store to load")
			return append([]riscv.Inst{sw}, move(lw.Rd, sw.Rs)...), true
		}
	}

	// Pattern: load followed by a store of the loaded value back to the same location
	if lw, ok := inst1.(riscv.Lw); ok && lw.Rd != lw.Rs {
		if sw, ok := inst2.(riscv.Sw); ok && sw.Rs == lw.Rd && sw.Base == lw.Rs && sw.Imm == lw.Imm {
			logger.Debug("Peephole: eliminated redundant store")
			return []riscv.Inst{lw}, true
		}
	}

	// Pattern: mv a, b; mv b, a  =>  mv a, b
	if m1, ok := inst1.(riscv.Mv); ok {
		if m2, ok := inst2.(riscv.Mv); ok && m2.Rd == m1.Rs && m2.Rs == m1.Rd {
			logger.Debug("Peephole: eliminated move back")
			return []riscv.Inst{m1}, true
		}
	}

	return nil, false
}

// isPowerOfTwo checks if n is a power of 2
func isPowerOfTwo(n int32) bool {
	return n > 0 && (n&(n-1)) == 0
}

// log2 returns log2 of n (assumes n is power of 2)
func log2(n int32) int32 {
	return int32(bits.TrailingZeros32(uint32(n)))
}
