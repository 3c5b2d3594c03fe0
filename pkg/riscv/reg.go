// Package riscv models the RV32IM target: registers, instructions and the
// in-memory assembly program, plus the text emitter for it.
//
// Design: registers are data (an ordered name table), instructions are a closed
// set of variants, and the program is built by append-only operations.
package riscv

// Reg is a physical integer register, numbered by its hardware index.
type Reg uint8

// NumRegs is the size of the integer register file.
const NumRegs = 32

// Registers in hardware index order.
const (
	X0 Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	FP
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [NumRegs]string{
	"x0", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"fp", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var regIndex = func() map[string]Reg {
	m := make(map[string]Reg, NumRegs+2)
	for i, name := range regNames {
		m[name] = Reg(i)
	}
	// ABI aliases accepted on input only
	m["zero"] = X0
	m["s0"] = FP
	return m
}()

func (r Reg) String() string {
	if int(r) >= NumRegs {
		return "?"
	}
	return regNames[r]
}

// ParseReg returns the register with the given ABI name.
func ParseReg(name string) (Reg, bool) {
	r, ok := regIndex[name]
	return r, ok
}

// RISC-V calling convention (ILP32)
var (
	// Argument registers a0-a7
	ArgRegs = [8]Reg{A0, A1, A2, A3, A4, A5, A6, A7}
	// Return register
	RetReg = A0
)

// Scratch is the register the backend reserves for address and immediate
// materialization and for register exchanges.
const Scratch = T0

// IsImm12 reports whether imm fits a 12-bit signed immediate field.
func IsImm12(imm int32) bool {
	return imm >= -2048 && imm <= 2047
}
