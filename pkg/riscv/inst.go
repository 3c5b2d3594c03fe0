package riscv

import "fmt"

// Inst is one RV32IM instruction or pseudo-instruction. The set is closed:
// only the variants in this file implement it.
type Inst interface {
	fmt.Stringer
	inst()
}

// Control transfer
type (
	Beqz struct {
		Rs    Reg
		Label string
	}
	Bnez struct {
		Rs    Reg
		Label string
	}
	J struct {
		Label string
	}
	Call struct {
		Label string
	}
	Ret struct{}
)

// Memory
type (
	// Lw loads the word at Imm(Rs) into Rd.
	Lw struct {
		Rd  Reg
		Imm int32
		Rs  Reg
	}
	// Sw stores Rs to the word at Imm(Base).
	Sw struct {
		Rs   Reg
		Imm  int32
		Base Reg
	}
)

// Register-register arithmetic, logic and comparison
type (
	Add struct{ Rd, Rs1, Rs2 Reg }
	Sub struct{ Rd, Rs1, Rs2 Reg }
	Mul struct{ Rd, Rs1, Rs2 Reg }
	Div struct{ Rd, Rs1, Rs2 Reg }
	Rem struct{ Rd, Rs1, Rs2 Reg }
	And struct{ Rd, Rs1, Rs2 Reg }
	Or  struct{ Rd, Rs1, Rs2 Reg }
	Xor struct{ Rd, Rs1, Rs2 Reg }
	Sll struct{ Rd, Rs1, Rs2 Reg }
	Srl struct{ Rd, Rs1, Rs2 Reg }
	Sra struct{ Rd, Rs1, Rs2 Reg }
	Slt struct{ Rd, Rs1, Rs2 Reg }
	Sgt struct{ Rd, Rs1, Rs2 Reg }
)

// Register-immediate
type (
	Addi struct {
		Rd, Rs Reg
		Imm    int32
	}
	Xori struct {
		Rd, Rs Reg
		Imm    int32
	}
	Ori struct {
		Rd, Rs Reg
		Imm    int32
	}
	Andi struct {
		Rd, Rs Reg
		Imm    int32
	}
	Slli struct {
		Rd, Rs Reg
		Imm    int32
	}
)

// Unary and pseudo-instructions
type (
	Seqz struct{ Rd, Rs Reg }
	Snez struct{ Rd, Rs Reg }
	Mv   struct{ Rd, Rs Reg }
	Li   struct {
		Rd  Reg
		Imm int32
	}
	La struct {
		Rd    Reg
		Label string
	}
)

func (Beqz) inst() {}
func (Bnez) inst() {}
func (J) inst()    {}
func (Call) inst() {}
func (Ret) inst()  {}
func (Lw) inst()   {}
func (Sw) inst()   {}
func (Add) inst()  {}
func (Sub) inst()  {}
func (Mul) inst()  {}
func (Div) inst()  {}
func (Rem) inst()  {}
func (And) inst()  {}
func (Or) inst()   {}
func (Xor) inst()  {}
func (Sll) inst()  {}
func (Srl) inst()  {}
func (Sra) inst()  {}
func (Slt) inst()  {}
func (Sgt) inst()  {}
func (Addi) inst() {}
func (Xori) inst() {}
func (Ori) inst()  {}
func (Andi) inst() {}
func (Slli) inst() {}
func (Seqz) inst() {}
func (Snez) inst() {}
func (Mv) inst()   {}
func (Li) inst()   {}
func (La) inst()   {}

func (i Beqz) String() string { return fmt.Sprintf("beqz %s, %s", i.Rs, i.Label) }
func (i Bnez) String() string { return fmt.Sprintf("bnez %s, %s", i.Rs, i.Label) }
func (i J) String() string    { return "j " + i.Label }
func (i Call) String() string { return "call " + i.Label }
func (Ret) String() string    { return "ret" }

func (i Lw) String() string { return fmt.Sprintf("lw %s, %d(%s)", i.Rd, i.Imm, i.Rs) }
func (i Sw) String() string { return fmt.Sprintf("sw %s, %d(%s)", i.Rs, i.Imm, i.Base) }

func (i Add) String() string { return rrr("add", i.Rd, i.Rs1, i.Rs2) }
func (i Sub) String() string { return rrr("sub", i.Rd, i.Rs1, i.Rs2) }
func (i Mul) String() string { return rrr("mul", i.Rd, i.Rs1, i.Rs2) }
func (i Div) String() string { return rrr("div", i.Rd, i.Rs1, i.Rs2) }
func (i Rem) String() string { return rrr("rem", i.Rd, i.Rs1, i.Rs2) }
func (i And) String() string { return rrr("and", i.Rd, i.Rs1, i.Rs2) }
func (i Or) String() string  { return rrr("or", i.Rd, i.Rs1, i.Rs2) }
func (i Xor) String() string { return rrr("xor", i.Rd, i.Rs1, i.Rs2) }
func (i Sll) String() string { return rrr("sll", i.Rd, i.Rs1, i.Rs2) }
func (i Srl) String() string { return rrr("srl", i.Rd, i.Rs1, i.Rs2) }
func (i Sra) String() string { return rrr("sra", i.Rd, i.Rs1, i.Rs2) }
func (i Slt) String() string { return rrr("slt", i.Rd, i.Rs1, i.Rs2) }
func (i Sgt) String() string { return rrr("sgt", i.Rd, i.Rs1, i.Rs2) }

func (i Addi) String() string { return rri("addi", i.Rd, i.Rs, i.Imm) }
func (i Xori) String() string { return rri("xori", i.Rd, i.Rs, i.Imm) }
func (i Ori) String() string  { return rri("ori", i.Rd, i.Rs, i.Imm) }
func (i Andi) String() string { return rri("andi", i.Rd, i.Rs, i.Imm) }
func (i Slli) String() string { return rri("slli", i.Rd, i.Rs, i.Imm) }

func (i Seqz) String() string { return fmt.Sprintf("seqz %s, %s", i.Rd, i.Rs) }
func (i Snez) String() string { return fmt.Sprintf("snez %s, %s", i.Rd, i.Rs) }
func (i Mv) String() string   { return fmt.Sprintf("mv %s, %s", i.Rd, i.Rs) }
func (i Li) String() string   { return fmt.Sprintf("li %s, %d", i.Rd, i.Imm) }
func (i La) String() string   { return fmt.Sprintf("la %s, %s", i.Rd, i.Label) }

func rrr(op string, rd, rs1, rs2 Reg) string {
	return fmt.Sprintf("%s %s, %s, %s", op, rd, rs1, rs2)
}

func rri(op string, rd, rs Reg, imm int32) string {
	return fmt.Sprintf("%s %s, %s, %d", op, rd, rs, imm)
}
