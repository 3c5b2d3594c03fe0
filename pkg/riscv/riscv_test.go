package riscv

import (
	"errors"
	"strings"
	"testing"
)

func TestRegNames(t *testing.T) {
	tests := []struct {
		reg  Reg
		name string
	}{
		{X0, "x0"}, {RA, "ra"}, {SP, "sp"}, {T0, "t0"}, {T2, "t2"},
		{FP, "fp"}, {S1, "s1"}, {A0, "a0"}, {A7, "a7"}, {S2, "s2"},
		{S11, "s11"}, {T3, "t3"}, {T6, "t6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reg.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if r, ok := ParseReg(tt.name); !ok || r != tt.reg {
				t.Errorf("ParseReg(%q) = %v, %v", tt.name, r, ok)
			}
		})
	}

	if r, ok := ParseReg("zero"); !ok || r != X0 {
		t.Error("zero alias not accepted")
	}
	if r, ok := ParseReg("s0"); !ok || r != FP {
		t.Error("s0 alias not accepted")
	}
	if _, ok := ParseReg("x32"); ok {
		t.Error("x32 accepted")
	}
	if Reg(NumRegs).String() != "?" {
		t.Error("out-of-range register has a name")
	}
}

func TestIsImm12(t *testing.T) {
	tests := []struct {
		imm  int32
		want bool
	}{
		{0, true}, {2047, true}, {-2048, true}, {2048, false}, {-2049, false}, {4096, false},
	}
	for _, tt := range tests {
		if got := IsImm12(tt.imm); got != tt.want {
			t.Errorf("IsImm12(%d) = %v, want %v", tt.imm, got, tt.want)
		}
	}
}

func TestInstText(t *testing.T) {
	tests := []struct {
		inst Inst
		want string
	}{
		{Beqz{Rs: T1, Label: ".Lelse"}, "beqz t1, .Lelse"},
		{Bnez{Rs: A0, Label: ".Lloop"}, "bnez a0, .Lloop"},
		{J{Label: ".Lend"}, "j .Lend"},
		{Call{Label: "putint"}, "call putint"},
		{Ret{}, "ret"},
		{Lw{Rd: T1, Imm: -8, Rs: SP}, "lw t1, -8(sp)"},
		{Sw{Rs: RA, Imm: 12, Base: SP}, "sw ra, 12(sp)"},
		{Add{Rd: T3, Rs1: T1, Rs2: T2}, "add t3, t1, t2"},
		{Sub{Rd: T1, Rs1: X0, Rs2: A0}, "sub t1, x0, a0"},
		{Sgt{Rd: T1, Rs1: A0, Rs2: A1}, "sgt t1, a0, a1"},
		{Sra{Rd: T1, Rs1: A0, Rs2: A1}, "sra t1, a0, a1"},
		{Addi{Rd: SP, Rs: SP, Imm: -16}, "addi sp, sp, -16"},
		{Xori{Rd: T1, Rs: T1, Imm: 1}, "xori t1, t1, 1"},
		{Seqz{Rd: T1, Rs: T1}, "seqz t1, t1"},
		{Snez{Rd: T1, Rs: A0}, "snez t1, a0"},
		{Mv{Rd: A0, Rs: T1}, "mv a0, t1"},
		{Li{Rd: T0, Imm: -2416}, "li t0, -2416"},
		{La{Rd: T1, Label: "g"}, "la t1, g"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.inst.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmit(t *testing.T) {
	p := NewProgram()
	p.AddGlobal("x", []MemFill{Word(1), Word(-2), Zero(8)})

	f := p.AddFunc("main")
	entry := f.AddBlock("main")
	entry.Push(Addi{Rd: SP, Rs: SP, Imm: -16}, J{Label: ".Lend"})
	end := f.AddBlock(".Lend")
	end.Push(Li{Rd: A0, Imm: 0}, Addi{Rd: SP, Rs: SP, Imm: 16}, Ret{})

	want := `    .data
    .globl x
x:
    .word 1
    .word -2
    .zero 8

    .text
    .globl main
main:
    addi sp, sp, -16
    j .Lend
.Lend:
    li a0, 0
    addi sp, sp, 16
    ret

`
	if got := Text(p); got != want {
		t.Errorf("Text() =\n%s\nwant:\n%s", got, want)
	}

	if n := f.InstCount(); n != 5 {
		t.Errorf("InstCount = %d, want 5", n)
	}
	if insts := f.Insts(); len(insts) != 5 || insts[4] != (Ret{}) {
		t.Errorf("Insts = %v", insts)
	}
	if p.Func("main") != f || p.Func("other") != nil {
		t.Error("Func lookup failed")
	}
}

func TestEmitUnlabeledBlock(t *testing.T) {
	p := NewProgram()
	f := p.AddFunc("f")
	f.AddBlock("f").Push(Ret{})
	f.AddBlock("").Push(Ret{})

	got := Text(p)
	if strings.Count(got, "ret") != 2 || strings.Contains(got, "\n:\n") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(b []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestEmitWriteError(t *testing.T) {
	p := NewProgram()
	p.AddFunc("f").AddBlock("f").Push(Ret{})

	w := &failingWriter{}
	if err := Emit(w, p); err == nil || err.Error() != "disk full" {
		t.Errorf("Emit error = %v, want disk full", err)
	}
	if w.n != 1 {
		t.Errorf("writes after the first failure: %d", w.n)
	}
}
