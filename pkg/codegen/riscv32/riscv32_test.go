// Package riscv32 - Unit tests for RISC-V 32-bit code generation
package riscv32

import (
	"bytes"
	"strings"
	"testing"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/koopa"
)

const runtimeDecls = `
decl @getint(): i32
decl @getch(): i32
decl @getarray(*i32): i32
decl @putint(i32)
decl @putch(i32)
decl @putarray(i32, *i32)
decl @starttime()
decl @stoptime()
`

func compileKoopa(t *testing.T, src string) string {
	t.Helper()
	prog, err := koopa.Parse(runtimeDecls + src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	asm, err := NewGenerator(nil).GenerateWithValidation(prog)
	if err != nil {
		t.Fatalf("generation failed: %v\n%s", err, asm)
	}
	return asm
}

func wantAll(t *testing.T, asm string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(asm, w) {
			t.Errorf("expected %q in:\n%s", w, asm)
		}
	}
}

// binaryFunc builds fun @f(@a: i32, @b: i32): i32 { %0 = op @a, @b; ret %0 }
func binaryFunc(op ir.BinaryOp) *ir.Program {
	prog := ir.NewProgram()
	fn := prog.NewFunction("f", ir.Int32, ir.Int32, ir.Int32)
	b := ir.NewBuilder(fn)
	b.SetBlock(fn.NewBlock("entry"))
	v := b.Binary("0", op, fn.Params[0], fn.Params[1])
	b.Return(v)
	return prog
}

func TestEndToEndMain(t *testing.T) {
	prog := ir.NewProgram()
	fn := prog.NewFunction("main", ir.Int32)
	b := ir.NewBuilder(fn)
	b.SetBlock(fn.NewBlock("entry"))
	v0 := b.Binary("0", ir.OpAdd, b.Integer(1), b.Integer(2))
	v1 := b.Binary("1", ir.OpMul, v0, b.Integer(3))
	b.Return(v1)

	var buf bytes.Buffer
	if err := NewGenerator(&buf).Generate(prog); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := `    .data
    .text
    .globl main
main:
    li t1, 1
    li t2, 2
    add t3, t1, t2
    li t1, 3
    mul t2, t3, t1
    mv a0, t2
    ret

`
	if got := buf.String(); got != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
	if n := strings.Count(buf.String(), ".globl main"); n != 1 {
		t.Errorf(".globl main appears %d times", n)
	}

	if frame := AnalyzeFrame(fn); frame.Size != 0 || !frame.Leaf {
		t.Errorf("frame = %+v, want leaf of size 0", frame)
	}
}

func TestBinaryOperations(t *testing.T) {
	tests := []struct {
		name     string
		op       ir.BinaryOp
		wantInst []string
	}{
		{"add", ir.OpAdd, []string{"add t1, a0, a1"}},
		{"sub", ir.OpSub, []string{"sub t1, a0, a1"}},
		{"mul", ir.OpMul, []string{"mul t1, a0, a1"}},
		{"div", ir.OpDiv, []string{"div t1, a0, a1"}},
		{"mod", ir.OpMod, []string{"rem t1, a0, a1"}},
		{"and", ir.OpAnd, []string{"and t1, a0, a1"}},
		{"or", ir.OpOr, []string{"or t1, a0, a1"}},
		{"xor", ir.OpXor, []string{"xor t1, a0, a1"}},
		{"shl", ir.OpShl, []string{"sll t1, a0, a1"}},
		{"shr", ir.OpShr, []string{"srl t1, a0, a1"}},
		{"sar", ir.OpSar, []string{"sra t1, a0, a1"}},
		{"eq", ir.OpEq, []string{"xor t1, a0, a1", "seqz t1, t1"}},
		{"ne", ir.OpNotEq, []string{"xor t1, a0, a1", "snez t1, t1"}},
		{"gt", ir.OpGt, []string{"sgt t1, a0, a1"}},
		{"lt", ir.OpLt, []string{"slt t1, a0, a1"}},
		{"ge", ir.OpGe, []string{"slt t1, a0, a1", "xori t1, t1, 1"}},
		{"le", ir.OpLe, []string{"sgt t1, a0, a1", "xori t1, t1, 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asm, err := Compile(binaryFunc(tt.op))
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			wantAll(t, asm, tt.wantInst...)
			wantAll(t, asm, "mv a0, t1", "ret")
		})
	}
}

func TestEqZeroElidesXor(t *testing.T) {
	asm := compileKoopa(t, `
fun @f(@a: i32): i32 {
%entry:
  %0 = eq 0, @a
  ret %0
}
`)
	wantAll(t, asm, "seqz t1, a0")
	if strings.Contains(asm, "xor") {
		t.Errorf("xor not elided:\n%s", asm)
	}
	if strings.Contains(asm, "li t") {
		t.Errorf("zero literal materialized:\n%s", asm)
	}
}

func TestZeroLiteralUsesX0(t *testing.T) {
	asm := compileKoopa(t, `
fun @f(@a: i32): i32 {
%entry:
  %0 = sub 0, @a
  ret %0
}
`)
	wantAll(t, asm, "sub t1, x0, a0")
	if strings.Contains(asm, "li") {
		t.Errorf("zero literal materialized:\n%s", asm)
	}
}

func TestLocalsAndArrays(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  @arr = alloc [i32, 4]
  %0 = getelemptr @arr, 2
  store 7, %0
  %1 = getelemptr @arr, 0
  %2 = load %1
  ret %2
}
`)
	wantAll(t, asm,
		"addi sp, sp, -16",
		"li t1, 2\n    li t0, 4\n    mul t2, t1, t0\n    mv t0, sp\n    add t2, t0, t2",
		"li t1, 7\n    sw t1, 0(t2)",
		"mv t1, sp\n    lw t2, 0(t1)",
		"addi sp, sp, 16\n    ret",
	)
}

func TestScalarLocals(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  @x = alloc i32
  @y = alloc i32
  store 5, @y
  %0 = load @y
  store %0, @x
  %1 = load @x
  ret %1
}
`)
	wantAll(t, asm,
		"addi sp, sp, -16",
		"li t1, 5\n    sw t1, 4(sp)",
		"lw t1, 4(sp)\n    sw t1, 0(sp)",
		"lw t1, 0(sp)",
	)
}

func TestGlobals(t *testing.T) {
	asm := compileKoopa(t, `
global @g = alloc i32, 5
global @arr = alloc [i32, 3], {1, 2, 3}
global @z = alloc [[i32, 2], 2], zeroinit
global @m = alloc [[i32, 2], 2], {{1, 2}, zeroinit}

fun @main(): i32 {
%entry:
  %0 = load @g
  store %0, @g
  %1 = getelemptr @arr, 1
  %2 = load %1
  ret %2
}
`)
	wantAll(t, asm,
		"    .data\n    .globl g\ng:\n    .word 5\n\n",
		"arr:\n    .word 1\n    .word 2\n    .word 3\n",
		"z:\n    .zero 16\n",
		"m:\n    .word 1\n    .word 2\n    .zero 8\n",
		"la t1, g\n    lw t1, 0(t1)",
		"la t0, g\n    sw t1, 0(t0)",
		"la t0, arr\n    add t2, t0, t2",
	)
	if strings.Index(asm, ".data") > strings.Index(asm, ".text") {
		t.Error(".data must precede .text")
	}
}

func TestBranchLabels(t *testing.T) {
	asm := compileKoopa(t, `
fun @f(@a: i32): i32 {
%entry:
  br @a, %then, %else
%then:
  ret 1
%else:
  ret 2
}

fun @g(@a: i32): i32 {
%entry:
  jump %then
%then:
  ret @a
}
`)
	wantAll(t, asm,
		"f:\n    beqz a0, .Lelse\n    j .Lthen\n.Lthen:\n    li a0, 1\n    ret\n.Lelse:\n    li a0, 2\n    ret",
		"g:\n    j .Lthen_1\n.Lthen_1:\n    ret",
	)
}

func TestReturnKeepsBindingsForLaterBlocks(t *testing.T) {
	asm := compileKoopa(t, `
fun @g(@a: i32): i32 {
%entry:
  %c = add @a, 1
  br %c, %l, %r
%l:
  ret %c
%r:
  ret @a
}
`)
	wantAll(t, asm,
		"add t2, a0, t1\n    beqz t2, .Lr\n    j .Ll\n",
		".Ll:\n    mv a0, t2\n    ret\n.Lr:\n    ret\n",
	)
	if strings.Contains(asm, "mv t0, a0") {
		t.Errorf("return swapped a0 through the scratch register:\n%s", asm)
	}
}

func TestLeafHasNoReturnAddressSave(t *testing.T) {
	asm := compileKoopa(t, `
fun @f(): i32 {
%entry:
  ret 3
}
`)
	if strings.Contains(asm, "ra") {
		t.Errorf("leaf function touches ra:\n%s", asm)
	}
}

func TestCallSavesReturnAddress(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  call @putint(42)
  ret 0
}
`)
	wantAll(t, asm,
		"main:\n    addi sp, sp, -16\n    sw ra, 12(sp)\n    li a0, 42\n    call putint\n",
		"li a0, 0\n    lw ra, 12(sp)\n    addi sp, sp, 16\n    ret",
	)
}

func TestCallPreservesLiveRegisters(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  %0 = call @getint()
  %1 = call @getint()
  %2 = add %0, %1
  ret %2
}
`)
	wantAll(t, asm,
		"call getint\n    mv t1, a0\n",
		"addi sp, sp, -4\n    sw t1, 0(sp)\n    call getint\n    mv t2, a0\n    lw t1, 0(sp)\n    addi sp, sp, 4\n",
		"add t3, t1, t2",
	)
}

func TestCallStagesSingleUseArguments(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  %0 = add 1, 2
  call @putint(%0)
  ret 0
}
`)
	wantAll(t, asm,
		"add t3, t1, t2\n    sw t3, 0(sp)\n",
		"lw a0, 0(sp)\n    call putint",
	)
}

func TestCallLiveParameterAcrossCall(t *testing.T) {
	asm := compileKoopa(t, `
fun @f(@a: i32): i32 {
%entry:
  call @putint(1)
  ret @a
}
`)
	wantAll(t, asm,
		"addi sp, sp, -4\n    sw a0, 0(sp)\n    li a0, 1\n    call putint\n    lw a0, 0(sp)\n    addi sp, sp, 4\n",
	)
}

func TestCallSwappedArguments(t *testing.T) {
	asm := compileKoopa(t, `
decl @g(i32, i32): i32

fun @f(@a: i32, @b: i32): i32 {
%entry:
  %0 = call @g(@b, @a)
  ret %0
}
`)
	wantAll(t, asm,
		"addi sp, sp, -8\n    sw a0, 0(sp)\n    sw a1, 4(sp)\n",
		"mv a0, a1\n    lw a1, 0(sp)\n    call g\n    mv t1, a0\n    lw a0, 0(sp)\n    lw a1, 4(sp)\n    addi sp, sp, 8\n",
		"mv a0, t1\n    lw ra, 12(sp)",
	)
}

func TestCallStackArguments(t *testing.T) {
	asm := compileKoopa(t, `
decl @h(i32, i32, i32, i32, i32, i32, i32, i32, i32, i32): i32

fun @main(): i32 {
%entry:
  %0 = call @h(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
  ret %0
}
`)
	wantAll(t, asm,
		"li t0, 9\n    sw t0, 0(sp)\n    li t0, 10\n    sw t0, 4(sp)\n",
		"li a0, 1\n", "li a7, 8\n    call h",
		"sw ra, 12(sp)",
	)
}

func TestStackParameters(t *testing.T) {
	asm := compileKoopa(t, `
fun @g(@p0: i32, @p1: i32, @p2: i32, @p3: i32, @p4: i32, @p5: i32, @p6: i32, @p7: i32, @p8: i32, @p9: i32): i32 {
%entry:
  %0 = add @p8, @p9
  ret %0
}
`)
	wantAll(t, asm, "lw t1, 0(sp)\n    lw t2, 4(sp)\n    add t3, t1, t2\n    mv a0, t3")
}

func TestLargeFrameImmediates(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  @big = alloc [i32, 600]
  @x = alloc i32
  store 5, @x
  %0 = load @x
  ret %0
}
`)
	wantAll(t, asm,
		"li t0, -2416\n    add sp, sp, t0",
		"li t1, 5\n    li t0, 2400\n    add t0, sp, t0\n    sw t1, 0(t0)",
		"li t0, 2400\n    add t0, sp, t0\n    lw t1, 0(t0)",
		"li t0, 2416\n    add sp, sp, t0\n    ret",
	)
	if strings.Contains(asm, "2400(sp)") {
		t.Errorf("out-of-range offset used directly:\n%s", asm)
	}
}

func TestPointerParameter(t *testing.T) {
	asm := compileKoopa(t, `
fun @sum(@a: *i32, @n: i32): i32 {
%entry:
  %0 = getptr @a, @n
  %1 = load %0
  ret %1
}

fun @main(): i32 {
%entry:
  @arr = alloc [i32, 10]
  %0 = getelemptr @arr, 0
  %1 = call @sum(%0, 3)
  ret %1
}
`)
	wantAll(t, asm,
		"li t0, 4\n    mul t1, a1, t0\n    add t1, a0, t1\n    lw t2, 0(t1)",
		"mv t1, sp\n    sw t1, 40(sp)",
		"lw a0, 40(sp)\n    li a1, 3\n    call sum",
	)
}

func TestLoopProgramValidates(t *testing.T) {
	asm := compileKoopa(t, `
global @n = alloc i32, 10

fun @main(): i32 {
%entry:
  @i = alloc i32
  @s = alloc i32
  store 0, @i
  store 0, @s
  jump %cond
%cond:
  %0 = load @i
  %1 = load @n
  %2 = lt %0, %1
  br %2, %body, %end
%body:
  %3 = load @s
  %4 = load @i
  %5 = add %3, %4
  store %5, @s
  %6 = add %4, 1
  store %6, @i
  jump %cond
%end:
  %7 = load @s
  call @putint(%7)
  ret 0
}
`)
	wantAll(t, asm, ".Lcond:", ".Lbody:", ".Lend:", "beqz", "j .Lcond", "call putint")
}

func TestVoidFunction(t *testing.T) {
	asm := compileKoopa(t, `
fun @f() {
%entry:
  ret
}

fun @main(): i32 {
%entry:
  call @f()
  ret 0
}
`)
	wantAll(t, asm, "f:\n    ret\n", "call f")
}

func TestDeclarationsAreSkipped(t *testing.T) {
	asm := compileKoopa(t, `
fun @main(): i32 {
%entry:
  ret 0
}
`)
	if strings.Contains(asm, "getint") {
		t.Errorf("declaration emitted:\n%s", asm)
	}
}

func TestCallOutsideProgram(t *testing.T) {
	other := ir.NewProgram()
	ext := other.NewFunction("ext", ir.Int32)

	prog := ir.NewProgram()
	fn := prog.NewFunction("main", ir.Int32)
	b := ir.NewBuilder(fn)
	b.SetBlock(fn.NewBlock("entry"))
	v := b.Call("0", ext)
	b.Return(v)

	var buf bytes.Buffer
	err := NewGenerator(&buf).Generate(prog)
	if err == nil || !strings.Contains(err.Error(), "outside the program") {
		t.Fatalf("expected error for foreign callee, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("partial output written:\n%s", buf.String())
	}
}

func TestGeneratorIsReusable(t *testing.T) {
	prog := binaryFunc(ir.OpAdd)
	first, err := Compile(prog)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compile(prog)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("output differs between runs:\n%s\n---\n%s", first, second)
	}
}

func TestOptimizedOutput(t *testing.T) {
	prog, err := koopa.Parse(runtimeDecls + `
fun @main(): i32 {
%entry:
  @arr = alloc [i32, 4]
  %0 = getelemptr @arr, 2
  store 7, %0
  jump %next
%next:
  %1 = getelemptr @arr, 2
  %2 = load %1
  ret %2
}
`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	g := NewGenerator(nil)
	g.SetOptimize(true)
	asm, err := g.GenerateWithValidation(prog)
	if err != nil {
		t.Fatalf("optimized output failed validation: %v\n%s", err, asm)
	}
	wantAll(t, asm, "li t1, 2\n    slli t2, t1, 2\n", "sw t1, 0(t2)\n.Lnext:\n")
	if strings.Contains(asm, "j .Lnext") {
		t.Errorf("fallthrough jump kept:\n%s", asm)
	}
	if strings.Contains(asm, "mul") {
		t.Errorf("multiply by 4 not strength-reduced:\n%s", asm)
	}
}
