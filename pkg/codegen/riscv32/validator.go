// Package riscv32 - Assembly validation and correctness verification
package riscv32

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// ValidationError represents an assembly validation error
type ValidationError struct {
	Line    int
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s\n  %s", e.Line, e.Message, e.Code)
}

// Validator validates generated RISC-V assembly
type Validator struct {
	errors []ValidationError
	warns  []ValidationError
	insts  int
}

// NewValidator creates a new assembly validator
func NewValidator() *Validator {
	return &Validator{}
}

// Operand shapes: r register, i immediate, l label, m offset(base).
var shapes = map[string]string{
	"add": "rrr", "sub": "rrr", "mul": "rrr", "div": "rrr", "rem": "rrr",
	"and": "rrr", "or": "rrr", "xor": "rrr",
	"sll": "rrr", "srl": "rrr", "sra": "rrr",
	"slt": "rrr", "sgt": "rrr", "sltu": "rrr", "sgtu": "rrr",
	"addi": "rri", "xori": "rri", "ori": "rri", "andi": "rri",
	"slti": "rri", "slli": "rri", "srli": "rri", "srai": "rri",
	"lw": "rm", "sw": "rm",
	"seqz": "rr", "snez": "rr", "mv": "rr", "neg": "rr", "not": "rr",
	"li": "ri", "la": "rl", "beqz": "rl", "bnez": "rl",
	"beq": "rrl", "bne": "rrl", "blt": "rrl", "bge": "rrl",
	"j": "l", "call": "l",
	"ret": "", "nop": "",
}

// Mnemonics whose first operand is written.
var writesRd = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true, "rem": true,
	"and": true, "or": true, "xor": true, "sll": true, "srl": true, "sra": true,
	"slt": true, "sgt": true, "addi": true, "xori": true, "ori": true, "andi": true,
	"lw": true, "seqz": true, "snez": true, "mv": true, "li": true, "la": true,
}

var (
	memOperand = regexp.MustCompile(`^(-?[0-9]+)\(([a-z0-9]+)\)$`)
	labelName  = regexp.MustCompile(`^[A-Za-z_.$][A-Za-z0-9_.$]*$`)
)

// asmInst is one parsed instruction line.
type asmInst struct {
	line int
	code string
	op   string
	args []string
}

// Validate performs comprehensive validation on assembly code
func (v *Validator) Validate(assembly string) error {
	funcs := v.parse(assembly)

	for _, fn := range funcs {
		for _, in := range fn.insts {
			v.validateOperands(in)
			v.validateInstruction(in)
		}
		v.validateReturnAddress(fn)
		v.validateStackBalance(fn)
		v.detectRedundantMoves(fn)
	}

	if len(v.errors) > 0 {
		return v.formatErrors()
	}

	if len(v.warns) > 0 {
		v.logWarnings()
	}

	return nil
}

// asmFunc is the text of one function: its instructions and, for each,
// whether a local label precedes it.
type asmFunc struct {
	name   string
	insts  []asmInst
	blocks map[int]bool // index of the first instruction after a local label
}

// parse splits the text section into functions and checks line syntax.
func (v *Validator) parse(assembly string) []*asmFunc {
	var funcs []*asmFunc
	var cur *asmFunc
	text := false

	for i, raw := range strings.Split(assembly, "\n") {
		n := i + 1
		line := raw
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			name := strings.TrimSuffix(line, ":")
			if !labelName.MatchString(name) {
				v.addError(n, "invalid label format", raw)
				continue
			}
			if !text {
				continue
			}
			if strings.HasPrefix(name, ".L") {
				if cur == nil {
					v.addError(n, "local label outside a function", raw)
					continue
				}
				cur.blocks[len(cur.insts)] = true
				continue
			}
			cur = &asmFunc{name: name, blocks: make(map[int]bool)}
			funcs = append(funcs, cur)
			continue
		}

		if strings.HasPrefix(line, ".") {
			switch strings.Fields(line)[0] {
			case ".text":
				text = true
			case ".data", ".rodata", ".bss":
				text = false
			}
			continue
		}

		op, rest := line, ""
		if idx := strings.IndexAny(line, " \t"); idx >= 0 {
			op, rest = line[:idx], line[idx+1:]
		}
		in := asmInst{line: n, code: line, op: op}
		if rest = strings.TrimSpace(rest); rest != "" {
			for _, a := range strings.Split(rest, ",") {
				in.args = append(in.args, strings.TrimSpace(a))
			}
		}

		if _, ok := shapes[op]; !ok {
			v.addError(n, fmt.Sprintf("unknown instruction: %s", op), raw)
			continue
		}
		if !text || cur == nil {
			v.addError(n, "instruction outside a function", raw)
			continue
		}
		v.insts++
		cur.insts = append(cur.insts, in)
	}
	return funcs
}

// validateOperands checks operand count and the shape of each operand
func (v *Validator) validateOperands(in asmInst) {
	shape := shapes[in.op]
	if len(in.args) != len(shape) {
		v.addError(in.line, fmt.Sprintf("%s expects %d operands, got %d", in.op, len(shape), len(in.args)), in.code)
		return
	}

	for i, kind := range shape {
		arg := in.args[i]
		switch kind {
		case 'r':
			if _, ok := riscv.ParseReg(arg); !ok {
				v.addError(in.line, fmt.Sprintf("invalid register: %s", arg), in.code)
			}
		case 'i':
			imm, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				v.addError(in.line, fmt.Sprintf("invalid immediate: %s", arg), in.code)
				continue
			}
			if in.op != "li" && !riscv.IsImm12(int32(imm)) {
				v.addError(in.line, fmt.Sprintf("immediate %d out of 12-bit range", imm), in.code)
			}
		case 'l':
			if !labelName.MatchString(arg) {
				v.addError(in.line, fmt.Sprintf("invalid label: %s", arg), in.code)
			}
		case 'm':
			m := memOperand.FindStringSubmatch(arg)
			if m == nil {
				v.addError(in.line, fmt.Sprintf("invalid memory addressing mode: %s", arg), in.code)
				continue
			}
			if _, ok := riscv.ParseReg(m[2]); !ok {
				v.addError(in.line, fmt.Sprintf("invalid base register: %s", m[2]), in.code)
			}
			off, err := strconv.ParseInt(m[1], 10, 32)
			if err != nil || !riscv.IsImm12(int32(off)) {
				v.addError(in.line, fmt.Sprintf("offset %s out of 12-bit range", m[1]), in.code)
			}
		}
	}
}

// validateInstruction checks for invalid instruction combinations
func (v *Validator) validateInstruction(in asmInst) {
	if writesRd[in.op] && len(in.args) > 0 && isZero(in.args[0]) {
		v.addWarn(in.line, "writing to zero register has no effect", in.code)
	}

	if (in.op == "div" || in.op == "rem") && len(in.args) == 3 && isZero(in.args[2]) {
		v.addError(in.line, "division by zero", in.code)
	}
}

// validateReturnAddress checks that a saved ra is reloaded before every ret
func (v *Validator) validateReturnAddress(fn *asmFunc) {
	saved, restored := false, false
	for i, in := range fn.insts {
		if fn.blocks[i] {
			restored = false
		}
		switch {
		case in.op == "sw" && len(in.args) == 2 && in.args[0] == "ra":
			saved = true
		case in.op == "lw" && len(in.args) == 2 && in.args[0] == "ra":
			restored = true
		case in.op == "call" && !saved:
			v.addError(in.line, fmt.Sprintf("call in %s without saving ra", fn.name), in.code)
		case in.op == "ret":
			if saved && !restored {
				v.addError(in.line, fmt.Sprintf("ra not restored before ret in %s", fn.name), in.code)
			}
			restored = false
		}
	}
}

// validateStackBalance checks that sp is back where it started at every ret.
// Every local block starts at the depth the prologue established.
func (v *Validator) validateStackBalance(fn *asmFunc) {
	depth, entry := 0, 0
	prologue := true
	scratch := map[string]int{} // last li into each register

	for i, in := range fn.insts {
		if fn.blocks[i] {
			depth = entry
			prologue = false
		}

		adjusted := false
		switch {
		case in.op == "li" && len(in.args) == 2:
			if imm, err := strconv.Atoi(in.args[1]); err == nil {
				scratch[in.args[0]] = imm
			}
		case in.op == "addi" && len(in.args) == 3 && in.args[0] == "sp" && in.args[1] == "sp":
			if imm, err := strconv.Atoi(in.args[2]); err == nil {
				depth -= imm
				adjusted = true
			}
		case (in.op == "add" || in.op == "sub") && len(in.args) == 3 && in.args[0] == "sp" && in.args[1] == "sp":
			imm, ok := scratch[in.args[2]]
			if !ok {
				v.addWarn(in.line, "sp adjusted by an unknown amount", in.code)
				continue
			}
			if in.op == "add" {
				depth -= imm
			} else {
				depth += imm
			}
			adjusted = true
		case in.op == "ret":
			if depth != 0 {
				v.addError(in.line, fmt.Sprintf("stack imbalance at ret in %s: %d bytes", fn.name, depth), in.code)
			}
			if depth < 0 {
				v.addError(in.line, "stack underflow detected", in.code)
			}
		}

		if prologue && adjusted {
			entry = depth
			prologue = false
		}
		if in.op != "li" && len(in.args) > 0 && writesRd[in.op] {
			delete(scratch, in.args[0])
		}
	}
}

// detectRedundantMoves identifies and warns about redundant move instructions
func (v *Validator) detectRedundantMoves(fn *asmFunc) {
	for i, in := range fn.insts {
		if in.op != "mv" || len(in.args) != 2 {
			continue
		}
		dest, src := in.args[0], in.args[1]

		if dest == src {
			v.addWarn(in.line, fmt.Sprintf("redundant move: source and destination are identical (%s)", src), in.code)
			continue
		}

		if i+1 >= len(fn.insts) || fn.blocks[i+1] {
			continue
		}
		next := fn.insts[i+1]
		if next.code == in.code {
			v.addWarn(next.line, "duplicate move instruction", next.code)
		}
		if (next.op == "mv" || next.op == "li") && len(next.args) > 0 && next.args[0] == dest {
			v.addWarn(in.line, "move immediately overwritten by next instruction", in.code)
		}
	}
}

// Helper functions

func isZero(reg string) bool {
	r, ok := riscv.ParseReg(reg)
	return ok && r == riscv.X0
}

func (v *Validator) addError(line int, msg, code string) {
	v.errors = append(v.errors, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) addWarn(line int, msg, code string) {
	v.warns = append(v.warns, ValidationError{Line: line, Message: msg, Code: code})
}

func (v *Validator) formatErrors() error {
	var sb strings.Builder
	for _, err := range v.errors {
		sb.WriteString("  " + err.Error() + "\n")
	}
	return errors.New("assembly validation failed:\n%s", sb.String())
}

func (v *Validator) logWarnings() {
	for _, warn := range v.warns {
		logger.Warn("Assembly validation warning", "line", warn.Line, "msg", warn.Message)
	}
}

// Warnings returns the warnings found by the last Validate.
func (v *Validator) Warnings() []ValidationError {
	return v.warns
}

// ValidateProgram validates an entire generated program
func ValidateProgram(assembly string) error {
	validator := NewValidator()
	return validator.Validate(assembly)
}

// QuickValidate only checks that every line parses and every operand is well formed.
func QuickValidate(assembly string) bool {
	validator := NewValidator()
	for _, fn := range validator.parse(assembly) {
		for _, in := range fn.insts {
			validator.validateOperands(in)
		}
	}
	return len(validator.errors) == 0
}

// ValidateAndReport validates assembly and returns a detailed report
func ValidateAndReport(assembly string) (bool, string) {
	validator := NewValidator()
	err := validator.Validate(assembly)

	var report strings.Builder
	report.WriteString("=== RISC-V Assembly Validation Report ===\n\n")

	if err != nil {
		report.WriteString(fmt.Sprintf("Status: FAILED\n\nErrors:\n%s\n", err.Error()))
		return false, report.String()
	}

	report.WriteString("Status: PASSED\n\n")

	if len(validator.warns) > 0 {
		report.WriteString("Warnings:\n")
		for _, warn := range validator.warns {
			report.WriteString(fmt.Sprintf("  Line %d: %s\n", warn.Line, warn.Message))
		}
	} else {
		report.WriteString("No warnings.\n")
	}

	report.WriteString("\nStatistics:\n")
	report.WriteString(fmt.Sprintf("  Total lines: %d\n", len(strings.Split(assembly, "\n"))))
	report.WriteString(fmt.Sprintf("  Instructions: %d\n", validator.insts))

	logger.Info("RISC-V assembly validation passed", "instructions", validator.insts, "warnings", len(validator.warns))

	return true, report.String()
}
