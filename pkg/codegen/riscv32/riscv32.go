// Package riscv32 implements RISC-V 32-bit (RV32IM) code generation.
//
// Design: one linear pass per function in block layout order. The frame is
// laid out up front, registers are bound when a value is produced and freed
// when its last user consumes it, and there is no spilling: every live value
// that crosses a call is saved and restored by the caller around it.
package riscv32

import (
	"fmt"
	"io"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/codegen/regalloc"
	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
	"github.com/GriffinCanCode/sysy-compiler/pkg/optimizer"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// Generator generates RISC-V 32-bit assembly
type Generator struct {
	w        io.Writer
	pool     *regalloc.Pool
	labels   map[string]bool // block labels issued in this compilation
	optimize bool
}

func NewGenerator(w io.Writer) *Generator {
	return &Generator{
		w:    w,
		pool: regalloc.New(regalloc.DefaultConfig()),
	}
}

// SetOptimize enables the peephole passes between selection and emission.
func (g *Generator) SetOptimize(on bool) {
	g.optimize = on
}

// Build lowers prog into a fresh target program.
func (g *Generator) Build(prog *ir.Program) (*riscv.Program, error) {
	logger.Debug("Generating riscv32 assembly", "functions", len(prog.Functions()), "globals", len(prog.Globals()))

	out := riscv.NewProgram()
	g.labels = make(map[string]bool)

	for _, v := range prog.Globals() {
		if err := g.buildGlobal(out, prog, v); err != nil {
			return nil, err
		}
	}

	for _, fn := range prog.Functions() {
		if fn.IsDecl() {
			continue
		}
		if err := g.buildFunction(out, fn); err != nil {
			logger.Error("Failed to generate function", "arch", "riscv32", "name", fn.Name, "error", err)
			return nil, errors.Wrap(err, "func %v", fn.Name)
		}
	}

	if g.optimize {
		optimizer.Optimize(out)
	}

	logger.Info("riscv32 code generation complete", "functions", len(out.Funcs))
	return out, nil
}

// Generate emits assembly for prog to the generator's writer. Nothing is
// written if lowering fails.
func (g *Generator) Generate(prog *ir.Program) error {
	out, err := g.Build(prog)
	if err != nil {
		return err
	}
	return riscv.Emit(g.w, out)
}

// Render lowers prog and returns the assembly text instead of writing it.
func (g *Generator) Render(prog *ir.Program) (string, error) {
	out, err := g.Build(prog)
	if err != nil {
		return "", err
	}
	return riscv.Text(out), nil
}

// GenerateWithValidation generates and validates assembly
func (g *Generator) GenerateWithValidation(prog *ir.Program) (string, error) {
	assembly, err := g.Render(prog)
	if err != nil {
		return "", errors.Wrap(err, "generation failed")
	}

	if err := ValidateProgram(assembly); err != nil {
		logger.Error("Assembly validation failed", "error", err)
		return assembly, errors.Wrap(err, "validation failed")
	}

	logger.Info("Assembly generated and validated successfully")
	return assembly, nil
}

// Compile lowers prog and returns the assembly text.
func Compile(prog *ir.Program) (string, error) {
	return NewGenerator(nil).Render(prog)
}

// buildGlobal flattens a global's initializer into data directives.
func (g *Generator) buildGlobal(out *riscv.Program, prog *ir.Program, v ir.Value) error {
	data := prog.Value(v)
	alloc, ok := data.Kind.(*ir.GlobalAlloc)
	if !ok {
		return errors.New("global %v: expected global alloc, got %T", v, data.Kind)
	}

	var init []riscv.MemFill
	var flatten func(ir.Value) error
	flatten = func(v ir.Value) error {
		d := prog.Value(v)
		switch k := d.Kind.(type) {
		case *ir.Integer:
			init = append(init, riscv.Word(k.Val))
		case *ir.ZeroInit:
			init = append(init, riscv.Zero(d.Type.Size()))
		case *ir.Aggregate:
			for _, e := range k.Elems {
				if err := flatten(e); err != nil {
					return err
				}
			}
		default:
			return errors.New("global %s: %T is not an initializer", data.Name, d.Kind)
		}
		return nil
	}
	if err := flatten(alloc.Init); err != nil {
		return err
	}

	out.AddGlobal(data.Name, init)
	return nil
}

// buildFunction lowers one defined function.
func (g *Generator) buildFunction(out *riscv.Program, fn *ir.Function) error {
	if fn.Entry() == nil {
		return errors.New("function has no entry block")
	}

	g.pool.Reset()
	frame := AnalyzeFrame(fn)
	logger.LogFrame(fn.Name, frame.Size, frame.Leaf)

	s := &selector{
		fn:     fn,
		pool:   g.pool,
		frame:  frame,
		out:    out.AddFunc(fn.Name),
		labels: g.blockLabels(fn),
		uses:   make(map[ir.Value]int),
		staged: make(map[ir.Value]bool),
	}
	if err := s.run(); err != nil {
		return err
	}

	logger.LogCodeGen("riscv32", fn.Name, s.out.InstCount())
	return nil
}

// blockLabels names every block of fn. The entry block takes the function's
// name; the rest get local labels unique across the compilation.
func (g *Generator) blockLabels(fn *ir.Function) map[*ir.BasicBlock]string {
	labels := make(map[*ir.BasicBlock]string, len(fn.Blocks()))
	for i, bb := range fn.Blocks() {
		if i == 0 {
			labels[bb] = fn.Name
			continue
		}
		base := ".L" + bb.Name
		if bb.Name == "" {
			base = fmt.Sprintf(".L%s_%d", fn.Name, i)
		}
		label := base
		for n := 1; g.labels[label]; n++ {
			label = fmt.Sprintf("%s_%d", base, n)
		}
		g.labels[label] = true
		labels[bb] = label
	}
	return labels
}
