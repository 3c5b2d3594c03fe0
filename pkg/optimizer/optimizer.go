// Package optimizer - Assembly-level optimizations
// Design: local rewrites over the selected RISC-V program. No pass looks
// across a label, and the scratch register is assumed dead after the
// instruction that consumes it.
package optimizer

import (
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// Stats counts the rewrites made by Optimize.
type Stats struct {
	Peephole    int // instruction patterns rewritten
	Fallthrough int // jumps to the next block removed
}

// Optimize applies all passes to p in place.
func Optimize(p *riscv.Program) Stats {
	logger.Debug("Running optimization passes", "functions", len(p.Funcs))

	var st Stats
	for _, f := range p.Funcs {
		for _, b := range f.Blocks {
			var n int
			b.Insts, n = PeepholeOptimize(b.Insts)
			st.Peephole += n
		}
		st.Fallthrough += DropFallthroughJumps(f)
	}

	logger.Info("Optimization complete", "peephole", st.Peephole, "fallthrough", st.Fallthrough)
	return st
}

// DropFallthroughJumps removes a block's trailing `j L` when L is the label
// of the block laid out right after it.
func DropFallthroughJumps(f *riscv.Func) int {
	removed := 0
	for i := 0; i+1 < len(f.Blocks); i++ {
		b, next := f.Blocks[i], f.Blocks[i+1]
		if len(b.Insts) == 0 || next.Label == "" {
			continue
		}
		if j, ok := b.Insts[len(b.Insts)-1].(riscv.J); ok && j.Label == next.Label {
			b.Insts = b.Insts[:len(b.Insts)-1]
			removed++
			logger.Debug("Removed fallthrough jump", "function", f.Name, "label", j.Label)
		}
	}
	return removed
}
