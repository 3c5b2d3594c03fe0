// Package regalloc implements the register pool used during instruction selection.
//
// Design: no liveness analysis and no spilling. The selector binds a register
// when a value is produced and frees it when the value is consumed, so the pool
// only has to keep the register<->value mapping a partial bijection. Running out
// of registers means the selector leaked a binding.
package regalloc

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
	"github.com/GriffinCanCode/sysy-compiler/pkg/riscv"
)

// Config holds register pool configuration for an architecture
type Config struct {
	Available []riscv.Reg // Handed out by Allocate, in priority order
	Requested []riscv.Reg // Bindable only when asked for by name
	Scratch   riscv.Reg   // Never bound; used to exchange two registers
}

// DefaultConfig is the RV32 configuration: temporaries, then saved registers;
// argument registers only on request; t0 as scratch.
func DefaultConfig() Config {
	avail := []riscv.Reg{riscv.T1, riscv.T2, riscv.T3, riscv.T4, riscv.T5, riscv.T6}
	avail = append(avail, riscv.S1, riscv.S2, riscv.S3, riscv.S4, riscv.S5, riscv.S6,
		riscv.S7, riscv.S8, riscv.S9, riscv.S10, riscv.S11)
	return Config{
		Available: avail,
		Requested: riscv.ArgRegs[:],
		Scratch:   riscv.Scratch,
	}
}

// Pool tracks which registers hold which live values.
type Pool struct {
	cfg    Config
	usable [riscv.NumRegs]bool
	bound  [riscv.NumRegs]ir.Value
	regOf  map[ir.Value]riscv.Reg
}

// New creates an empty pool.
func New(cfg Config) *Pool {
	p := &Pool{cfg: cfg}
	for _, r := range cfg.Available {
		p.usable[r] = true
	}
	for _, r := range cfg.Requested {
		p.usable[r] = true
	}
	p.usable[cfg.Scratch] = false
	p.usable[riscv.X0] = false
	p.Reset()
	return p
}

// Reset frees every register.
func (p *Pool) Reset() {
	p.bound = [riscv.NumRegs]ir.Value{}
	p.regOf = make(map[ir.Value]riscv.Reg)
}

// Allocate binds v to the first free register in priority order.
func (p *Pool) Allocate(v ir.Value) riscv.Reg {
	p.checkUnbound(v)
	for _, r := range p.cfg.Available {
		if p.bound[r] == ir.NoValue {
			p.bind(v, r)
			return r
		}
	}
	panic(fmt.Sprintf("regalloc: all registers allocated (binding %v)", v))
}

// AllocateIn binds v to r. The zero register is returned unbound. Asking for
// a register that holds another value is a caller bug: move that value first.
func (p *Pool) AllocateIn(v ir.Value, r riscv.Reg) riscv.Reg {
	if r == riscv.X0 {
		return r
	}
	p.checkUnbound(v)
	if !p.usable[r] {
		panic(fmt.Sprintf("regalloc: register %s is reserved", r))
	}
	if other := p.bound[r]; other != ir.NoValue {
		panic(fmt.Sprintf("regalloc: register %s already holds %v", r, other))
	}
	p.bind(v, r)
	return r
}

// Move rebinds v to dst and returns the instructions that move the data.
// If dst holds another live value the two are exchanged through scratch.
func (p *Pool) Move(v ir.Value, dst riscv.Reg) []riscv.Inst {
	src, ok := p.regOf[v]
	if !ok {
		panic(fmt.Sprintf("regalloc: move of unbound value %v", v))
	}
	if src == dst {
		return nil
	}
	if !p.usable[dst] {
		panic(fmt.Sprintf("regalloc: register %s is reserved", dst))
	}
	if p.bound[dst] == ir.NoValue {
		p.bound[src] = ir.NoValue
		p.bind(v, dst)
		return []riscv.Inst{riscv.Mv{Rd: dst, Rs: src}}
	}
	return p.Swap(src, dst)
}

// Swap exchanges the contents of a and b, preserving both values, and
// returns the instructions that do it.
func (p *Pool) Swap(a, b riscv.Reg) []riscv.Inst {
	if a == b {
		return nil
	}
	va, vb := p.bound[a], p.bound[b]
	if va == ir.NoValue && vb == ir.NoValue {
		return nil
	}
	p.bound[a], p.bound[b] = vb, va
	if va != ir.NoValue {
		p.regOf[va] = b
	}
	if vb != ir.NoValue {
		p.regOf[vb] = a
	}
	logger.Debug("Exchanged registers", "a", a.String(), "b", b.String())

	s := p.cfg.Scratch
	return []riscv.Inst{
		riscv.Mv{Rd: s, Rs: b},
		riscv.Mv{Rd: b, Rs: a},
		riscv.Mv{Rd: a, Rs: s},
	}
}

// Free releases r from v. Freeing the zero register is a no-op.
func (p *Pool) Free(v ir.Value, r riscv.Reg) {
	if r == riscv.X0 {
		return
	}
	held := p.bound[r]
	if held == ir.NoValue {
		panic(fmt.Sprintf("regalloc: double free on register %s", r))
	}
	if held != v {
		panic(fmt.Sprintf("regalloc: free of %s for %v, but it holds %v", r, v, held))
	}
	p.bound[r] = ir.NoValue
	delete(p.regOf, v)
}

// RegOf returns the register bound to v.
func (p *Pool) RegOf(v ir.Value) (riscv.Reg, bool) {
	r, ok := p.regOf[v]
	return r, ok
}

// ValueIn returns the value bound to r.
func (p *Pool) ValueIn(r riscv.Reg) (ir.Value, bool) {
	v := p.bound[r]
	return v, v != ir.NoValue
}

// IsFree reports whether r can be bound now.
func (p *Pool) IsFree(r riscv.Reg) bool {
	return p.usable[r] && p.bound[r] == ir.NoValue
}

// Live returns the bound registers in hardware index order.
func (p *Pool) Live() []riscv.Reg {
	var regs []riscv.Reg
	for r, v := range p.bound {
		if v != ir.NoValue {
			regs = append(regs, riscv.Reg(r))
		}
	}
	return regs
}

func (p *Pool) checkUnbound(v ir.Value) {
	if r, ok := p.regOf[v]; ok {
		panic(fmt.Sprintf("regalloc: value %v already allocated to %s", v, r))
	}
}

func (p *Pool) bind(v ir.Value, r riscv.Reg) {
	p.bound[r] = v
	p.regOf[v] = r
}
