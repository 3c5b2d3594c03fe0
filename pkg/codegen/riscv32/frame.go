package riscv32

import (
	"fmt"

	"github.com/GriffinCanCode/sysy-compiler/pkg/ir"
)

const (
	wordSize      = 4
	stackAlign    = 16 // RISC-V psABI
	maxRegArgs    = 8
	raSlotFromTop = 4
)

// Frame is the stack layout of one function, computed before its body is
// lowered and read-only afterwards.
//
// Layout, from sp upward:
//
//	[0, ArgSize)                outgoing arguments past the eighth
//	[ArgSize, ...)              locals (Alloc) and staged call arguments
//	[Size-4, Size)              saved ra (non-leaf only)
type Frame struct {
	Size    int
	ArgSize int
	Leaf    bool
	offsets map[ir.Value]int
}

// AnalyzeFrame computes the frame of a defined function.
func AnalyzeFrame(fn *ir.Function) *Frame {
	f := &Frame{offsets: make(map[ir.Value]int)}

	var values []ir.Value
	for _, bb := range fn.Blocks() {
		values = append(values, bb.Insts()...)
	}

	// Locals, first-seen order, sized by pointee.
	size := 0
	for _, v := range values {
		data := fn.Value(v)
		if _, ok := data.Kind.(*ir.Alloc); !ok {
			continue
		}
		elem, ok := ir.Deref(data.Type)
		if !ok {
			panic(fmt.Sprintf("frame: alloc %v has non-pointer type %s", v, data.Type))
		}
		f.offsets[v] = size
		size += elem.Size()
	}

	// One word per value staged for a call. An Alloc passed directly is
	// rematerialized as an address and keeps its own slot.
	for _, v := range values {
		if _, local := f.offsets[v]; local {
			continue
		}
		if isCallArg(fn, v) {
			f.offsets[v] = size
			size += wordSize
		}
	}

	f.Leaf = true
	maxArgs := 0
	for _, v := range values {
		if call, ok := fn.Value(v).Kind.(*ir.Call); ok {
			f.Leaf = false
			maxArgs = max(maxArgs, len(call.Args))
		}
	}
	if !f.Leaf {
		size += wordSize
	}

	if maxArgs > maxRegArgs {
		f.ArgSize = wordSize * (maxArgs - maxRegArgs)
		size += f.ArgSize
		for v := range f.offsets {
			f.offsets[v] += f.ArgSize
		}
	}

	f.Size = alignUp(size, stackAlign)
	return f
}

// Offset returns the sp-relative offset of a local or staged value.
func (f *Frame) Offset(v ir.Value) (int, bool) {
	off, ok := f.offsets[v]
	return off, ok
}

// MustOffset is Offset for values that are known to have a slot.
func (f *Frame) MustOffset(v ir.Value) int {
	off, ok := f.offsets[v]
	if !ok {
		panic(fmt.Sprintf("frame: no stack slot for %v", v))
	}
	return off
}

// RAOffset is where the return address is saved in a non-leaf function.
func (f *Frame) RAOffset() int {
	return f.Size - raSlotFromTop
}

// isCallArg reports whether v's only user is a call.
func isCallArg(fn *ir.Function, v ir.Value) bool {
	users := fn.Value(v).UsedBy()
	if len(users) != 1 {
		return false
	}
	_, ok := fn.Value(users[0]).Kind.(*ir.Call)
	return ok
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
