package riscv

import (
	"fmt"
	"io"
	"strings"
)

const indent = "    "

// Emit writes the program as assembly text. Output order is construction
// order; nothing is reordered or dropped.
func Emit(w io.Writer, p *Program) error {
	ew := &errWriter{w: w}

	ew.printf("%s.data\n", indent)
	for _, g := range p.Globals {
		ew.printf("%s.globl %s\n", indent, g.Name)
		ew.printf("%s:\n", g.Name)
		for _, fill := range g.Init {
			switch f := fill.(type) {
			case Word:
				ew.printf("%s.word %d\n", indent, int32(f))
			case Zero:
				ew.printf("%s.zero %d\n", indent, int(f))
			}
		}
		ew.printf("\n")
	}

	ew.printf("%s.text\n", indent)
	for _, f := range p.Funcs {
		ew.printf("%s.globl %s\n", indent, f.Name)
		for _, b := range f.Blocks {
			if b.Label != "" {
				ew.printf("%s:\n", b.Label)
			}
			for _, inst := range b.Insts {
				ew.printf("%s%s\n", indent, inst)
			}
		}
		ew.printf("\n")
	}
	return ew.err
}

// Text renders the program to a string.
func Text(p *Program) string {
	var sb strings.Builder
	_ = Emit(&sb, p)
	return sb.String()
}

// errWriter keeps the first write error and turns later writes into no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
