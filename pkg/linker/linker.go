// Package linker turns generated assembly into a RISC-V executable.
//
// Design: drive the cross compiler as assembler and linker in one step,
// statically linking the SysY runtime library.
package linker

import (
	"bytes"
	"os/exec"
	"strings"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

// Target flags for RV32IM with the ILP32 ABI.
var archFlags = []string{"-march=rv32im", "-mabi=ilp32"}

// Linker links assembly files into executables
type Linker struct {
	cc      string
	sources []string
	output  string
	runtime string
}

// New creates a linker that invokes cc. runtime is the library providing
// getint, putint and the other SysY runtime functions; empty means none.
func New(cc, output, runtime string) *Linker {
	return &Linker{
		cc:      cc,
		output:  output,
		runtime: runtime,
	}
}

func (l *Linker) AddSource(path string) {
	l.sources = append(l.sources, path)
}

// Command returns the toolchain invocation without running it.
func (l *Linker) Command() *exec.Cmd {
	args := append([]string{}, archFlags...)
	args = append(args, "-static", "-o", l.output)
	args = append(args, l.sources...)
	if l.runtime != "" {
		args = append(args, l.runtime)
	}
	return exec.Command(l.cc, args...)
}

// Link produces final executable
func (l *Linker) Link() error {
	if len(l.sources) == 0 {
		return errors.New("no input files")
	}
	logger.LogLinkingStart(len(l.sources))

	cmd := l.Command()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	logger.Debug("Running toolchain", "cmd", strings.Join(cmd.Args, " "))

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "%s: %s", l.cc, strings.TrimSpace(stderr.String()))
	}

	logger.LogLinkingComplete(l.output)
	return nil
}
