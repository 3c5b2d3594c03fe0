// Package main implements the sysyc compiler driver: Koopa IR in, RISC-V
// assembly out, optionally linked against the SysY runtime.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tlog.app/go/errors"

	"github.com/GriffinCanCode/sysy-compiler/pkg/codegen/riscv32"
	"github.com/GriffinCanCode/sysy-compiler/pkg/config"
	"github.com/GriffinCanCode/sysy-compiler/pkg/koopa"
	"github.com/GriffinCanCode/sysy-compiler/pkg/linker"
	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "compile":
		return compileCmd(args[1:], stdout, stderr)
	case "-riscv", "-perf":
		return legacyCmd(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "sysyc version %s\n", version)
	case "help", "-h", "--help":
		usage(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		usage(stderr)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `sysyc - Compile Koopa IR to RISC-V (RV32IM) assembly

Usage:
    sysyc compile <input.koopa> [options]   Compile to assembly
    sysyc -riscv <input.koopa> -o <out.S>   Compile (positional form)
    sysyc -perf <input.koopa> -o <out.S>    Same, with optimizations
    sysyc version                           Show compiler version
    sysyc help                              Show this help message

Options:
    -o <file>      Output assembly file (default: input with .S extension, "-" for stdout)
    -link <file>   Also assemble and link an executable
    -O             Run peephole optimizations
    -v             Verbose output

Environment:
    SYSYC_LOG_LEVEL, SYSYC_LOG_FORMAT, SYSYC_LOG_FILE,
    SYSYC_NO_VALIDATE, SYSYC_OPTIMIZE, SYSYC_CC, SYSYC_RUNTIME`)
}

type options struct {
	input  string
	output string
	link   string
}

func compileCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("o", "", "output assembly file")
	link := fs.String("link", "", "link an executable")
	optimize := fs.Bool("O", false, "run peephole optimizations")
	verbose := fs.Bool("v", false, "verbose output")

	// Accept flags on either side of the input file.
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "error: no input file")
		return 1
	}
	input := rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "error: unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return 1
	}

	cfg := config.Load()
	if *verbose {
		cfg.Verbose()
	}
	if *optimize {
		cfg.Optimize = true
	}
	return execute(cfg, options{input: input, output: *output, link: *link}, stdout, stderr)
}

// legacyCmd handles `sysyc -riscv <input> -o <output>`.
func legacyCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) != 4 || args[2] != "-o" {
		fmt.Fprintln(stderr, "error: expected: sysyc -riscv|-perf <input> -o <output>")
		return 1
	}
	cfg := config.Load()
	if args[0] == "-perf" {
		cfg.Optimize = true
	}
	return execute(cfg, options{input: args[1], output: args[3]}, stdout, stderr)
}

func execute(cfg config.Config, opts options, stdout, stderr io.Writer) (code int) {
	if err := logger.Init(cfg.Logger()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer logger.Close()

	start := time.Now()
	logger.LogCompilerStart([]string{opts.input})

	// Backend invariant violations panic; report them as internal errors.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "internal compiler error: %v\n", r)
			logger.LogCompilerComplete(false, time.Since(start).String())
			code = 2
		}
	}()

	if err := compile(cfg, opts, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		logger.LogError(opts.input, err)
		logger.LogCompilerComplete(false, time.Since(start).String())
		return 1
	}
	logger.LogCompilerComplete(true, time.Since(start).String())
	return 0
}

func compile(cfg config.Config, opts options, stdout io.Writer) error {
	logger.LogFileProcessing(opts.input)
	src, err := os.ReadFile(opts.input)
	if err != nil {
		return err
	}

	logger.LogPhase("parse")
	prog, err := koopa.Parse(string(src))
	if err != nil {
		return errors.Wrap(err, "%s", opts.input)
	}
	logger.LogPhaseComplete("parse")

	logger.LogPhase("codegen")
	gen := riscv32.NewGenerator(nil)
	gen.SetOptimize(cfg.Optimize)
	var asm string
	if cfg.Validate {
		asm, err = gen.GenerateWithValidation(prog)
	} else {
		asm, err = gen.Render(prog)
	}
	if err != nil {
		return err
	}
	logger.LogPhaseComplete("codegen")

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(opts.input, filepath.Ext(opts.input)) + ".S"
	}
	if output == "-" {
		if opts.link != "" {
			return errors.New("cannot link when assembly goes to stdout")
		}
		_, err = io.WriteString(stdout, asm)
		return err
	}
	if err := os.WriteFile(output, []byte(asm), 0644); err != nil {
		return err
	}

	if opts.link == "" {
		return nil
	}
	logger.LogPhase("link")
	l := linker.New(cfg.CC, opts.link, cfg.Runtime)
	l.AddSource(output)
	return l.Link()
}
