// Package config loads compiler settings from the environment.
package config

import (
	"os"

	"github.com/xyproto/env/v2"

	"github.com/GriffinCanCode/sysy-compiler/pkg/logger"
)

// Environment variables read by Load.
const (
	EnvLogLevel   = "SYSYC_LOG_LEVEL"
	EnvLogFormat  = "SYSYC_LOG_FORMAT"
	EnvLogFile    = "SYSYC_LOG_FILE"
	EnvNoValidate = "SYSYC_NO_VALIDATE"
	EnvCC         = "SYSYC_CC"
	EnvRuntime    = "SYSYC_RUNTIME"
	EnvOptimize   = "SYSYC_OPTIMIZE"
)

// DefaultCC is the cross compiler used to assemble and link.
const DefaultCC = "riscv64-unknown-elf-gcc"

// Config holds driver settings
type Config struct {
	LogLevel  logger.LogLevel
	LogFormat string
	LogFile   string
	Validate  bool   // run the assembly validator on generated code
	CC        string // cross compiler driver
	Runtime   string // runtime library linked into executables; empty for none
	Optimize  bool   // run the peephole passes on selected code
}

// Load reads the configuration from the environment.
func Load() Config {
	format := env.Str(EnvLogFormat, "auto")
	switch format {
	case "text", "json", "auto":
	default:
		format = "auto"
	}

	return Config{
		LogLevel:  logger.ParseLevel(env.Str(EnvLogLevel, "warn")),
		LogFormat: format,
		LogFile:   env.Str(EnvLogFile),
		Validate:  !env.Bool(EnvNoValidate),
		CC:        env.Str(EnvCC, DefaultCC),
		Runtime:   env.Str(EnvRuntime),
		Optimize:  env.Bool(EnvOptimize),
	}
}

// Logger converts the settings to a logger configuration writing to stderr.
func (c Config) Logger() logger.Config {
	return logger.Config{
		Level:   c.LogLevel,
		Format:  c.LogFormat,
		Output:  os.Stderr,
		LogFile: c.LogFile,
	}
}

// Verbose raises the log level to debug.
func (c *Config) Verbose() {
	c.LogLevel = logger.LevelDebug
}
