package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.name); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestInitFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"text", "msg=hello"},
		// A buffer is not a terminal.
		{"auto", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Init(Config{Level: LevelInfo, Format: tt.format, Output: &buf}); err != nil {
				t.Fatalf("Init failed: %v", err)
			}
			Info("hello", "k", 1)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: LevelWarn, Format: "text", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("debug message")
	Info("info message")
	Warn("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn were logged:\n%s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("warn message missing:\n%s", out)
	}
}

func TestLogFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Format: "text", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	LogFrame("main", 32, false)

	out := buf.String()
	for _, want := range []string{"function=main", "size=32", "leaf=false"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: LevelError, Format: "text", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	LogError("in.koopa", errors.New("bad input"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "file=in.koopa", `error="bad input"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestInitLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysyc.log")
	if err := Init(Config{Level: LevelInfo, Format: "json", LogFile: path}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Info("to file")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file does not contain message:\n%s", data)
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	saved := defaultLogger
	defaultLogger = nil
	defer func() { defaultLogger = saved }()

	// Must not panic.
	Debug("x")
	Info("x")
	Warn("x")
	Error("x")
}
