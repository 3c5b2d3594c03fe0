package linker

import (
	"strings"
	"testing"
)

func TestCommand(t *testing.T) {
	tests := []struct {
		name    string
		runtime string
		want    []string
		absent  []string
	}{
		{
			name:    "with runtime",
			runtime: "/opt/sysy/libsysy.a",
			want:    []string{"-march=rv32im", "-mabi=ilp32", "-o out", "main.S", "/opt/sysy/libsysy.a"},
		},
		{
			name:   "without runtime",
			want:   []string{"-march=rv32im", "-o out", "main.S"},
			absent: []string{".a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New("riscv64-unknown-elf-gcc", "out", tt.runtime)
			l.AddSource("main.S")
			cmd := l.Command()

			if !strings.HasSuffix(cmd.Args[0], "riscv64-unknown-elf-gcc") {
				t.Errorf("unexpected program %q", cmd.Args[0])
			}
			line := strings.Join(cmd.Args, " ")
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("expected %q in %q", w, line)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(line, a) {
					t.Errorf("did not expect %q in %q", a, line)
				}
			}
		})
	}
}

func TestLinkWithoutSources(t *testing.T) {
	err := New("cc", "out", "").Link()
	if err == nil || !strings.Contains(err.Error(), "no input files") {
		t.Errorf("expected no input files error, got %v", err)
	}
}

func TestLinkMissingToolchain(t *testing.T) {
	l := New("sysyc-no-such-compiler", "out", "")
	l.AddSource("main.S")
	if err := l.Link(); err == nil {
		t.Error("expected error for missing toolchain")
	}
}
