package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"asmlnk/pkg/isa"
	"asmlnk/pkg/linker"
)

const script = `output: prog.hex
placements:
  - section: .text
    address: "0x40000000"
  - section: .data
    address: "4096"
inputs: [a.o, b.o]
`

func TestScriptApply(t *testing.T) {
	s, err := ParseScript([]byte(script))
	if err != nil {
		t.Fatal(err)
	}

	args := linker.ContextArgs{
		Placements: []linker.Placement{{Section: ".bss", Addr: 0x2000}},
		Inputs:     []string{"c.o"},
	}
	if err := s.Apply(&args); err != nil {
		t.Fatal(err)
	}

	want := linker.ContextArgs{
		Output: "prog.hex",
		Placements: []linker.Placement{
			{Section: ".text", Addr: 0x40000000},
			{Section: ".data", Addr: 0x1000},
			{Section: ".bss", Addr: 0x2000},
		},
		Inputs: []string{"a.o", "b.o", "c.o"},
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Apply() = %+v, want %+v", args, want)
	}

	args = linker.ContextArgs{Output: "cli.hex"}
	if err := s.Apply(&args); err != nil {
		t.Fatal(err)
	}
	if args.Output != "cli.hex" {
		t.Errorf("command line output overridden by %q", args.Output)
	}
}

func TestScriptErrors(t *testing.T) {
	if _, err := ParseScript([]byte("outptu: x\n")); err == nil {
		t.Errorf("unknown key accepted")
	}

	s, err := ParseScript([]byte("placements:\n  - section: .text\n    address: nowhere\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(&linker.ContextArgs{}); err == nil {
		t.Errorf("bad address accepted")
	}

	if _, err := LoadScript(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("missing script accepted")
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.yaml")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Output != "prog.hex" || len(s.Placements) != 2 || len(s.Inputs) != 2 {
		t.Errorf("LoadScript() = %+v", s)
	}
}

func TestParsePlacement(t *testing.T) {
	p, err := ParsePlacement(".text@0x40000000")
	if err != nil {
		t.Fatal(err)
	}
	if p != (linker.Placement{Section: ".text", Addr: 0x40000000}) {
		t.Errorf("ParsePlacement() = %+v", p)
	}

	for _, s := range []string{".text", "@0x10", ".text@", ".text@0x100000000"} {
		if _, err := ParsePlacement(s); err == nil {
			t.Errorf("ParsePlacement(%q) succeeded", s)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvTrace, "true")
	t.Setenv(EnvResetVector, "0x1000")

	s, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if s.LogLevel != "debug" || !s.Trace || s.ResetVector != 0x1000 {
		t.Errorf("FromEnv() = %+v", s)
	}

	t.Setenv(EnvResetVector, "")
	t.Setenv(EnvLogLevel, "")
	s, err = FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if s.LogLevel != "warning" || s.ResetVector != isa.ResetVector {
		t.Errorf("defaults = %+v", s)
	}

	t.Setenv(EnvResetVector, "later")
	if _, err := FromEnv(); err == nil {
		t.Errorf("bad reset vector accepted")
	}
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := (Settings{LogLevel: "loud"}).Configure(); err == nil {
		t.Errorf("unknown log level accepted")
	}
}
