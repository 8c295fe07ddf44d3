// Package config collects the toolchain settings that come from the
// environment and from link scripts.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"asmlnk/pkg/isa"
	"asmlnk/pkg/linker"
	"asmlnk/pkg/utils"
)

const (
	EnvLogLevel    = "ASMLNK_LOG_LEVEL"
	EnvTrace       = "ASMLNK_TRACE"
	EnvResetVector = "ASMLNK_RESET_VECTOR"
)

type Settings struct {
	LogLevel    string
	Trace       bool
	ResetVector uint32
}

// FromEnv reads the settings shared by both tools from the current
// environment.
func FromEnv() (Settings, error) {
	env.Load()

	s := Settings{
		LogLevel:    env.Str(EnvLogLevel, "warning"),
		Trace:       env.Bool(EnvTrace),
		ResetVector: isa.ResetVector,
	}

	if v := env.Str(EnvResetVector); v != "" {
		rv, err := utils.ParseUint32(v)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", EnvResetVector, err)
		}
		s.ResetVector = rv
	}
	return s, nil
}

// Placement is the YAML form of a linker.Placement. Addresses are
// strings so hex can be written naturally.
type Placement struct {
	Section string `yaml:"section"`
	Address string `yaml:"address"`
}

// Script is a link script:
//
//	output: prog.hex
//	placements:
//	  - section: .text
//	    address: "0x40000000"
//	inputs: [a.o, b.o]
type Script struct {
	Output     string      `yaml:"output"`
	Placements []Placement `yaml:"placements"`
	Inputs     []string    `yaml:"inputs"`
}

func ParseScript(data []byte) (*Script, error) {
	script := &Script{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(script); err != nil {
		return nil, err
	}
	return script, nil
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	script, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return script, nil
}

// Apply fills args from the script. Values already present in args come
// from the command line: an output there wins, placements and inputs are
// appended after the script's own.
func (s *Script) Apply(args *linker.ContextArgs) error {
	placements := make([]linker.Placement, 0, len(s.Placements)+len(args.Placements))
	for _, p := range s.Placements {
		addr, err := utils.ParseUint32(p.Address)
		if err != nil {
			return fmt.Errorf("placement of %s: %w", p.Section, err)
		}
		placements = append(placements, linker.Placement{Section: p.Section, Addr: addr})
	}
	args.Placements = append(placements, args.Placements...)
	args.Inputs = append(append([]string(nil), s.Inputs...), args.Inputs...)

	if args.Output == "" {
		args.Output = s.Output
	}
	return nil
}

// ParsePlacement parses the "<section>@<address>" argument of -place=.
func ParsePlacement(s string) (linker.Placement, error) {
	idx := strings.LastIndexByte(s, '@')
	if idx <= 0 {
		return linker.Placement{}, fmt.Errorf("placement %q is not <section>@<address>", s)
	}
	addr, err := utils.ParseUint32(s[idx+1:])
	if err != nil {
		return linker.Placement{}, fmt.Errorf("placement %q: %w", s, err)
	}
	return linker.Placement{Section: s[:idx], Addr: addr}, nil
}

// Configure applies the settings to the logger and the fatal handler.
func (s Settings) Configure() error {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvLogLevel, err)
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	utils.Trace = s.Trace
	return nil
}
