// Package asmsrc drives the assembler from line-oriented source text.
package asmsrc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pattyshack/gt/parseutil"
	log "github.com/sirupsen/logrus"

	"asmlnk/pkg/assembler"
	"asmlnk/pkg/object"
)

// Session carries one assembly run: the assembler being driven and the
// position of the statement being processed. Every diagnostic leaving the
// session is tagged with that position.
type Session struct {
	reader  parseutil.BufferedByteLocationReader
	emitter *parseutil.Emitter

	Assembler *assembler.Assembler
	Location  parseutil.Location

	ended bool
}

func NewSession(fileName string, content []byte) *Session {
	return &Session{
		reader:    parseutil.NewBufferedByteLocationReaderFromSlice(fileName, content),
		emitter:   &parseutil.Emitter{},
		Assembler: assembler.NewAssembler(),
	}
}

// Errors joins located diagnostics into one error.
type Errors []error

func (errs Errors) Error() string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

func (s *Session) errorf(format string, args ...any) {
	s.emitter.Emit(s.Location, format, args...)
}

// nextLine consumes the next source line, without its terminator.
func (s *Session) nextLine() (string, bool, error) {
	var line []byte
	for {
		peeked, err := s.reader.Peek(1)
		if len(peeked) == 0 {
			if err != nil && err != io.EOF {
				return "", false, err
			}
			return string(line), len(line) > 0, nil
		}
		c := peeked[0]
		if _, err := s.reader.Discard(1); err != nil {
			return "", false, err
		}
		if c == '\n' {
			return string(line), true, nil
		}
		line = append(line, c)
	}
}

// Run feeds every statement to the assembler and finishes the module.
// Statement errors are collected so one run reports all of them; the
// module is only finished when there were none.
func (s *Session) Run() (*object.Module, error) {
	for !s.ended {
		s.Location = s.reader.Location
		line, ok, err := s.nextLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		s.statement(line)
	}

	if s.emitter.HasErrors() {
		return nil, Errors(s.emitter.Errors())
	}

	module, err := s.Assembler.EndAssembly()
	if err != nil {
		return nil, parseutil.NewLocationError(s.Location, "%w", err)
	}
	return module, nil
}

func (s *Session) statement(line string) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	for {
		label, rest, ok := splitLabel(line)
		if !ok {
			break
		}
		if err := s.Assembler.DefineSymbol(label); err != nil {
			s.errorf("%w", err)
		}
		line = rest
	}
	if line == "" {
		return
	}

	name, rest := splitMnemonic(line)
	if strings.HasPrefix(name, ".") {
		s.directive(name, rest)
		return
	}

	var args []assembler.Arg
	for _, field := range splitOperands(rest) {
		arg, err := parseArg(field)
		if err != nil {
			s.errorf("%w", err)
			return
		}
		args = append(args, arg)
	}
	if err := s.Assembler.Instruction(name, args...); err != nil {
		s.errorf("%w", err)
	}
}

func (s *Session) directive(name string, rest string) {
	fields := splitOperands(rest)

	var err error
	switch name {
	case ".global", ".extern":
		if len(fields) == 0 {
			err = fmt.Errorf("%s needs at least one symbol", name)
			break
		}
		for _, field := range fields {
			if !isIdentifier(field) {
				err = fmt.Errorf("invalid symbol name %q", field)
			} else if name == ".global" {
				err = s.Assembler.InsertGlobalSymbol(field)
			} else {
				err = s.Assembler.InsertExternSymbol(field)
			}
			if err != nil {
				break
			}
		}
	case ".section":
		if len(fields) != 1 || !isIdentifier(fields[0]) {
			err = fmt.Errorf(".section needs exactly one name")
			break
		}
		err = s.Assembler.OpenNewSection(fields[0])
	case ".word":
		if len(fields) == 0 {
			err = fmt.Errorf(".word needs at least one value")
			break
		}
		for _, field := range fields {
			err = s.word(field)
			if err != nil {
				break
			}
		}
	case ".skip":
		if len(fields) != 1 {
			err = fmt.Errorf(".skip needs exactly one size")
			break
		}
		var v assembler.Operand
		v, err = parseValue(fields[0])
		if err != nil {
			break
		}
		n, ok := v.(assembler.Literal)
		if !ok {
			err = fmt.Errorf(".skip size must be a literal")
			break
		}
		err = s.Assembler.InsertBSS(uint32(n))
	case ".end":
		s.ended = true
	default:
		err = fmt.Errorf("unknown directive %s", name)
	}

	if err != nil {
		s.errorf("%w", err)
	}
}

func (s *Session) word(field string) error {
	v, err := parseValue(field)
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case assembler.Literal:
		return s.Assembler.InsertLiteral(uint32(v))
	case assembler.SymbolRef:
		return s.Assembler.InsertSymbol(string(v))
	}
	return fmt.Errorf(".word cannot take %s", field)
}

// Assemble reads a source file and writes the object module next to it.
// Nothing is written unless the whole module assembled.
func Assemble(infile string, outfile string) error {
	content, err := os.ReadFile(infile)
	if err != nil {
		return err
	}

	module, err := NewSession(infile, content).Run()
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"input":  infile,
		"output": outfile,
	}).Info("writing object module")
	return object.WriteFile(outfile, module)
}
