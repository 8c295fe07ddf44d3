package asmsrc

import (
	"fmt"
	"strings"

	"asmlnk/pkg/assembler"
	"asmlnk/pkg/isa"
	"asmlnk/pkg/utils"
)

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_' || c == '.':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// splitLabel peels one "name:" prefix off a statement.
func splitLabel(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", line, false
	}
	label := strings.TrimSpace(line[:idx])
	if !isIdentifier(label) || strings.HasPrefix(label, ".") {
		return "", line, false
	}
	return label, strings.TrimSpace(line[idx+1:]), true
}

func splitMnemonic(line string) (string, string) {
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// splitOperands splits on commas outside of brackets.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var fields []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				fields = append(fields, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(fields, strings.TrimSpace(s[start:]))
}

func parseValue(s string) (assembler.Operand, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing value")
	}
	if c := s[0]; c == '-' || (c >= '0' && c <= '9') {
		v, err := utils.ParseInt32(s)
		if err != nil {
			return nil, err
		}
		return assembler.Literal(uint32(v)), nil
	}
	if !isIdentifier(s) {
		return nil, fmt.Errorf("invalid operand %q", s)
	}
	return assembler.SymbolRef(s), nil
}

func parseArg(s string) (assembler.Arg, error) {
	switch {
	case strings.HasPrefix(s, "%"):
		name := s[1:]
		if r, ok := isa.ParseRegister(name); ok {
			return assembler.Reg(r), nil
		}
		if csr, ok := isa.ParseControlRegister(name); ok {
			return assembler.Csr(csr), nil
		}
		return assembler.Arg{}, fmt.Errorf("unknown register %s", s)

	case strings.HasPrefix(s, "$"):
		v, err := parseValue(s[1:])
		if err != nil {
			return assembler.Arg{}, err
		}
		return assembler.Imm(v), nil

	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return assembler.Arg{}, fmt.Errorf("unterminated %s", s)
		}
		return parseIndirect(strings.TrimSpace(s[1 : len(s)-1]))
	}

	v, err := parseValue(s)
	if err != nil {
		return assembler.Arg{}, err
	}
	return assembler.Mem(v), nil
}

// parseIndirect handles the inside of "[%r]" and "[%r + x]".
func parseIndirect(s string) (assembler.Arg, error) {
	base, offset, hasOffset := strings.Cut(s, "+")
	base = strings.TrimSpace(base)

	name, ok := utils.RemovePrefix(base, "%")
	if !ok {
		return assembler.Arg{}, fmt.Errorf("indirect operand needs a base register, got %q", base)
	}
	r, ok := isa.ParseRegister(name)
	if !ok {
		return assembler.Arg{}, fmt.Errorf("unknown register %s", base)
	}
	if !hasOffset {
		return assembler.Ind(r), nil
	}

	v, err := parseValue(offset)
	if err != nil {
		return assembler.Arg{}, err
	}
	return assembler.IndOff(r, v), nil
}
