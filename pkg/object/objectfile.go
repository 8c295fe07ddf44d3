package object

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"asmlnk/pkg/isa"
)

const (
	symHeader  = "Sym:"
	relHeader  = "Rel:"
	codeHeader = "Code:"
)

type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("object file line %d: %s", e.Line, e.Msg)
}

func formatErr(line int, format string, args ...any) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// sectionNumber is the on-disk section reference: the table index of the
// owning section entry (self for sections, 0 when undefined).
func (m *Module) sectionNumber(sym *Symbol) SymbolID {
	if sym.Kind == KindSentinel || sym.Section == NoSection {
		return Undefined
	}
	return m.Section(sym.Section).Symbol
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func Write(w io.Writer, m *Module) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, symHeader)
	for _, sym := range m.Symbols {
		fmt.Fprintf(bw, "%s:%d:%d:%s:%s:%s:%d\n",
			sym.Name, m.sectionNumber(sym), sym.Value,
			flag(sym.Global), flag(sym.Extern), flag(sym.Defined), sym.Size)
	}

	for _, sec := range m.Sections {
		if len(sec.Relocations) == 0 {
			continue
		}
		fmt.Fprintf(bw, "%s%d\n", relHeader, sec.Symbol)
		for _, rel := range sec.Relocations {
			fmt.Fprintf(bw, "%d:%d:%d\n", uint8(rel.Opcode), rel.Offset, rel.Symbol)
		}
	}

	for _, sec := range m.Sections {
		fmt.Fprintf(bw, "%s%d\n", codeHeader, sec.Symbol)
		for i, b := range sec.Memory.Bytes() {
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%02x", b)
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

func WriteFile(path string, m *Module) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, m)
}

type readMode uint8

const (
	readNone readMode = iota
	readSymbols
	readRelocations
	readCode
)

type rawSymbol struct {
	sym           *Symbol
	sectionNumber SymbolID
}

type moduleReader struct {
	raw      []rawSymbol
	rels     map[SymbolID][]Relocation
	code     map[SymbolID][]byte
	relOrder []SymbolID
}

func Read(r io.Reader) (*Module, error) {
	mr := &moduleReader{
		rels: make(map[SymbolID][]Relocation),
		code: make(map[SymbolID][]byte),
	}

	br := bufio.NewReader(r)
	mode := readNone
	var current SymbolID
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF && line == "" {
			break
		}
		lineNo++
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == symHeader:
			mode = readSymbols
		case strings.HasPrefix(line, relHeader):
			mode = readRelocations
			current, err = parseSectionNumber(line[len(relHeader):], lineNo)
			if err != nil {
				return nil, err
			}
			mr.relOrder = append(mr.relOrder, current)
		case strings.HasPrefix(line, codeHeader):
			mode = readCode
			current, err = parseSectionNumber(line[len(codeHeader):], lineNo)
			if err != nil {
				return nil, err
			}
			if _, dup := mr.code[current]; dup {
				return nil, formatErr(lineNo, "duplicate code block for section %d", current)
			}
			mr.code[current] = []byte{}
		default:
			if err := mr.parseLine(mode, current, line, lineNo); err != nil {
				return nil, err
			}
		}
	}

	return mr.build()
}

func ReadFile(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (mr *moduleReader) parseLine(mode readMode, current SymbolID, line string, lineNo int) error {
	switch mode {
	case readSymbols:
		if line == "" {
			return nil
		}
		raw, err := parseSymbol(line, lineNo)
		if err != nil {
			return err
		}
		mr.raw = append(mr.raw, raw)
	case readRelocations:
		if line == "" {
			return nil
		}
		rel, err := parseRelocation(line, lineNo)
		if err != nil {
			return err
		}
		mr.rels[current] = append(mr.rels[current], rel)
	case readCode:
		for _, tok := range strings.Fields(line) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return formatErr(lineNo, "bad byte %q", tok)
			}
			mr.code[current] = append(mr.code[current], byte(b))
		}
	default:
		if strings.TrimSpace(line) != "" {
			return formatErr(lineNo, "data outside of any block")
		}
	}
	return nil
}

func parseSectionNumber(s string, lineNo int) (SymbolID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, formatErr(lineNo, "bad section number %q", s)
	}
	return SymbolID(n), nil
}

func parseFlag(s string, lineNo int) (bool, error) {
	switch s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, formatErr(lineNo, "bad flag %q", s)
}

func parseSymbol(line string, lineNo int) (rawSymbol, error) {
	tokens := strings.Split(line, ":")
	if len(tokens) != 7 {
		return rawSymbol{}, formatErr(lineNo, "symbol needs 7 fields, got %d", len(tokens))
	}

	var nums [3]uint64
	for i, idx := range []int{1, 2, 6} {
		n, err := strconv.ParseUint(tokens[idx], 10, 32)
		if err != nil {
			return rawSymbol{}, formatErr(lineNo, "bad number %q", tokens[idx])
		}
		nums[i] = n
	}

	var flags [3]bool
	for i := range flags {
		f, err := parseFlag(tokens[3+i], lineNo)
		if err != nil {
			return rawSymbol{}, err
		}
		flags[i] = f
	}

	sym := NewSymbol(tokens[0])
	sym.Value = uint32(nums[1])
	sym.Global, sym.Extern, sym.Defined = flags[0], flags[1], flags[2]
	sym.Size = uint32(nums[2])
	return rawSymbol{sym: sym, sectionNumber: SymbolID(nums[0])}, nil
}

func parseRelocation(line string, lineNo int) (Relocation, error) {
	tokens := strings.Split(line, ":")
	if len(tokens) != 3 {
		return Relocation{}, formatErr(lineNo, "relocation needs 3 fields, got %d", len(tokens))
	}

	var nums [3]uint64
	for i, tok := range tokens {
		n, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return Relocation{}, formatErr(lineNo, "bad number %q", tok)
		}
		nums[i] = n
	}
	if nums[0] > 0xFF {
		return Relocation{}, formatErr(lineNo, "bad opcode %d", nums[0])
	}

	return Relocation{
		Opcode: isa.Opcode(nums[0]),
		Offset: uint32(nums[1]),
		Symbol: SymbolID(nums[2]),
	}, nil
}

// build turns the flat tables into a Module, resolving on-disk section
// numbers into SectionIDs and relocation kinds.
func (mr *moduleReader) build() (*Module, error) {
	if len(mr.raw) == 0 || mr.raw[0].sym.Name != UndefinedName {
		return nil, formatErr(0, "symbol table must start with %s", UndefinedName)
	}

	m := NewModule()
	m.Symbols[0].Value = mr.raw[0].sym.Value

	sections := make(map[SymbolID]SectionID)
	for i, raw := range mr.raw[1:] {
		id := SymbolID(i + 1)
		if _, dup := m.index[raw.sym.Name]; dup {
			return nil, formatErr(0, "duplicate symbol %s", raw.sym.Name)
		}
		if raw.sectionNumber == id {
			raw.sym.Kind = KindSection
			raw.sym.Section = SectionID(len(m.Sections))
			sections[id] = raw.sym.Section
			m.Sections = append(m.Sections, &Section{ID: raw.sym.Section, Symbol: id})
		}
		m.Symbols = append(m.Symbols, raw.sym)
		m.index[raw.sym.Name] = id
	}

	for i, raw := range mr.raw[1:] {
		sym := raw.sym
		if sym.IsSection() || raw.sectionNumber == Undefined {
			continue
		}
		sec, ok := sections[raw.sectionNumber]
		if !ok {
			return nil, formatErr(0, "symbol %d (%s) refers to non-section %d", i+1, sym.Name, raw.sectionNumber)
		}
		sym.Section = sec
	}

	for _, sec := range m.Sections {
		sym := m.Symbol(sec.Symbol)
		code := mr.code[sec.Symbol]
		if uint32(len(code)) != sym.Size {
			return nil, formatErr(0, "section %s: size %d but %d code bytes", sym.Name, sym.Size, len(code))
		}
		sec.Memory = FromBytes(code)
	}
	for num := range mr.code {
		if _, ok := sections[num]; !ok {
			return nil, formatErr(0, "code block for unknown section %d", num)
		}
	}

	for _, num := range mr.relOrder {
		secID, ok := sections[num]
		if !ok {
			return nil, formatErr(0, "relocations for unknown section %d", num)
		}
		sec := m.Section(secID)
		for _, rel := range mr.rels[num] {
			if rel.Symbol == Undefined || int(rel.Symbol) >= len(m.Symbols) {
				return nil, formatErr(0, "relocation refers to bad symbol %d", rel.Symbol)
			}
			if uint64(rel.Offset)+isa.WordSize > uint64(sec.Memory.Size()) {
				return nil, formatErr(0, "relocation at %#x outside section %s", rel.Offset, m.SectionName(secID))
			}
			if m.Symbol(rel.Symbol).IsSection() {
				rel.Kind = RelocSectionLocal
				rel.BaseApplied = true
			} else {
				rel.Kind = RelocGlobalSymbol
			}
			sec.Relocations = append(sec.Relocations, rel)
		}
		delete(mr.rels, num)
	}

	return m, nil
}
