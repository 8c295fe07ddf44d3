package object

import "asmlnk/pkg/utils"

type Section struct {
	ID          SectionID
	Symbol      SymbolID
	Memory      *SectionMemory
	Relocations []Relocation
}

// Module is everything the assembler hands over to the linker.
type Module struct {
	Symbols  []*Symbol
	Sections []*Section

	index map[string]SymbolID
}

func NewModule() *Module {
	m := &Module{index: make(map[string]SymbolID)}
	und := NewSymbol(UndefinedName)
	und.Kind = KindSentinel
	m.Symbols = append(m.Symbols, und)
	m.index[UndefinedName] = Undefined
	return m
}

func (m *Module) Lookup(name string) (SymbolID, bool) {
	id, ok := m.index[name]
	return id, ok
}

func (m *Module) Symbol(id SymbolID) *Symbol {
	utils.Assert(int(id) < len(m.Symbols))
	return m.Symbols[id]
}

func (m *Module) Section(id SectionID) *Section {
	utils.Assert(int(id) < len(m.Sections))
	return m.Sections[id]
}

func (m *Module) SectionSymbol(id SectionID) *Symbol {
	return m.Symbol(m.Section(id).Symbol)
}

func (m *Module) SectionName(id SectionID) string {
	if id == NoSection {
		return UndefinedName
	}
	return m.SectionSymbol(id).Name
}

// AddSymbol appends sym to the table. Names are unique per module.
func (m *Module) AddSymbol(sym *Symbol) SymbolID {
	_, dup := m.index[sym.Name]
	utils.Assert(!dup)
	id := SymbolID(len(m.Symbols))
	m.Symbols = append(m.Symbols, sym)
	m.index[sym.Name] = id
	return id
}

// AddSection creates the section entry and its (empty) memory.
func (m *Module) AddSection(name string) *Section {
	sym := NewSymbol(name)
	sym.Kind = KindSection
	sym.Section = SectionID(len(m.Sections))

	sec := &Section{
		ID:     sym.Section,
		Symbol: m.AddSymbol(sym),
		Memory: NewSectionMemory(),
	}
	m.Sections = append(m.Sections, sec)
	return sec
}

// SectionOf maps a section entry's symbol id back to its section.
func (m *Module) SectionOf(id SymbolID) (*Section, bool) {
	sym := m.Symbol(id)
	if !sym.IsSection() {
		return nil, false
	}
	return m.Section(sym.Section), true
}
