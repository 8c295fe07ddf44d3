package object

import "asmlnk/pkg/isa"

// SymbolID indexes a module's symbol table. Entry 0 is always UND.
type SymbolID uint32

// SectionID numbers the sections of a module densely, in open order.
type SectionID uint32

const (
	Undefined SymbolID  = 0
	NoSection SectionID = ^SectionID(0)

	UndefinedName = "UND"
)

type SymbolKind uint8

const (
	KindSentinel SymbolKind = iota
	KindSection
	KindSymbol
)

type UsageKind uint8

const (
	// The zero value is deliberately not a valid usage kind.
	UsageWord UsageKind = iota + 1
	UsagePool
)

func (k UsageKind) String() string {
	switch k {
	case UsageWord:
		return "WORD"
	case UsagePool:
		return "POOL"
	}
	return "INVALID"
}

// SymbolUsage is a site that needs the symbol's value. For UsageWord the
// offset is a code offset; for UsagePool it is a literal pool offset.
type SymbolUsage struct {
	Kind     UsageKind
	Template isa.Instruction
	Section  SectionID
	Offset   uint32
}

type Symbol struct {
	Name    string
	Kind    SymbolKind
	Section SectionID
	Value   uint32
	Global  bool
	Extern  bool
	Defined bool
	Size    uint32
	Usages  []SymbolUsage
}

func NewSymbol(name string) *Symbol {
	return &Symbol{
		Name:    name,
		Kind:    KindSymbol,
		Section: NoSection,
	}
}

func (s *Symbol) IsSection() bool {
	return s.Kind == KindSection
}

// IsLocal reports whether the symbol's value is known inside its module.
func (s *Symbol) IsLocal() bool {
	return !s.Global && !s.Extern
}

func (s *Symbol) AddUsage(u SymbolUsage) {
	s.Usages = append(s.Usages, u)
}

type RelocationKind uint8

const (
	RelocSectionLocal RelocationKind = iota
	RelocGlobalSymbol
)

func (k RelocationKind) String() string {
	if k == RelocSectionLocal {
		return "local"
	}
	return "global"
}

// Relocation asks the linker to add an address to the word at Offset
// (code ‖ pool view of the section). Symbol refers either to a section
// entry (RelocSectionLocal) or to a global/extern entry.
type Relocation struct {
	Opcode      isa.Opcode
	Offset      uint32
	Symbol      SymbolID
	Kind        RelocationKind
	BaseApplied bool
}
