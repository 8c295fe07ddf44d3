package assembler

import (
	"math"

	log "github.com/sirupsen/logrus"

	"asmlnk/pkg/isa"
	"asmlnk/pkg/object"
	"asmlnk/pkg/utils"
)

// LiteralPoolPatch is an instruction at Site whose displacement must be
// made to point at PoolOffset once the section's code size is final.
type LiteralPoolPatch struct {
	Template   isa.Instruction
	Section    object.SectionID
	PoolOffset uint32
	Site       uint32
}

type poolKey struct {
	section object.SectionID
	symbol  object.SymbolID
}

type literalKey struct {
	section object.SectionID
	value   uint32
}

// maxSectionSize bounds code plus literal pool of one section.
var maxSectionSize uint64 = math.MaxUint32

type Assembler struct {
	module *object.Module

	current         object.SectionID
	locationCounter uint32

	symbolSlots  map[poolKey]uint32
	literalSlots map[literalKey]uint32
	patches      []LiteralPoolPatch

	finished bool
}

func NewAssembler() *Assembler {
	return &Assembler{
		module:       object.NewModule(),
		current:      object.NoSection,
		symbolSlots:  make(map[poolKey]uint32),
		literalSlots: make(map[literalKey]uint32),
	}
}

// Module exposes the module under construction; it is frozen once
// EndAssembly succeeded.
func (a *Assembler) Module() *object.Module {
	return a.module
}

func (a *Assembler) LocationCounter() uint32 {
	return a.locationCounter
}

func (a *Assembler) requireSection() (*object.Section, error) {
	if a.current == object.NoSection {
		return nil, &Error{Code: ErrInstructionOutsideSection}
	}
	return a.module.Section(a.current), nil
}

// reserve fails when n more bytes would not fit the current section.
func (a *Assembler) reserve(sec *object.Section, n uint64) error {
	if uint64(sec.Memory.Size())+n > maxSectionSize {
		return newError(ErrValueOverflow, "section %s cannot grow by %d bytes past %#x",
			a.module.SectionName(a.current), n, sec.Memory.Size())
	}
	return nil
}

func reserved(name string) error {
	if name == object.UndefinedName {
		return newError(ErrSymbolRedeclaration, "%s is reserved", name)
	}
	return nil
}

// symbol returns the entry for name, creating an undefined one on first
// sight. The name must not be reserved.
func (a *Assembler) symbol(name string) (object.SymbolID, *object.Symbol) {
	if id, ok := a.module.Lookup(name); ok {
		utils.Assert(id != object.Undefined)
		return id, a.module.Symbol(id)
	}
	sym := object.NewSymbol(name)
	return a.module.AddSymbol(sym), sym
}

func (a *Assembler) InsertGlobalSymbol(name string) error {
	if a.finished {
		return &Error{Code: ErrInstructionOutsideSection}
	}
	if err := reserved(name); err != nil {
		return err
	}
	_, sym := a.symbol(name)
	switch {
	case sym.IsSection():
		return newError(ErrSymbolRedeclaration, "%s is a section", name)
	case sym.Extern:
		return newError(ErrGlobalExternConflict, "%s", name)
	}
	sym.Global = true
	return nil
}

func (a *Assembler) InsertExternSymbol(name string) error {
	if a.finished {
		return &Error{Code: ErrInstructionOutsideSection}
	}
	if err := reserved(name); err != nil {
		return err
	}
	_, sym := a.symbol(name)
	switch {
	case sym.IsSection():
		return newError(ErrSymbolRedeclaration, "%s is a section", name)
	case sym.Global:
		return newError(ErrGlobalExternConflict, "%s", name)
	case sym.Defined:
		return newError(ErrSymbolRedeclaration, "%s is defined in this module", name)
	}
	sym.Extern = true
	return nil
}

// DefineSymbol binds name to the current location.
func (a *Assembler) DefineSymbol(name string) error {
	if _, err := a.requireSection(); err != nil {
		return err
	}
	if err := reserved(name); err != nil {
		return err
	}
	_, sym := a.symbol(name)
	if sym.IsSection() || sym.Defined || sym.Extern {
		return newError(ErrSymbolRedeclaration, "%s", name)
	}
	sym.Section = a.current
	sym.Value = a.locationCounter
	sym.Defined = true
	return nil
}

func (a *Assembler) OpenNewSection(name string) error {
	if a.finished {
		return &Error{Code: ErrInstructionOutsideSection}
	}
	if id, ok := a.module.Lookup(name); ok {
		if a.module.Symbol(id).IsSection() {
			return newError(ErrSectionRedeclaration, "%s", name)
		}
		return newError(ErrSymbolRedeclaration, "section %s conflicts with a symbol", name)
	}

	a.closeCurrentSection()

	sec := a.module.AddSection(name)
	a.current = sec.ID
	a.locationCounter = 0
	return nil
}

func (a *Assembler) closeCurrentSection() {
	if a.current == object.NoSection {
		return
	}

	sec := a.module.Section(a.current)
	sym := a.module.Symbol(sec.Symbol)
	sym.Size = sec.Memory.Size()

	log.WithFields(log.Fields{
		"section": sym.Name,
		"code":    sec.Memory.CodeSize(),
		"pool":    sec.Memory.PoolSize(),
	}).Debug("section closed")

	a.current = object.NoSection
	a.locationCounter = 0
}

// InsertSymbol emits a data word holding the symbol's value.
func (a *Assembler) InsertSymbol(name string) error {
	sec, err := a.requireSection()
	if err != nil {
		return err
	}
	if err := reserved(name); err != nil {
		return err
	}
	if err := a.reserve(sec, isa.WordSize); err != nil {
		return err
	}
	_, sym := a.symbol(name)
	sym.AddUsage(object.SymbolUsage{
		Kind:     object.UsageWord,
		Template: isa.Instruction{Op: isa.Data},
		Section:  a.current,
		Offset:   a.locationCounter,
	})
	sec.Memory.WriteWord(0)
	a.locationCounter += isa.WordSize
	return nil
}

func (a *Assembler) InsertLiteral(value uint32) error {
	sec, err := a.requireSection()
	if err != nil {
		return err
	}
	if err := a.reserve(sec, isa.WordSize); err != nil {
		return err
	}
	sec.Memory.WriteWord(value)
	a.locationCounter += isa.WordSize
	return nil
}

func (a *Assembler) InsertBSS(n uint32) error {
	sec, err := a.requireSection()
	if err != nil {
		return err
	}
	if err := a.reserve(sec, uint64(n)); err != nil {
		return err
	}
	sec.Memory.WriteBSS(n)
	a.locationCounter += n
	return nil
}

// word is one instruction of an encoded mnemonic, optionally reaching its
// operand through the literal pool.
type word struct {
	inst isa.Instruction
	pool Operand
}

// emit commits encoded words. Nothing may fail from here on.
func (a *Assembler) emit(sec *object.Section, words []word) {
	for _, w := range words {
		site := a.locationCounter
		if w.pool != nil {
			a.patches = append(a.patches, LiteralPoolPatch{
				Template:   w.inst,
				Section:    a.current,
				PoolOffset: a.intern(sec, w.pool, w.inst),
				Site:       site,
			})
		}
		sec.Memory.WriteInstruction(w.inst)
		a.locationCounter += isa.InstructionSize
	}
	utils.Assert(a.locationCounter == sec.Memory.CodeSize())
}

// intern returns the pool slot for v in the current section, creating it
// on first use.
func (a *Assembler) intern(sec *object.Section, v Operand, template isa.Instruction) uint32 {
	switch v := v.(type) {
	case Literal:
		key := literalKey{section: a.current, value: uint32(v)}
		if offset, ok := a.literalSlots[key]; ok {
			return offset
		}
		offset := sec.Memory.WriteLiteral(uint32(v))
		a.literalSlots[key] = offset
		return offset
	case SymbolRef:
		id, sym := a.symbol(string(v))
		key := poolKey{section: a.current, symbol: id}
		if offset, ok := a.symbolSlots[key]; ok {
			return offset
		}
		offset := sec.Memory.WriteLiteral(0)
		a.symbolSlots[key] = offset
		sym.AddUsage(object.SymbolUsage{
			Kind:     object.UsagePool,
			Template: template,
			Section:  a.current,
			Offset:   offset,
		})
		return offset
	}
	panic("literal pool operand must be a literal or a symbol")
}
