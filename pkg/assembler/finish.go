package assembler

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"asmlnk/pkg/isa"
	"asmlnk/pkg/object"
	"asmlnk/pkg/utils"
)

// EndAssembly runs the end-of-module passes and returns the finished
// module. The assembler accepts no further input afterwards.
func (a *Assembler) EndAssembly() (*object.Module, error) {
	if a.finished {
		return a.module, nil
	}
	a.closeCurrentSection()

	if err := a.validateSymbols(); err != nil {
		return nil, err
	}
	if err := a.patchFromLiteralPool(); err != nil {
		return nil, err
	}
	if err := a.backpatch(); err != nil {
		return nil, err
	}
	a.buildRelocations()

	a.finished = true
	log.WithFields(log.Fields{
		"symbols":  len(a.module.Symbols),
		"sections": len(a.module.Sections),
	}).Debug("assembly finished")
	return a.module, nil
}

// validateSymbols requires every referenced or exported symbol to be
// defined locally, unless it is imported.
func (a *Assembler) validateSymbols() error {
	for _, sym := range a.module.Symbols[1:] {
		if sym.IsSection() || sym.Extern || sym.Defined {
			continue
		}
		if len(sym.Usages) > 0 || sym.Global {
			return newError(ErrUndefinedSymbol, "%s", sym.Name)
		}
	}
	return nil
}

func (a *Assembler) patchFromLiteralPool() error {
	for _, patch := range a.patches {
		mem := a.module.Section(patch.Section).Memory
		pc := int64(patch.Site) + isa.InstructionSize
		disp := int64(mem.CodeSize()) + int64(patch.PoolOffset) - pc
		if !isa.FitsDisplacement(disp) {
			return newError(ErrValueOverflow,
				"literal pool slot at %#x is %d bytes away from %#x in %s",
				patch.PoolOffset, disp, patch.Site, a.module.SectionName(patch.Section))
		}

		inst := patch.Template.WithDisplacement(int32(disp))
		if err := mem.RepairMemory(patch.Site, inst.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) backpatch() error {
	for _, sym := range a.module.Symbols[1:] {
		var value uint32
		if sym.IsLocal() {
			value = sym.Value
		}

		for _, use := range sym.Usages {
			mem := a.module.Section(use.Section).Memory
			var err error
			switch use.Kind {
			case object.UsageWord:
				err = mem.WriteAddress(use.Offset, value)
			case object.UsagePool:
				var slot [isa.WordSize]byte
				utils.Write[uint32](slot[:], value)
				err = mem.RepairLiteralPool(use.Offset, slot[:])
			default:
				return newError(ErrBackpatching, "%s: usage kind %s at %#x", sym.Name, use.Kind, use.Offset)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// buildRelocations emits one relocation per WORD use and per pool slot.
// Local symbols relocate against their section, whose base the backpatch
// already stored; the rest are resolved by name at link time.
func (a *Assembler) buildRelocations() {
	for _, sym := range a.module.Symbols[1:] {
		for _, use := range sym.Usages {
			sec := a.module.Section(use.Section)

			rel := object.Relocation{Opcode: use.Template.Op, Offset: use.Offset}
			if use.Kind == object.UsagePool {
				rel.Offset += sec.Memory.CodeSize()
			}
			if sym.IsLocal() {
				rel.Symbol = a.module.Section(sym.Section).Symbol
				rel.Kind = object.RelocSectionLocal
				rel.BaseApplied = true
			} else {
				id, _ := a.module.Lookup(sym.Name)
				rel.Symbol = id
				rel.Kind = object.RelocGlobalSymbol
			}
			sec.Relocations = append(sec.Relocations, rel)
		}
	}

	for _, sec := range a.module.Sections {
		sort.SliceStable(sec.Relocations, func(i, j int) bool {
			return sec.Relocations[i].Offset < sec.Relocations[j].Offset
		})
	}
}
