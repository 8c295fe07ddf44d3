package linker

import (
	"fmt"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	"asmlnk/pkg/image"
	"asmlnk/pkg/object"
)

// PerformLinking runs every pass and returns the loadable segments. The
// context must not be reused afterwards.
func PerformLinking(ctx *Context) ([]image.Segment, error) {
	if err := ReadInputFiles(ctx); err != nil {
		return nil, err
	}

	MergeSections(ctx)

	if err := CheckPlacements(ctx); err != nil {
		return nil, err
	}
	if err := AssignAddresses(ctx); err != nil {
		return nil, err
	}
	if err := InitGlobalSymbolTable(ctx); err != nil {
		return nil, err
	}
	if err := PatchRelocations(ctx); err != nil {
		return nil, err
	}

	return CreateSegments(ctx), nil
}

// MergeSections appends every module section to the merged section of the
// same name. Each module's section entry then holds its merge offset.
func MergeSections(ctx *Context) {
	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			m := GetMergedSection(ctx, isec.Name())
			m.AddInputSection(isec)
			isec.Symbol().Value = isec.Offset
		}
	}
}

// CheckPlacements validates the requested placements against the merged
// sections before any address is assigned.
func CheckPlacements(ctx *Context) error {
	seen := make(map[string]bool)
	var placed []*MergedSection

	for _, p := range ctx.Args.Placements {
		if seen[p.Section] {
			return errorf(ErrPlacement, "section %s placed twice", p.Section)
		}
		seen[p.Section] = true

		m, ok := ctx.mergedByName[p.Section]
		if !ok {
			log.WithFields(log.Fields{
				"section": p.Section,
				"address": p.Addr,
			}).Warn("placement for unknown section ignored")
			continue
		}

		c := Chunk{Name: m.Name, Addr: p.Addr, Size: m.Size}
		if c.End() > 1<<32 {
			return errorf(ErrAddressOverflow, "section %s at %#x with size %#x", m.Name, p.Addr, m.Size)
		}
		for _, other := range placed {
			if c.Overlaps(&other.Chunk) {
				return errorf(ErrOverlap, "%s [%#x, %#x) and %s [%#x, %#x)",
					other.Name, other.Addr, other.End(), c.Name, c.Addr, c.End())
			}
		}

		m.Addr = p.Addr
		m.Placed = true
		placed = append(placed, m)
	}
	return nil
}

// AssignAddresses bump-allocates every section without a placement, in
// first-seen order, above the highest placed address.
func AssignAddresses(ctx *Context) error {
	var next uint64
	for _, m := range ctx.MergedSections {
		if m.Placed && m.End() > next {
			next = m.End()
		}
	}

	for _, m := range ctx.MergedSections {
		if m.Placed {
			continue
		}
		if next+uint64(m.Size) > 1<<32 {
			return errorf(ErrAddressOverflow, "no room for section %s of size %#x", m.Name, m.Size)
		}
		m.Addr = uint32(next)
		m.Placed = true
		next += uint64(m.Size)
	}

	for _, m := range ctx.MergedSections {
		log.WithFields(log.Fields{
			"section": m.Name,
			"address": m.Addr,
			"size":    m.Size,
			"placed":  m.Placed,
		}).Debug("section address")
	}
	return nil
}

// InitGlobalSymbolTable publishes the absolute address of every exported
// symbol.
func InitGlobalSymbolTable(ctx *Context) error {
	for _, obj := range ctx.Objs {
		for _, sym := range obj.Module.Symbols {
			if sym.IsSection() || !sym.Defined || !sym.Global || sym.Extern {
				continue
			}
			isec := obj.InputSectionOf(sym)
			if isec == nil {
				return errorf(ErrInput, "%s: global %s has no section", obj.File.Name, sym.Name)
			}

			gsym := GetSymbolByName(ctx, sym.Name)
			if gsym.Defined() {
				return errorf(ErrSymbolRedeclaration, "%s defined in %s(%s) and %s(%s)",
					sym.Name, gsym.File.File.Name, gsym.InputSection.Name(), obj.File.Name, isec.Name())
			}
			gsym.File = obj
			gsym.SetInputSection(isec)
			gsym.Value = isec.Addr() + sym.Value
		}
	}
	return nil
}

// resolve computes what a relocation adds to its site.
func resolve(ctx *Context, obj *ObjectFile, rel object.Relocation) (uint32, error) {
	sym := obj.Module.Symbol(rel.Symbol)
	switch rel.Kind {
	case object.RelocSectionLocal:
		if !rel.BaseApplied {
			return 0, errors.Errorf("local relocation at %#x without a stored base", rel.Offset)
		}
		// The site already holds the offset inside the module's section;
		// sym.Value was rewritten to the merge offset.
		merged := obj.Sections[sym.Section].Merged
		return merged.Addr + sym.Value, nil
	case object.RelocGlobalSymbol:
		gsym, ok := ctx.SymbolMap[sym.Name]
		if !ok || !gsym.Defined() {
			return 0, errorf(ErrUndefinedSymbol, "%s referenced from %s", sym.Name, obj.File.Name)
		}
		return gsym.Value, nil
	}
	return 0, errors.Errorf("relocation kind %d", rel.Kind)
}

// PatchRelocations adds each resolved value onto the base stored at the
// relocation site. Every symbol is resolved before the first byte changes.
func PatchRelocations(ctx *Context) error {
	type patch struct {
		merged *MergedSection
		offset uint32
		value  uint32
	}
	var patches []patch

	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			for _, rel := range isec.Section().Relocations {
				value, err := resolve(ctx, obj, rel)
				if err != nil {
					return err
				}
				patches = append(patches, patch{
					merged: isec.Merged,
					offset: isec.Offset + rel.Offset,
					value:  value,
				})
			}
		}
	}

	for _, p := range patches {
		if err := p.merged.Memory.AddToAddress(p.offset, p.value); err != nil {
			if isec, off := p.merged.GetInputSection(p.offset); isec != nil {
				return errors.WrapPrefix(err, fmt.Sprintf("%s: %s+%#x", isec.File.File.Name, isec.Name(), off), 0)
			}
			return err
		}
	}
	return nil
}
