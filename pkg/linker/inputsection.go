package linker

import (
	"asmlnk/pkg/object"
	"asmlnk/pkg/utils"
)

// InputSection is one module's contribution to a merged section.
type InputSection struct {
	File  *ObjectFile
	SecID object.SectionID

	// Set by MergeSections.
	Merged *MergedSection
	Offset uint32
}

func NewInputSection(file *ObjectFile, id object.SectionID) *InputSection {
	return &InputSection{
		File:  file,
		SecID: id,
	}
}

func (i *InputSection) Section() *object.Section {
	utils.Assert(int(i.SecID) < len(i.File.Module.Sections))
	return i.File.Module.Section(i.SecID)
}

func (i *InputSection) Symbol() *object.Symbol {
	return i.File.Module.SectionSymbol(i.SecID)
}

func (i *InputSection) Name() string {
	return i.Symbol().Name
}

func (i *InputSection) Contents() []byte {
	return i.Section().Memory.Bytes()
}

func (i *InputSection) Size() uint32 {
	return i.Section().Memory.Size()
}

// Addr is the absolute address of the contribution's first byte.
func (i *InputSection) Addr() uint32 {
	utils.Assert(i.Merged != nil)
	return i.Merged.Addr + i.Offset
}
