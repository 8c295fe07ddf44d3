package linker

import (
	"sort"

	"asmlnk/pkg/object"
)

// MergedSection concatenates every module's section of one name.
type MergedSection struct {
	Chunk

	Members []*InputSection
	Offsets []uint32
	Memory  *object.SectionMemory
}

func NewMergedSection(name string) *MergedSection {
	return &MergedSection{
		Chunk:  NewChunk(name),
		Memory: object.NewSectionMemory(),
	}
}

// GetMergedSection returns the section for name, creating it in
// first-seen order.
func GetMergedSection(ctx *Context, name string) *MergedSection {
	if m, ok := ctx.mergedByName[name]; ok {
		return m
	}
	m := NewMergedSection(name)
	ctx.mergedByName[name] = m
	ctx.MergedSections = append(ctx.MergedSections, m)
	return m
}

func (m *MergedSection) AddInputSection(isec *InputSection) {
	isec.Merged = m
	isec.Offset = m.Size

	m.Members = append(m.Members, isec)
	m.Offsets = append(m.Offsets, isec.Offset)
	m.Memory.Append(isec.Contents())
	m.Size = m.Memory.Size()
}

// GetInputSection maps an offset inside the merged section back to the
// contribution holding it, and the offset relative to that contribution.
func (m *MergedSection) GetInputSection(offset uint32) (*InputSection, uint32) {
	pos := sort.Search(len(m.Offsets), func(i int) bool {
		return offset < m.Offsets[i]
	})

	if pos == 0 || offset >= m.Size {
		return nil, 0
	}

	return m.Members[pos-1], offset - m.Offsets[pos-1]
}

func (m *MergedSection) Bytes() []byte {
	return m.Memory.Code()
}
