package linker

import "asmlnk/pkg/object"

type ObjectFile struct {
	InputFile

	// Sections is indexed by object.SectionID.
	Sections []*InputSection
}

func NewObjectFile(file *File) (*ObjectFile, error) {
	in, err := NewInputFile(file)
	if err != nil {
		return nil, err
	}
	return &ObjectFile{InputFile: in}, nil
}

func (o *ObjectFile) Parse() {
	o.Sections = make([]*InputSection, 0, len(o.Module.Sections))
	for _, sec := range o.Module.Sections {
		o.Sections = append(o.Sections, NewInputSection(o, sec.ID))
	}
}

// InputSectionOf returns the contribution that owns sym, if it is placed
// in a section.
func (o *ObjectFile) InputSectionOf(sym *object.Symbol) *InputSection {
	if sym.Section == object.NoSection {
		return nil
	}
	return o.Sections[sym.Section]
}
