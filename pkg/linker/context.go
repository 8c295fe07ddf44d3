package linker

// Placement pins a merged section to a start address.
type Placement struct {
	Section string
	Addr    uint32
}

type ContextArgs struct {
	Output     string
	Placements []Placement
	Inputs     []string
}

type Context struct {
	Args           ContextArgs
	Objs           []*ObjectFile
	SymbolMap      map[string]*Symbol
	MergedSections []*MergedSection

	mergedByName map[string]*MergedSection
}

func NewContext() *Context {
	return &Context{
		Args: ContextArgs{
			Output: "a.hex",
		},
		SymbolMap:    make(map[string]*Symbol),
		mergedByName: make(map[string]*MergedSection),
	}
}
