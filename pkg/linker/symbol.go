package linker

// Symbol is an entry of the link-wide namespace.
type Symbol struct {
	File         *ObjectFile
	InputSection *InputSection
	Name         string
	Value        uint32
}

func NewSymbol(name string) *Symbol {
	s := &Symbol{
		Name: name,
	}

	return s
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
}

func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	ctx.SymbolMap[name] = NewSymbol(name)
	return ctx.SymbolMap[name]
}

func (s *Symbol) Defined() bool {
	return s.File != nil
}
