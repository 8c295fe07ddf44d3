package object

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"asmlnk/pkg/isa"
)

// sampleModule has a .text section using a local label through its pool
// and an extern through a data word.
func sampleModule() *Module {
	m := NewModule()

	text := m.AddSection(".text")
	loop := NewSymbol("loop")
	loop.Section = text.ID
	loop.Value = 4
	loop.Defined = true
	loop.Global = true
	m.AddSymbol(loop)

	ext := NewSymbol("printf")
	ext.Extern = true
	extID := m.AddSymbol(ext)

	text.Memory.WriteInstruction(isa.NewInstruction(isa.OpHalt, 0, 0, 0, 0))
	text.Memory.WriteInstruction(isa.NewInstruction(isa.OpJmpMem, uint8(isa.PC), 0, 0, 4))
	text.Memory.WriteWord(0)
	text.Memory.WriteLiteral(0)
	m.Symbol(text.Symbol).Size = text.Memory.Size()

	text.Relocations = []Relocation{
		{Opcode: isa.Data, Offset: 8, Symbol: extID, Kind: RelocGlobalSymbol},
		{Opcode: isa.OpJmpMem, Offset: 12, Symbol: text.Symbol, Kind: RelocSectionLocal, BaseApplied: true},
	}

	data := m.AddSection(".data")
	data.Memory.WriteWord(0xcafe)
	m.Symbol(data.Symbol).Size = data.Memory.Size()

	return m
}

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleModule()); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"Sym:",
		"UND:0:0:0:0:0:0",
		".text:1:0:0:0:0:16",
		"loop:1:4:1:0:1:0",
		"printf:0:0:0:1:0:0",
		".data:4:0:0:0:0:4",
		"Rel:1",
		"255:8:3",
		"56:12:1",
		"Code:1",
		"00 00 00 00 04 00 f0 38 00 00 00 00 00 00 00 00",
		"Code:4",
		"fe ca 00 00",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("Write() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRoundTrip(t *testing.T) {
	orig := sampleModule()

	var buf bytes.Buffer
	if err := Write(&buf, orig); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(got.Symbols) != len(orig.Symbols) {
		t.Fatalf("%d symbols, want %d", len(got.Symbols), len(orig.Symbols))
	}
	for i, sym := range orig.Symbols {
		g := got.Symbols[i]
		if g.Name != sym.Name || g.Kind != sym.Kind || g.Section != sym.Section ||
			g.Value != sym.Value || g.Global != sym.Global || g.Extern != sym.Extern ||
			g.Defined != sym.Defined || g.Size != sym.Size {
			t.Errorf("symbol %d = %+v, want %+v", i, g, sym)
		}
	}

	if len(got.Sections) != len(orig.Sections) {
		t.Fatalf("%d sections, want %d", len(got.Sections), len(orig.Sections))
	}
	for i, sec := range orig.Sections {
		g := got.Sections[i]
		if g.ID != sec.ID || g.Symbol != sec.Symbol {
			t.Errorf("section %d = id %d sym %d, want id %d sym %d", i, g.ID, g.Symbol, sec.ID, sec.Symbol)
		}
		if !bytes.Equal(g.Memory.Bytes(), sec.Memory.Bytes()) {
			t.Errorf("section %d bytes = % x, want % x", i, g.Memory.Bytes(), sec.Memory.Bytes())
		}
		if len(g.Relocations) != 0 || len(sec.Relocations) != 0 {
			if !reflect.DeepEqual(g.Relocations, sec.Relocations) {
				t.Errorf("section %d relocations = %+v, want %+v", i, g.Relocations, sec.Relocations)
			}
		}
	}

	var again bytes.Buffer
	if err := Write(&again, got); err != nil {
		t.Fatal(err)
	}
	var first bytes.Buffer
	Write(&first, orig)
	if again.String() != first.String() {
		t.Errorf("re-serialized module differs:\n%s\nvs\n%s", again.String(), first.String())
	}
}

func TestReadRejectsMalformedModules(t *testing.T) {
	cases := map[string]string{
		"no sentinel":       "Sym:\n.text:1:0:0:0:0:0\n",
		"short symbol":      "Sym:\nUND:0:0:0:0:0:0\nx:0:0\n",
		"bad flag":          "Sym:\nUND:0:0:0:0:0:0\nx:0:0:2:0:0:0\n",
		"size mismatch":     "Sym:\nUND:0:0:0:0:0:0\n.t:1:0:0:0:0:8\nCode:1\n00 00 00 00\n",
		"unknown section":   "Sym:\nUND:0:0:0:0:0:0\nx:5:0:0:0:1:0\n",
		"code for symbol":   "Sym:\nUND:0:0:0:0:0:0\nx:0:0:0:1:0:0\nCode:1\n00\n",
		"reloc out of size": "Sym:\nUND:0:0:0:0:0:0\n.t:1:0:0:0:0:4\nRel:1\n255:2:1\nCode:1\n00 00 00 00\n",
		"reloc bad symbol":  "Sym:\nUND:0:0:0:0:0:0\n.t:1:0:0:0:0:4\nRel:1\n255:0:9\nCode:1\n00 00 00 00\n",
		"bad byte":          "Sym:\nUND:0:0:0:0:0:0\n.t:1:0:0:0:0:1\nCode:1\nzz\n",
		"duplicate name":    "Sym:\nUND:0:0:0:0:0:0\nx:0:0:0:1:0:0\nx:0:0:0:1:0:0\n",
		"second sentinel":   "Sym:\nUND:0:0:0:0:0:0\nUND:0:0:0:1:0:0\n",
	}
	for name, text := range cases {
		if _, err := Read(strings.NewReader(text)); err == nil {
			t.Errorf("%s: Read accepted\n%s", name, text)
		}
	}
}
