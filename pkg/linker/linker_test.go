package linker

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-errors/errors"

	"asmlnk/pkg/asmsrc"
	"asmlnk/pkg/image"
	"asmlnk/pkg/object"
	"asmlnk/pkg/utils"
)

// writeModules assembles each source into dir and returns the paths in
// order.
func writeModules(t *testing.T, sources ...string) []string {
	t.Helper()
	dir := t.TempDir()

	var paths []string
	for i, src := range sources {
		name := filepath.Join(dir, string(rune('a'+i))+".o")
		m, err := asmsrc.NewSession(name, []byte(src)).Run()
		if err != nil {
			t.Fatalf("module %d: %v", i, err)
		}
		if err := object.WriteFile(name, m); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, name)
	}
	return paths
}

func link(t *testing.T, paths []string, placements ...Placement) (*Context, []image.Segment, error) {
	t.Helper()
	ctx := NewContext()
	ctx.Args.Inputs = paths
	ctx.Args.Placements = placements
	segments, err := PerformLinking(ctx)
	return ctx, segments, err
}

func expectKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("expected %q, got %v", want, err)
	}
	if lerr.Kind != want {
		t.Fatalf("expected %q, got %q (%v)", want, lerr.Kind, err)
	}
}

func word(b []byte, offset int) uint32 {
	return utils.Read[uint32](b[offset : offset+4])
}

const (
	dataA = ".section .data\na: .word a\n"
	dataB = ".section .data\nb: .word b\n"
)

func TestMergeOffsetsSecondModule(t *testing.T) {
	paths := writeModules(t, dataA, dataB)

	ctx, segments, err := link(t, paths, Placement{Section: ".data", Addr: 0x1000})
	if err != nil {
		t.Fatal(err)
	}

	if len(ctx.MergedSections) != 1 {
		t.Fatalf("%d merged sections, want 1", len(ctx.MergedSections))
	}
	data := ctx.MergedSections[0]
	if data.Size != 8 {
		t.Errorf(".data size = %d, want 8", data.Size)
	}
	if got := ctx.Objs[1].Sections[0].Offset; got != 4 {
		t.Errorf("second module merge offset = %d, want 4", got)
	}
	if got := ctx.Objs[1].Module.SectionSymbol(0).Value; got != 4 {
		t.Errorf("second module section value = %d, want 4", got)
	}

	if len(segments) != 1 || segments[0].Address != 0x1000 {
		t.Fatalf("segments = %+v", segments)
	}
	if a, b := word(segments[0].Bytes, 0), word(segments[0].Bytes, 4); a != 0x1000 || b != 0x1004 {
		t.Errorf("a = %#x, b = %#x; want 0x1000, 0x1004", a, b)
	}
}

func TestOverlappingPlacements(t *testing.T) {
	paths := writeModules(t,
		".section A\n.skip 16\n",
		".section B\n.skip 8\n",
	)

	_, _, err := link(t, paths,
		Placement{Section: "A", Addr: 0x1000},
		Placement{Section: "B", Addr: 0x1005})
	expectKind(t, err, ErrOverlap)

	ctx, _, err := link(t, paths,
		Placement{Section: "A", Addr: 0x1000},
		Placement{Section: "B", Addr: 0x1010})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.MergedSections[1].Addr != 0x1010 {
		t.Errorf("B at %#x", ctx.MergedSections[1].Addr)
	}
}

func TestPlacementErrors(t *testing.T) {
	paths := writeModules(t, ".section A\n.skip 16\n")

	_, _, err := link(t, paths,
		Placement{Section: "A", Addr: 0x1000},
		Placement{Section: "A", Addr: 0x2000})
	expectKind(t, err, ErrPlacement)

	_, _, err = link(t, paths, Placement{Section: "A", Addr: 0xfffffff8})
	expectKind(t, err, ErrAddressOverflow)

	ctx, _, err := link(t, paths, Placement{Section: "missing", Addr: 0x10})
	if err != nil {
		t.Fatalf("placement of an unknown section: %v", err)
	}
	if ctx.MergedSections[0].Addr != 0 {
		t.Errorf("A at %#x, want 0", ctx.MergedSections[0].Addr)
	}
}

func TestAddressAssignmentOrder(t *testing.T) {
	paths := writeModules(t,
		".section .text\n.skip 8\n.section .data\n.skip 4\n",
		".section .bss\n.skip 16\n.section .text\n.skip 4\n",
	)

	ctx, segments, err := link(t, paths, Placement{Section: ".data", Addr: 0x100})
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		name string
		addr uint32
		size uint32
	}{
		{".text", 0x104, 12},
		{".data", 0x100, 4},
		{".bss", 0x110, 16},
	}
	for i, w := range want {
		m := ctx.MergedSections[i]
		if m.Name != w.name || m.Addr != w.addr || m.Size != w.size {
			t.Errorf("section %d = %s@%#x+%d, want %s@%#x+%d", i, m.Name, m.Addr, m.Size, w.name, w.addr, w.size)
		}
	}

	if len(segments) != 1 || segments[0].Address != 0x100 || len(segments[0].Bytes) != 32 {
		t.Errorf("contiguous sections were not joined: %+v", segments)
	}
}

const (
	caller = `.global main
.extern helper
.section .text
main:   call helper
        halt
`
	callee = `.global helper
.section .text
        halt
helper: ret
`
)

func TestGlobalSymbolResolution(t *testing.T) {
	paths := writeModules(t, caller, callee)

	ctx, segments, err := link(t, paths, Placement{Section: ".text", Addr: 0x40000000})
	if err != nil {
		t.Fatal(err)
	}

	if got := ctx.SymbolMap["main"].Value; got != 0x40000000 {
		t.Errorf("main = %#x", got)
	}
	if got := ctx.SymbolMap["helper"].Value; got != 0x40000010 {
		t.Errorf("helper = %#x", got)
	}

	if len(segments) != 1 || len(segments[0].Bytes) != 20 {
		t.Fatalf("segments = %+v", segments)
	}
	if got := word(segments[0].Bytes, 8); got != 0x40000010 {
		t.Errorf("call pool slot = %#x, want helper's address", got)
	}
}

func TestUnresolvedAndDuplicateGlobals(t *testing.T) {
	_, _, err := link(t, writeModules(t, caller))
	expectKind(t, err, ErrUndefinedSymbol)

	paths := writeModules(t, callee, callee)
	_, _, err = link(t, paths)
	expectKind(t, err, ErrSymbolRedeclaration)
	for _, want := range []string{paths[0] + "(.text)", paths[1] + "(.text)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("redeclaration %q does not name %s", err, want)
		}
	}
}

func TestRelinkIsByteIdentical(t *testing.T) {
	paths := writeModules(t, caller, callee, dataA, dataB)
	placements := []Placement{{Section: ".text", Addr: 0x40000000}}

	var outputs [2]bytes.Buffer
	for i := range outputs {
		_, segments, err := link(t, paths, placements...)
		if err != nil {
			t.Fatal(err)
		}
		if err := image.Write(&outputs[i], segments); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(outputs[0].Bytes(), outputs[1].Bytes()) {
		t.Errorf("relink differs:\n%s\nvs\n%s", outputs[0].String(), outputs[1].String())
	}
}

func TestGetInputSection(t *testing.T) {
	ctx := NewContext()
	ctx.Args.Inputs = writeModules(t, dataA, dataB)
	if err := ReadInputFiles(ctx); err != nil {
		t.Fatal(err)
	}
	MergeSections(ctx)

	m := ctx.MergedSections[0]
	isec, off := m.GetInputSection(5)
	if isec != ctx.Objs[1].Sections[0] || off != 1 {
		t.Errorf("GetInputSection(5) = %v, %d", isec, off)
	}
	if isec, _ := m.GetInputSection(8); isec != nil {
		t.Errorf("GetInputSection past the end = %v", isec)
	}
}

func TestRejectsNonObjectInput(t *testing.T) {
	err := ReadFile(NewContext(), &File{Name: "x.txt", Contents: []byte("hello")})
	expectKind(t, err, ErrInput)

	_, _, err = link(t, nil)
	expectKind(t, err, ErrInput)
}
