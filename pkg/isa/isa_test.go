package isa

import (
	"bytes"
	"testing"
)

func TestInstructionWireEncoding(t *testing.T) {
	inst := NewInstruction(OpLdMem, 1, uint8(PC), 3, -4)

	got := inst.Bytes()
	want := []byte{0xfc, 0x3f, 0x1f, 0x92}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes() = % x, want % x", got, want)
	}

	if inst.Word() != 0x921f3ffc {
		t.Errorf("Word() = %#x, want 0x921f3ffc", inst.Word())
	}

	back := Decode(got)
	if back != inst {
		t.Errorf("Decode(Bytes()) = %v, want %v", back, inst)
	}
	if back.Displacement() != -4 {
		t.Errorf("Displacement() = %d, want -4", back.Displacement())
	}
}

func TestDisplacementRange(t *testing.T) {
	cases := []struct {
		v    int64
		fits bool
	}{
		{0, true},
		{MaxDisplacement, true},
		{MinDisplacement, true},
		{MaxDisplacement + 1, false},
		{MinDisplacement - 1, false},
		{1 << 13, false},
	}
	for _, c := range cases {
		if FitsDisplacement(c.v) != c.fits {
			t.Errorf("FitsDisplacement(%d) = %v, want %v", c.v, !c.fits, c.fits)
		}
	}

	for _, d := range []int32{MinDisplacement, -1, 0, 1, MaxDisplacement} {
		inst := Instruction{Op: OpJmpMem}.WithDisplacement(d)
		if inst.Displacement() != d {
			t.Errorf("WithDisplacement(%d).Displacement() = %d", d, inst.Displacement())
		}
	}
}

func TestParseRegister(t *testing.T) {
	good := map[string]Register{
		"r0":  R0,
		"r7":  7,
		"r15": PC,
		"sp":  SP,
		"pc":  PC,
	}
	for name, want := range good {
		got, ok := ParseRegister(name)
		if !ok || got != want {
			t.Errorf("ParseRegister(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}

	for _, name := range []string{"", "r", "r16", "r01", "x1", "rsp", "%r1"} {
		if _, ok := ParseRegister(name); ok {
			t.Errorf("ParseRegister(%q) should fail", name)
		}
	}

	if csr, ok := ParseControlRegister("handler"); !ok || csr != Handler {
		t.Errorf("ParseControlRegister(handler) = %d, %v", csr, ok)
	}
	if _, ok := ParseControlRegister("r1"); ok {
		t.Errorf("ParseControlRegister(r1) should fail")
	}
}
