package isa

import (
	"fmt"

	"asmlnk/pkg/utils"
)

type Opcode uint8

const (
	OpHalt Opcode = 0x00
	OpInt  Opcode = 0x10

	OpCallRegDir Opcode = 0x20
	OpCallMem    Opcode = 0x21

	OpJmpImm Opcode = 0x30
	OpBeqImm Opcode = 0x31
	OpBneImm Opcode = 0x32
	OpBgtImm Opcode = 0x33
	OpJmpMem Opcode = 0x38
	OpBeqMem Opcode = 0x39
	OpBneMem Opcode = 0x3A
	OpBgtMem Opcode = 0x3B

	OpXchg Opcode = 0x40

	OpAdd Opcode = 0x50
	OpSub Opcode = 0x51
	OpMul Opcode = 0x52
	OpDiv Opcode = 0x53

	OpNot Opcode = 0x60
	OpAnd Opcode = 0x61
	OpOr  Opcode = 0x62
	OpXor Opcode = 0x63

	OpShl Opcode = 0x70
	OpShr Opcode = 0x71

	OpStMem     Opcode = 0x80
	OpStMemPush Opcode = 0x81
	OpStMemInd  Opcode = 0x82

	OpLdCsr        Opcode = 0x90
	OpLdReg        Opcode = 0x91
	OpLdMem        Opcode = 0x92
	OpLdMemPostInc Opcode = 0x93

	OpCsrWrReg        Opcode = 0x94
	OpCsrOr           Opcode = 0x95
	OpCsrLdMem        Opcode = 0x96
	OpCsrLdMemPostInc Opcode = 0x97
)

// Data marks relocations and usages that stem from a data word rather
// than an instruction.
const Data Opcode = 0xFF

var opcodeNames = map[Opcode]string{
	OpHalt: "halt", OpInt: "int",
	OpCallRegDir: "call.reg", OpCallMem: "call.mem",
	OpJmpImm: "jmp.imm", OpBeqImm: "beq.imm", OpBneImm: "bne.imm", OpBgtImm: "bgt.imm",
	OpJmpMem: "jmp.mem", OpBeqMem: "beq.mem", OpBneMem: "bne.mem", OpBgtMem: "bgt.mem",
	OpXchg: "xchg",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div",
	OpNot: "not", OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpShr: "shr",
	OpStMem: "st.mem", OpStMemPush: "st.push", OpStMemInd: "st.ind",
	OpLdCsr: "ld.csr", OpLdReg: "ld.reg", OpLdMem: "ld.mem", OpLdMemPostInc: "ld.postinc",
	OpCsrWrReg: "csr.reg", OpCsrOr: "csr.or", OpCsrLdMem: "csr.mem", OpCsrLdMemPostInc: "csr.postinc",
	Data: "data",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%#02x)", uint8(o))
}

type Register uint8

const (
	R0 Register = 0
	SP Register = 14
	PC Register = 15

	NumRegisters = 16
)

type ControlRegister uint8

const (
	Status ControlRegister = iota
	Handler
	Cause

	NumControlRegisters = 3
)

const (
	InstructionSize = 4
	WordSize        = 4

	DisplacementBits = 12
	MinDisplacement  = -(1 << (DisplacementBits - 1))
	MaxDisplacement  = 1<<(DisplacementBits-1) - 1

	// ResetVector is where the emulator starts executing a loaded image.
	ResetVector uint32 = 0x40000000
)

func FitsDisplacement(v int64) bool {
	return v >= MinDisplacement && v <= MaxDisplacement
}

// Instruction is one packed machine instruction. Disp holds the raw
// 12-bit two's complement field.
type Instruction struct {
	Op   Opcode
	RegA uint8
	RegB uint8
	RegC uint8
	Disp uint16
}

func NewInstruction(op Opcode, a, b, c uint8, disp int32) Instruction {
	return Instruction{
		Op:   op,
		RegA: a & 0x0F,
		RegB: b & 0x0F,
		RegC: c & 0x0F,
		Disp: uint16(disp) & 0x0FFF,
	}
}

// WithDisplacement returns a copy of the template with its displacement
// field replaced.
func (i Instruction) WithDisplacement(disp int32) Instruction {
	i.Disp = uint16(disp) & 0x0FFF
	return i
}

// Displacement sign-extends the 12-bit field.
func (i Instruction) Displacement() int32 {
	d := int32(i.Disp & 0x0FFF)
	if d&0x800 != 0 {
		d -= 1 << DisplacementBits
	}
	return d
}

func (i Instruction) Word() uint32 {
	return uint32(i.Op)<<24 |
		uint32(i.RegA&0x0F)<<20 |
		uint32(i.RegB&0x0F)<<16 |
		uint32(i.RegC&0x0F)<<12 |
		uint32(i.Disp&0x0FFF)
}

// Bytes is the in-memory form: the packed word, little endian.
func (i Instruction) Bytes() []byte {
	b := make([]byte, InstructionSize)
	utils.Write[uint32](b, i.Word())
	return b
}

func FromWord(w uint32) Instruction {
	return Instruction{
		Op:   Opcode(w >> 24),
		RegA: uint8(w>>20) & 0x0F,
		RegB: uint8(w>>16) & 0x0F,
		RegC: uint8(w>>12) & 0x0F,
		Disp: uint16(w & 0x0FFF),
	}
}

func Decode(b []byte) Instruction {
	utils.Assert(len(b) >= InstructionSize)
	return FromWord(utils.Read[uint32](b[:InstructionSize]))
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s a=%d b=%d c=%d d=%d", i.Op, i.RegA, i.RegB, i.RegC, i.Displacement())
}

var controlRegisterNames = map[string]ControlRegister{
	"status":  Status,
	"handler": Handler,
	"cause":   Cause,
}

// ParseRegister accepts r0..r15, sp and pc, without the leading '%'.
func ParseRegister(name string) (Register, bool) {
	switch name {
	case "sp":
		return SP, true
	case "pc":
		return PC, true
	}
	if len(name) < 2 || name[0] != 'r' {
		return 0, false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n >= NumRegisters {
			return 0, false
		}
	}
	if len(name) > 2 && name[1] == '0' {
		return 0, false
	}
	return Register(n), true
}

func ParseControlRegister(name string) (ControlRegister, bool) {
	csr, ok := controlRegisterNames[name]
	return csr, ok
}
