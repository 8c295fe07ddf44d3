package assembler

import (
	"fmt"

	"asmlnk/pkg/isa"
)

// Operand is one of Register, Literal or SymbolRef.
type Operand interface {
	operand()
}

type Register isa.Register

type Literal uint32

type SymbolRef string

func (Register) operand()  {}
func (Literal) operand()   {}
func (SymbolRef) operand() {}

func (r Register) String() string {
	switch isa.Register(r) {
	case isa.SP:
		return "%sp"
	case isa.PC:
		return "%pc"
	}
	return fmt.Sprintf("%%r%d", uint8(r))
}

type Mode uint8

const (
	ModeImmediate        Mode = iota // $v
	ModeMemory                       // v
	ModeRegister                     // %r
	ModeRegisterIndirect             // [%r]
	ModeRegisterOffset               // [%r + v]
	ModeControl                      // %status, %handler, %cause
)

// Arg is an instruction argument: an addressing mode together with its
// base register and/or value operand.
type Arg struct {
	Mode  Mode
	Base  Register
	Value Operand
}

func Imm(v Operand) Arg {
	return Arg{Mode: ModeImmediate, Value: v}
}

func Mem(v Operand) Arg {
	return Arg{Mode: ModeMemory, Value: v}
}

func Reg(r isa.Register) Arg {
	return Arg{Mode: ModeRegister, Base: Register(r)}
}

func Ind(r isa.Register) Arg {
	return Arg{Mode: ModeRegisterIndirect, Base: Register(r)}
}

func IndOff(r isa.Register, v Operand) Arg {
	return Arg{Mode: ModeRegisterOffset, Base: Register(r), Value: v}
}

func Csr(c isa.ControlRegister) Arg {
	return Arg{Mode: ModeControl, Base: Register(c)}
}

func (a Arg) String() string {
	switch a.Mode {
	case ModeImmediate:
		return fmt.Sprintf("$%v", a.Value)
	case ModeMemory:
		return fmt.Sprint(a.Value)
	case ModeRegister:
		return a.Base.String()
	case ModeRegisterIndirect:
		return fmt.Sprintf("[%s]", a.Base)
	case ModeRegisterOffset:
		return fmt.Sprintf("[%s + %v]", a.Base, a.Value)
	case ModeControl:
		return fmt.Sprintf("%%csr%d", uint8(a.Base))
	}
	return "?"
}
