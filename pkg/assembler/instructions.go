package assembler

import (
	"strings"

	"asmlnk/pkg/isa"
)

type encoder func(args []Arg) ([]word, error)

type mnemonic struct {
	arity  int
	encode encoder
}

var mnemonics = map[string]mnemonic{
	"halt": {0, fixed(isa.NewInstruction(isa.OpHalt, 0, 0, 0, 0))},
	"int":  {0, fixed(isa.NewInstruction(isa.OpInt, 0, 0, 0, 0))},
	"iret": {0, fixed(
		isa.NewInstruction(isa.OpCsrLdMem, uint8(isa.Status), uint8(isa.SP), 0, 4),
		isa.NewInstruction(isa.OpLdMemPostInc, uint8(isa.PC), uint8(isa.SP), 0, 8),
	)},
	"ret": {0, fixed(isa.NewInstruction(isa.OpLdMemPostInc, uint8(isa.PC), uint8(isa.SP), 0, 4))},

	"call": {1, jump(isa.OpCallMem)},
	"jmp":  {1, jump(isa.OpJmpMem)},
	"beq":  {3, branch(isa.OpBeqMem)},
	"bne":  {3, branch(isa.OpBneMem)},
	"bgt":  {3, branch(isa.OpBgtMem)},

	"push": {1, encodePush},
	"pop":  {1, encodePop},
	"not":  {1, encodeNot},
	"xchg": {2, encodeXchg},

	"add": {2, alu(isa.OpAdd)},
	"sub": {2, alu(isa.OpSub)},
	"mul": {2, alu(isa.OpMul)},
	"div": {2, alu(isa.OpDiv)},
	"and": {2, alu(isa.OpAnd)},
	"or":  {2, alu(isa.OpOr)},
	"xor": {2, alu(isa.OpXor)},
	"shl": {2, alu(isa.OpShl)},
	"shr": {2, alu(isa.OpShr)},

	"ld":    {2, encodeLoad},
	"st":    {2, encodeStore},
	"csrrd": {2, encodeCsrrd},
	"csrwr": {2, encodeCsrwr},
}

// Instruction encodes and emits one mnemonic. Operands are validated in
// full before the first byte is written.
func (a *Assembler) Instruction(name string, args ...Arg) error {
	sec, err := a.requireSection()
	if err != nil {
		return err
	}

	m, ok := mnemonics[strings.ToLower(name)]
	if !ok {
		return newError(ErrUnrecognizedInstruction, "%s", name)
	}
	if len(args) != m.arity {
		return newError(ErrUnrecognizedInstruction, "%s takes %d operands, got %d", name, m.arity, len(args))
	}

	words, err := m.encode(args)
	if err != nil {
		if aerr, ok := err.(*Error); ok {
			aerr.Detail = name + ": " + aerr.Detail
		}
		return err
	}

	var size uint64
	for _, w := range words {
		size += isa.InstructionSize
		if w.pool != nil {
			size += isa.WordSize
		}
		if ref, ok := w.pool.(SymbolRef); ok {
			if err := reserved(string(ref)); err != nil {
				return err
			}
		}
	}
	if err := a.reserve(sec, size); err != nil {
		return err
	}

	a.emit(sec, words)
	return nil
}

func badOperand(arg Arg) error {
	return newError(ErrUnrecognizedInstruction, "unsupported operand %s", arg)
}

func fixed(insts ...isa.Instruction) encoder {
	return func([]Arg) ([]word, error) {
		words := make([]word, len(insts))
		for i, inst := range insts {
			words[i] = word{inst: inst}
		}
		return words, nil
	}
}

func register(arg Arg) (uint8, error) {
	if arg.Mode != ModeRegister {
		return 0, badOperand(arg)
	}
	return uint8(arg.Base), nil
}

func control(arg Arg) (uint8, error) {
	if arg.Mode != ModeControl || uint8(arg.Base) >= isa.NumControlRegisters {
		return 0, badOperand(arg)
	}
	return uint8(arg.Base), nil
}

// target accepts the bare literal/symbol operand of jumps.
func target(arg Arg) (Operand, error) {
	if arg.Mode != ModeMemory && arg.Mode != ModeImmediate {
		return nil, badOperand(arg)
	}
	switch arg.Value.(type) {
	case Literal, SymbolRef:
		return arg.Value, nil
	}
	return nil, badOperand(arg)
}

// displacement validates the literal of a [%r + lit] operand.
func displacement(arg Arg) (int32, error) {
	switch v := arg.Value.(type) {
	case Literal:
		d := int32(v)
		if !isa.FitsDisplacement(int64(d)) {
			return 0, newError(ErrValueOverflow, "displacement %d", d)
		}
		return d, nil
	case SymbolRef:
		return 0, newError(ErrUnrecognizedInstruction, "symbol %s cannot be used as a displacement", v)
	}
	return 0, badOperand(arg)
}

func jump(op isa.Opcode) encoder {
	return func(args []Arg) ([]word, error) {
		v, err := target(args[0])
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(op, uint8(isa.PC), 0, 0, 0), pool: v}}, nil
	}
}

func branch(op isa.Opcode) encoder {
	return func(args []Arg) ([]word, error) {
		r1, err := register(args[0])
		if err != nil {
			return nil, err
		}
		r2, err := register(args[1])
		if err != nil {
			return nil, err
		}
		v, err := target(args[2])
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(op, uint8(isa.PC), r1, r2, 0), pool: v}}, nil
	}
}

func alu(op isa.Opcode) encoder {
	return func(args []Arg) ([]word, error) {
		src, err := register(args[0])
		if err != nil {
			return nil, err
		}
		dst, err := register(args[1])
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(op, dst, dst, src, 0)}}, nil
	}
}

func encodePush(args []Arg) ([]word, error) {
	r, err := register(args[0])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpStMemPush, uint8(isa.SP), 0, r, -isa.WordSize)}}, nil
}

func encodePop(args []Arg) ([]word, error) {
	r, err := register(args[0])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpLdMemPostInc, r, uint8(isa.SP), 0, isa.WordSize)}}, nil
}

func encodeNot(args []Arg) ([]word, error) {
	r, err := register(args[0])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpNot, r, r, 0, 0)}}, nil
}

func encodeXchg(args []Arg) ([]word, error) {
	src, err := register(args[0])
	if err != nil {
		return nil, err
	}
	dst, err := register(args[1])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpXchg, 0, dst, src, 0)}}, nil
}

func encodeLoad(args []Arg) ([]word, error) {
	src := args[0]
	dst, err := register(args[1])
	if err != nil {
		return nil, err
	}
	pc := uint8(isa.PC)

	switch src.Mode {
	case ModeImmediate:
		v, err := target(src)
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(isa.OpLdMem, dst, pc, 0, 0), pool: v}}, nil
	case ModeMemory:
		v, err := target(src)
		if err != nil {
			return nil, err
		}
		return []word{
			{inst: isa.NewInstruction(isa.OpLdMem, dst, pc, 0, 0), pool: v},
			{inst: isa.NewInstruction(isa.OpLdMem, dst, dst, 0, 0)},
		}, nil
	case ModeRegister:
		return []word{{inst: isa.NewInstruction(isa.OpLdReg, dst, uint8(src.Base), 0, 0)}}, nil
	case ModeRegisterIndirect:
		return []word{{inst: isa.NewInstruction(isa.OpLdMem, dst, uint8(src.Base), 0, 0)}}, nil
	case ModeRegisterOffset:
		d, err := displacement(src)
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(isa.OpLdMem, dst, uint8(src.Base), 0, d)}}, nil
	}
	return nil, badOperand(src)
}

func encodeStore(args []Arg) ([]word, error) {
	src, err := register(args[0])
	if err != nil {
		return nil, err
	}
	dst := args[1]

	switch dst.Mode {
	case ModeMemory:
		v, err := target(dst)
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(isa.OpStMemInd, uint8(isa.PC), 0, src, 0), pool: v}}, nil
	case ModeRegister:
		return []word{{inst: isa.NewInstruction(isa.OpLdReg, uint8(dst.Base), src, 0, 0)}}, nil
	case ModeRegisterIndirect:
		return []word{{inst: isa.NewInstruction(isa.OpStMem, uint8(dst.Base), 0, src, 0)}}, nil
	case ModeRegisterOffset:
		d, err := displacement(dst)
		if err != nil {
			return nil, err
		}
		return []word{{inst: isa.NewInstruction(isa.OpStMem, uint8(dst.Base), 0, src, d)}}, nil
	}
	return nil, badOperand(dst)
}

func encodeCsrrd(args []Arg) ([]word, error) {
	csr, err := control(args[0])
	if err != nil {
		return nil, err
	}
	dst, err := register(args[1])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpLdCsr, dst, csr, 0, 0)}}, nil
}

func encodeCsrwr(args []Arg) ([]word, error) {
	src, err := register(args[0])
	if err != nil {
		return nil, err
	}
	csr, err := control(args[1])
	if err != nil {
		return nil, err
	}
	return []word{{inst: isa.NewInstruction(isa.OpCsrWrReg, csr, src, 0, 0)}}, nil
}
