package object

import (
	stderrors "errors"
	"fmt"

	"github.com/go-errors/errors"

	"asmlnk/pkg/isa"
	"asmlnk/pkg/utils"
)

var ErrOutOfRange = stderrors.New("section memory access out of range")

// SectionMemory is the byte store of one section: a code stream followed
// by its literal pool. Both parts only grow; Repair* overwrite in place.
type SectionMemory struct {
	code []byte
	pool []byte
}

func NewSectionMemory() *SectionMemory {
	return &SectionMemory{}
}

// FromBytes wraps an already laid out section image. Everything counts as
// code; the pool is empty.
func FromBytes(b []byte) *SectionMemory {
	code := make([]byte, len(b))
	copy(code, b)
	return &SectionMemory{code: code}
}

func (m *SectionMemory) WriteWord(w uint32) {
	var b [isa.WordSize]byte
	utils.Write[uint32](b[:], w)
	m.code = append(m.code, b[:]...)
}

func (m *SectionMemory) WriteInstruction(i isa.Instruction) {
	m.code = append(m.code, i.Bytes()...)
}

func (m *SectionMemory) WriteBSS(n uint32) {
	m.code = append(m.code, make([]byte, n)...)
}

// WriteLiteral appends v to the pool and returns its pool-relative offset.
func (m *SectionMemory) WriteLiteral(v uint32) uint32 {
	offset := uint32(len(m.pool))
	var b [isa.WordSize]byte
	utils.Write[uint32](b[:], v)
	m.pool = append(m.pool, b[:]...)
	return offset
}

func (m *SectionMemory) Append(b []byte) {
	m.code = append(m.code, b...)
}

func (m *SectionMemory) RepairMemory(start uint32, b []byte) error {
	return repair(m.code, "code", start, b)
}

func (m *SectionMemory) RepairLiteralPool(start uint32, b []byte) error {
	return repair(m.pool, "literal pool", start, b)
}

func repair(dst []byte, what string, start uint32, b []byte) error {
	end := uint64(start) + uint64(len(b))
	if end > uint64(len(dst)) {
		return errors.WrapPrefix(ErrOutOfRange,
			fmt.Sprintf("repair %s [%#x, %#x) of %d bytes", what, start, end, len(dst)), 1)
	}
	copy(dst[start:end], b)
	return nil
}

// word returns the 4 bytes at offset in the code ‖ pool view.
func (m *SectionMemory) word(offset uint32) ([]byte, error) {
	end := uint64(offset) + isa.WordSize
	codeSize := uint64(len(m.code))
	switch {
	case end <= codeSize:
		return m.code[offset:end], nil
	case uint64(offset) >= codeSize && end <= codeSize+uint64(len(m.pool)):
		start := uint64(offset) - codeSize
		return m.pool[start : start+isa.WordSize], nil
	}
	return nil, errors.WrapPrefix(ErrOutOfRange,
		fmt.Sprintf("word at %#x of %d byte section", offset, m.Size()), 2)
}

func (m *SectionMemory) ReadWord(offset uint32) (uint32, error) {
	b, err := m.word(offset)
	if err != nil {
		return 0, err
	}
	return utils.Read[uint32](b), nil
}

// AddToAddress adds delta to the little endian word stored at offset.
func (m *SectionMemory) AddToAddress(offset uint32, delta uint32) error {
	b, err := m.word(offset)
	if err != nil {
		return err
	}
	utils.Write[uint32](b, utils.Read[uint32](b)+delta)
	return nil
}

// WriteAddress overwrites the word at offset.
func (m *SectionMemory) WriteAddress(offset uint32, value uint32) error {
	b, err := m.word(offset)
	if err != nil {
		return err
	}
	utils.Write[uint32](b, value)
	return nil
}

func (m *SectionMemory) CodeSize() uint32 {
	return uint32(len(m.code))
}

func (m *SectionMemory) PoolSize() uint32 {
	return uint32(len(m.pool))
}

func (m *SectionMemory) Size() uint32 {
	return m.CodeSize() + m.PoolSize()
}

func (m *SectionMemory) Code() []byte {
	return m.code
}

// Bytes returns a fresh copy of code followed by the literal pool.
func (m *SectionMemory) Bytes() []byte {
	b := make([]byte, 0, len(m.code)+len(m.pool))
	b = append(b, m.code...)
	return append(b, m.pool...)
}
