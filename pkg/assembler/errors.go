package assembler

import (
	"fmt"

	"github.com/go-errors/errors"
)

type ErrorCode int

const (
	ErrGlobalExternConflict ErrorCode = iota
	ErrSymbolRedeclaration
	ErrSectionRedeclaration
	ErrInstructionOutsideSection
	ErrUnrecognizedInstruction
	ErrValueOverflow
	ErrBackpatching
	ErrUndefinedSymbol
)

var errorMessages = [...]string{
	ErrGlobalExternConflict:      "symbol cannot be both extern and global",
	ErrSymbolRedeclaration:       "symbol redeclaration",
	ErrSectionRedeclaration:      "section redeclaration",
	ErrInstructionOutsideSection: "instruction used outside of a section",
	ErrUnrecognizedInstruction:   "unrecognized instruction",
	ErrValueOverflow:             "operand does not fit the instruction",
	ErrBackpatching:              "backpatching error",
	ErrUndefinedSymbol:           "undefined symbol",
}

func (c ErrorCode) String() string {
	if c < 0 || int(c) >= len(errorMessages) {
		return fmt.Sprintf("error(%d)", int(c))
	}
	return errorMessages[c]
}

// Error is fatal to the module being assembled.
type Error struct {
	Code   ErrorCode
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "assembler: " + e.Code.String()
	}
	return fmt.Sprintf("assembler: %s: %s", e.Code, e.Detail)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the assembler error code from err, if there is one.
func CodeOf(err error) (ErrorCode, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Code, true
	}
	return 0, false
}
