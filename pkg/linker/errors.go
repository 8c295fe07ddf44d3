package linker

import "fmt"

type ErrorKind int

const (
	ErrInput ErrorKind = iota
	ErrPlacement
	ErrOverlap
	ErrAddressOverflow
	ErrSymbolRedeclaration
	ErrUndefinedSymbol
)

var errorKinds = [...]string{
	ErrInput:               "bad input",
	ErrPlacement:           "bad placement",
	ErrOverlap:             "sections overlap",
	ErrAddressOverflow:     "address space exhausted",
	ErrSymbolRedeclaration: "symbol redeclaration",
	ErrUndefinedSymbol:     "undefined symbol",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKinds) {
		return fmt.Sprintf("error(%d)", int(k))
	}
	return errorKinds[k]
}

// Error aborts the whole link.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("linker: %s: %s", e.Kind, e.Msg)
}

func errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
