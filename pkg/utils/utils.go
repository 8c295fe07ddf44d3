package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// Prog is the tool name printed in front of fatal diagnostics.
var Prog = "asmlnk"

// Trace enables stack dumps on Fatal.
var Trace = false

func Fatal(v any) {
	fmt.Fprintf(os.Stderr, "%s:\n\t\033[0;1;31mfatal\033[0m: %v\n", Prog, v)
	if Trace {
		var stacked *errors.Error
		if err, ok := v.(error); ok && errors.As(err, &stacked) {
			os.Stderr.Write(stacked.Stack())
		} else {
			debug.PrintStack()
		}
	}
	os.Exit(1)
}

func MustNo(err error) {
	if err != nil {
		Fatal(err)
	}
}

func Read[T any](data []byte) (val T) {
	reader := bytes.NewReader(data)
	err := binary.Read(reader, binary.LittleEndian, &val)

	MustNo(err)

	return val
}

func Write[T any](data []byte, e T) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, binary.LittleEndian, e)
	MustNo(err)
	copy(data, buf.Bytes())
}

func Assert(condition bool) {
	if !condition {
		Fatal("Assert Failed")
	}
}

func RemovePrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return strings.TrimPrefix(s, prefix), true
	}
	return s, false
}

// ParseUint32 accepts decimal, 0x, 0o and 0b forms.
func ParseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}

// ParseInt32 is ParseUint32 for values that may carry a minus sign.
// Values up to 0xffffffff are accepted and wrap.
func ParseInt32(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if rest, ok := RemovePrefix(s, "-"); ok {
		v, err := strconv.ParseUint(rest, 0, 32)
		if err != nil || v > 1<<31 {
			return 0, fmt.Errorf("invalid number %q", s)
		}
		return -int32(v), nil
	}
	v, err := ParseUint32(s)
	return int32(v), err
}
