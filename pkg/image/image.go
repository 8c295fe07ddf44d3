// Package image reads and writes the loadable hex image produced by the
// linker.
package image

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"asmlnk/pkg/utils"
)

// BytesPerLine is the chunk width of one image line.
const BytesPerLine = 8

// Segment is a run of bytes loaded at consecutive addresses.
type Segment struct {
	Address uint32
	Bytes   []byte
}

func (s Segment) End() uint64 {
	return uint64(s.Address) + uint64(len(s.Bytes))
}

// Contains reports whether addr is loaded by one of the segments.
func Contains(segments []Segment, addr uint32) bool {
	for _, seg := range segments {
		if uint64(addr) >= uint64(seg.Address) && uint64(addr) < seg.End() {
			return true
		}
	}
	return false
}

func Write(w io.Writer, segments []Segment) error {
	bw := bufio.NewWriter(w)
	for _, seg := range segments {
		addr := seg.Address
		for i := 0; i < len(seg.Bytes); i += BytesPerLine {
			end := min(i+BytesPerLine, len(seg.Bytes))
			fmt.Fprintf(bw, "%08x:", addr)
			for _, b := range seg.Bytes[i:end] {
				fmt.Fprintf(bw, " %02x", b)
			}
			bw.WriteByte('\n')
			addr += BytesPerLine
		}
	}
	return bw.Flush()
}

func WriteFile(path string, segments []Segment) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, segments)
}

// Read parses an image, joining lines at contiguous addresses into one
// segment.
func Read(r io.Reader) ([]Segment, error) {
	var segments []Segment
	var next uint64 = 1 << 32

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		head, rest, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("image line %d: missing address", lineNo)
		}
		addr, err := utils.ParseUint32("0x" + strings.TrimSpace(head))
		if err != nil {
			return nil, fmt.Errorf("image line %d: %w", lineNo, err)
		}

		fields := strings.Fields(rest)
		if len(fields) > BytesPerLine {
			return nil, fmt.Errorf("image line %d: %d bytes on one line", lineNo, len(fields))
		}
		if uint64(addr) != next {
			segments = append(segments, Segment{Address: addr})
		}
		seg := &segments[len(segments)-1]
		for _, field := range fields {
			b, err := strconv.ParseUint(field, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("image line %d: bad byte %q", lineNo, field)
			}
			seg.Bytes = append(seg.Bytes, byte(b))
		}
		next = seg.End()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func ReadFile(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	segments, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segments, nil
}
