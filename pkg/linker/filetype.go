package linker

import "bytes"

type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty
	FileTypeObject
)

var objectMagic = []byte("Sym:")

func GetFileType(contents []byte) FileType {
	trimmed := bytes.TrimLeft(contents, " \t\r\n")
	if len(trimmed) == 0 {
		return FileTypeEmpty
	}
	if bytes.HasPrefix(trimmed, objectMagic) {
		return FileTypeObject
	}
	return FileTypeUnknown
}

func (ft FileType) String() string {
	switch ft {
	case FileTypeEmpty:
		return "empty"
	case FileTypeObject:
		return "object"
	}
	return "unknown"
}
