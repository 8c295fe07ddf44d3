package linker

import (
	"bytes"
	"os"

	"asmlnk/pkg/object"
)

type File struct {
	Name     string
	Contents []byte
}

func NewFile(filename string) (*File, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &File{Name: filename, Contents: contents}, nil
}

// InputFile is a decoded object module together with the file it came
// from.
type InputFile struct {
	File   *File
	Module *object.Module
}

func NewInputFile(file *File) (InputFile, error) {
	if GetFileType(file.Contents) != FileTypeObject {
		return InputFile{}, errorf(ErrInput, "%s: not an object module", file.Name)
	}

	module, err := object.Read(bytes.NewReader(file.Contents))
	if err != nil {
		return InputFile{}, errorf(ErrInput, "%s: %s", file.Name, err)
	}
	return InputFile{File: file, Module: module}, nil
}
