package linker

import (
	log "github.com/sirupsen/logrus"
)

func ReadInputFiles(ctx *Context) error {
	if len(ctx.Args.Inputs) == 0 {
		return errorf(ErrInput, "no input files")
	}
	for _, arg := range ctx.Args.Inputs {
		file, err := NewFile(arg)
		if err != nil {
			return err
		}
		if err := ReadFile(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func ReadFile(ctx *Context, file *File) error {
	ft := GetFileType(file.Contents)

	switch ft {
	case FileTypeObject:
		obj, err := CreateObjectFile(file)
		if err != nil {
			return err
		}
		ctx.Objs = append(ctx.Objs, obj)
		log.WithFields(log.Fields{
			"file":     file.Name,
			"sections": len(obj.Sections),
		}).Debug("read object module")
		return nil
	default:
		return errorf(ErrInput, "%s: unsupported file type %s", file.Name, ft)
	}
}

func CreateObjectFile(file *File) (*ObjectFile, error) {
	obj, err := NewObjectFile(file)
	if err != nil {
		return nil, err
	}
	obj.Parse()
	return obj, nil
}
