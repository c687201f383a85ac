package namespace

import "errors"

var (
	ErrNotFound    = errors.New("no such file or directory")
	ErrNameTooLong = errors.New("file name too long")
	ErrInvalidName = errors.New("invalid file name")
	ErrInvalid     = errors.New("invalid argument")
	ErrIsDir       = errors.New("is a directory")
	ErrNotDir      = errors.New("not a directory")
	ErrNotEmpty    = errors.New("directory not empty")
	ErrExists      = errors.New("file exists")
	ErrOutOfMemory = errors.New("out of memory")
	ErrBusy        = errors.New("device or resource busy")
)
