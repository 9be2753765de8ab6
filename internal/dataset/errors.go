package dataset

import "errors"

// Sentinel kinds for dataset I/O.
var (
	ErrNotFound  = errors.New("dataset file not found")
	ErrReadFile  = errors.New("read dataset file")
	ErrDecode    = errors.New("decode dataset")
	ErrWriteFile = errors.New("write dataset file")
)
