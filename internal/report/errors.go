package report

import "errors"

// Sentinel kinds for report output.
var (
	ErrUnknownFormat = errors.New("unknown report format")
	ErrWriteReport   = errors.New("write report")
)
