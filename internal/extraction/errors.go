package extraction

import "errors"

// Typed extraction failures. Both are per-document conditions: the
// validation pipeline records them as issues instead of aborting the run.
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptDocument   = errors.New("corrupt document")
)
