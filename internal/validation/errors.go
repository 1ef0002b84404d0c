package validation

import "errors"

var (
	ErrLoadDocuments = errors.New("load shipment documents failed")
	ErrInvalidState  = errors.New("workflow state missing or malformed")
)
