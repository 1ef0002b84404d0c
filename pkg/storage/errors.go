package storage

import "errors"

// Domain errors for blob storage operations.
var (
	ErrNotFound        = errors.New("blob not found")
	ErrEmptyKey        = errors.New("blob key is empty")
	ErrInvalidKey      = errors.New("blob key contains invalid path segments")
	ErrUnknownProvider = errors.New("unknown storage provider")
)
