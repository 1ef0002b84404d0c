package requests

import "errors"

var (
	ErrNotFound  = errors.New("document request not found")
	ErrDuplicate = errors.New("document request already exists")
	ErrNoNames   = errors.New("document request requires at least one name")
)
