package approvals

import "errors"

var (
	ErrNotFound  = errors.New("approval state not found")
	ErrDuplicate = errors.New("approval state already exists")
)
