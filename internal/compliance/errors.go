package compliance

import "errors"

// Domain errors for dataset lifecycle.
var (
	// ErrUninitialized is returned when validation is attempted before any
	// dataset load has succeeded.
	ErrUninitialized = errors.New("compliance dataset not initialized")
	// ErrLoadFailed is returned when a dataset source cannot be parsed or
	// fails schema validation. The prior snapshot, if any, stays in effect.
	ErrLoadFailed = errors.New("compliance dataset load failed")
)
