package out

import "errors"

// Errors shared by all storage adapters. The inference service branches on
// these, so both backends must return them for the same conditions.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")
)
