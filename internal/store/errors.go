package store

import "errors"

var (
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyCanceled = errors.New("already canceled")
)
