// Package apperr holds sentinel errors shared across stk packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("conflict")
	ErrUsage         = errors.New("usage error")

	// ErrFileNotAvailable marks a playlist entry whose recording cannot be
	// classified because it is missing on disk.
	ErrFileNotAvailable = errors.New("file not available")
)
