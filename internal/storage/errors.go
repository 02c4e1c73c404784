package storage

import "errors"

// Sentinels callers match with errors.Is.
var (
	// ErrDuplicate: a live token or catalog entry already holds the name.
	ErrDuplicate = errors.New("resource already exists")
	// ErrNotFound: no live row matched.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidKind: the kind column held something other than operator or named.
	ErrInvalidKind = errors.New("unknown token kind")
)
