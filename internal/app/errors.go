package app

import "errors"

var (
	// ErrInput covers missing, unreadable or empty source files.
	ErrInput = errors.New("invalid input document")

	// ErrNoChunks means a readable document produced no legal units.
	ErrNoChunks = errors.New("no text chunks could be created; the file may be image-only or corrupted")

	// ErrBackend wraps embedding and vector store failures.
	ErrBackend = errors.New("backend failure")
)
