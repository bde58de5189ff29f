// Package record persists whole documents (a JSON array, a counters object, a
// text blob) in a single file. Every read decodes the whole document and every
// write replaces it.
package record

import (
	"context"
	"errors"
)

// ErrCorrupted is returned when the backing document cannot be decoded.
// Corrupted documents are never repaired automatically.
var ErrCorrupted = errors.New("record document corrupted")

// Store is a file-backed document treated as a single unit on every read or write.
type Store[T any] interface {
	// Ensure creates the containing directory and, if the document does not
	// exist yet, writes the store's initial value. Ensure is idempotent.
	Ensure(ctx context.Context) error

	// ReadAll returns the decoded document, creating it first if missing.
	ReadAll(ctx context.Context) (T, error)

	// WriteAll replaces the document with the given value.
	WriteAll(ctx context.Context, value T) error

	// Update reads the document, applies fn and writes the result back while
	// holding the store's exclusive lock. Nothing is written if fn fails.
	Update(ctx context.Context, fn func(value *T) error) error
}
