package record

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory. Values pass through the codec on
// every write and read, so callers never share memory with the store and
// encoding failures surface just like they would on disk.
type MemoryStore[T any] struct {
	codec   Codec[T]
	initial T
	data    []byte
	m       sync.Mutex
}

var _ Store[string] = (*MemoryStore[string])(nil)

// NewMemoryStore creates an in-memory store holding initial until first written.
func NewMemoryStore[T any](codec Codec[T], initial T) *MemoryStore[T] {
	return &MemoryStore[T]{codec: codec, initial: initial}
}

// Ensure implements Store.Ensure.
func (s *MemoryStore[T]) Ensure(_ context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	return s.ensure()
}

// ReadAll implements Store.ReadAll.
func (s *MemoryStore[T]) ReadAll(_ context.Context) (T, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.ensure(); err != nil {
		var zero T

		return zero, err
	}

	return s.codec.Decode(s.data)
}

// WriteAll implements Store.WriteAll.
func (s *MemoryStore[T]) WriteAll(_ context.Context, value T) error {
	s.m.Lock()
	defer s.m.Unlock()

	return s.write(value)
}

// Update implements Store.Update.
func (s *MemoryStore[T]) Update(_ context.Context, fn func(value *T) error) error {
	s.m.Lock()
	defer s.m.Unlock()

	if err := s.ensure(); err != nil {
		return err
	}

	value, err := s.codec.Decode(s.data)
	if err != nil {
		return err
	}

	if err := fn(&value); err != nil {
		return err
	}

	return s.write(value)
}

// Corrupt replaces the stored bytes verbatim.
func (s *MemoryStore[T]) Corrupt(data []byte) {
	s.m.Lock()
	defer s.m.Unlock()

	s.data = data
}

func (s *MemoryStore[T]) ensure() error {
	if s.data != nil {
		return nil
	}

	return s.write(s.initial)
}

func (s *MemoryStore[T]) write(value T) error {
	data, err := s.codec.Encode(value)
	if err != nil {
		return err
	}

	if data == nil {
		data = []byte{}
	}

	s.data = data

	return nil
}
