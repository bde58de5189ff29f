package record

import (
	"encoding/json"
	"fmt"
)

// Codec converts a document to and from its on-disk representation.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec stores documents as indented JSON.
type JSONCodec[T any] struct{}

var _ Codec[[]string] = JSONCodec[[]string]{}

// Encode implements Codec.
func (JSONCodec[T]) Encode(value T) ([]byte, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return data, nil
}

// Decode implements Codec. Syntax errors are reported as ErrCorrupted.
func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var value T

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	return value, nil
}

// TextCodec stores a string document verbatim.
type TextCodec struct{}

var _ Codec[string] = TextCodec{}

// Encode implements Codec.
func (TextCodec) Encode(value string) ([]byte, error) {
	return []byte(value), nil
}

// Decode implements Codec.
func (TextCodec) Decode(data []byte) (string, error) {
	return string(data), nil
}
