package domain

import (
	"fmt"
	"io"
)

// Blob is a binary object held in memory together with its identifier.
type Blob struct {
	ID   BlobID
	Body []byte
}

// NewBlob creates a new Blob with the given ID and content.
func NewBlob(id BlobID, body []byte) *Blob {
	return &Blob{
		ID:   id,
		Body: body,
	}
}

// Size returns the size of the blob's content in bytes.
func (blob *Blob) Size() int64 {
	return int64(len(blob.Body))
}

// WriteTo implements io.WriterTo.
func (blob *Blob) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(blob.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}

// ReadFrom implements io.ReaderFrom and replaces the blob's content.
func (blob *Blob) ReadFrom(reader io.Reader) (int64, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read all: %w", err)
	}

	blob.Body = body

	return int64(len(body)), nil
}
