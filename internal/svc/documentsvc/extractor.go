package documentsvc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// TextExtractor returns the plain text of a document on disk.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PDFTextExtractor implements TextExtractor for PDF files.
type PDFTextExtractor struct{}

var _ TextExtractor = PDFTextExtractor{}

// Extract implements TextExtractor.Extract. The parser panics on some
// malformed inputs; those panics are returned as errors.
func (PDFTextExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse pdf: %v", p)
		}
	}()

	file, reader, err := pdf.Open(path)
	if file != nil {
		defer file.Close()
	}

	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("get plain text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}

	return buf.String(), nil
}
