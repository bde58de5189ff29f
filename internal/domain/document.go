package domain

import (
	"errors"
)

var (
	// ErrNoUpload is returned when an upload request carries no file.
	ErrNoUpload = errors.New("no PDF file uploaded")
	// ErrUnsupportedType is returned when an upload is not a PDF.
	ErrUnsupportedType = errors.New("only PDF files are allowed")
	// ErrUploadTooLarge is returned when an upload exceeds the configured size cap.
	ErrUploadTooLarge = errors.New("upload too large")
	// ErrInvalidFilename is returned when a filename is empty or escapes the upload directory.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrExtractionFailed wraps PDF parser failures.
	ErrExtractionFailed = errors.New("failed to extract PDF content")
	// ErrProcessingFailed wraps generative model failures during summarization.
	ErrProcessingFailed = errors.New("failed to process PDF content with model")
)

// MIMETypePDF is the only media type accepted for uploads.
const MIMETypePDF = "application/pdf"

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

// ChunkFailure describes a chunk the model failed to process.
type ChunkFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Summary is the outcome of sending a document through the model chunk by chunk.
// Responses are in chunk order.
type Summary struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Responses []string       `json:"responses"`
	Failures  []ChunkFailure `json:"failures,omitempty"`
}
