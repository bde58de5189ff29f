package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrInvalidBody is returned when a request body is not the expected JSON document.
var ErrInvalidBody = errors.New("invalid request body")

// MaxJSONBodySize caps the size of JSON request bodies.
const MaxJSONBodySize = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of responses that only carry a status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes value as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, value any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// WriteError writes an ErrorResponse with the given status code and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// DecodeJSON decodes the request body into value. An empty body decodes to the
// zero value.
func DecodeJSON(r *http.Request, value any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodySize))

	if err := dec.Decode(value); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrInvalidBody, err)
	}

	return nil
}
