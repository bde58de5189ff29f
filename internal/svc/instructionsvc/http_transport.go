package instructionsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	http_ "github.com/mkrupp/saba-backend/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the instruction endpoints.
type HTTPTransportConfig struct {
	// RequireAdmin guards every endpoint with the admin check
	RequireAdmin bool `env:"REQUIRE_ADMIN" default:"true"`
}

// InstructionResponse is the body returned for the current instruction.
type InstructionResponse struct {
	SystemInstruction string `json:"system_instruction"`
}

// UpdateRequest is the body of an update request.
type UpdateRequest struct {
	Instruction string `json:"instruction"`
}

// HTTPTransport handles HTTP requests for the instruction service.
type HTTPTransport struct {
	instructionSvc *InstructionService
	authorizer     http_.Authorizer
	log            logging.Logger
	cfg            HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(
	instructionSvc *InstructionService,
	authorizer http_.Authorizer,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		instructionSvc: instructionSvc,
		authorizer:     authorizer,
		log:            logging.GetLogger("svc.instructionsvc.http_transport"),
		cfg:            cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the instruction endpoints:
// - GET /api/system-instruction: Read the current instruction
// - PUT, POST /api/system-instruction: Replace the current instruction
// - GET /api/system-instruction/history: Read the update log
// - POST /api/system-instruction/reset: Restore the built-in default.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/system-instruction", ht.HandleGet)
	mux.HandleFunc("PUT /api/system-instruction", ht.HandleUpdate)
	mux.HandleFunc("POST /api/system-instruction", ht.HandleUpdate)
	mux.HandleFunc("GET /api/system-instruction/history", ht.HandleHistory)
	mux.HandleFunc("POST /api/system-instruction/reset", ht.HandleReset)
	http_.Guard(mux, ht.cfg.RequireAdmin, ht.authorizer, ht.log).ServeHTTP(w, r)
}

// HandleGet returns the current instruction.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	defer ht.logFailure(r, "get instruction failed", &err)

	text, err := ht.instructionSvc.GetCurrent(r.Context())
	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, "Failed to read system instruction")

		return fmt.Errorf("get current: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, InstructionResponse{SystemInstruction: text})
}

// HandleUpdate replaces the current instruction with the one in the JSON body.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	defer ht.logFailure(r, "update instruction failed", &err)

	var req UpdateRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body")

		return err
	}

	if err := ht.instructionSvc.SetCurrent(r.Context(), req.Instruction); err != nil {
		if errors.Is(err, domain.ErrMissingInstruction) {
			http_.WriteError(w, http.StatusBadRequest, "Instruction is required")
		} else {
			http_.WriteError(w, http.StatusInternalServerError, "Failed to update system instruction")
		}

		return fmt.Errorf("set current: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, http_.MessageResponse{Message: "Instruction updated successfully"})
}

// HandleHistory returns the update log.
func (ht *HTTPTransport) HandleHistory(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleHistory(w, r)
}

func (ht *HTTPTransport) handleHistory(w http.ResponseWriter, r *http.Request) (err error) {
	defer ht.logFailure(r, "get instruction history failed", &err)

	history, err := ht.instructionSvc.GetHistory(r.Context())
	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, "Failed to read instruction history")

		return fmt.Errorf("get history: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, history)
}

// HandleReset restores the built-in default instruction.
func (ht *HTTPTransport) HandleReset(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleReset(w, r)
}

func (ht *HTTPTransport) handleReset(w http.ResponseWriter, r *http.Request) (err error) {
	defer ht.logFailure(r, "reset instruction failed", &err)

	if err := ht.instructionSvc.ResetToDefault(r.Context()); err != nil {
		http_.WriteError(w, http.StatusInternalServerError, "Failed to reset system instruction")

		return fmt.Errorf("reset: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, http_.MessageResponse{Message: "System instruction reset to default"})
}

func (ht *HTTPTransport) logFailure(r *http.Request, msg string, err *error) {
	if *err == nil {
		return
	}

	ht.log.ErrorContext(context.WithoutCancel(r.Context()), msg,
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		"error", *err,
	)
}
