package metricssvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	http_ "github.com/mkrupp/saba-backend/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the metrics endpoints.
type HTTPTransportConfig struct {
	// RequireAdmin guards every endpoint with the admin check
	RequireAdmin bool `env:"REQUIRE_ADMIN" default:"true"`
}

// IncrementRequest is the optional body of an increment request.
type IncrementRequest struct {
	Delta *int64 `json:"delta"`
}

// HTTPTransport serves the counters document.
type HTTPTransport struct {
	metricsSvc *MetricsService
	authorizer http_.Authorizer
	log        logging.Logger
	cfg        HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport.
func NewHTTPTransport(
	metricsSvc *MetricsService,
	authorizer http_.Authorizer,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	return &HTTPTransport{
		metricsSvc: metricsSvc,
		authorizer: authorizer,
		log:        logging.GetLogger("svc.metricssvc.http_transport"),
		cfg:        cfg,
	}
}

// ServeHTTP implements http.Handler and sets up routes for the metrics endpoints:
// - GET /api/metrics: Read all counters
// - POST /api/metrics/{counter}: Increment a counter by delta (default 1).
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/metrics", ht.HandleGet)
	mux.HandleFunc("POST /api/metrics/{counter}", ht.HandleIncrement)
	http_.Guard(mux, ht.cfg.RequireAdmin, ht.authorizer, ht.log).ServeHTTP(w, r)
}

// HandleGet returns the counters document.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "get metrics failed", "error", err)
		}
	}(r.Context())

	metrics, err := ht.metricsSvc.Get(r.Context())
	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, "Failed to read metrics")

		return fmt.Errorf("get metrics: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, metrics)
}

// HandleIncrement increments the counter named in the path.
func (ht *HTTPTransport) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleIncrement(w, r)
}

func (ht *HTTPTransport) handleIncrement(w http.ResponseWriter, r *http.Request) (err error) {
	counter := r.PathValue("counter")
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("counter", "name", counter),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "increment counter failed", "error", err)
		}
	}(r.Context())

	var req IncrementRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body")

		return err
	}

	delta := int64(1)
	if req.Delta != nil {
		delta = *req.Delta
	}

	metrics, err := ht.metricsSvc.Increment(r.Context(), counter, delta)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCounter) {
			http_.WriteError(w, http.StatusNotFound, "Unknown counter")
		} else {
			http_.WriteError(w, http.StatusInternalServerError, "Failed to update metrics")
		}

		return fmt.Errorf("increment: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, metrics)
}
