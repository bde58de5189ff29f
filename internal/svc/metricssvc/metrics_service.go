// Package metricssvc keeps the usage counters document.
package metricssvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/record"
)

// MetricsConfig contains configuration parameters for the metrics service.
type MetricsConfig struct {
	// Filename is the name of the counters document inside the data directory
	Filename string `env:"FILENAME" default:"metrics.json"`
}

// MetricsService reads and updates the counters document. Counters never go below zero.
type MetricsService struct {
	store record.Store[domain.Metrics]
	log   logging.Logger
}

// NewFileMetricsService creates a MetricsService on a file in the data directory.
func NewFileMetricsService(dataCfg record.FileStoreConfig, cfg MetricsConfig) *MetricsService {
	return NewMetricsService(record.NewFileStore(dataCfg, cfg.Filename, record.JSONCodec[domain.Metrics]{}, domain.Metrics{}))
}

// NewMetricsService creates a MetricsService on the given store.
func NewMetricsService(store record.Store[domain.Metrics]) *MetricsService {
	return &MetricsService{
		store: store,
		log:   logging.GetLogger("svc.metricssvc.metrics_service"),
	}
}

// Get returns the counters, initializing the document with zeros if absent.
func (s *MetricsService) Get(ctx context.Context) (domain.Metrics, error) {
	metrics, err := s.store.ReadAll(ctx)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("read metrics: %w", err)
	}

	return metrics, nil
}

// Increment adds delta to the named counter, clamping the result at zero, and
// returns the updated document.
func (s *MetricsService) Increment(ctx context.Context, name string, delta int64) (metrics domain.Metrics, err error) {
	defer func() {
		log := s.log.With(logging.Group("counter", "name", name, "delta", delta))
		if err != nil {
			log.ErrorContext(ctx, "increment counter failed", "error", err)
		} else {
			log.DebugContext(ctx, "counter incremented")
		}
	}()

	err = s.store.Update(ctx, func(doc *domain.Metrics) error {
		counter := doc.Counter(name)
		if counter == nil {
			return fmt.Errorf("%w: %q", domain.ErrUnknownCounter, name)
		}

		*counter = max(*counter+delta, 0)
		metrics = *doc

		return nil
	})
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("update metrics: %w", err)
	}

	return metrics, nil
}

// SetTotalUsers overwrites the totalUsers counter.
func (s *MetricsService) SetTotalUsers(ctx context.Context, total int64) error {
	err := s.store.Update(ctx, func(doc *domain.Metrics) error {
		doc.TotalUsers = max(total, 0)

		return nil
	})
	if err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}

	return nil
}
