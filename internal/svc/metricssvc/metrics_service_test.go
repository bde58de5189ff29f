package metricssvc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/saba-backend/internal/domain"
	context_ "github.com/mkrupp/saba-backend/internal/infra/context"
	"github.com/mkrupp/saba-backend/internal/repo/record"
	"github.com/mkrupp/saba-backend/internal/svc/metricssvc"
)

func newService() *metricssvc.MetricsService {
	return metricssvc.NewMetricsService(record.NewMemoryStore(record.JSONCodec[domain.Metrics]{}, domain.Metrics{}))
}

func TestMetricsService_Increment(t *testing.T) {
	t.Parallel()

	svc := newService()
	ctx := context.Background()

	metrics, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Metrics{}, metrics)

	metrics, err = svc.Increment(ctx, domain.CounterTotalTestsStarted, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), metrics.TotalTestsStarted)

	metrics, err = svc.Increment(ctx, domain.CounterTotalTestsStarted, -10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), metrics.TotalTestsStarted)

	_, err = svc.Increment(ctx, "bogus", 1)
	require.ErrorIs(t, err, domain.ErrUnknownCounter)
}

func TestMetricsService_SetTotalUsers(t *testing.T) {
	t.Parallel()

	svc := newService()
	ctx := context.Background()

	require.NoError(t, svc.SetTotalUsers(ctx, 42))
	require.NoError(t, svc.SetTotalUsers(ctx, -1))

	metrics, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), metrics.TotalUsers)
}

type adminAuthorizer struct{}

func (adminAuthorizer) Authorize(_ context.Context, bearer string) (context_.Principal, error) {
	return context_.Principal{UserID: "admin", Admin: bearer == "admin"}, nil
}

func TestHTTPTransport(t *testing.T) {
	t.Parallel()

	svc := newService()
	transport := metricssvc.NewHTTPTransport(svc, adminAuthorizer{}, metricssvc.HTTPTransportConfig{RequireAdmin: true})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{name: "requires admin", method: http.MethodGet, path: "/api/metrics", token: "user", wantStatus: http.StatusForbidden},
		{name: "default delta", method: http.MethodPost, path: "/api/metrics/totalTestsCompleted", token: "admin", wantStatus: http.StatusOK, wantBody: `"totalTestsCompleted":1`},
		{name: "explicit delta", method: http.MethodPost, path: "/api/metrics/totalTestsCompleted", body: `{"delta":4}`, token: "admin", wantStatus: http.StatusOK, wantBody: `"totalTestsCompleted":5`},
		{name: "unknown counter", method: http.MethodPost, path: "/api/metrics/nope", token: "admin", wantStatus: http.StatusNotFound},
		{name: "bad body", method: http.MethodPost, path: "/api/metrics/totalUsers", body: `{`, token: "admin", wantStatus: http.StatusBadRequest},
		{name: "read", method: http.MethodGet, path: "/api/metrics", token: "admin", wantStatus: http.StatusOK, wantBody: `"totalTestsCompleted":5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+tt.token)

			rec := httptest.NewRecorder()
			transport.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
