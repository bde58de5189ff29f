package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/saba-backend/internal/infra/context"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	http_ "github.com/mkrupp/saba-backend/internal/infra/transport/http"
)

var errBadToken = errors.New("bad token")

type stubAuthorizer map[string]context_.Principal

func (s stubAuthorizer) Authorize(_ context.Context, bearer string) (context_.Principal, error) {
	principal, ok := s[bearer]
	if !ok {
		return context_.Principal{}, errBadToken
	}

	return principal, nil
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := context_.PrincipalFromContext(r.Context())
		_ = http_.WriteJSON(w, http.StatusOK, principal)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "", want: "", wantOK: false},
		{header: "Bearer abc", want: "abc", wantOK: true},
		{header: "bearer  abc ", want: "abc", wantOK: true},
		{header: "abc", want: "abc", wantOK: true},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(http_.AuthorizationHeader, tt.header)

		got, ok := http_.BearerToken(req)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
		assert.Equal(t, tt.wantOK, ok, "header %q", tt.header)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	authorizer := stubAuthorizer{
		"user-token":  {UserID: "u1", Email: "u@example.com", Admin: false},
		"admin-token": {UserID: "a1", Email: "a@example.com", Admin: true},
	}
	handler := http_.RequireAdmin(principalEcho(), authorizer, logging.NewNopLogger())

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "no token", header: "", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "non admin", header: "Bearer user-token", wantStatus: http.StatusForbidden},
		{name: "admin", header: "Bearer admin-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(http_.AuthorizationHeader, tt.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.wantStatus != http.StatusOK {
				var body http_.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestAuthorizingMiddleware_AddsPrincipal(t *testing.T) {
	t.Parallel()

	authorizer := stubAuthorizer{"user-token": {UserID: "u1", Email: "u@example.com"}}
	handler := http_.AuthorizingMiddleware(principalEcho(), authorizer, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(http_.AuthorizationHeader, "Bearer user-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var principal context_.Principal
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&principal))
	assert.Equal(t, "u1", principal.UserID)
}

func TestGuard_Disabled(t *testing.T) {
	t.Parallel()

	handler := http_.Guard(principalEcho(), false, stubAuthorizer{}, logging.NewNopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_TraceIDAndPanicRecovery(t *testing.T) {
	t.Parallel()

	handler := http_.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(http_.TraceIDHeader, "trace-123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "trace-123", rec.Header().Get(http_.TraceIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, rec.Header().Get(http_.TraceIDHeader))
}

func TestNewRouter_NotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	http_.NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- http_.Serve(ctx, sock, http_.NewRouter(), http_.HTTPTransportConfig{
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + sock.Addr().String() + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
