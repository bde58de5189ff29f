package http

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/saba-backend/internal/infra/logging"
)

// RescueingMiddleware creates middleware that recovers from panics in HTTP handlers.
// It logs the panic and stack trace, then returns a JSON 500 response to the client.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}

			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			log.ErrorContext(r.Context(), "request panic", slog.Group("http",
				"uri", r.RequestURI,
				"method", r.Method,
			), slog.Group("error",
				"panic", p,
				"stack", string(debug.Stack()),
			))
			WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}()

		next.ServeHTTP(w, r)
	})
}
