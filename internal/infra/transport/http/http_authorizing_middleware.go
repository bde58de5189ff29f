package http

import (
	"context"
	"net/http"
	"strings"

	context_ "github.com/mkrupp/saba-backend/internal/infra/context"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
)

const AuthorizationHeader = "Authorization"

// Authorizer resolves a bearer credential into the principal it identifies.
type Authorizer interface {
	Authorize(ctx context.Context, bearer string) (context_.Principal, error)
}

// BearerToken extracts the credential from the Authorization header. The
// "Bearer" scheme is optional.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
	if header == "" {
		return "", false
	}

	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		header = strings.TrimSpace(token)
	}

	return header, header != ""
}

// AuthorizingMiddleware creates middleware that validates authentication tokens.
// Requests without a valid token in the Authorization header are rejected with 401.
// On successful validation, the principal is added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	authorizer Authorizer,
	log logging.Logger,
) http.Handler {
	return authorizing(next, authorizer, log, false)
}

// RequireAdmin is like AuthorizingMiddleware but additionally rejects
// principals without admin rights with 403.
func RequireAdmin(
	next http.Handler,
	authorizer Authorizer,
	log logging.Logger,
) http.Handler {
	return authorizing(next, authorizer, log, true)
}

func authorizing(next http.Handler, authorizer Authorizer, log logging.Logger, admin bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, http.StatusUnauthorized, "Authentication required")

			return
		}

		principal, err := authorizer.Authorize(r.Context(), token)
		if err != nil {
			log.WarnContext(r.Context(), "validate token failed", "error", err)
			WriteError(w, http.StatusUnauthorized, "Invalid or expired token")

			return
		}

		if admin && !principal.Admin {
			log.WarnContext(r.Context(), "admin access denied", logging.Group("principal", "id", principal.UserID))
			WriteError(w, http.StatusForbidden, "Admin access required")

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithPrincipal(r.Context(), principal)))
	})
}

// Guard wraps next with RequireAdmin when enabled is true.
func Guard(next http.Handler, enabled bool, authorizer Authorizer, log logging.Logger) http.Handler {
	if !enabled {
		return next
	}

	return RequireAdmin(next, authorizer, log)
}
