package authsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/saba-backend/internal/domain"
	context_ "github.com/mkrupp/saba-backend/internal/infra/context"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	http_ "github.com/mkrupp/saba-backend/internal/infra/transport/http"
)

// RegisterRequest is the body of a registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateResponse describes the caller of a successfully validated request.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Admin  bool   `json:"admin"`
}

// HTTPTransport handles HTTP requests for the authentication service.
// It provides endpoints for user registration, login, and token validation.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
}

// NewHTTPTransport creates a new HTTPTransport instance.
// It requires an AuthService for handling authentication operations.
func NewHTTPTransport(authSvc *AuthService) *HTTPTransport {
	return &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
	}
}

// ServeHTTP implements http.Handler and sets up routes for the auth service endpoints:
// - POST /api/auth/register: Register a new user
// - POST /api/auth/login: Login and get an auth token
// - POST /api/auth/validate: Validate an auth token.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", ht.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", ht.HandleLogin)
	mux.Handle("POST /api/auth/validate",
		http_.AuthorizingMiddleware(http.HandlerFunc(ht.HandleValidate), ht.authSvc, ht.log))
	mux.ServeHTTP(w, r)
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// HandleRegister processes user registration requests.
// Expects a JSON body with name, email and password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var req RegisterRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body")

		return err
	}

	created, err := ht.authSvc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserAlreadyExists):
			http_.WriteError(w, http.StatusConflict, "Email already registered")
		case errors.Is(err, domain.ErrMissingField):
			http_.WriteError(w, http.StatusBadRequest, "Name, email and password are required")
		case errors.Is(err, domain.ErrInvalidEmail):
			http_.WriteError(w, http.StatusBadRequest, "Invalid email address")
		default:
			http_.WriteError(w, http.StatusInternalServerError, "Registration failed")
		}

		return fmt.Errorf("register user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusCreated, created)
}

// HandleLogin processes user login requests.
// Expects a JSON body with email and password.
// Returns an auth token and the public user on successful login.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	var req LoginRequest
	if err := http_.DecodeJSON(r, &req); err != nil {
		http_.WriteError(w, http.StatusBadRequest, "Invalid request body")

		return err
	}

	resp, err := ht.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingField):
			http_.WriteError(w, http.StatusBadRequest, "Email and password are required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			http_.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			http_.WriteError(w, http.StatusInternalServerError, "Login failed")
		}

		return fmt.Errorf("login user: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, resp)
}

// HandleValidate reports the caller resolved from the Authorization header.
// The credential is checked by the authorizing middleware in front of it.
func (ht *HTTPTransport) HandleValidate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleValidate(w, r)
}

func (ht *HTTPTransport) handleValidate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "user token validation failed", "error", err)
		} else {
			log.DebugContext(ctx, "user token validated")
		}
	}(r.Context())

	principal, ok := context_.PrincipalFromContext(r.Context())
	if !ok {
		http_.WriteError(w, http.StatusUnauthorized, "Authentication required")

		return domain.ErrNoAuthToken
	}

	return http_.WriteJSON(w, http.StatusOK, ValidateResponse{
		Valid:  true,
		UserID: principal.UserID,
		Email:  principal.Email,
		Admin:  principal.Admin,
	})
}
