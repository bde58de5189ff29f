// Package context holds the request-scoped values shared between the HTTP
// middleware chain, the services and the log handlers.
package context

type contextKey string
