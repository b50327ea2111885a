// Package cors answers cross-origin requests for the read-only JSON API.
package cors

import (
	"net/http"

	rscors "github.com/rs/cors"
)

// New builds the CORS policy. An empty origin list allows any origin.
func New(allowedOrigins []string) *rscors.Cors {
	return rscors.New(rscors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	})
}

// Middleware wraps next with the policy from New.
func Middleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return New(allowedOrigins).Handler
}
