/**
 * @description
 * This file sets up the HTTP router for the token-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * the internal API key middleware to the mutating routes.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenRoutes creates and returns a new router for the token service.
func TokenRoutes(h *TokenHandlers, internalKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))

		r.Post("/generate", h.GenerateHandler)
		r.Post("/validate", h.ValidateHandler)
		r.Post("/use", h.UseHandler)

		// Account provisioning and info
		r.Post("/accounts", h.CreateAccountHandler)
		r.Get("/accounts/{accountNumber}", h.InfoHandler)
	})

	return r
}
