/**
 * @description
 * This file contains custom middleware for the HTTP router. The token-service
 * trusts the account number carried in each request; the only gate on the
 * mutating endpoints is a shared internal API key for server-to-server calls.
 *
 * @dependencies
 * - net/http: Standard Go library.
 */

package api

import "net/http"

// InternalAuthMiddleware validates optional internal API key for server-to-server calls.
func InternalAuthMiddleware(requiredKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Internal-API-Key")
			if provided == "" || provided != requiredKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
