// Package trace - HTTP middleware for request ID extraction.
package trace

import "net/http"

// Middleware adopts the caller's request ID or mints a fresh one, echoes
// it on the response, and makes it available to handlers via the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(RequestIDHeader); id != "" {
			ctx = WithRequestID(ctx, id)
		}
		ctx, id := Ensure(ctx)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
