package environment

import "net/http"

// Middleware returns a middleware that attaches the given environment
// to all request contexts, so handlers and the logger can branch on it
// without explicit parameter passing.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithContext(r.Context(), string(env))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
