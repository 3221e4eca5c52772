package timeout

import (
	"context"
	"net/http"
	"time"
)

// Timeout middleware adds a timeout to the request context. Aborted
// transactions roll back cleanly; callers retry with the same
// idempotency key. `timeout` is the duration in seconds.
func Timeout(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout*time.Second)
			defer cancel()

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
