package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/evaldeck/console/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// RequestID is the outermost middleware: every request, proxied or local,
// gets an X-Request-ID in the context and the response. A client-supplied id
// is kept so the console's logs can be correlated with the caller's.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			// V7 keeps the ids roughly time-ordered in log output.
			id = uuid.Must(uuid.NewV7()).String()
		}

		ctx := context.WithValue(r.Context(), observability.RequestIDKey, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
