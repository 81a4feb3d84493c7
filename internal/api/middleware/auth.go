package middleware

import (
	"context"
	"net/http"

	"github.com/evaldeck/console/internal/api/response"
)

type contextKey string

// APIKeyContextKey holds the caller's backend API key for the request.
const APIKeyContextKey contextKey = "api_key"

// APIKeyHeader is the header the proxy surface authenticates on. The key is
// forwarded to the evaluation backend, never validated locally.
const APIKeyHeader = "X-API-KEY"

// RequireAPIKey rejects requests without an X-API-KEY header before any
// outbound call is made. The key itself is opaque to the console; a bad key
// surfaces as whatever status the backend returns.
func RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			response.RespondProxyError(w, http.StatusUnauthorized,
				"missing API key", "the X-API-KEY header is required")
			return
		}

		ctx := context.WithValue(r.Context(), APIKeyContextKey, apiKey)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// APIKeyFromContext returns the caller's API key set by RequireAPIKey.
func APIKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(APIKeyContextKey).(string)

	return key
}
