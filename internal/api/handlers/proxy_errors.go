package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/evaldeck/console/internal/api/response"
	apperrors "github.com/evaldeck/console/internal/errors"
)

// respondProxyFailure maps the error taxonomy onto the proxy surface's
// {error, details} payloads. Fixture misses are 404s with their own message
// so mock-mode failures never masquerade as backend responses; transport
// failures are 500s. Upstream responses never reach here: they are mirrored
// verbatim before any error mapping.
func respondProxyFailure(w http.ResponseWriter, r *http.Request, err error) {
	var fixtureErr *apperrors.FixtureNotFoundError
	if errors.As(err, &fixtureErr) {
		response.RespondProxyError(w, http.StatusNotFound,
			"fixture not found", fixtureErr.Error())
		return
	}

	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		response.RespondProxyError(w, http.StatusBadRequest,
			"invalid request", validationErr.Error())
		return
	}

	var upstreamErr *apperrors.UpstreamError
	if errors.As(err, &upstreamErr) {
		response.RespondProxyError(w, upstreamErr.StatusCode,
			"evaluation backend error", upstreamErr.Error())
		return
	}

	slog.ErrorContext(r.Context(), "backend request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	response.RespondProxyError(w, http.StatusInternalServerError,
		"backend request failed", err.Error())
}
