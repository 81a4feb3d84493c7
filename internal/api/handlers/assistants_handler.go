package handlers

import (
	"context"
	"net/http"

	"github.com/evaldeck/console/internal/api/middleware"
	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/fixtures"
	"github.com/evaldeck/console/internal/observability"
	"github.com/evaldeck/console/pkg/evalbackend"
)

// AssistantGetter is the cached assistant lookup.
type AssistantGetter interface {
	GetAssistant(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error)
}

// AssistantsHandler serves assistant metadata through the loader cache.
type AssistantsHandler struct {
	assistants AssistantGetter
	fixtures   *fixtures.Store
	mockMode   bool
	metrics    observability.ConsoleMetrics
}

// NewAssistantsHandler creates an assistants handler. metrics may be nil.
func NewAssistantsHandler(assistants AssistantGetter, fixtureStore *fixtures.Store, mockMode bool, metrics observability.ConsoleMetrics) *AssistantsHandler {
	return &AssistantsHandler{
		assistants: assistants,
		fixtures:   fixtureStore,
		mockMode:   mockMode,
		metrics:    metrics,
	}
}

// Get handles GET /assistant/{assistant_id}.
func (h *AssistantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	assistantID := r.PathValue("assistant_id")

	if h.mockMode {
		payload, err := h.fixtures.AssistantPayload()
		if err != nil {
			respondProxyFailure(w, r, err)
			return
		}

		if h.metrics != nil {
			h.metrics.RecordFixtureServed(r.Context(), "assistant")
		}

		response.RespondRaw(w, http.StatusOK, "application/json", payload)
		return
	}

	apiKey := middleware.APIKeyFromContext(r.Context())

	doc, err := h.assistants.GetAssistant(r.Context(), apiKey, assistantID)
	if err != nil {
		respondProxyFailure(w, r, err)
		return
	}

	// Mirror the upstream status, cached or fresh; a backend 201 stays a 201.
	response.RespondRaw(w, doc.StatusCode, "application/json", doc.Body)
}
