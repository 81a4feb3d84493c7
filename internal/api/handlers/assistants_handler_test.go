package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evaldeck/console/internal/api/middleware"
	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/fixtures"
	"github.com/evaldeck/console/pkg/evalbackend"
)

type fakeAssistantGetter struct {
	calls int
	get   func(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error)
}

func (f *fakeAssistantGetter) GetAssistant(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error) {
	f.calls++

	return f.get(ctx, apiKey, assistantID)
}

func assistantRequest(assistantID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/assistant/"+assistantID, nil)
	req.SetPathValue("assistant_id", assistantID)

	ctx := context.WithValue(req.Context(), middleware.APIKeyContextKey, "sk-test")

	return req.WithContext(ctx)
}

func TestAssistantsHandler_Get(t *testing.T) {
	t.Run("mirrors the upstream status and body", func(t *testing.T) {
		fake := &fakeAssistantGetter{
			get: func(_ context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error) {
				assert.Equal(t, "sk-test", apiKey)
				assert.Equal(t, "asst_1", assistantID)

				return &evalbackend.AssistantDocument{
					StatusCode: http.StatusCreated,
					Body:       json.RawMessage(`{"id": "asst_1"}`),
				}, nil
			},
		}
		handler := NewAssistantsHandler(fake, fixtures.NewStore(), false, nil)

		rec := httptest.NewRecorder()
		handler.Get(rec, assistantRequest("asst_1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"id": "asst_1"}`, rec.Body.String())
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("upstream error keeps its status", func(t *testing.T) {
		fake := &fakeAssistantGetter{
			get: func(_ context.Context, _, _ string) (*evalbackend.AssistantDocument, error) {
				return nil, apperrors.NewUpstreamError(http.StatusNotFound, "no such assistant")
			},
		}
		handler := NewAssistantsHandler(fake, fixtures.NewStore(), false, nil)

		rec := httptest.NewRecorder()
		handler.Get(rec, assistantRequest("asst_missing"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("mock mode serves the fixture without touching the backend", func(t *testing.T) {
		fake := &fakeAssistantGetter{
			get: func(_ context.Context, _, _ string) (*evalbackend.AssistantDocument, error) {
				t.Fatal("mock mode must not call the backend")
				return nil, nil
			},
		}
		handler := NewAssistantsHandler(fake, fixtures.NewStore(), true, nil)

		rec := httptest.NewRecorder()
		handler.Get(rec, assistantRequest("asst_mock001"))

		require.Equal(t, http.StatusOK, rec.Code)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, "asst_mock001", doc["id"])
		assert.Zero(t, fake.calls)
	})
}
