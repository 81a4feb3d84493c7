package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/service"
	"github.com/evaldeck/console/internal/store"
)

type fakeSubmitter struct {
	calls  atomic.Int64
	submit func(ctx context.Context, req service.SubmitEvaluationRequest) (*models.EvaluationJob, error)
}

func (f *fakeSubmitter) SubmitEvaluation(ctx context.Context, req service.SubmitEvaluationRequest) (*models.EvaluationJob, error) {
	f.calls.Add(1)

	return f.submit(ctx, req)
}

func seedKey(t *testing.T, repo *store.APIKeyRepository) models.APIKey {
	t.Helper()

	key := models.APIKey{ID: "key-1", Name: "staging", Key: "sk-backend-1"}
	require.NoError(t, repo.Add(context.Background(), key))

	return key
}

func TestRunsHandler_Create(t *testing.T) {
	t.Run("resolves the saved key and submits", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		seedKey(t, repo)

		submitter := &fakeSubmitter{
			submit: func(_ context.Context, req service.SubmitEvaluationRequest) (*models.EvaluationJob, error) {
				assert.Equal(t, "sk-backend-1", req.APIKey)
				assert.Equal(t, "nightly", req.ExperimentName)
				assert.Equal(t, int64(5), req.DatasetID)

				return &models.EvaluationJob{ID: 9, Status: models.JobStatusPending}, nil
			},
		}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"key_id": "key-1", "experiment_name": "nightly", "dataset_id": 5}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var job models.EvaluationJob
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
		assert.Equal(t, int64(9), job.ID)
	})

	t.Run("unknown key id fails before submission", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		submitter := &fakeSubmitter{}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"key_id": "missing", "experiment_name": "nightly", "dataset_id": 5}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "select an API key")
		assert.Zero(t, submitter.calls.Load())
	})

	t.Run("missing key selection surfaces the service precondition", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		submitter := &fakeSubmitter{
			submit: func(_ context.Context, req service.SubmitEvaluationRequest) (*models.EvaluationJob, error) {
				assert.Empty(t, req.APIKey)

				return nil, apperrors.NewValidationError("api_key", "select an API key before starting a run")
			},
		}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"experiment_name": "nightly", "dataset_id": 5}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "select an API key")
	})

	t.Run("unknown dataset is a 404", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		seedKey(t, repo)

		submitter := &fakeSubmitter{
			submit: func(_ context.Context, _ service.SubmitEvaluationRequest) (*models.EvaluationJob, error) {
				return nil, apperrors.NewNotFoundError("dataset", "dataset 5 not found")
			},
		}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"key_id": "key-1", "experiment_name": "nightly", "dataset_id": 5}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("backend rejection is a 502", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		seedKey(t, repo)

		submitter := &fakeSubmitter{
			submit: func(_ context.Context, _ service.SubmitEvaluationRequest) (*models.EvaluationJob, error) {
				return nil, apperrors.NewUpstreamError(http.StatusForbidden, "invalid api key")
			},
		}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"key_id": "key-1", "experiment_name": "nightly", "dataset_id": 5}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		repo := store.NewAPIKeyRepository(store.NewMemoryBlobStore())
		submitter := &fakeSubmitter{}

		handler := NewRunsHandler(submitter, repo)

		req := httptest.NewRequest(http.MethodPost, "/v1/runs",
			strings.NewReader(`{"experiment_name": "nightly", "dataset_id": 5, "surprise": true}`))
		rec := httptest.NewRecorder()
		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, submitter.calls.Load())
	})
}
