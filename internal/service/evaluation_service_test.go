package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/store"
	"github.com/evaldeck/console/pkg/evalbackend"
)

// mockBackend implements EvaluationBackend and AssistantFetcher with func
// fields, counting calls so tests can assert on I/O ordering.
type mockBackend struct {
	uploadCalls  int
	createCalls  int
	getCalls     int
	uploadFunc   func(ctx context.Context, apiKey string, params evalbackend.UploadDatasetParams) (*evalbackend.UploadResult, error)
	createFunc   func(ctx context.Context, apiKey string, params evalbackend.CreateEvaluationParams) (*models.EvaluationJob, error)
	getAssistant func(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error)
}

func (m *mockBackend) UploadDataset(ctx context.Context, apiKey string, params evalbackend.UploadDatasetParams) (*evalbackend.UploadResult, error) {
	m.uploadCalls++

	return m.uploadFunc(ctx, apiKey, params)
}

func (m *mockBackend) CreateEvaluation(ctx context.Context, apiKey string, params evalbackend.CreateEvaluationParams) (*models.EvaluationJob, error) {
	m.createCalls++

	return m.createFunc(ctx, apiKey, params)
}

func (m *mockBackend) GetAssistant(ctx context.Context, apiKey, assistantID string) (*evalbackend.AssistantDocument, error) {
	m.getCalls++

	return m.getAssistant(ctx, apiKey, assistantID)
}

func seededDatasets(t *testing.T) *store.DatasetRepository {
	t.Helper()

	repo := store.NewDatasetRepository(store.NewMemoryBlobStore())
	require.NoError(t, repo.Add(context.Background(), models.Dataset{
		ID:       5,
		Name:     "qna",
		FileName: "qna.csv",
		Content:  "q,a\n1,2",
	}))

	return repo
}

func TestSubmitEvaluation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing api key fails before any I/O", func(t *testing.T) {
		backend := &mockBackend{}
		svc := NewEvaluationService(seededDatasets(t), backend, nil)

		_, err := svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{
			ExperimentName: "nightly",
			DatasetID:      5,
		})
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Zero(t, backend.uploadCalls)
		assert.Zero(t, backend.createCalls)
	})

	t.Run("missing run name and dataset are precondition failures", func(t *testing.T) {
		backend := &mockBackend{}
		svc := NewEvaluationService(seededDatasets(t), backend, nil)

		_, err := svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{APIKey: "k", DatasetID: 5})
		assert.True(t, errors.Is(err, apperrors.ErrValidation))

		_, err = svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{APIKey: "k", ExperimentName: "nightly"})
		assert.True(t, errors.Is(err, apperrors.ErrValidation))

		assert.Zero(t, backend.uploadCalls)
	})

	t.Run("uploads the dataset then creates the run against the uploaded id", func(t *testing.T) {
		backend := &mockBackend{
			uploadFunc: func(_ context.Context, apiKey string, params evalbackend.UploadDatasetParams) (*evalbackend.UploadResult, error) {
				assert.Equal(t, "key-1", apiKey)
				assert.Equal(t, "qna.csv", params.FileName)
				assert.Equal(t, "q,a\n1,2", string(params.Content))

				return &evalbackend.UploadResult{DatasetID: 77}, nil
			},
			createFunc: func(_ context.Context, apiKey string, params evalbackend.CreateEvaluationParams) (*models.EvaluationJob, error) {
				assert.Equal(t, "key-1", apiKey)
				assert.Equal(t, int64(77), params.DatasetID)
				assert.Equal(t, "nightly", params.ExperimentName)

				return &models.EvaluationJob{ID: 9, RunName: "nightly", Status: "pending"}, nil
			},
		}

		svc := NewEvaluationService(seededDatasets(t), backend, nil)

		job, err := svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{
			APIKey:         "key-1",
			ExperimentName: "nightly",
			DatasetID:      5,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), job.ID)
		assert.Equal(t, 1, backend.uploadCalls)
		assert.Equal(t, 1, backend.createCalls)
	})

	t.Run("unknown dataset stops before upload", func(t *testing.T) {
		backend := &mockBackend{}
		svc := NewEvaluationService(seededDatasets(t), backend, nil)

		_, err := svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{
			APIKey:         "key-1",
			ExperimentName: "nightly",
			DatasetID:      404,
		})
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
		assert.Zero(t, backend.uploadCalls)
	})

	t.Run("upload failure stops before run creation", func(t *testing.T) {
		backend := &mockBackend{
			uploadFunc: func(_ context.Context, _ string, _ evalbackend.UploadDatasetParams) (*evalbackend.UploadResult, error) {
				return nil, apperrors.NewUpstreamError(500, "")
			},
		}

		svc := NewEvaluationService(seededDatasets(t), backend, nil)

		_, err := svc.SubmitEvaluation(ctx, SubmitEvaluationRequest{
			APIKey:         "key-1",
			ExperimentName: "nightly",
			DatasetID:      5,
		})
		assert.True(t, errors.Is(err, apperrors.ErrUpstream))
		assert.Zero(t, backend.createCalls)
	})
}

func TestAssistantService(t *testing.T) {
	ctx := context.Background()

	t.Run("caches per api key and assistant id", func(t *testing.T) {
		backend := &mockBackend{
			getAssistant: func(_ context.Context, _, assistantID string) (*evalbackend.AssistantDocument, error) {
				return &evalbackend.AssistantDocument{
					StatusCode: http.StatusOK,
					Body:       json.RawMessage(`{"id": "` + assistantID + `"}`),
				}, nil
			},
		}

		svc := NewAssistantService(backend, nil)

		doc, err := svc.GetAssistant(ctx, "key-1", "asst_1")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, doc.StatusCode)
		assert.JSONEq(t, `{"id": "asst_1"}`, string(doc.Body))

		_, err = svc.GetAssistant(ctx, "key-1", "asst_1")
		require.NoError(t, err)
		assert.Equal(t, 1, backend.getCalls, "repeat lookup is served from cache")

		_, err = svc.GetAssistant(ctx, "key-2", "asst_1")
		require.NoError(t, err)
		assert.Equal(t, 2, backend.getCalls, "a different key never shares the cached document")
	})

	t.Run("empty assistant id is a precondition failure", func(t *testing.T) {
		backend := &mockBackend{}
		svc := NewAssistantService(backend, nil)

		_, err := svc.GetAssistant(ctx, "key-1", "")
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
		assert.Zero(t, backend.getCalls)
	})
}
