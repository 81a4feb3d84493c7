package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/api/validation"
	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/service"
)

// EvaluationSubmitter is the local submission flow: locally stored dataset
// plus saved key in, created backend job out.
type EvaluationSubmitter interface {
	SubmitEvaluation(ctx context.Context, req service.SubmitEvaluationRequest) (*models.EvaluationJob, error)
}

// KeySource resolves saved backend keys by id.
type KeySource interface {
	Get(ctx context.Context, id string) (*models.APIKey, error)
}

// RunsHandler starts evaluation runs from locally staged datasets and saved
// keys, the console-driven counterpart to the raw POST /evaluations proxy.
type RunsHandler struct {
	submitter EvaluationSubmitter
	keys      KeySource
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(submitter EvaluationSubmitter, keys KeySource) *RunsHandler {
	return &RunsHandler{submitter: submitter, keys: keys}
}

type createRunRequest struct {
	KeyID          string            `json:"key_id"`
	ExperimentName string            `json:"experiment_name" validate:"required,no_null_bytes"`
	DatasetID      int64             `json:"dataset_id" validate:"required"`
	Config         *models.JobConfig `json:"config,omitempty"`
}

// Create handles POST /v1/runs.
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		slog.Warn("Invalid request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	// The key is resolved locally; an unselected key must fail here, with
	// no upload or run creation attempted.
	var apiKey string

	if req.KeyID != "" {
		key, err := h.keys.Get(r.Context(), req.KeyID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				response.RespondBadRequest(w, "select an API key before starting a run")
				return
			}

			slog.Error("Failed to resolve api key", "key_id", req.KeyID, "error", err)
			response.RespondInternalServerError(w, "An unexpected error occurred")
			return
		}

		apiKey = key.Key
	}

	job, err := h.submitter.SubmitEvaluation(r.Context(), service.SubmitEvaluationRequest{
		APIKey:         apiKey,
		ExperimentName: req.ExperimentName,
		DatasetID:      req.DatasetID,
		Config:         req.Config,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			response.RespondBadRequest(w, err.Error())
		case errors.Is(err, apperrors.ErrNotFound):
			response.RespondNotFound(w, "Dataset not found")
		case errors.Is(err, apperrors.ErrUpstream):
			var upstreamErr *apperrors.UpstreamError
			errors.As(err, &upstreamErr)
			response.RespondError(w, http.StatusBadGateway, "Bad Gateway", upstreamErr.Error())
		default:
			slog.Error("Failed to submit evaluation", "error", err)
			response.RespondInternalServerError(w, "An unexpected error occurred")
		}

		return
	}

	response.RespondJSON(w, http.StatusCreated, job)
}
