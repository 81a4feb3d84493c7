package service

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/pkg/evalbackend"
)

// EvaluationBackend is the slice of the backend client the submission flow
// needs. Tests substitute a mock.
type EvaluationBackend interface {
	UploadDataset(ctx context.Context, apiKey string, params evalbackend.UploadDatasetParams) (*evalbackend.UploadResult, error)
	CreateEvaluation(ctx context.Context, apiKey string, params evalbackend.CreateEvaluationParams) (*models.EvaluationJob, error)
}

// DatasetSource resolves locally stored datasets.
type DatasetSource interface {
	Get(ctx context.Context, id int64) (*models.Dataset, error)
}

// SubmitEvaluationRequest is the input to SubmitEvaluation.
type SubmitEvaluationRequest struct {
	APIKey         string
	ExperimentName string
	DatasetID      int64
	Config         *models.JobConfig
}

// EvaluationService runs the two-step submission flow: upload the local
// dataset, then create the run against the uploaded copy.
type EvaluationService struct {
	datasets DatasetSource
	backend  EvaluationBackend
	logger   *slog.Logger
}

// NewEvaluationService creates an EvaluationService.
func NewEvaluationService(datasets DatasetSource, backend EvaluationBackend, logger *slog.Logger) *EvaluationService {
	if logger == nil {
		logger = slog.Default()
	}

	return &EvaluationService{datasets: datasets, backend: backend, logger: logger}
}

// SubmitEvaluation validates preconditions, uploads the dataset, and creates
// the evaluation run. A missing API key fails before any I/O, local or
// network.
func (s *EvaluationService) SubmitEvaluation(ctx context.Context, req SubmitEvaluationRequest) (*models.EvaluationJob, error) {
	if req.APIKey == "" {
		return nil, apperrors.NewValidationError("api_key", "select an API key before starting a run")
	}

	if req.ExperimentName == "" {
		return nil, apperrors.NewValidationError("experiment_name", "experiment_name is required")
	}

	if req.DatasetID == 0 {
		return nil, apperrors.NewValidationError("dataset_id", "select a dataset before starting a run")
	}

	dataset, err := s.datasets.Get(ctx, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	upload, err := s.backend.UploadDataset(ctx, req.APIKey, evalbackend.UploadDatasetParams{
		FileName:          dataset.FileName,
		Content:           []byte(dataset.Content),
		DatasetName:       dataset.Name,
		DuplicationFactor: dataset.DuplicationFactor,
	})
	if err != nil {
		return nil, fmt.Errorf("upload dataset: %w", err)
	}

	job, err := s.backend.CreateEvaluation(ctx, req.APIKey, evalbackend.CreateEvaluationParams{
		DatasetID:      upload.DatasetID,
		ExperimentName: req.ExperimentName,
		Config:         req.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("create evaluation: %w", err)
	}

	s.logger.Info("evaluation submitted",
		"job_id", job.ID,
		"experiment_name", req.ExperimentName,
		"dataset_id", upload.DatasetID,
	)

	return job, nil
}
