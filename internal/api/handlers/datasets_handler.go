package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/api/validation"
	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/store"
)

// DatasetsHandler manages the console's locally stored datasets. These are
// staging copies for the run picker; uploading to the backend happens at
// submission time, not here.
type DatasetsHandler struct {
	repo *store.DatasetRepository
}

// NewDatasetsHandler creates a datasets handler.
func NewDatasetsHandler(repo *store.DatasetRepository) *DatasetsHandler {
	return &DatasetsHandler{repo: repo}
}

type createDatasetRequest struct {
	Name              string `json:"name" validate:"required,no_null_bytes"`
	FileName          string `json:"file_name" validate:"required,no_null_bytes"`
	Content           string `json:"content" validate:"required"`
	DuplicationFactor *int   `json:"duplication_factor,omitempty"`
}

// List handles GET /v1/datasets.
func (h *DatasetsHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("Failed to list datasets", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	if datasets == nil {
		datasets = []models.Dataset{}
	}

	response.RespondJSON(w, http.StatusOK, datasets)
}

// Create handles POST /v1/datasets.
func (h *DatasetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
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

	existing, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("Failed to list datasets", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	var nextID int64 = 1
	for _, ds := range existing {
		if ds.ID >= nextID {
			nextID = ds.ID + 1
		}
	}

	dataset := models.Dataset{
		ID:                nextID,
		Name:              req.Name,
		FileName:          req.FileName,
		SizeBytes:         int64(len(req.Content)),
		RowCount:          models.CountRows(req.Content),
		UploadedAt:        time.Now().UTC(),
		Content:           req.Content,
		DuplicationFactor: req.DuplicationFactor,
	}

	if err := h.repo.Add(r.Context(), dataset); err != nil {
		slog.Error("Failed to store dataset", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	stored, err := h.repo.Get(r.Context(), nextID)
	if err != nil {
		slog.Error("Failed to read back dataset", "id", nextID, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	response.RespondJSON(w, http.StatusCreated, stored)
}

// Delete handles DELETE /v1/datasets/{id}.
func (h *DatasetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.RespondBadRequest(w, "Dataset ID must be an integer")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			response.RespondNotFound(w, "Dataset not found")
			return
		}

		slog.Error("Failed to delete dataset", "id", id, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
