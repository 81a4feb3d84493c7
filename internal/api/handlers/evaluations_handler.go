package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evaldeck/console/internal/api/middleware"
	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/api/validation"
	"github.com/evaldeck/console/internal/fixtures"
	"github.com/evaldeck/console/internal/observability"
	"github.com/evaldeck/console/pkg/evalbackend"
)

// Forwarder is the raw pass-through slice of the backend client.
type Forwarder interface {
	Forward(ctx context.Context, method, path, apiKey, contentType string, body io.Reader) (*evalbackend.Upstream, error)
}

// EvaluationsHandler proxies the evaluation endpoints. Successful or not,
// upstream responses are mirrored verbatim; the console only speaks for
// itself on auth, validation, and transport failures.
type EvaluationsHandler struct {
	backend  Forwarder
	fixtures *fixtures.Store
	mockMode bool
	metrics  observability.ConsoleMetrics
}

// NewEvaluationsHandler creates an evaluations handler. fixtures is consulted
// only when mockMode is set; metrics may be nil.
func NewEvaluationsHandler(backend Forwarder, fixtureStore *fixtures.Store, mockMode bool, metrics observability.ConsoleMetrics) *EvaluationsHandler {
	return &EvaluationsHandler{
		backend:  backend,
		fixtures: fixtureStore,
		mockMode: mockMode,
		metrics:  metrics,
	}
}

func (h *EvaluationsHandler) recordFixture(ctx context.Context, kind string) {
	if h.metrics != nil {
		h.metrics.RecordFixtureServed(ctx, kind)
	}
}

func (h *EvaluationsHandler) mirror(w http.ResponseWriter, r *http.Request, upstream *evalbackend.Upstream, err error) {
	if err != nil {
		respondProxyFailure(w, r, err)
		return
	}

	response.RespondRaw(w, upstream.StatusCode, upstream.Header.Get("Content-Type"), upstream.Body)
}

// List handles GET /evaluations.
func (h *EvaluationsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.mockMode {
		payload, err := h.fixtures.ListPayload()
		if err != nil {
			respondProxyFailure(w, r, err)
			return
		}

		h.recordFixture(r.Context(), "evaluation_list")
		response.RespondRaw(w, http.StatusOK, "application/json", payload)
		return
	}

	apiKey := middleware.APIKeyFromContext(r.Context())
	upstream, err := h.backend.Forward(r.Context(), http.MethodGet, "/evaluations", apiKey, "", nil)
	h.mirror(w, r, upstream, err)
}

// Get handles GET /evaluations/{id}.
func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.RespondProxyError(w, http.StatusBadRequest,
			"invalid evaluation id", "the evaluation id must be an integer")
		return
	}

	if h.mockMode {
		payload, err := h.fixtures.EvaluationPayload(id)
		if err != nil {
			respondProxyFailure(w, r, err)
			return
		}

		h.recordFixture(r.Context(), "evaluation")
		response.RespondRaw(w, http.StatusOK, "application/json", payload)
		return
	}

	apiKey := middleware.APIKeyFromContext(r.Context())
	upstream, err := h.backend.Forward(r.Context(), http.MethodGet,
		"/evaluations/"+strconv.FormatInt(id, 10), apiKey, "", nil)
	h.mirror(w, r, upstream, err)
}

// createEvaluationBody is the console-side precondition check on run
// creation. The body is forwarded untouched after validation; any further
// shape rules are the backend's to enforce.
type createEvaluationBody struct {
	DatasetID      int64  `json:"dataset_id" validate:"required"`
	ExperimentName string `json:"experiment_name" validate:"required,no_null_bytes"`
}

// Create handles POST /evaluations.
func (h *EvaluationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Warn("Failed to read request body", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondProxyError(w, http.StatusBadRequest, "invalid request", "could not read request body")
		return
	}

	var req createEvaluationBody
	if err := json.Unmarshal(body, &req); err != nil {
		response.RespondProxyError(w, http.StatusBadRequest, "invalid request", "request body must be JSON")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		response.RespondProxyError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if h.mockMode {
		payload, err := h.fixtures.EvaluationPayload(0)
		if err != nil {
			respondProxyFailure(w, r, err)
			return
		}

		h.recordFixture(r.Context(), "evaluation")
		response.RespondRaw(w, http.StatusCreated, "application/json", payload)
		return
	}

	apiKey := middleware.APIKeyFromContext(r.Context())
	upstream, err := h.backend.Forward(r.Context(), http.MethodPost,
		"/evaluations", apiKey, "application/json", bytes.NewReader(body))
	h.mirror(w, r, upstream, err)
}

// UploadDataset handles POST /evaluations/datasets. The multipart body is
// streamed through without reparsing; the backend validates the file.
func (h *EvaluationsHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	if h.mockMode {
		response.RespondRaw(w, http.StatusOK, "application/json", []byte(`{"dataset_id": 1}`))
		return
	}

	apiKey := middleware.APIKeyFromContext(r.Context())
	upstream, err := h.backend.Forward(r.Context(), http.MethodPost,
		"/evaluations/datasets", apiKey, r.Header.Get("Content-Type"), r.Body)
	h.mirror(w, r, upstream, err)
}
