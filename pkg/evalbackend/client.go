// Package evalbackend is the typed client for the evaluation backend API.
// Every call carries the caller-selected API key; the client itself holds no
// credentials. Raw pass-through is available via Forward for the proxy
// endpoints that mirror upstream responses verbatim.
package evalbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	apperrors "github.com/evaldeck/console/internal/errors"
	"github.com/evaldeck/console/internal/models"
)

// APIKeyHeader is the header the backend authenticates on.
const APIKeyHeader = "X-API-KEY"

// ClientOptions configures the backend client.
type ClientOptions struct {
	// BaseURL is the backend base URL, without a trailing slash.
	BaseURL string
	// RetryMax is the maximum number of retries. Zero means no retries:
	// a single failed request surfaces immediately.
	RetryMax int
	// Timeout bounds each HTTP request. Zero means no timeout; callers
	// that want one must set it explicitly.
	Timeout time.Duration
	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit float64
}

// Client talks to the evaluation backend.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
}

// NewClient creates a backend client.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.HTTPClient.Timeout = opts.Timeout
	retryClient.Logger = nil

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: retryClient,
		limiter:    limiter,
	}
}

// Upstream is a verbatim capture of a backend response.
type Upstream struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

// Forward sends a request to the backend and captures the response without
// interpreting it. A non-nil error means the request never produced an
// upstream response; any backend status, including errors, comes back as an
// Upstream for the caller to mirror.
func (c *Client) Forward(ctx context.Context, method, path, apiKey, contentType string, body io.Reader) (*Upstream, error) {
	if err := c.wait(ctx); err != nil {
		return nil, apperrors.NewTransportError(method+" "+path, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.NewTransportError(method+" "+path, err)
	}

	req.Header.Set(APIKeyHeader, apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(method+" "+path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(method+" "+path, err)
	}

	return &Upstream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}, nil
}

// upstreamMessage pulls a human-readable message out of a backend error
// body when the body is parseable. Best effort only.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Detail != "":
		return payload.Detail
	default:
		return payload.Message
	}
}

func (c *Client) do(ctx context.Context, method, path, apiKey, contentType string, body io.Reader) ([]byte, error) {
	upstream, err := c.Forward(ctx, method, path, apiKey, contentType, body)
	if err != nil {
		return nil, err
	}

	if upstream.StatusCode < 200 || upstream.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamError(upstream.StatusCode, upstreamMessage(upstream.Body))
	}

	return upstream.Body, nil
}

// ListEvaluations retrieves all evaluation jobs visible to the key. The
// backend has served both a bare array and a {"data": [...]} envelope;
// both shapes are accepted.
func (c *Client) ListEvaluations(ctx context.Context, apiKey string) ([]models.EvaluationJob, error) {
	body, err := c.do(ctx, http.MethodGet, "/evaluations", apiKey, "application/json", nil)
	if err != nil {
		return nil, err
	}

	var jobs []models.EvaluationJob
	if err := json.Unmarshal(body, &jobs); err == nil {
		return jobs, nil
	}

	var envelope struct {
		Data []models.EvaluationJob `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.NewTransportError("decode evaluations", err)
	}

	return envelope.Data, nil
}

// GetEvaluation retrieves a single evaluation job.
func (c *Client) GetEvaluation(ctx context.Context, apiKey string, id int64) (*models.EvaluationJob, error) {
	path := "/evaluations/" + strconv.FormatInt(id, 10)

	body, err := c.do(ctx, http.MethodGet, path, apiKey, "application/json", nil)
	if err != nil {
		return nil, err
	}

	var job models.EvaluationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, apperrors.NewTransportError("decode evaluation", err)
	}

	return &job, nil
}

// AssistantDocument is the backend's assistant response, held verbatim with
// the upstream status so the proxy can mirror a 201 or 206 as-is.
type AssistantDocument struct {
	StatusCode int
	Body       json.RawMessage
}

// GetAssistant retrieves assistant metadata as an opaque document.
func (c *Client) GetAssistant(ctx context.Context, apiKey, assistantID string) (*AssistantDocument, error) {
	if assistantID == "" {
		return nil, apperrors.NewValidationError("assistant_id", "assistant_id is required")
	}

	upstream, err := c.Forward(ctx, http.MethodGet, "/assistant/"+assistantID, apiKey, "application/json", nil)
	if err != nil {
		return nil, err
	}

	if upstream.StatusCode < 200 || upstream.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamError(upstream.StatusCode, upstreamMessage(upstream.Body))
	}

	return &AssistantDocument{StatusCode: upstream.StatusCode, Body: upstream.Body}, nil
}

// UploadDatasetParams describes a dataset upload.
type UploadDatasetParams struct {
	FileName          string
	Content           []byte
	DatasetName       string
	Description       string
	DuplicationFactor *int
}

// UploadResult is the backend's answer to a dataset upload.
type UploadResult struct {
	DatasetID int64 `json:"dataset_id"`
}

// UploadDataset sends the dataset file as multipart form data. A 2xx
// response without a dataset_id is treated as a failure: the run creation
// that follows cannot proceed without it.
func (c *Client) UploadDataset(ctx context.Context, apiKey string, params UploadDatasetParams) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", params.FileName)
	if err != nil {
		return nil, apperrors.NewTransportError("build upload", err)
	}

	if _, err := part.Write(params.Content); err != nil {
		return nil, apperrors.NewTransportError("build upload", err)
	}

	if params.DatasetName != "" {
		if err := writer.WriteField("dataset_name", params.DatasetName); err != nil {
			return nil, apperrors.NewTransportError("build upload", err)
		}
	}

	if params.Description != "" {
		if err := writer.WriteField("description", params.Description); err != nil {
			return nil, apperrors.NewTransportError("build upload", err)
		}
	}

	if params.DuplicationFactor != nil {
		if err := writer.WriteField("duplication_factor", strconv.Itoa(*params.DuplicationFactor)); err != nil {
			return nil, apperrors.NewTransportError("build upload", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, apperrors.NewTransportError("build upload", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/evaluations/datasets", apiKey, writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.NewTransportError("decode upload result", err)
	}

	if result.DatasetID == 0 {
		return nil, apperrors.NewTransportError("decode upload result",
			fmt.Errorf("upload response missing dataset_id"))
	}

	return &result, nil
}

// CreateEvaluationParams describes a new evaluation run.
type CreateEvaluationParams struct {
	DatasetID      int64             `json:"dataset_id"`
	ExperimentName string            `json:"experiment_name"`
	Config         *models.JobConfig `json:"config,omitempty"`
}

// CreateEvaluation starts an evaluation run and returns the created job.
// The backend must assign an id; a 2xx response without one is a failure.
func (c *Client) CreateEvaluation(ctx context.Context, apiKey string, params CreateEvaluationParams) (*models.EvaluationJob, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, apperrors.NewTransportError("encode evaluation", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/evaluations", apiKey, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var job models.EvaluationJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, apperrors.NewTransportError("decode evaluation", err)
	}

	if job.ID == 0 {
		return nil, apperrors.NewTransportError("decode evaluation",
			fmt.Errorf("create response missing id"))
	}

	return &job, nil
}
