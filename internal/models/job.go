package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// JobStatus is the backend-reported state of an evaluation job.
// Comparison is case-insensitive throughout.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFailed     JobStatus = "failed"
	JobStatusError      JobStatus = "error"
)

func (s JobStatus) is(candidates ...JobStatus) bool {
	for _, c := range candidates {
		if strings.EqualFold(string(s), string(c)) {
			return true
		}
	}

	return false
}

// IsInFlight reports whether the job is still pending, queued, or processing.
// Any other status, known or not, does not keep the polling loop alive.
func (s JobStatus) IsInFlight() bool {
	return s.is(JobStatusPending, JobStatusQueued, JobStatusProcessing)
}

// IsSuccess reports whether the job reached a terminal success state.
func (s JobStatus) IsSuccess() bool {
	return s.is(JobStatusCompleted, JobStatusSuccess)
}

// IsFailure reports whether the job reached a terminal failure state.
func (s JobStatus) IsFailure() bool {
	return s.is(JobStatusFailed, JobStatusError)
}

// IsTerminal reports whether the job finished, successfully or not.
func (s JobStatus) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

// JobConfig is the configuration sub-record attached to an evaluation run.
type JobConfig struct {
	Model        *string  `json:"model,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	Include      []string `json:"include,omitempty"`
}

// EvaluationJob is one submitted evaluation run as reported by the backend.
//
// Invariant (backend-maintained, relied on by rendering): score is populated
// iff status is terminal success; error_message is populated iff status is
// terminal failure. The score and scores fields are kept raw because the
// payload shape varies by backend generation; resolve through ScoreObject
// and AggregateFraction.
type EvaluationJob struct {
	ID               int64           `json:"id"`
	RunName          string          `json:"run_name"`
	DatasetName      string          `json:"dataset_name"`
	DatasetID        int64           `json:"dataset_id"`
	BatchJobID       string          `json:"batch_job_id,omitempty"`
	EmbeddingBatchID *string         `json:"embedding_batch_id,omitempty"`
	Status           JobStatus       `json:"status"`
	ObjectStoreURL   *string         `json:"object_store_url,omitempty"`
	TotalItems       int             `json:"total_items"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	RawScore         json.RawMessage `json:"score,omitempty"`
	RawScores        json.RawMessage `json:"scores,omitempty"`
	Config           *JobConfig      `json:"config,omitempty"`
	OrganizationID   int64           `json:"organization_id"`
	ProjectID        int64           `json:"project_id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ScoreObject resolves the job's effective score payload. The scores field is
// preferred over score when both are present (older backends wrote score,
// newer ones write scores). Absence of both yields nil.
func (j *EvaluationJob) ScoreObject() *ScoreObject {
	if obj := ParseScoreObject(j.RawScores); obj != nil {
		return obj
	}

	return ParseScoreObject(j.RawScore)
}

// AggregateFraction returns the job-level fractional score when the score
// field carries a bare JSON number (e.g. 0.82), nil otherwise.
func (j *EvaluationJob) AggregateFraction() *float64 {
	trimmed := bytes.TrimSpace(j.RawScore)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' || trimmed[0] == '"' || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}

	return &f
}

// AnyInFlight reports whether any job in the snapshot is still in flight.
// This is the polling loop's stop predicate.
func AnyInFlight(jobs []EvaluationJob) bool {
	for i := range jobs {
		if jobs[i].Status.IsInFlight() {
			return true
		}
	}

	return false
}
