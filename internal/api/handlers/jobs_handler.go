package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/evaldeck/console/internal/api/response"
	"github.com/evaldeck/console/internal/api/validation"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/poller"
	"github.com/evaldeck/console/internal/score"
)

// JobPoller is the snapshot/refresh slice of the job poller.
type JobPoller interface {
	Snapshot() poller.Snapshot
	Refresh(ctx context.Context) poller.Snapshot
}

// JobsHandler serves the poller's latest job list with render-ready score
// views attached, so consumers get display strings and severities instead
// of re-deriving them.
type JobsHandler struct {
	poller JobPoller
}

// NewJobsHandler creates a jobs handler. poller may be nil when no backend
// key is configured; the endpoints then answer 503.
func NewJobsHandler(p JobPoller) *JobsHandler {
	return &JobsHandler{poller: p}
}

// jobView pairs a job with its normalized, render-ready score data.
type jobView struct {
	Job models.EvaluationJob `json:"job"`

	// AggregateScore is the job-level percentage display ("82.0%"), present
	// only when the job carried a bare-number score.
	AggregateScore *string `json:"aggregate_score,omitempty"`

	Scores score.NormalizedView `json:"scores"`

	// Table is the per-item detail table; nil when scores are unavailable.
	Table *score.Table `json:"table,omitempty"`
}

type jobsResponse struct {
	Jobs      []jobView `json:"jobs"`
	FetchedAt time.Time `json:"fetched_at"`

	// FetchError carries the most recent poll failure; Jobs then still
	// holds the last successful snapshot.
	FetchError string `json:"fetch_error,omitempty"`
}

func buildJobsResponse(snap poller.Snapshot) jobsResponse {
	views := make([]jobView, 0, len(snap.Jobs))

	for _, job := range snap.Jobs {
		view := jobView{
			Job:    job,
			Scores: score.Normalize(job.ScoreObject()),
		}

		if frac := job.AggregateFraction(); frac != nil {
			display := score.FormatJobScore(*frac)
			view.AggregateScore = &display
		}

		if view.Scores.Available {
			table := score.BuildTable(view.Scores)
			view.Table = &table
		}

		views = append(views, view)
	}

	resp := jobsResponse{Jobs: views, FetchedAt: snap.FetchedAt}
	if snap.Err != nil {
		resp.FetchError = snap.Err.Error()
	}

	return resp
}

// listJobsQuery filters the snapshot view. Status narrows to jobs still in
// flight or already settled; limit caps the number of rows returned.
type listJobsQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=in_flight terminal"`
	Limit  int    `form:"limit" validate:"omitempty,gte=1,lte=500"`
}

func filterSnapshot(snap poller.Snapshot, query listJobsQuery) poller.Snapshot {
	if query.Status != "" {
		kept := make([]models.EvaluationJob, 0, len(snap.Jobs))

		for _, job := range snap.Jobs {
			switch query.Status {
			case "in_flight":
				if job.Status.IsInFlight() {
					kept = append(kept, job)
				}
			case "terminal":
				if job.Status.IsTerminal() {
					kept = append(kept, job)
				}
			}
		}

		snap.Jobs = kept
	}

	if query.Limit > 0 && len(snap.Jobs) > query.Limit {
		snap.Jobs = snap.Jobs[:query.Limit]
	}

	return snap
}

// List handles GET /v1/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		response.RespondError(w, http.StatusServiceUnavailable,
			"Service Unavailable", "job polling is not configured; set BACKEND_API_KEY")
		return
	}

	var query listJobsQuery
	if err := validation.ValidateAndDecodeQueryParams(r, &query); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, buildJobsResponse(filterSnapshot(h.poller.Snapshot(), query)))
}

// Refresh handles POST /v1/jobs/refresh: an immediate fetch outside the
// poll schedule, with the stop predicate re-evaluated from its result.
func (h *JobsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		response.RespondError(w, http.StatusServiceUnavailable,
			"Service Unavailable", "job polling is not configured; set BACKEND_API_KEY")
		return
	}

	response.RespondJSON(w, http.StatusOK, buildJobsResponse(h.poller.Refresh(r.Context())))
}
