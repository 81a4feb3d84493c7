// Package poller keeps a refreshed snapshot of the evaluation job list while
// any job is in flight. Polling pauses once every job has settled and resumes
// when a fetch, scheduled or manual, reveals in-flight work again.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evaldeck/console/internal/models"
)

// DefaultInterval is the poll cadence between fetches.
const DefaultInterval = 10 * time.Second

// ListFunc fetches the current evaluation job list.
type ListFunc func(ctx context.Context) ([]models.EvaluationJob, error)

// Snapshot is the poller's latest view of the job list. Err carries the most
// recent fetch failure; Jobs then still holds the last successful result.
type Snapshot struct {
	Jobs      []models.EvaluationJob
	Err       error
	FetchedAt time.Time
}

// Options configures a Poller.
type Options struct {
	// Interval between scheduled fetches. Defaults to DefaultInterval.
	Interval time.Duration
	// Logger for fetch outcomes. Defaults to slog.Default().
	Logger *slog.Logger
	// OnFetch, when set, is called after every fetch with its error.
	OnFetch func(err error)
}

// Poller periodically fetches the job list.
//
// Fetches run in their own goroutines and may overlap when one outlasts the
// interval; whichever finishes last wins the snapshot. The continue/stop
// decision is re-evaluated after every fetch, so a manual Refresh that shows
// all jobs settled pauses the ticker immediately, and one that shows new
// in-flight work restarts it.
type Poller struct {
	list     ListFunc
	interval time.Duration
	logger   *slog.Logger
	onFetch  func(error)

	mu       sync.Mutex
	snapshot Snapshot

	// fetchDoneC carries a coalesced completion signal from fetches to the
	// run loop. Capacity one: a pending signal already covers later ones.
	fetchDoneC chan struct{}
}

// New creates a poller over the given list function.
func New(list ListFunc, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Poller{
		list:       list,
		interval:   opts.Interval,
		logger:     opts.Logger,
		onFetch:    opts.OnFetch,
		fetchDoneC: make(chan struct{}, 1),
	}
}

// Snapshot returns the latest view of the job list.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	jobs := make([]models.EvaluationJob, len(p.snapshot.Jobs))
	copy(jobs, p.snapshot.Jobs)

	return Snapshot{Jobs: jobs, Err: p.snapshot.Err, FetchedAt: p.snapshot.FetchedAt}
}

// Refresh fetches the job list immediately, outside the schedule. The run
// loop re-evaluates its continue/stop decision from the result.
func (p *Poller) Refresh(ctx context.Context) Snapshot {
	p.fetch(ctx)

	return p.Snapshot()
}

// Run polls until ctx is cancelled. It performs one fetch up front, then
// ticks at the configured interval while any job is in flight.
func (p *Poller) Run(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	paused := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.fetch(ctx)
		case <-p.fetchDoneC:
			inFlight := p.anyInFlight()

			switch {
			case !inFlight && !paused:
				ticker.Stop()

				paused = true

				p.logger.Debug("polling paused, all jobs settled")
			case inFlight && paused:
				ticker.Reset(p.interval)

				paused = false

				p.logger.Debug("polling resumed, in-flight jobs found")
			}
		}
	}
}

func (p *Poller) anyInFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A failed fetch keeps the previous snapshot, and the continue/stop
	// decision reads that snapshot: polling goes on only while it still
	// shows in-flight jobs. A failure on a settled snapshot stays paused.
	return models.AnyInFlight(p.snapshot.Jobs)
}

func (p *Poller) fetch(ctx context.Context) {
	jobs, err := p.list(ctx)

	p.mu.Lock()
	if err != nil {
		p.snapshot.Err = err
	} else {
		p.snapshot = Snapshot{Jobs: jobs, FetchedAt: time.Now()}
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("job list fetch failed, keeping previous snapshot", "error", err)
	}

	if p.onFetch != nil {
		p.onFetch(err)
	}

	select {
	case p.fetchDoneC <- struct{}{}:
	default:
	}
}
