package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/evaldeck/console/internal/api/handlers"
	"github.com/evaldeck/console/internal/api/middleware"
	"github.com/evaldeck/console/internal/config"
	"github.com/evaldeck/console/internal/fixtures"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/observability"
	"github.com/evaldeck/console/internal/poller"
	"github.com/evaldeck/console/internal/service"
	"github.com/evaldeck/console/internal/store"
	"github.com/evaldeck/console/pkg/evalbackend"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	jobPoller      *poller.Poller
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
	metrics        observability.ConsoleMetrics
}

// setupMetrics creates the meter provider and console metrics for the
// configured exporter. The prometheus exporter also yields a scrape handler
// for /metrics; otlp pushes and yields none. Unknown exporters disable
// metrics, matching a missing setting.
func setupMetrics(ctx context.Context, cfg *config.Config) (
	provider observability.MeterProviderShutdown,
	metricsHandler http.Handler,
	metrics observability.ConsoleMetrics,
	cacheMetrics observability.CacheMetrics,
	err error,
) {
	switch cfg.OtelMetricsExporter {
	case "prometheus":
		return observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	case "otlp":
		mp, err := observability.NewOTLPMeterProvider(cfg)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("create OTLP meter provider: %w", err)
		}

		meter := mp.Meter("console")

		metrics, err := observability.NewConsoleMetrics(meter)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(ctx, mp); err2 != nil {
				slog.Error("shutdown meter provider after metrics error", "error", err2)
			}

			return nil, nil, nil, nil, fmt.Errorf("create metrics: %w", err)
		}

		cacheMetrics, err := observability.NewCacheMetrics(meter)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(ctx, mp); err2 != nil {
				slog.Error("shutdown meter provider after cache metrics error", "error", err2)
			}

			return nil, nil, nil, nil, fmt.Errorf("create cache metrics: %w", err)
		}

		return mp, nil, metrics, cacheMetrics, nil
	default:
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unsupported)",
			"exporter", cfg.OtelMetricsExporter)

		return nil, nil, nil, nil, nil
	}
}

// newJobLister picks the poller's data source: canned fixtures in mock mode,
// the real backend when a key is configured, nil otherwise (the jobs
// endpoints then answer 503).
func newJobLister(cfg *config.Config, client *evalbackend.Client, fixtureStore *fixtures.Store) poller.ListFunc {
	if cfg.MockMode {
		return func(_ context.Context) ([]models.EvaluationJob, error) {
			payload, err := fixtureStore.ListPayload()
			if err != nil {
				return nil, err
			}

			var jobs []models.EvaluationJob
			if err := json.Unmarshal(payload, &jobs); err != nil {
				return nil, fmt.Errorf("decode fixture job list: %w", err)
			}

			return jobs, nil
		}
	}

	if cfg.BackendAPIKey != "" {
		return func(ctx context.Context) ([]models.EvaluationJob, error) {
			return client.ListEvaluations(ctx, cfg.BackendAPIKey)
		}
	}

	return nil
}

// NewApp builds and wires all components. It does not start the HTTP server
// or the poller; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	meterProvider, metricsHandler, metrics, cacheMetrics, err := setupMetrics(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			if err2 := observability.ShutdownMeterProvider(ctx, meterProvider); err2 != nil {
				slog.Error("shutdown meter provider after tracer provider error", "error", err2)
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// Install TraceContextHandler unconditionally so request_id (and
	// trace_id/span_id when tracing is on) appear in logs.
	defaultHandler := slog.Default().Handler()
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(defaultHandler)))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if mp, ok := meterProvider.(metric.MeterProvider); ok {
		otel.SetMeterProvider(mp)
	}

	blobs, err := store.NewFileBlobStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}

	datasetRepo := store.NewDatasetRepository(blobs)
	keyRepo := store.NewAPIKeyRepository(blobs)

	client := evalbackend.NewClient(evalbackend.ClientOptions{
		BaseURL:   cfg.BackendBaseURL,
		RetryMax:  cfg.BackendRetryMax,
		Timeout:   cfg.BackendTimeout,
		RateLimit: cfg.BackendRateLimit,
	})

	fixtureStore := fixtures.NewStore()

	var jobPoller *poller.Poller

	if lister := newJobLister(cfg, client, fixtureStore); lister != nil {
		var onFetch func(error)
		if metrics != nil {
			onFetch = func(fetchErr error) {
				outcome := "success"
				if fetchErr != nil {
					outcome = "failure"
				}

				metrics.RecordPollCycle(context.Background(), outcome)
			}
		}

		jobPoller = poller.New(lister, poller.Options{
			Interval: cfg.PollInterval,
			OnFetch:  onFetch,
		})
	} else {
		slog.Warn("job polling disabled (BACKEND_API_KEY unset and MOCK_MODE off)")
	}

	evaluationService := service.NewEvaluationService(datasetRepo, client, slog.Default())
	assistantService := service.NewAssistantService(client, cacheMetrics)

	healthHandler := handlers.NewHealthHandler()
	evaluationsHandler := handlers.NewEvaluationsHandler(client, fixtureStore, cfg.MockMode, metrics)
	assistantsHandler := handlers.NewAssistantsHandler(assistantService, fixtureStore, cfg.MockMode, metrics)
	datasetsHandler := handlers.NewDatasetsHandler(datasetRepo)
	keysHandler := handlers.NewKeysHandler(keyRepo)
	jobsHandler := handlers.NewJobsHandler(jobPollerOrNil(jobPoller))
	runsHandler := handlers.NewRunsHandler(evaluationService, keyRepo)

	server := newHTTPServer(
		cfg, metricsHandler,
		healthHandler, evaluationsHandler, assistantsHandler,
		datasetsHandler, keysHandler, jobsHandler, runsHandler,
		metrics, meterProvider, tracerProvider,
	)

	return &App{
		cfg:            cfg,
		server:         server,
		jobPoller:      jobPoller,
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// jobPollerOrNil avoids handing the handler a typed-nil interface value.
func jobPollerOrNil(p *poller.Poller) handlers.JobPoller {
	if p == nil {
		return nil
	}

	return p
}

// newHTTPServer builds the HTTP server and muxes: /health and /metrics are
// public, the proxy surface requires X-API-KEY, /v1/ is the console's own
// API. Handler chain: RequestID -> otelhttp(Logging(Metrics(MaxBody(mux))))
// so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	metricsHandler http.Handler,
	health *handlers.HealthHandler,
	evaluations *handlers.EvaluationsHandler,
	assistants *handlers.AssistantsHandler,
	datasets *handlers.DatasetsHandler,
	keys *handlers.KeysHandler,
	jobs *handlers.JobsHandler,
	runs *handlers.RunsHandler,
	metrics observability.ConsoleMetrics,
	meterProvider observability.MeterProviderShutdown,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	if metricsHandler != nil {
		public.Handle("GET /metrics", metricsHandler)
	}

	// The proxy surface mirrors the backend's paths unprefixed; auth is the
	// header's presence only, the key itself is validated upstream.
	proxy := http.NewServeMux()
	proxy.HandleFunc("GET /evaluations", evaluations.List)
	proxy.HandleFunc("GET /evaluations/{id}", evaluations.Get)
	proxy.HandleFunc("POST /evaluations", evaluations.Create)
	proxy.HandleFunc("POST /evaluations/datasets", evaluations.UploadDataset)
	proxy.HandleFunc("GET /assistant/{assistant_id}", assistants.Get)
	proxyWithAuth := middleware.RequireAPIKey(proxy)

	local := http.NewServeMux()
	local.HandleFunc("GET /v1/datasets", datasets.List)
	local.HandleFunc("POST /v1/datasets", datasets.Create)
	local.HandleFunc("DELETE /v1/datasets/{id}", datasets.Delete)

	local.HandleFunc("GET /v1/keys", keys.List)
	local.HandleFunc("POST /v1/keys", keys.Create)
	local.HandleFunc("DELETE /v1/keys/{id}", keys.Delete)

	local.HandleFunc("GET /v1/jobs", jobs.List)
	local.HandleFunc("POST /v1/jobs/refresh", jobs.Refresh)

	local.HandleFunc("POST /v1/runs", runs.Create)

	mux := http.NewServeMux()
	mux.Handle("/v1/", local)
	mux.Handle("/evaluations", proxyWithAuth)
	mux.Handle("/evaluations/", proxyWithAuth)
	mux.Handle("/assistant/", proxyWithAuth)
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}
	if mp, ok := meterProvider.(metric.MeterProvider); ok {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(mp))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// A nil ConsoleMetrics interface must stay a nil recorder, not a typed nil.
	var bodyRecorder middleware.RequestBodyTooLargeRecorder
	if metrics != nil {
		bodyRecorder = metrics
	}

	var inner http.Handler = mux
	inner = middleware.MaxBody(cfg.MaxRequestBodyBytes, bodyRecorder)(inner)
	inner = middleware.Metrics(metrics)(inner)
	// Logging runs inside otelhttp so r.Context() has the span when we log.
	inner = middleware.Logging(inner)
	handler := otelhttp.NewHandler(inner, "console-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 15 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and the job poller, then blocks until ctx is
// cancelled (e.g. signal) or the server fails. Caller should then call
// Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()

	if a.jobPoller != nil {
		go a.jobPoller.Run(pollCtx)
	}

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port, "mock_mode", a.cfg.MockMode)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelPoll()

		return err
	case <-ctx.Done():
		cancelPoll()

		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary
// errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
		if first == nil {
			first = err
		} else {
			slog.Error("shutdown meter provider", "error", err)
		}
	}

	return first
}

// Shutdown stops the server, then the observability providers. Call after Run
// returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
