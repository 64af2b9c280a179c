// Package health checks every backend concurrently for /health and the gRPC health service.
package health

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"pdfrag/backend/go/internal/config"
	"pdfrag/backend/go/internal/models"
	"pdfrag/backend/go/internal/rag_service/rag/interfaces"
	"pdfrag/backend/go/internal/rag_service/rag/storages/vectorstore"
	"pdfrag/backend/go/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	// TimeoutMessage is reported when the checks do not finish in time.
	TimeoutMessage = "Health check timeout"
)

// LLMStatus exposes the configured model and whether its breaker lets calls through.
type LLMStatus interface {
	Model() string
	Available() bool
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status  string                 `json:"status"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Application identifies the service in the report.
type Application struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// Report is the /health response body.
type Report struct {
	Status                string                 `json:"status"`
	Timestamp             time.Time              `json:"timestamp"`
	TotalCheckTimeSeconds float64                `json:"total_check_time_seconds"`
	Application           *Application           `json:"application,omitempty"`
	Checks                map[string]CheckResult `json:"checks,omitempty"`
	Error                 string                 `json:"error,omitempty"`
}

// Healthy reports whether the overall status is healthy.
func (r *Report) Healthy() bool {
	return r.Status == StatusHealthy
}

// Checker aggregates the dependency checks.
type Checker struct {
	records     interfaces.RecordStore
	docs        interfaces.DocStore
	provider    *vectorstore.Provider
	llm         LLMStatus
	llmProvider string
	app         Application
	timeout     time.Duration
	log         *logger.Logger
	now         func() time.Time
}

// NewChecker creates a Checker. A nil llm is reported as not configured.
func NewChecker(cfg *config.AppConfig, records interfaces.RecordStore, docs interfaces.DocStore, provider *vectorstore.Provider, llm LLMStatus, log *logger.Logger) *Checker {
	return &Checker{
		records:     records,
		docs:        docs,
		provider:    provider,
		llm:         llm,
		llmProvider: cfg.LLM.Provider,
		app: Application{
			Name:        cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
		},
		timeout: config.Duration(cfg.Health.Timeout, 5*time.Second),
		log:     log,
		now:     time.Now,
	}
}

// Check runs every check concurrently under the configured timeout.
func (c *Checker) Check(ctx context.Context) *Report {
	start := c.now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, 4)
	)
	record := func(name string, res CheckResult) {
		mu.Lock()
		checks[name] = res
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { record("database", c.checkDatabase(gctx)); return nil })
	g.Go(func() error { record("document_store", c.checkDocStore(gctx)); return nil })
	g.Go(func() error { record("vector_store", c.checkVectorStore(gctx)); return nil })
	g.Go(func() error { record("llm", c.checkLLM()); return nil })

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	if !finished(done, ctx.Done()) {
		c.log.With("timeout", c.timeout.String()).Warn("Health check timed out")
		return &Report{
			Status:                StatusUnhealthy,
			Timestamp:             c.now().UTC(),
			TotalCheckTimeSeconds: elapsed(start, c.now()),
			Error:                 TimeoutMessage,
		}
	}

	status := StatusHealthy
	for name, res := range checks {
		if res.Status != StatusHealthy {
			status = StatusUnhealthy
			c.log.With("check", name).With("error", res.Error).Warn("Health check failed")
		}
	}
	app := c.app
	return &Report{
		Status:                status,
		Timestamp:             c.now().UTC(),
		TotalCheckTimeSeconds: elapsed(start, c.now()),
		Application:           &app,
		Checks:                checks,
	}
}

// Watch runs Check immediately and then every interval, passing the result to update until ctx ends.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, update func(healthy bool)) {
	update(c.Check(ctx).Healthy())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			update(c.Check(ctx).Healthy())
		}
	}
}

func (c *Checker) checkDatabase(ctx context.Context) CheckResult {
	if err := c.records.Ping(ctx); err != nil {
		return unhealthy(err)
	}
	n, err := c.records.Count(ctx)
	if err != nil {
		return unhealthy(err)
	}
	return CheckResult{Status: StatusHealthy, Details: map[string]interface{}{"records": n}}
}

func (c *Checker) checkDocStore(ctx context.Context) CheckResult {
	if err := c.docs.Ping(ctx); err != nil {
		return unhealthy(err)
	}
	return CheckResult{Status: StatusHealthy}
}

func (c *Checker) checkVectorStore(ctx context.Context) CheckResult {
	store, err := c.provider.Get(ctx)
	if err != nil {
		return unhealthy(err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		return unhealthy(err)
	}
	return CheckResult{Status: StatusHealthy, Details: map[string]interface{}{
		"vectors": n,
		"state":   c.provider.State().String(),
	}}
}

func (c *Checker) checkLLM() CheckResult {
	if c.llm == nil || c.llm.Model() == "" {
		return unhealthy(errors.New("language model is not configured"))
	}
	details := map[string]interface{}{"provider": c.llmProvider, "model": c.llm.Model()}
	if !c.llm.Available() {
		res := unhealthy(errors.New("circuit breaker is open"))
		res.Details = details
		return res
	}
	return CheckResult{Status: StatusHealthy, Details: details}
}

// finished waits for done or expired and prefers done when both are ready.
func finished(done, expired <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-expired:
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

func unhealthy(err error) CheckResult {
	return CheckResult{Status: StatusUnhealthy, Error: models.NewErrorInfo(err, "health_error").Message}
}

func elapsed(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Seconds()*1000) / 1000
}
