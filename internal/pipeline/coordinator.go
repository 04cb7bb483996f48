package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mfenderov/contentloop/internal/events"
)

// ErrAlreadyRunning is returned when a run is requested while one is in flight.
var ErrAlreadyRunning = errors.New("pipeline run already in progress")

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// RunResult is the aggregate outcome of one run.
type RunResult struct {
	Trigger    string           `json:"trigger"`
	UserID     string           `json:"user_id,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Crawl      CrawlResult      `json:"crawl"`
	Extraction ExtractionResult `json:"extraction"`
	Generation GenerationResult `json:"generation"`
	Retention  RetentionResult  `json:"retention"`
}

// Errors returns every stage's errors in stage order.
func (r *RunResult) Errors() []string {
	var out []string
	out = append(out, r.Crawl.Errors...)
	out = append(out, r.Extraction.Errors...)
	out = append(out, r.Generation.Errors...)
	out = append(out, r.Retention.Errors...)
	return out
}

// Duration is how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunState is the coordinator's view of runs in this process.
type RunState struct {
	Running    bool
	LastRunAt  *time.Time
	LastResult *RunResult
}

// Status is a snapshot of RunState safe to hand to callers.
type Status struct {
	Running    bool       `json:"running"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastResult *RunResult `json:"last_result,omitempty"`
}

// Coordinator serialises runs: at most one is in flight, and a request that
// arrives during a run is rejected rather than queued.
type Coordinator struct {
	pipeline *Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	state  RunState
	notify chan<- events.RunCompleted
}

// NewCoordinator creates a coordinator for p.
func NewCoordinator(p *Pipeline) *Coordinator {
	return &Coordinator{pipeline: p, logger: p.logger}
}

// Notify sets a channel that receives an event after each run. Sends never
// block; events are dropped when the channel is full.
func (c *Coordinator) Notify(ch chan<- events.RunCompleted) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = ch
}

// Tick runs one scheduled pass: each tenant is admitted by its own schedule.
func (c *Coordinator) Tick(ctx context.Context) (*RunResult, error) {
	return c.run(ctx, TriggerScheduled, Options{})
}

// Trigger runs a manual pass that crawls regardless of cadence. A non-empty
// userID scopes the run to that tenant and also bypasses its generation schedule.
func (c *Coordinator) Trigger(ctx context.Context, userID string) (*RunResult, error) {
	return c.run(ctx, TriggerManual, Options{Force: true, UserID: userID})
}

// Status returns the current run state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Running:    c.state.Running,
		LastRunAt:  c.state.LastRunAt,
		LastResult: c.state.LastResult,
	}
}

func (c *Coordinator) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Running {
		return false
	}
	c.state.Running = true
	return true
}

func (c *Coordinator) run(ctx context.Context, trigger string, opts Options) (*RunResult, error) {
	if !c.acquire() {
		return nil, ErrAlreadyRunning
	}

	p := c.pipeline
	res := &RunResult{Trigger: trigger, UserID: opts.UserID, StartedAt: p.now()}
	log := c.logger.With("trigger", trigger)
	if opts.UserID != "" {
		log = log.With("user_id", opts.UserID)
	}
	defer c.finish(res, log)
	log.Info("pipeline run started")

	res.Crawl = p.Crawl(ctx, opts)
	res.Extraction = p.Extract(ctx, opts)
	res.Generation = p.Generate(ctx, opts)
	res.Retention = p.Retain(ctx)
	return res, nil
}

// finish records the result, returns the state to idle and emits the
// completion event.
func (c *Coordinator) finish(res *RunResult, log *slog.Logger) {
	res.FinishedAt = c.pipeline.now()
	errs := res.Errors()
	log.Info("pipeline run finished",
		"duration", res.Duration(),
		"documents_created", res.Crawl.DocumentsCreated,
		"extracted", res.Extraction.Extracted,
		"assets_created", res.Generation.AssetsCreated,
		"documents_deleted", res.Retention.DocumentsDeleted,
		"errors", len(errs))

	c.mu.Lock()
	at := res.StartedAt
	c.state = RunState{Running: false, LastRunAt: &at, LastResult: res}
	ch := c.notify
	c.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- events.RunCompleted{
		Trigger:          res.Trigger,
		UserID:           res.UserID,
		StartedAt:        res.StartedAt,
		Duration:         res.Duration(),
		DocumentsCreated: res.Crawl.DocumentsCreated,
		Extracted:        res.Extraction.Extracted,
		AssetsCreated:    res.Generation.AssetsCreated,
		DocumentsDeleted: res.Retention.DocumentsDeleted,
		Errors:           errs,
	}:
	default:
		log.Warn("run completed event dropped")
	}
}

// Run ticks immediately and then every interval until ctx is cancelled.
// Ticks that find a run in flight are skipped.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Tick(ctx); errors.Is(err, ErrAlreadyRunning) {
			c.logger.Debug("tick skipped, run in progress")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
