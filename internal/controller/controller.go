// Package controller keeps a broker converged by reconciling a desired-state
// document on a fixed interval.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ottermq/otterconf/internal/core/models"
	"github.com/ottermq/otterconf/internal/loader"
	"github.com/ottermq/otterconf/internal/reconcile"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("a reconciliation run is already in progress")

// Status summarizes the most recent run.
type Status struct {
	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Unchanged  int       `json:"unchanged"`
	Missing    int       `json:"missing"`
	Errors     int       `json:"errors"`
	Messages   []string  `json:"messages,omitempty"`
}

// Succeeded reports whether the run finished without errors.
func (s Status) Succeeded() bool {
	return s.Errors == 0
}

// Controller serializes runs of one engine against one document. The document
// is read again on every run so edits are picked up without a restart.
type Controller struct {
	source   string
	engine   *reconcile.Engine
	interval time.Duration
	load     func(path string) (*models.DesiredState, error)

	running sync.Mutex
	mu      sync.RWMutex
	last    *Status
}

func New(source string, engine *reconcile.Engine, interval time.Duration) *Controller {
	return &Controller{
		source:   source,
		engine:   engine,
		interval: interval,
		load:     loader.Load,
	}
}

// Source is the path of the desired-state document.
func (c *Controller) Source() string {
	return c.source
}

// Interval is the time between scheduled runs.
func (c *Controller) Interval() time.Duration {
	return c.interval
}

// Last returns the status of the most recent finished run.
func (c *Controller) Last() (Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return Status{}, false
	}
	return *c.last, true
}

// Reconcile performs a single run. It fails fast with ErrBusy rather than
// queueing behind a run already in progress.
func (c *Controller) Reconcile(ctx context.Context, mode reconcile.Mode) (Status, error) {
	if !c.running.TryLock() {
		return Status{}, ErrBusy
	}
	defer c.running.Unlock()

	status := Status{Mode: string(mode), Source: c.source, StartedAt: time.Now()}
	state, err := c.load(c.source)
	if err != nil {
		status.Errors = 1
		status.Messages = []string{err.Error()}
		status.FinishedAt = time.Now()
		c.record(status)
		return status, err
	}

	report, runErr := c.engine.Run(ctx, mode, state)
	status.RunID = report.RunID
	status.Created = report.Total(models.OutcomeCreated)
	status.Unchanged = report.Total(models.OutcomeUnchanged)
	status.Missing = report.Total(models.OutcomeMissing)
	status.Errors = report.Errors()
	var agg *reconcile.AggregateError
	if errors.As(runErr, &agg) {
		for _, e := range agg.Errors() {
			status.Messages = append(status.Messages, e.Error())
		}
	}
	status.FinishedAt = time.Now()
	c.record(status)
	return status, runErr
}

func (c *Controller) record(s Status) {
	c.mu.Lock()
	c.last = &s
	c.mu.Unlock()
}

// Run applies the document immediately and then once per interval until ctx
// is cancelled. Failed runs are logged and retried on the next tick.
func (c *Controller) Run(ctx context.Context) error {
	log.Info().Str("source", c.source).Dur("interval", c.interval).Msg("Starting reconciliation loop")
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.Reconcile(ctx, reconcile.ModeApply); err != nil {
			if errors.Is(err, ErrBusy) {
				log.Debug().Msg("Skipping scheduled run, another run is in progress")
			} else {
				log.Error().Err(err).Msg("Scheduled run failed")
			}
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Reconciliation loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
