// Package audit runs the ranking consistency check in the background.
package audit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/checklist/internal/model"
)

// State represents the current state of the auditor.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Status holds the outcome of the most recent check.
type Status struct {
	State      State                    `json:"-"`
	StateName  string                   `json:"state"`
	LastRun    time.Time                `json:"last_run"`
	Runs       int                      `json:"runs"`
	Violations []model.DensityViolation `json:"violations"`
	Error      string                   `json:"error,omitempty"`
}

// Checker reports ranked columns that are not numbered 1..N.
type Checker interface {
	CheckDensity(ctx context.Context) ([]model.DensityViolation, error)
}

// checkTimeout is the maximum time allowed for a single check.
const checkTimeout = 30 * time.Second

// Auditor periodically checks that every ranked column is dense.
type Auditor struct {
	checker   Checker
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	triggerCh chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	status    Status
	running   bool
}

// New creates an auditor. A non-positive interval runs checks only when
// triggered.
func New(checker Checker, interval time.Duration, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Auditor{
		checker:   checker,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		status:    Status{StateName: StateIdle.String()},
	}
}

// Start launches the check loop. It runs one check immediately and stops
// when ctx is cancelled or Stop is called.
func (a *Auditor) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	go a.loop(ctx)
}

// Stop halts the check loop and waits for it to exit.
func (a *Auditor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stopCh)
	a.mu.Unlock()

	<-a.doneCh
}

// Trigger requests an immediate check without blocking.
func (a *Auditor) Trigger() {
	select {
	case a.triggerCh <- struct{}{}:
	default:
		// A check is already pending.
	}
}

// Status returns a copy of the latest outcome.
func (a *Auditor) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.status
	st.Violations = append([]model.DensityViolation(nil), a.status.Violations...)
	return st
}

func (a *Auditor) loop(ctx context.Context) {
	defer close(a.doneCh)

	var tick <-chan time.Time
	if a.interval > 0 {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	a.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-tick:
			a.RunOnce(ctx)
		case <-a.triggerCh:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single check and records its outcome.
func (a *Auditor) RunOnce(ctx context.Context) Status {
	a.setState(StateRunning)

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	violations, err := a.checker.CheckDensity(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.status.Runs++
	a.status.LastRun = a.now()
	if err != nil {
		a.status.State = StateError
		a.status.Error = err.Error()
		a.logger.Error("ranking check failed", slog.String("error", err.Error()))
	} else {
		a.status.State = StateIdle
		a.status.Error = ""
		a.status.Violations = violations
		if len(violations) > 0 {
			a.logger.Warn("ranked columns out of order", slog.Int("columns", len(violations)))
		}
	}
	a.status.StateName = a.status.State.String()
	return a.status
}

func (a *Auditor) setState(state State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.status.State = state
	a.status.StateName = state.String()
}
