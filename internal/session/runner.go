package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/typetest/internal/model"
)

const (
	defaultTickInterval = 200 * time.Millisecond
	eventBuffer         = 64
)

// Reporter hands a finished result to the outside world.
type Reporter interface {
	Report(ctx context.Context, result model.Result) model.SubmitOutcome
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithTickInterval sets how often a running duration-mode session is ticked.
func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithLogger sets the logger used for sink failures.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner drives one Controller from a single goroutine. Events from input,
// the duration ticker and finished submissions are queued and handled one at
// a time, so session state is never touched concurrently.
type Runner struct {
	ctrl     *Controller
	sink     Sink
	reporter Reporter
	events   chan Event
	interval time.Duration
	logger   *slog.Logger
}

// NewRunner returns a Runner rendering into sink and reporting finished
// results to reporter. A nil reporter drops results.
func NewRunner(ctrl *Controller, sink Sink, reporter Reporter, opts ...RunnerOption) *Runner {
	r := &Runner{
		ctrl:     ctrl,
		sink:     sink,
		reporter: reporter,
		events:   make(chan Event, eventBuffer),
		interval: defaultTickInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send queues an event for the run loop.
func (r *Runner) Send(ctx context.Context, ev Event) error {
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run draws the current session and processes events until ctx is cancelled.
// Pending submissions are allowed to complete before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stopTick context.CancelFunc
	tickFor := ""
	defer func() {
		if stopTick != nil {
			stopTick()
		}
	}()

	r.render(r.ctrl.Snapshot(time.Now()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			u := r.ctrl.Handle(ev)
			r.render(u.Instructions)

			s := r.ctrl.Session()
			if stopTick != nil && (s.State != Running || s.ID != tickFor) {
				stopTick()
				stopTick = nil
				tickFor = ""
			}
			if stopTick == nil && s.State == Running && s.Mode.Kind == model.ModeTime {
				tickCtx, stop := context.WithCancel(ctx)
				stopTick = stop
				tickFor = s.ID
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					r.tick(tickCtx, id)
				}(s.ID)
			}
			if u.Submit != nil && r.reporter != nil {
				result := *u.Submit
				wg.Add(1)
				go func() {
					defer wg.Done()
					r.report(ctx, result)
				}()
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context, sessionID string) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			select {
			case r.events <- Tick(sessionID, now):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Runner) report(ctx context.Context, result model.Result) {
	// The hand-off outlives the connection that produced the result.
	outcome := r.reporter.Report(context.WithoutCancel(ctx), result)
	select {
	case r.events <- Submitted(result.SessionID, outcome):
	case <-ctx.Done():
	}
}

func (r *Runner) render(instrs []Instruction) {
	if len(instrs) == 0 || r.sink == nil {
		return
	}
	if err := r.sink.Render(instrs); err != nil {
		r.logger.Warn("render failed", "err", err)
	}
}
