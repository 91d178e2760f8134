package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/typetest/internal/identity"
	"github.com/verte-zerg/typetest/internal/model"
)

const defaultTimeout = 15 * time.Second

// Recorder keeps results in local history.
type Recorder interface {
	InsertResult(ctx context.Context, res model.Result) (int64, error)
}

// Submitter sends payloads to the submission endpoint.
type Submitter interface {
	Submit(ctx context.Context, p Payload) (Response, error)
}

// IdentitySource loads the user record attached to submissions.
type IdentitySource interface {
	Load() (model.Identity, error)
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithRecorder stores every result in local history first.
func WithRecorder(rec Recorder) Option {
	return func(r *Reporter) { r.recorder = rec }
}

// WithSubmitter enables submission; identities are required alongside it.
func WithSubmitter(sub Submitter, ids IdentitySource) Option {
	return func(r *Reporter) {
		r.submitter = sub
		r.identities = ids
	}
}

// WithTimeout bounds the whole hand-off.
func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for hand-off failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reporter records a finished result locally and optionally submits it.
// Nothing is retried or queued.
type Reporter struct {
	recorder   Recorder
	submitter  Submitter
	identities IdentitySource
	timeout    time.Duration
	logger     *slog.Logger
}

// New returns a Reporter.
func New(opts ...Option) *Reporter {
	r := &Reporter{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report hands off res and describes how it went.
func (r *Reporter) Report(ctx context.Context, res model.Result) model.SubmitOutcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.logger.With("session", res.SessionID)
	saved := false
	if r.recorder != nil {
		if _, err := r.recorder.InsertResult(ctx, res); err != nil {
			log.Error("failed to record result", "err", err)
		} else {
			saved = true
		}
	}

	if r.submitter == nil {
		if r.recorder != nil && !saved {
			return model.SubmitOutcome{Status: model.OutcomeFailed, Message: "could not save result"}
		}
		return model.SubmitOutcome{Status: model.OutcomeSaved}
	}

	if r.identities == nil {
		return model.SubmitOutcome{Status: model.OutcomeLoginRequired, Message: "run typetest login"}
	}
	id, err := r.identities.Load()
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) || errors.Is(err, identity.ErrMalformed) {
			log.Info("submission skipped", "reason", err)
			return model.SubmitOutcome{Status: model.OutcomeLoginRequired, Message: "run typetest login"}
		}
		log.Error("failed to load identity", "err", err)
		return model.SubmitOutcome{Status: model.OutcomeFailed, Message: err.Error()}
	}

	resp, err := r.submitter.Submit(ctx, NewPayload(res, &id))
	if err != nil {
		log.Warn("submission failed", "err", err)
		return model.SubmitOutcome{Status: model.OutcomeFailed, Message: err.Error()}
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "submission rejected"
		}
		log.Warn("submission rejected", "reason", msg)
		return model.SubmitOutcome{Status: model.OutcomeFailed, Message: msg}
	}
	log.Info("result submitted", "wpm", res.WPM, "accuracy", res.Accuracy)
	return model.SubmitOutcome{Status: model.OutcomeSubmitted, Redirect: resp.Redirect}
}
