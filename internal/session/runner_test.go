package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

type recordingSink struct {
	mu     sync.Mutex
	instrs []Instruction
}

func (s *recordingSink) Render(instrs []Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instrs = append(s.instrs, instrs...)
	return nil
}

func (s *recordingSink) find(kind Kind) []Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Instruction
	for _, in := range s.instrs {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}

type countingReporter struct {
	mu      sync.Mutex
	results []model.Result
}

func (r *countingReporter) Report(_ context.Context, result model.Result) model.SubmitOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return model.SubmitOutcome{Status: model.OutcomeSaved}
}

func (r *countingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func startRunner(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRunnerReportsOncePerSession(t *testing.T) {
	ctrl, _ := newTestController(t, Config{Mode: model.WordCount(2)}, "hi")
	sink := &recordingSink{}
	rep := &countingReporter{}
	r := NewRunner(ctrl, sink, rep)
	startRunner(t, r)

	ctx := context.Background()
	now := time.Now()
	for _, ch := range "hi hi " {
		require.NoError(t, r.Send(ctx, Rune(ch, now)))
		now = now.Add(50 * time.Millisecond)
	}
	require.NoError(t, r.Send(ctx, End(now)))

	require.Eventually(t, func() bool { return len(sink.find(KindNotice)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rep.count())
	notice := sink.find(KindNotice)[0]
	assert.Equal(t, model.OutcomeSaved, notice.Notice.Status)
	assert.Equal(t, "s1", notice.SessionID)

	results := sink.find(KindResult)
	require.Len(t, results, 1)
	assert.Equal(t, 6, results[0].Result.CorrectChars)
}

func TestRunnerFinishesDurationSessionOnTimer(t *testing.T) {
	ctrl, _ := newTestController(t, Config{Mode: model.Duration(1)}, "go")
	sink := &recordingSink{}
	rep := &countingReporter{}
	r := NewRunner(ctrl, sink, rep, WithTickInterval(10*time.Millisecond))
	startRunner(t, r)

	require.NoError(t, r.Send(context.Background(), Rune('g', time.Now())))

	require.Eventually(t, func() bool { return rep.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	results := sink.find(KindResult)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Result.DurationSeconds)
	assert.Equal(t, "time", results[0].Result.Mode)
	assert.NotEmpty(t, sink.find(KindProgress))
}

func TestRunnerIgnoresTicksAfterReset(t *testing.T) {
	ctrl, _ := newTestController(t, Config{Mode: model.Duration(1)}, "go")
	sink := &recordingSink{}
	rep := &countingReporter{}
	r := NewRunner(ctrl, sink, rep, WithTickInterval(10*time.Millisecond))
	startRunner(t, r)

	ctx := context.Background()
	require.NoError(t, r.Send(ctx, Rune('g', time.Now())))
	require.NoError(t, r.Send(ctx, Reset(time.Now())))

	time.Sleep(1500 * time.Millisecond)
	assert.Zero(t, rep.count())
	assert.Empty(t, sink.find(KindResult))
}

func TestRunnerStopsOnCancel(t *testing.T) {
	ctrl, _ := newTestController(t, Config{Mode: model.WordCount(5)}, "go")
	r := NewRunner(ctrl, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
