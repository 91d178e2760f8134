package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/identity"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/store"
)

type fakeRecorder struct {
	results []model.Result
	err     error
}

func (f *fakeRecorder) InsertResult(_ context.Context, res model.Result) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.results = append(f.results, res)
	return int64(len(f.results)), nil
}

type fakeSubmitter struct {
	payloads []Payload
	resp     Response
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, p Payload) (Response, error) {
	f.payloads = append(f.payloads, p)
	return f.resp, f.err
}

func savedIdentity(t *testing.T) *identity.Store {
	t.Helper()
	ids := identity.NewStore(filepath.Join(t.TempDir(), "identity.json"))
	require.NoError(t, ids.Save(model.Identity{Name: "ada", College: "Engineering"}))
	return ids
}

var finished = model.Result{SessionID: "s1", Mode: "words", ModeValue: 25, WPM: 40, RawWPM: 45, Accuracy: 90, DurationSeconds: 12.5}

func TestReportSavesLocallyWithoutEndpoint(t *testing.T) {
	rec := &fakeRecorder{}
	out := New(WithRecorder(rec)).Report(context.Background(), finished)
	assert.Equal(t, model.OutcomeSaved, out.Status)
	require.Len(t, rec.results, 1)
	assert.Equal(t, "s1", rec.results[0].SessionID)
}

func TestReportRecordFailureWithoutEndpoint(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	out := New(WithRecorder(rec)).Report(context.Background(), finished)
	assert.Equal(t, model.OutcomeFailed, out.Status)
}

func TestReportSubmits(t *testing.T) {
	rec := &fakeRecorder{}
	sub := &fakeSubmitter{resp: Response{Success: true, Redirect: "/leaderboard"}}
	out := New(WithRecorder(rec), WithSubmitter(sub, savedIdentity(t))).Report(context.Background(), finished)

	assert.Equal(t, model.OutcomeSubmitted, out.Status)
	assert.Equal(t, "/leaderboard", out.Redirect)
	require.Len(t, sub.payloads, 1)
	p := sub.payloads[0]
	assert.Equal(t, 40, p.WPM)
	assert.Equal(t, 45, p.RawWPM)
	assert.Equal(t, 90, p.Accuracy)
	assert.Equal(t, 12.5, p.DurationSeconds)
	assert.Equal(t, "ada", p.Identity)
	assert.Len(t, rec.results, 1)
}

func TestReportLoginRequired(t *testing.T) {
	sub := &fakeSubmitter{resp: Response{Success: true}}
	ids := identity.NewStore(filepath.Join(t.TempDir(), "identity.json"))
	out := New(WithSubmitter(sub, ids)).Report(context.Background(), finished)
	assert.Equal(t, model.OutcomeLoginRequired, out.Status)
	assert.Empty(t, sub.payloads)
}

func TestReportSubmissionFailures(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		sub := &fakeSubmitter{err: errors.New("connection refused")}
		out := New(WithSubmitter(sub, savedIdentity(t))).Report(context.Background(), finished)
		assert.Equal(t, model.OutcomeFailed, out.Status)
		assert.Contains(t, out.Message, "connection refused")
		assert.Len(t, sub.payloads, 1)
	})
	t.Run("rejected", func(t *testing.T) {
		sub := &fakeSubmitter{resp: Response{Error: "Not logged in"}}
		out := New(WithSubmitter(sub, savedIdentity(t))).Report(context.Background(), finished)
		assert.Equal(t, model.OutcomeFailed, out.Status)
		assert.Equal(t, "Not logged in", out.Message)
	})
}

func TestReportEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"redirect":"/leaderboard"}`))
	}))
	defer srv.Close()

	db, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	r := New(
		WithRecorder(db),
		WithSubmitter(NewClient(srv.URL, srv.Client()), savedIdentity(t)),
	)
	out := r.Report(context.Background(), finished)
	assert.Equal(t, model.OutcomeSubmitted, out.Status)

	sessions, err := db.ListSessions(context.Background(), model.StatsConfig{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
