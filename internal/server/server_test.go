package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
)

type memReporter struct {
	mu      sync.Mutex
	results []model.Result
}

func (r *memReporter) Report(_ context.Context, result model.Result) model.SubmitOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return model.SubmitOutcome{Status: model.OutcomeSaved, Message: "saved"}
}

func (r *memReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func newTestServer(t *testing.T, cfg Config, vocab ...string) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Practice.Mode.Value() == 0 {
		cfg.Practice.Mode = model.WordCount(2)
	}
	s := New(cfg, vocab)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, kind session.Kind) session.Instruction {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		for _, in := range msg.Instructions {
			if in.Kind == kind {
				return in
			}
		}
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "go")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["vocabulary"])
}

func TestWordsPreview(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "alpha", "beta")

	resp, err := http.Get(ts.URL + "/api/words?count=7")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Words []string `json:"words"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Words, 7)
	for _, w := range body.Words {
		assert.Contains(t, []string{"alpha", "beta"}, w)
	}
}

func TestWordsPreviewRejectsBadParams(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "go")

	for _, query := range []string{"count=0", "count=abc", "count=100000", "punctuation=maybe"} {
		resp, err := http.Get(ts.URL + "/api/words?" + query)
		require.NoError(t, err)
		var body errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
		assert.NotEmpty(t, body.Error, query)
	}
}

func TestWebSocketRejectsBadMode(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "go")

	for _, query := range []string{
		"mode=marathon&value=3",
		"mode=words&value=2000000000",
		"mode=time&value=86400",
	} {
		resp, err := http.Get(ts.URL + "/ws?" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestWebSocketSessionReportsResult(t *testing.T) {
	rep := &memReporter{}
	_, ts := newTestServer(t, Config{Reporter: rep}, "go")
	conn := dial(t, ts, "mode=words&value=2")

	var hello ServerMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeHello, hello.Type)
	assert.NotEmpty(t, hello.ConnectionID)
	assert.Equal(t, "words 2", hello.Mode)

	words := readUntil(t, conn, session.KindWords)
	assert.Equal(t, []string{"go", "go"}, words.Words)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeKey, Key: "go "}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeKey, Key: "gx"}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeBackspace}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeKey, Key: "o "}))

	result := readUntil(t, conn, session.KindResult)
	require.NotNil(t, result.Result)
	assert.Equal(t, 6, result.Result.CorrectChars)
	assert.Zero(t, result.Result.IncorrectChars)
	assert.Equal(t, "words", result.Result.Mode)

	notice := readUntil(t, conn, session.KindNotice)
	require.NotNil(t, notice.Notice)
	assert.Equal(t, model.OutcomeSaved, notice.Notice.Status)
	assert.Equal(t, 1, rep.count())
}

func TestWebSocketResetStartsFreshSession(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "go")
	conn := dial(t, ts, "")

	first := readUntil(t, conn, session.KindReset)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeKey, Key: "g"}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeReset}))

	second := readUntil(t, conn, session.KindReset)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, session.NotStarted, second.State)
}

func TestWebSocketUnknownMessage(t *testing.T) {
	_, ts := newTestServer(t, Config{}, "go")
	conn := dial(t, ts, "")

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "teleport"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg ServerMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == TypeError {
			assert.Contains(t, msg.Error, "teleport")
			return
		}
	}
}

func TestWebSocketDurationSessionEndsOnTimer(t *testing.T) {
	rep := &memReporter{}
	_, ts := newTestServer(t, Config{Reporter: rep, TickInterval: 20 * time.Millisecond}, "go")
	conn := dial(t, ts, "mode=time&value=1")

	readUntil(t, conn, session.KindWords)
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeKey, Key: "g"}))

	result := readUntil(t, conn, session.KindResult)
	require.NotNil(t, result.Result)
	assert.Equal(t, "time", result.Result.Mode)
	assert.Equal(t, 1.0, result.Result.DurationSeconds)
	require.Eventually(t, func() bool { return rep.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionsTracked(t *testing.T) {
	s, ts := newTestServer(t, Config{}, "go")
	conn := dial(t, ts, "")
	readUntil(t, conn, session.KindWords)
	assert.EqualValues(t, 1, s.Connections())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return s.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchWordListReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	s := New(Config{Practice: model.Config{Mode: model.WordCount(5), WordListPath: path}}, []string{"one", "two"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.WatchWordList(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("three\nfour\nfive\n"), 0o644); err != nil {
			return false
		}
		return len(s.Vocabulary()) == 3
	}, 5*time.Second, 400*time.Millisecond)
	assert.Equal(t, []string{"three", "four", "five"}, s.Vocabulary())
}

func TestWatchWordListWithoutPath(t *testing.T) {
	s := New(Config{}, nil)
	require.NoError(t, s.WatchWordList(context.Background()))
	assert.NotEmpty(t, s.Vocabulary())
}

func TestModeFromQueryDefaults(t *testing.T) {
	get := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}
	defaults := model.Duration(60)

	mode, err := modeFromQuery(get(nil), defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, mode)

	mode, err = modeFromQuery(get(map[string]string{"value": "15"}), defaults)
	require.NoError(t, err)
	assert.Equal(t, model.Duration(15), mode)

	mode, err = modeFromQuery(get(map[string]string{"mode": "words"}), defaults)
	require.NoError(t, err)
	assert.Equal(t, model.WordCount(25), mode)

	_, err = modeFromQuery(get(map[string]string{"value": "x"}), defaults)
	assert.Error(t, err)
}

func TestModeFromQueryBounds(t *testing.T) {
	get := func(values map[string]string) func(string) string {
		return func(k string) string { return values[k] }
	}
	defaults := model.WordCount(25)

	mode, err := modeFromQuery(get(map[string]string{"mode": "words", "value": "1000"}), defaults)
	require.NoError(t, err)
	assert.Equal(t, model.WordCount(1000), mode)

	mode, err = modeFromQuery(get(map[string]string{"mode": "time", "value": "3600"}), defaults)
	require.NoError(t, err)
	assert.Equal(t, model.Duration(3600), mode)

	_, err = modeFromQuery(get(map[string]string{"mode": "words", "value": "2000000000"}), defaults)
	assert.Error(t, err)
	_, err = modeFromQuery(get(map[string]string{"mode": "time", "value": "3601"}), defaults)
	assert.Error(t, err)
}
