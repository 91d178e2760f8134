package leaderboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

func newBoardServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leaderboard/global", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"bo","wpm":80,"accuracy":91.5},{"name":"ada","wpm":95,"accuracy":98},{"name":"cy","wpm":80,"accuracy":99}]`))
	})
	mux.HandleFunc("/api/leaderboard/college", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("college") != "Arts & Design" {
			http.Error(w, "unknown college", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"di","wpm":70,"accuracy":97}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGlobalKeepsServerOrder(t *testing.T) {
	srv := newBoardServer(t)
	entries, err := NewClient(srv.URL, srv.Client()).Global(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "bo", entries[0].Name)
	assert.Equal(t, "ada", entries[1].Name)
	assert.Equal(t, "cy", entries[2].Name)
}

func TestCollegeEncodesQuery(t *testing.T) {
	srv := newBoardServer(t)
	c := NewClient(srv.URL, srv.Client())

	entries, err := c.College(context.Background(), "Arts & Design")
	require.NoError(t, err)
	assert.Equal(t, []model.LeaderboardEntry{{Name: "di", WPM: 70, Accuracy: 97}}, entries)

	_, err = c.College(context.Background(), "Law")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = c.College(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNoCollege)
}

func TestRows(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{Name: "ada", WPM: 95.4, Accuracy: 98},
		{Name: "bo", WPM: 80, Accuracy: 91.25},
	}
	assert.Equal(t, [][]string{{"1", "ada", "95", "98.0%"}}, Rows(entries, 1))
	assert.Len(t, Rows(entries, 0), 2)
}
