package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "typetest.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleResult(i int, mode string) model.Result {
	start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
	return model.Result{
		SessionID:       "session",
		StartedAt:       start,
		EndedAt:         start.Add(30 * time.Second),
		Mode:            mode,
		ModeValue:       25,
		Punctuation:     i%2 == 0,
		WPM:             40 + i,
		RawWPM:          45 + i,
		Accuracy:        95,
		CorrectChars:    100,
		IncorrectChars:  5,
		DurationSeconds: 30,
		Chars: []model.CharStats{
			{Char: "a", Correct: 5, Incorrect: 1},
			{Char: " ", Correct: 10},
		},
	}
}

func TestInsertAndListSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mode := "words"
		if i == 2 {
			mode = "time"
		}
		_, err := st.InsertResult(ctx, sampleResult(i, mode))
		require.NoError(t, err)
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 40, all[0].WPM)
	assert.Equal(t, int64(30000), all[0].DurationMs)
	assert.True(t, all[0].EndedAt.Before(all[1].EndedAt))

	words, err := st.ListSessions(ctx, model.StatsConfig{Mode: "words"})
	require.NoError(t, err)
	assert.Len(t, words, 2)

	since := time.Unix(0, 0).UTC().Add(100 * time.Second)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestCharAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 2; i++ {
		id, err := st.InsertResult(ctx, sampleResult(i, "words"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	aggs, err := st.ListCharAggregatesForSessions(ctx, ids)
	require.NoError(t, err)
	byChar := map[string]model.CharAggregate{}
	for _, agg := range aggs {
		byChar[agg.Char] = agg
	}
	assert.Equal(t, 10, byChar["a"].Correct)
	assert.Equal(t, 2, byChar["a"].Incorrect)
	assert.Equal(t, 20, byChar[" "].Correct)

	weak, err := st.GetWeakChars(ctx, 1, "words")
	require.NoError(t, err)
	require.Len(t, weak, 2)

	none, err := st.GetWeakChars(ctx, 0, "")
	require.NoError(t, err)
	assert.Nil(t, none)

	empty, err := st.ListCharAggregatesForSessions(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
