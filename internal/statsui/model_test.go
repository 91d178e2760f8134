package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

type memHistory struct {
	sessions []model.SessionAggregate
	chars    []model.CharAggregate
	err      error
	lastCfg  model.StatsConfig
}

func (h *memHistory) ListSessions(_ context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	h.lastCfg = cfg
	return h.sessions, h.err
}

func (h *memHistory) ListCharAggregatesForSessions(context.Context, []int64) ([]model.CharAggregate, error) {
	return h.chars, nil
}

func sampleHistory() *memHistory {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	return &memHistory{
		sessions: []model.SessionAggregate{
			{SessionID: 1, EndedAt: base, Mode: "words", ModeValue: 25, WPM: 50, RawWPM: 55, Accuracy: 91, Correct: 120, Incorrect: 12, DurationMs: 30000},
			{SessionID: 2, EndedAt: base.Add(time.Hour), Mode: "time", ModeValue: 30, WPM: 64, RawWPM: 66, Accuracy: 97, Correct: 160, Incorrect: 5, DurationMs: 30000},
		},
		chars: []model.CharAggregate{
			{Char: "e", Correct: 40, Incorrect: 1},
			{Char: "q", Correct: 2, Incorrect: 3},
		},
	}
}

func TestViewShowsOverviewAndTabs(t *testing.T) {
	m := NewModel(sampleHistory(), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Best WPM")
	assert.Contains(t, view, "mode=any")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabResults, m.activeTab)
	view = m.View()
	assert.Contains(t, view, "time 30")
	assert.True(t, strings.Index(view, "time 30") < strings.Index(view, "words 25"), "newest test first")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabCharTable, m.activeTab)
	assert.Contains(t, m.View(), "40.00%")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.activeTab)
}

func TestEmptyHistory(t *testing.T) {
	m := NewModel(&memHistory{}, model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Contains(t, m.View(), "No tests found.")
}

func TestLoadErrorIsShown(t *testing.T) {
	m := NewModel(&memHistory{err: errors.New("database is locked")}, model.StatsConfig{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	assert.Contains(t, m.View(), "database is locked")
}

func TestApplyFilter(t *testing.T) {
	h := sampleHistory()
	m := NewModel(h, model.StatsConfig{CurveWindow: 5})
	m.startFilter()
	m.filters[0].input.SetValue("Time")
	m.filters[1].input.SetValue("2025-01-15")
	m.filters[2].input.SetValue("10")
	m.filters[3].input.SetValue("3")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.filterMode)
	assert.Equal(t, "time", h.lastCfg.Mode)
	assert.Equal(t, 10, h.lastCfg.Last)
	assert.Equal(t, 3, h.lastCfg.CurveWindow)
	require.NotNil(t, h.lastCfg.Since)
	assert.Equal(t, 15, h.lastCfg.Since.Day())
}

func TestApplyFilterRejectsBadInput(t *testing.T) {
	m := NewModel(sampleHistory(), model.StatsConfig{CurveWindow: 5})
	m.startFilter()
	m.filters[0].input.SetValue("sprint")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "invalid mode")

	m.filters[0].input.SetValue("")
	m.filters[3].input.SetValue("0")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.filterError, "curve window")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filterMode)
}

func TestCurveWindowSteps(t *testing.T) {
	assert.Equal(t, 5, nextCurveWindow(1))
	assert.Equal(t, 10, nextCurveWindow(5))
	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 1, prevCurveWindow(5))
	assert.Equal(t, 5, prevCurveWindow(7))
	assert.Equal(t, 10, prevCurveWindow(15))
}

func TestInvalidFilterKeepsPreviousSettings(t *testing.T) {
	m := NewModel(sampleHistory(), model.StatsConfig{Mode: "words", Last: 4, CurveWindow: 5})
	m.startFilter()
	assert.Equal(t, "words", m.filters[0].input.Value())
	assert.Equal(t, "4", m.filters[2].input.Value())

	m.filters[0].input.SetValue("time")
	m.filters[2].input.SetValue("-3")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.filterError, "invalid last")
	assert.Equal(t, "words", m.cfg.Mode)
	assert.Equal(t, 4, m.cfg.Last)
}

func TestFitBlock(t *testing.T) {
	got := fitBlock("ab\ncdef\nghi", 5, 2)
	assert.Equal(t, "ab   \ncdef ", got)

	got = fitBlock("x", 2, 3)
	assert.Equal(t, "x \n  \n  ", got)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abcdef", clip("abcdef", 10))
	assert.Equal(t, "abc...", clip("abcdefghij", 6))
	assert.Equal(t, "ab", clip("abcdef", 2))
}
