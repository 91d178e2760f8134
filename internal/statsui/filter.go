package statsui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetest/internal/model"
)

const dateLayout = "2006-01-02"

// filterField edits one StatsConfig setting. parse writes the trimmed input
// into cfg; format reads the current value back.
type filterField struct {
	input  textinput.Model
	parse  func(cfg *model.StatsConfig, in string) error
	format func(cfg model.StatsConfig) string
}

func newFilterFields() []filterField {
	return []filterField{
		{
			input: newFilterInput("Mode (words/time): "),
			parse: func(cfg *model.StatsConfig, in string) error {
				in = strings.ToLower(in)
				if in != "" && in != "words" && in != "time" {
					return errors.New("invalid mode (use words or time)")
				}
				cfg.Mode = in
				return nil
			},
			format: func(cfg model.StatsConfig) string { return cfg.Mode },
		},
		{
			input: newFilterInput("Since (YYYY-MM-DD): "),
			parse: func(cfg *model.StatsConfig, in string) error {
				cfg.Since = nil
				if in == "" {
					return nil
				}
				parsed, err := time.ParseInLocation(dateLayout, in, time.Local)
				if err != nil {
					return errors.New("invalid since date (expected YYYY-MM-DD)")
				}
				cfg.Since = &parsed
				return nil
			},
			format: func(cfg model.StatsConfig) string {
				if cfg.Since == nil {
					return ""
				}
				return cfg.Since.Format(dateLayout)
			},
		},
		{
			input: newFilterInput("Last: "),
			parse: func(cfg *model.StatsConfig, in string) error {
				n, err := optionalInt(in, 0)
				if err != nil || n < 0 {
					return errors.New("invalid last value (use 0 or a positive integer)")
				}
				cfg.Last = n
				return nil
			},
			format: func(cfg model.StatsConfig) string {
				if cfg.Last <= 0 {
					return ""
				}
				return strconv.Itoa(cfg.Last)
			},
		},
		{
			input: newFilterInput("Curve window: "),
			parse: func(cfg *model.StatsConfig, in string) error {
				n, err := optionalInt(in, 1)
				if err != nil || n < 1 {
					return errors.New("invalid curve window (use an integer >= 1)")
				}
				cfg.CurveWindow = n
				return nil
			},
			format: func(cfg model.StatsConfig) string { return strconv.Itoa(cfg.CurveWindow) },
		},
	}
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func optionalInt(in string, fallback int) (int, error) {
	if in == "" {
		return fallback, nil
	}
	return strconv.Atoi(in)
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	for i := range m.filters {
		m.filters[i].input.SetValue(m.filters[i].format(m.cfg))
	}
	return m, m.focusFilter(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := m.parseFilters()
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		return m, nil
	case tea.KeyTab:
		return m, m.focusFilter(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.focusFilter(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	f := &m.filters[m.filterIndex]
	f.input, cmd = f.input.Update(msg)
	return m, cmd
}

// parseFilters builds a new config from every field, stopping at the first
// invalid one so a bad edit never half-applies.
func (m *Model) parseFilters() (model.StatsConfig, error) {
	var cfg model.StatsConfig
	for _, f := range m.filters {
		if err := f.parse(&cfg, strings.TrimSpace(f.input.Value())); err != nil {
			return model.StatsConfig{}, err
		}
	}
	return cfg, nil
}

func (m *Model) focusFilter(idx int) tea.Cmd {
	n := len(m.filters)
	m.filterIndex = ((idx % n) + n) % n
	var cmd tea.Cmd
	for i := range m.filters {
		if i == m.filterIndex {
			cmd = m.filters[i].input.Focus()
			continue
		}
		m.filters[i].input.Blur()
	}
	return cmd
}

func (m *Model) resizeFilters() {
	for i := range m.filters {
		in := &m.filters[i].input
		in.Width = max(10, m.width-lipgloss.Width(in.Prompt)-2)
	}
}

func (m *Model) renderFilterForm(height int) string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, f := range m.filters {
		lines = append(lines, f.input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return fitBlock(strings.Join(lines, "\n"), m.width, height)
}

// nextCurveWindow steps the moving-average window up to the next multiple of 5.
func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

// prevCurveWindow steps down to the previous multiple of 5, bottoming out at 1.
func prevCurveWindow(n int) int {
	switch {
	case n <= 5:
		return 1
	case n%5 == 0:
		return n - 5
	default:
		return n - n%5
	}
}
