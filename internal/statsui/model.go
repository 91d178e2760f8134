// Package statsui provides the Bubble Tea stats browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/stats"
)

const (
	tabOverview = iota
	tabResults
	tabCharTable
)

var tabTitles = []string{"Overview", "Results", "Char Table"}

var (
	colorText   = lipgloss.Color("#F0F0F0")
	colorMuted  = lipgloss.Color("#8C8C8C")
	colorDim    = lipgloss.Color("#6E6E6E")
	colorBorder = lipgloss.Color("#4A4A4A")
	colorAccent = lipgloss.Color("#C89A3A")
	colorError  = lipgloss.Color("#FF4D4F")

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true)
	activeTabStyle   = tabStyle.Foreground(colorText).Bold(true).BorderForeground(colorAccent)
	inactiveTabStyle = tabStyle.Foreground(colorMuted).BorderForeground(colorBorder)
	headerStyle      = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle       = lipgloss.NewStyle().Foreground(colorError)
	cardStyle        = tabStyle.BorderForeground(colorBorder)
	cardTitleStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	cardValueStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	tableTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model is the stats browser: an overview with summary cards and curves, the
// list of stored tests and the per-character accuracy table.
type Model struct {
	src stats.HistorySource
	cfg model.StatsConfig

	report stats.Report
	errMsg string

	activeTab int
	overview  viewport.Model
	tables    map[int]*table.Model

	width  int
	height int

	filterMode  bool
	filters     []filterField
	filterIndex int
	filterError string
}

// NewModel loads the history matching cfg and returns the browser.
func NewModel(src stats.HistorySource, cfg model.StatsConfig) *Model {
	results := newTable(resultColumns())
	chars := newTable(charColumns())
	m := &Model{
		src:      src,
		cfg:      cfg,
		overview: viewport.New(0, 0),
		tables:   map[int]*table.Model{tabResults: &results, tabCharTable: &chars},
		filters:  newFilterFields(),
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active, onTable := m.tables[m.activeTab]
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.selectTab(m.activeTab - 1)
		return m, tea.ClearScreen
	case "right", "l":
		m.selectTab(m.activeTab + 1)
		return m, tea.ClearScreen
	case "=":
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.refreshReport()
		return m, nil
	case "-":
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.refreshReport()
		return m, nil
	case "/":
		return m.startFilter()
	case "g", "home":
		if onTable {
			active.GotoTop()
		} else {
			m.overview.GotoTop()
		}
		return m, nil
	case "G", "end":
		if onTable {
			active.GotoBottom()
		} else {
			m.overview.GotoBottom()
		}
		return m, nil
	}
	var cmd tea.Cmd
	if onTable {
		*active, cmd = active.Update(msg)
		return m, cmd
	}
	m.overview, cmd = m.overview.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerH, bodyH, footerH := m.heights()
	return strings.Join([]string{
		fitBlock(m.renderHeader(), m.width, headerH),
		fitBlock(m.renderBody(bodyH), m.width, bodyH),
		fitBlock(m.renderFooter(), m.width, footerH),
	}, "\n")
}

func (m *Model) heights() (header, body, footer int) {
	header = lipgloss.Height(activeTabStyle.Render("X")) + 1
	footer = 1
	if !m.filterMode && m.errMsg != "" {
		footer = 2
	}
	body = max(m.height-header-footer, 1)
	return header, body, footer
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyH, _ := m.heights()
	m.overview.Width = m.width
	m.overview.Height = bodyH
	for _, t := range m.tables {
		t.SetWidth(m.width)
		t.SetHeight(max(bodyH-1, 1))
	}
	m.resizeFilters()
}

func (m *Model) selectTab(idx int) {
	n := len(tabTitles)
	m.activeTab = ((idx % n) + n) % n
	for i, t := range m.tables {
		if i == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderHeader() string {
	tabs := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		style := inactiveTabStyle
		if i == m.activeTab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(title)
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return padBlock(row, m.width) + "\n" + headerStyle.Render(clip(m.settingsLine(), m.width))
}

func (m *Model) settingsLine() string {
	mode, since, last := "any", "any", "all"
	if m.cfg.Mode != "" {
		mode = m.cfg.Mode
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Settings: mode=%s  since=%s  last=%s  window=%d", mode, since, last, m.cfg.CurveWindow)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q")
	if m.errMsg == "" {
		return help
	}
	return help + "\n" + errorStyle.Render(m.errMsg)
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return m.renderFilterForm(height)
	}
	t, onTable := m.tables[m.activeTab]
	switch {
	case !onTable:
		return fitBlock(m.overview.View(), m.width, height)
	case len(m.report.Sessions) == 0:
		return fitBlock("No tests found.", m.width, height)
	case m.activeTab == tabCharTable && len(m.report.CharAggsAll) == 0:
		return fitBlock("No character stats found.", m.width, height)
	default:
		return fitBlock(tableTextStyle.Render(t.View()), m.width, height)
	}
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
		m.overview.SetContent("Failed to load stats.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.tables[tabResults].SetRows(resultRows(report.Sessions))
	m.tables[tabCharTable].SetRows(charRows(report.CharAggsAll))
	m.resize()
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(overviewText(m.report.Sessions, m.cfg.CurveWindow, width))
}

func overviewText(sessions []model.SessionAggregate, window, width int) string {
	if len(sessions) == 0 {
		return "No tests found."
	}
	var curves bytes.Buffer
	if err := stats.RenderCurves(&curves, sessions, window); err != nil {
		return "Failed to render curves: " + err.Error()
	}
	return strings.TrimRight(summaryCards(sessions, width)+"\n\n"+curves.String(), "\n")
}

func summaryCards(sessions []model.SessionAggregate, width int) string {
	var sumWPM, sumRaw, best int
	for _, s := range sessions {
		sumWPM += s.WPM
		sumRaw += s.RawWPM
		best = max(best, s.WPM)
	}
	n := float64(len(sessions))
	cards := []string{
		card("Tests", strconv.Itoa(len(sessions))),
		card("Avg WPM", fmt.Sprintf("%.1f", float64(sumWPM)/n)),
		card("Best WPM", strconv.Itoa(best)),
		card("Avg Raw", fmt.Sprintf("%.1f", float64(sumRaw)/n)),
		card("Accuracy", fmt.Sprintf("%d%%", stats.Overall(sessions).Accuracy)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...),
	)
}

func card(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func newTable(cols []table.Column) table.Model {
	t := table.New(table.WithColumns(cols), table.WithHeight(1))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(colorBorder).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Foreground(colorText).Bold(true)
	t.SetStyles(styles)
	return t
}

func resultColumns() []table.Column {
	return []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Mode", Width: 9},
		{Title: "WPM", Width: 5},
		{Title: "Raw", Width: 5},
		{Title: "Acc", Width: 5},
		{Title: "Time", Width: 8},
	}
}

// resultRows lists tests newest first.
func resultRows(sessions []model.SessionAggregate) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		rows = append(rows, table.Row{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%s %d", s.Mode, s.ModeValue),
			strconv.Itoa(s.WPM),
			strconv.Itoa(s.RawWPM),
			fmt.Sprintf("%d%%", s.Accuracy),
			fmt.Sprintf("%.1fs", float64(s.DurationMs)/1000),
		})
	}
	return rows
}

func charColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 7},
		{Title: "Acc", Width: 9},
		{Title: "Hits", Width: 7},
		{Title: "Misses", Width: 7},
		{Title: "Total", Width: 6},
	}
}

// charRows lists characters weakest first.
func charRows(aggs []model.CharAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, r := range stats.CharRows(aggs) {
		rows = append(rows, table.Row{
			r.Char,
			fmt.Sprintf("%.2f%%", r.Accuracy*100),
			strconv.Itoa(r.Correct),
			strconv.Itoa(r.Incorrect),
			strconv.Itoa(r.Correct + r.Incorrect),
		})
	}
	return rows
}
