// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typetest/internal/leaderboard"
	"github.com/verte-zerg/typetest/internal/logging"
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
	statsPkg "github.com/verte-zerg/typetest/internal/stats"
)

const (
	defaultTickInterval = 200 * time.Millisecond
	boardRows           = 10
)

// History is the local result store read by the footer and weak-char focus.
type History interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
	GetWeakChars(ctx context.Context, window int, mode string) ([]model.CharAggregate, error)
}

// Board fetches the global leaderboard.
type Board interface {
	Global(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// WeakFocuser biases word selection toward weak characters.
type WeakFocuser interface {
	FocusWeak(weakSet map[rune]struct{}, factor float64)
}

// Options wires the typing UI.
type Options struct {
	Config     model.Config
	Controller *session.Controller
	// Focus receives refreshed weak sets after each test when weak-char
	// focus is on.
	Focus        WeakFocuser
	History      History
	Reporter     session.Reporter
	Board        Board
	Logger       *slog.Logger
	TickInterval time.Duration
	// Now is the clock used to stamp events.
	Now func() time.Time
}

type tickMsg struct {
	sessionID string
	at        time.Time
}

type submittedMsg struct {
	sessionID string
	outcome   model.SubmitOutcome
}

type boardMsg struct {
	entries []model.LeaderboardEntry
	err     error
}

// Model implements the Bubble Tea typing UI. It is the visual sink of the
// session controller: every event goes through the controller and the
// resulting instructions are applied to the screen.
type Model struct {
	config   model.Config
	ctrl     *session.Controller
	focus    WeakFocuser
	history  History
	reporter session.Reporter
	board    Board
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	screen screen

	width  int
	height int

	lastWPM int
	lastAcc int
	hasLast bool
	allWPM  int
	allAcc  int
	hasAll  bool

	showBoard    bool
	boardLoading bool
	boardEntries []model.LeaderboardEntry
	boardErr     error

	weakNoticeLogged bool
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extraStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8071A"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	resultStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	noticeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
)

// NewModel constructs a typing TUI model.
func NewModel(opts Options) *Model {
	m := &Model{
		config:   opts.Config,
		ctrl:     opts.Controller,
		focus:    opts.Focus,
		history:  opts.History,
		reporter: opts.Reporter,
		board:    opts.Board,
		logger:   opts.Logger,
		interval: opts.TickInterval,
		now:      opts.Now,
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	if m.interval <= 0 {
		m.interval = defaultTickInterval
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.screen.apply(m.ctrl.Snapshot(m.now()))
	m.loadFooterStats()
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
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		cmd := m.handle(session.Tick(msg.sessionID, msg.at))
		s := m.ctrl.Session()
		if s.ID == msg.sessionID && s.State == session.Running {
			return m, batch([]tea.Cmd{cmd, m.tick(s.ID)})
		}
		return m, cmd
	case submittedMsg:
		cmd := m.handle(session.Submitted(msg.sessionID, msg.outcome))
		m.loadFooterStats()
		if m.config.FocusWeak {
			m.refreshWeakSet()
		}
		return m, cmd
	case boardMsg:
		m.boardLoading = false
		m.boardEntries = msg.entries
		m.boardErr = msg.err
		if msg.err != nil {
			m.logger.Warn("failed to load leaderboard", "err", msg.err)
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyTab:
		m.showBoard = false
		return m.handle(session.Reset(m.now()))
	case tea.KeyEnter:
		if m.ctrl.Session().State == session.Running {
			return m.handle(session.End(m.now()))
		}
		m.showBoard = false
		return m.handle(session.Reset(m.now()))
	case tea.KeyEsc:
		m.showBoard = false
		return nil
	case tea.KeyBackspace, tea.KeyDelete:
		return m.handle(session.Backspace(m.now()))
	case tea.KeySpace:
		return m.handle(session.Rune(' ', m.now()))
	case tea.KeyRunes:
		if m.ctrl.Session().State == session.Finished {
			return m.finishedKey(msg.Runes)
		}
		var cmds []tea.Cmd
		for _, r := range msg.Runes {
			if cmd := m.handle(session.Rune(r, m.now())); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return batch(cmds)
	default:
		return nil
	}
}

func (m *Model) finishedKey(runes []rune) tea.Cmd {
	if len(runes) != 1 || runes[0] != 'l' || !m.boardAvailable() {
		return nil
	}
	m.showBoard = true
	if m.boardLoading {
		return nil
	}
	m.boardLoading = true
	board := m.board
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		entries, err := board.Global(ctx)
		return boardMsg{entries: entries, err: err}
	}
}

// boardAvailable reports whether the leaderboard can be opened: only once
// the finished result has been accepted by the submission service.
func (m *Model) boardAvailable() bool {
	n := m.screen.notice
	return m.board != nil && n != nil && n.Status == model.OutcomeSubmitted
}

// handle feeds one event to the controller and returns the follow-up work:
// the first tick of a duration test and the result hand-off.
func (m *Model) handle(ev session.Event) tea.Cmd {
	before := m.ctrl.Session()
	wasRunning := before.State == session.Running
	u := m.ctrl.Handle(ev)
	m.screen.apply(u.Instructions)

	var cmds []tea.Cmd
	s := m.ctrl.Session()
	if !wasRunning && s == before && s.State == session.Running && s.Mode.Kind == model.ModeTime {
		cmds = append(cmds, m.tick(s.ID))
	}
	if u.Submit != nil && m.reporter != nil {
		cmds = append(cmds, m.report(*u.Submit))
	}
	return batch(cmds)
}

func batch(cmds []tea.Cmd) tea.Cmd {
	switch len(cmds) {
	case 0:
		return nil
	case 1:
		return cmds[0]
	default:
		return tea.Batch(cmds...)
	}
}

func (m *Model) tick(sessionID string) tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg{sessionID: sessionID, at: t}
	})
}

func (m *Model) report(res model.Result) tea.Cmd {
	reporter := m.reporter
	return func() tea.Msg {
		return submittedMsg{sessionID: res.SessionID, outcome: reporter.Report(context.Background(), res)}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.screen.words) == 0 {
		return ""
	}
	content := m.renderContent()
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(int(float64(m.width)*0.70), 1)
}

func (m *Model) renderContent() string {
	if m.showBoard {
		return m.renderBoard()
	}
	width := m.contentWidth()
	lines := visibleWindow(wrapLines(buildStyledRunes(&m.screen), width), visibleLines)
	text := renderLines(lines)
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
	}
	res := m.screen.result
	if res == nil {
		return text
	}
	summary := resultStyle.Render(fmt.Sprintf("%d wpm · %d%% acc · %d raw · %.2fs",
		res.WPM, res.Accuracy, res.RawWPM, res.DurationSeconds))
	hint := "tab restart"
	if m.boardAvailable() {
		hint += " · l leaderboard"
	}
	hint += " · ctrl+c quit"
	return lipgloss.JoinVertical(lipgloss.Center, summary, "", text, "", footerStyle.Render(hint))
}

func (m *Model) renderBoard() string {
	switch {
	case m.boardLoading:
		return footerStyle.Render("loading leaderboard…")
	case m.boardErr != nil:
		return incorrectStyle.Render("leaderboard unavailable: " + m.boardErr.Error())
	case len(m.boardEntries) == 0:
		return footerStyle.Render("leaderboard is empty")
	}
	lines := statsPkg.FormatTable(leaderboard.Headers, leaderboard.Rows(m.boardEntries, boardRows), map[int]bool{0: true, 2: true, 3: true})
	return strings.Join(lines, "\n") + "\n\n" + footerStyle.Render("esc back · tab restart")
}

func (m *Model) renderFooter() string {
	if len(m.screen.words) == 0 {
		return ""
	}
	var segments []string
	if m.config.Mode.Kind == model.ModeTime {
		segments = append(segments, fmt.Sprintf("Time %ds", m.screen.progress.SecondsLeft))
	} else {
		segments = append(segments, fmt.Sprintf("Words %d", m.screen.progress.WordsLeft))
	}
	if m.screen.state == session.Running {
		segments = append(segments, fmt.Sprintf("%d WPM · %d%%", m.screen.metrics.WPM, m.screen.metrics.Accuracy))
	}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d WPM · %d%%", m.lastWPM, m.lastAcc))
	}
	if m.hasAll {
		segments = append(segments, fmt.Sprintf("All-time %d WPM · %d%%", m.allWPM, m.allAcc))
	}
	if n := noticeText(m.screen.notice); n != "" {
		segments = append(segments, noticeStyle.Render(n))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func noticeText(n *model.SubmitOutcome) string {
	if n == nil {
		return ""
	}
	switch n.Status {
	case model.OutcomeSaved:
		return "saved"
	case model.OutcomeSubmitted:
		return "submitted"
	case model.OutcomeLoginRequired:
		return "not submitted: run typetest login"
	case model.OutcomeFailed:
		if n.Message != "" {
			return "not submitted: " + n.Message
		}
		return "not submitted"
	default:
		return string(n.Status)
	}
}

func (m *Model) loadFooterStats() {
	if m.history == nil {
		return
	}
	ctx := context.Background()
	sessions, err := m.history.ListSessions(ctx, model.StatsConfig{Mode: m.config.Mode.Name()})
	if err != nil {
		m.logger.Error("failed to load session stats", "err", err)
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastWPM = last.WPM
	m.lastAcc = last.Accuracy
	m.hasLast = true

	all := statsPkg.Overall(sessions)
	m.allWPM = all.WPM
	m.allAcc = all.Accuracy
	m.hasAll = true
}

func (m *Model) refreshWeakSet() {
	if m.history == nil || m.focus == nil {
		return
	}
	ctx := context.Background()
	aggs, err := m.history.GetWeakChars(ctx, m.config.WeakWindow, m.config.Mode.Name())
	if err != nil {
		m.logger.Error("failed to load weak chars", "err", err)
		return
	}
	if len(aggs) == 0 {
		if !m.weakNoticeLogged {
			m.logger.Info("no stats available for weak-char focus yet; using normal generator")
			m.weakNoticeLogged = true
		}
		m.focus.FocusWeak(nil, m.config.WeakFactor)
		return
	}
	m.focus.FocusWeak(statsPkg.SelectWeakChars(aggs, m.config.WeakTop), m.config.WeakFactor)
}
