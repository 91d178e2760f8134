package tui

import (
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
	"github.com/verte-zerg/typetest/internal/stats"
)

type wordView struct {
	text   []rune
	input  []rune
	states []model.CharState
}

// span is the number of cells the word occupies, extras included.
func (w wordView) span() int {
	return max(len(w.text), len(w.input))
}

// screen is the terminal's copy of the session, kept current by applying
// render instructions.
type screen struct {
	sessionID  string
	state      session.State
	words      []wordView
	cursorWord int
	cursorChar int
	metrics    stats.Metrics
	progress   session.Progress
	result     *model.Result
	notice     *model.SubmitOutcome
}

func (sc *screen) apply(instrs []session.Instruction) {
	for _, in := range instrs {
		if in.Kind == session.KindReset {
			*sc = screen{}
		}
		if in.SessionID != "" {
			sc.sessionID = in.SessionID
			sc.state = in.State
		}
		switch in.Kind {
		case session.KindWords:
			sc.words = makeWordViews(in.Words)
		case session.KindAppend:
			sc.words = append(sc.words[:min(in.Index, len(sc.words))], makeWordViews(in.Words)...)
		case session.KindWord:
			if in.Index >= 0 && in.Index < len(sc.words) {
				sc.words[in.Index].input = []rune(in.Input)
				sc.words[in.Index].states = in.States
			}
		case session.KindCursor:
			sc.cursorWord = in.Index
			sc.cursorChar = in.Char
		case session.KindStats:
			if in.Metrics != nil {
				sc.metrics = *in.Metrics
			}
		case session.KindProgress:
			if in.Progress != nil {
				sc.progress = *in.Progress
			}
		case session.KindResult:
			sc.result = in.Result
			if in.Metrics != nil {
				sc.metrics = *in.Metrics
			}
		case session.KindNotice:
			sc.notice = in.Notice
		}
	}
}

func makeWordViews(tokens []string) []wordView {
	out := make([]wordView, len(tokens))
	for i, tok := range tokens {
		out[i] = wordView{text: []rune(tok)}
	}
	return out
}
