package session

import (
	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/stats"
)

// Kind identifies a render instruction.
type Kind string

const (
	KindReset    Kind = "reset"
	KindWords    Kind = "words"
	KindAppend   Kind = "append"
	KindWord     Kind = "word"
	KindCursor   Kind = "cursor"
	KindStats    Kind = "stats"
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindNotice   Kind = "notice"
)

// Progress is what is left of the test: words in word-count mode, seconds in
// duration mode.
type Progress struct {
	WordsLeft   int `json:"wordsLeft"`
	SecondsLeft int `json:"secondsLeft"`
}

// Instruction tells a visual sink what to redraw.
type Instruction struct {
	Kind      Kind                 `json:"type"`
	SessionID string               `json:"sessionId,omitempty"`
	State     State                `json:"state"`
	Words     []string             `json:"words,omitempty"`
	Index     int                  `json:"index"`
	Char      int                  `json:"char"`
	States    []model.CharState    `json:"states,omitempty"`
	Input     string               `json:"input,omitempty"`
	Metrics   *stats.Metrics       `json:"metrics,omitempty"`
	Progress  *Progress            `json:"progress,omitempty"`
	Result    *model.Result        `json:"result,omitempty"`
	Notice    *model.SubmitOutcome `json:"notice,omitempty"`
}

// Sink consumes render instructions.
type Sink interface {
	Render(instrs []Instruction) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func([]Instruction) error

// Render implements Sink.
func (f SinkFunc) Render(instrs []Instruction) error {
	return f(instrs)
}
