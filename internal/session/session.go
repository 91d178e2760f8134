// Package session runs the typing-test state machine.
//
// A Controller owns exactly one Session at a time and reduces input events
// into render instructions for a visual sink. It never renders, sleeps or
// touches the network itself: ticks arrive as events and the finished result
// is returned to the caller for hand-off.
package session

import (
	"fmt"
	"time"

	"github.com/verte-zerg/typetest/internal/generator"
	"github.com/verte-zerg/typetest/internal/matcher"
	"github.com/verte-zerg/typetest/internal/model"
)

// State is the lifecycle stage of a Session.
type State int

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{NotStarted, Running, Finished} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", string(text))
}

// Session is the state of one typing test. Fields are read-only outside this
// package; only the owning Controller mutates them.
type Session struct {
	ID                 string
	Mode               model.Mode
	Options            generator.Options
	Words              []*matcher.Word
	CurrentWordIndex   int
	CurrentCharIndex   int
	CorrectChars       int
	IncorrectChars     int
	StartTime          time.Time
	EndTime            time.Time
	CompletedWordCount int
	State              State

	input  []rune
	chars  map[rune]matcher.Tally
	result *model.Result
}

// Input returns the runes typed for the current word so far.
func (s *Session) Input() []rune {
	return s.input
}

// Result returns the frozen result once the session is finished.
func (s *Session) Result() (model.Result, bool) {
	if s.result == nil {
		return model.Result{}, false
	}
	return *s.result, true
}

// Tokens returns the target text of every word in order.
func (s *Session) Tokens() []string {
	out := make([]string, len(s.Words))
	for i, w := range s.Words {
		out[i] = w.Text
	}
	return out
}

// Elapsed returns the time spent typing at now, capped at the limit in
// duration mode.
func (s *Session) Elapsed(now time.Time) time.Duration {
	switch s.State {
	case NotStarted:
		return 0
	case Finished:
		now = s.EndTime
	}
	elapsed := now.Sub(s.StartTime)
	if elapsed < 0 {
		return 0
	}
	if s.Mode.Kind == model.ModeTime && elapsed > s.Mode.Limit() {
		return s.Mode.Limit()
	}
	return elapsed
}

func (s *Session) fold(d matcher.Delta) {
	s.CorrectChars += d.Correct
	s.IncorrectChars += d.Incorrect
	for r, t := range d.Chars {
		acc := s.chars[r]
		acc.Correct += t.Correct
		acc.Incorrect += t.Incorrect
		s.chars[r] = acc
	}
}

func (s *Session) charStats() []model.CharStats {
	out := make([]model.CharStats, 0, len(s.chars))
	for r, t := range s.chars {
		out = append(out, model.CharStats{Char: string(r), Correct: t.Correct, Incorrect: t.Incorrect})
	}
	return out
}

func newSession(id string, mode model.Mode, opts generator.Options, tokens []string) *Session {
	words := make([]*matcher.Word, len(tokens))
	for i, tok := range tokens {
		words[i] = matcher.NewWord(tok)
	}
	return &Session{
		ID:      id,
		Mode:    mode,
		Options: opts,
		Words:   words,
		State:   NotStarted,
		chars:   map[rune]matcher.Tally{},
	}
}
