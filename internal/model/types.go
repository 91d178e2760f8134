// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ModeKind selects how a typing test ends.
type ModeKind int

const (
	// ModeWords ends the test after a fixed number of committed words.
	ModeWords ModeKind = iota
	// ModeTime ends the test after a fixed elapsed duration.
	ModeTime
)

// Mode is the timing policy of a test.
type Mode struct {
	Kind    ModeKind
	Words   int
	Seconds int
}

// WordCount returns a word-count mode ending after n committed words.
func WordCount(n int) Mode {
	return Mode{Kind: ModeWords, Words: n}
}

// Duration returns a duration mode ending after the given number of seconds.
func Duration(seconds int) Mode {
	return Mode{Kind: ModeTime, Seconds: seconds}
}

// Limit returns the configured duration limit.
func (m Mode) Limit() time.Duration {
	return time.Duration(m.Seconds) * time.Second
}

// Name returns "words" or "time".
func (m Mode) Name() string {
	if m.Kind == ModeTime {
		return "time"
	}
	return "words"
}

// Value returns the word count or the number of seconds.
func (m Mode) Value() int {
	if m.Kind == ModeTime {
		return m.Seconds
	}
	return m.Words
}

func (m Mode) String() string {
	return fmt.Sprintf("%s %d", m.Name(), m.Value())
}

// ParseMode builds a Mode from its name and value.
func ParseMode(name string, value int) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "words":
		if value <= 0 {
			return Mode{}, fmt.Errorf("word count must be > 0")
		}
		return WordCount(value), nil
	case "time":
		if value <= 0 {
			return Mode{}, fmt.Errorf("duration must be > 0")
		}
		return Duration(value), nil
	default:
		return Mode{}, fmt.Errorf("unknown mode %q (expected words or time)", name)
	}
}

// Config defines practice settings.
type Config struct {
	Mode         Mode
	Punctuation  bool
	Numbers      bool
	WordListPath string
	PoolSize     int
	FocusWeak    bool
	WeakTop      int
	WeakFactor   float64
	WeakWindow   int
	ServerURL    string
}

// CharState classifies one input position of a word.
type CharState int

const (
	CharUnmatched CharState = iota
	CharCorrect
	CharIncorrect
	CharExtra
)

var charStateNames = [...]string{"unmatched", "correct", "incorrect", "extra"}

func (s CharState) String() string {
	if s < 0 || int(s) >= len(charStateNames) {
		return fmt.Sprintf("CharState(%d)", int(s))
	}
	return charStateNames[s]
}

// MarshalText encodes the state by name.
func (s CharState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *CharState) UnmarshalText(text []byte) error {
	for i, name := range charStateNames {
		if name == string(text) {
			*s = CharState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown char state %q", string(text))
}

// Result is the frozen outcome of a finished test.
type Result struct {
	SessionID       string      `json:"sessionId"`
	StartedAt       time.Time   `json:"startedAt"`
	EndedAt         time.Time   `json:"endedAt"`
	Mode            string      `json:"mode"`
	ModeValue       int         `json:"modeValue"`
	Punctuation     bool        `json:"punctuation"`
	Numbers         bool        `json:"numbers"`
	WPM             int         `json:"wpm"`
	RawWPM          int         `json:"rawWpm"`
	Accuracy        int         `json:"accuracy"`
	CorrectChars    int         `json:"correctChars"`
	IncorrectChars  int         `json:"incorrectChars"`
	DurationSeconds float64     `json:"durationSeconds"`
	Chars           []CharStats `json:"-"`
}

// CharStats stores per-character tallies for a test.
type CharStats struct {
	Char      string
	Correct   int
	Incorrect int
}

// CharAggregate aggregates character stats across tests.
type CharAggregate struct {
	Char      string
	Correct   int
	Incorrect int
}

// SessionAggregate summarizes a stored test for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	Mode       string
	ModeValue  int
	WPM        int
	RawWPM     int
	Accuracy   int
	Correct    int
	Incorrect  int
	DurationMs int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// OutcomeStatus describes how result reporting ended.
type OutcomeStatus string

const (
	// OutcomeSaved means the result was kept locally and no endpoint is configured.
	OutcomeSaved OutcomeStatus = "saved"
	// OutcomeSubmitted means the submission endpoint accepted the result.
	OutcomeSubmitted OutcomeStatus = "submitted"
	// OutcomeFailed means the submission failed; the result is not retried.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeLoginRequired means no usable identity was found.
	OutcomeLoginRequired OutcomeStatus = "login_required"
)

// SubmitOutcome is reported back to the UI once a result has been handed off.
type SubmitOutcome struct {
	Status   OutcomeStatus `json:"status"`
	Redirect string        `json:"redirect,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// LeaderboardEntry is one ranked row served by the leaderboard service.
type LeaderboardEntry struct {
	Name     string  `json:"name"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
}

// Identity is the user record kept in the identity store.
type Identity struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	College string `json:"college"`
}

// DisplayName returns the name, falling back to the local part of the email.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	email := strings.TrimSpace(i.Email)
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
