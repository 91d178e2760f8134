package session

import (
	"time"

	"github.com/verte-zerg/typetest/internal/model"
)

// EventKind identifies an input to the Controller.
type EventKind int

const (
	EventRune EventKind = iota
	EventBackspace
	EventEnd
	EventTick
	EventReset
	EventSubmitted
)

// Event is one input to the Controller. At is the time the event happened;
// the controller never reads the clock itself.
type Event struct {
	Kind      EventKind
	Rune      rune
	At        time.Time
	SessionID string
	Outcome   model.SubmitOutcome
}

// Rune is a typed character. A space ends the current word.
func Rune(r rune, at time.Time) Event {
	return Event{Kind: EventRune, Rune: r, At: at}
}

// Backspace removes the last character of the current word.
func Backspace(at time.Time) Event {
	return Event{Kind: EventBackspace, At: at}
}

// End finishes a running test early.
func End(at time.Time) Event {
	return Event{Kind: EventEnd, At: at}
}

// Tick is the periodic clock signal for the session with the given id.
func Tick(sessionID string, at time.Time) Event {
	return Event{Kind: EventTick, SessionID: sessionID, At: at}
}

// Reset discards the current session and starts a fresh one.
func Reset(at time.Time) Event {
	return Event{Kind: EventReset, At: at}
}

// Submitted reports how result hand-off ended for the session with the given id.
func Submitted(sessionID string, outcome model.SubmitOutcome) Event {
	return Event{Kind: EventSubmitted, SessionID: sessionID, Outcome: outcome}
}
