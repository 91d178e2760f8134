// Package matcher classifies typed characters against target words.
package matcher

import "github.com/verte-zerg/typetest/internal/model"

// Boundary is the character that ends a word.
const Boundary = ' '

// Word is one target token together with its typed input and classification.
type Word struct {
	Text      string
	Input     []rune
	States    []model.CharState
	Committed bool

	target []rune
}

// NewWord returns an untyped word for text.
func NewWord(text string) *Word {
	target := []rune(text)
	return &Word{
		Text:   text,
		States: make([]model.CharState, len(target)),
		target: target,
	}
}

// Target returns the target runes.
func (w *Word) Target() []rune {
	return w.target
}

// Tally counts correct and incorrect classifications.
type Tally struct {
	Correct   int
	Incorrect int
}

// Delta is what a commit folds into the session counters. Chars is keyed by
// the expected character; over-typed characters have no expected character
// and only count toward Incorrect.
type Delta struct {
	Correct   int
	Incorrect int
	Chars     map[rune]Tally
}

// Classify compares input against target position by position. Positions
// past the target are extra; untyped target positions stay unmatched.
func Classify(target, input []rune) []model.CharState {
	n := len(target)
	if len(input) > n {
		n = len(input)
	}
	states := make([]model.CharState, n)
	for i := range states {
		switch {
		case i >= len(target):
			states[i] = model.CharExtra
		case i >= len(input):
			states[i] = model.CharUnmatched
		case input[i] == target[i]:
			states[i] = model.CharCorrect
		default:
			states[i] = model.CharIncorrect
		}
	}
	return states
}

// Live re-evaluates the in-progress input from scratch. Committed words are
// left untouched and false is returned.
func (w *Word) Live(input []rune) bool {
	if w.Committed {
		return false
	}
	w.Input = append(w.Input[:0], input...)
	w.States = Classify(w.target, w.Input)
	return true
}

// Commit makes the classification of input permanent and returns the counts
// to fold into the session. Target characters beyond the input count as
// incorrect. When boundary is set the typed boundary character counts as one
// correct character regardless of errors in the word. A second commit of the
// same word returns a zero Delta.
func Commit(w *Word, input []rune, boundary bool) Delta {
	if w.Committed {
		return Delta{}
	}
	w.Input = append(w.Input[:0], input...)
	w.States = Classify(w.target, w.Input)

	d := Delta{Chars: map[rune]Tally{}}
	for i, state := range w.States {
		switch state {
		case model.CharCorrect:
			d.Correct++
			d.add(w.target[i], true)
		case model.CharIncorrect:
			d.Incorrect++
			d.add(w.target[i], false)
		case model.CharUnmatched:
			w.States[i] = model.CharIncorrect
			d.Incorrect++
			d.add(w.target[i], false)
		case model.CharExtra:
			d.Incorrect++
		}
	}
	if boundary {
		d.Correct++
		d.add(Boundary, true)
	}
	w.Committed = true
	return d
}

func (d *Delta) add(r rune, correct bool) {
	t := d.Chars[r]
	if correct {
		t.Correct++
	} else {
		t.Incorrect++
	}
	d.Chars[r] = t
}
