package stats

import (
	"math"
	"time"
)

// minElapsed keeps rates finite right after the first keystroke.
const minElapsed = time.Millisecond

// charsPerWord is the standard word length used by WPM.
const charsPerWord = 5.0

// Metrics are the rounded figures shown live and reported at the end of a test.
type Metrics struct {
	WPM      int `json:"wpm"`
	RawWPM   int `json:"rawWpm"`
	Accuracy int `json:"accuracy"`
}

// Compute derives metrics from the session counters and the time since start.
// A zero start or now at or before start yields zero rates.
func Compute(correct, incorrect int, start, now time.Time) Metrics {
	if start.IsZero() || !now.After(start) {
		return Metrics{Accuracy: Accuracy(correct, incorrect)}
	}
	return ComputeElapsed(correct, incorrect, now.Sub(start))
}

// ComputeElapsed derives metrics from the counters and an elapsed duration.
func ComputeElapsed(correct, incorrect int, elapsed time.Duration) Metrics {
	m := Metrics{Accuracy: Accuracy(correct, incorrect)}
	if elapsed <= 0 {
		return m
	}
	if elapsed < minElapsed {
		elapsed = minElapsed
	}
	minutes := elapsed.Minutes()
	m.WPM = rate(correct, minutes)
	m.RawWPM = rate(correct+incorrect, minutes)
	return m
}

// Accuracy returns the rounded percentage of correct characters, or 100 when
// nothing has been typed.
func Accuracy(correct, incorrect int) int {
	total := correct + incorrect
	if total <= 0 || correct < 0 {
		return 100
	}
	acc := math.Round(float64(correct) / float64(total) * 100)
	if math.IsNaN(acc) || acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return int(acc)
}

func rate(chars int, minutes float64) int {
	v := (float64(chars) / charsPerWord) / minutes
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Round(v))
}
