// Package stats computes typing metrics and renders test history.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/typetest/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Overall combines stored tests into a single set of metrics.
func Overall(sessions []model.SessionAggregate) Metrics {
	var correct, incorrect int
	var duration int64
	for _, s := range sessions {
		correct += s.Correct
		incorrect += s.Incorrect
		duration += s.DurationMs
	}
	return ComputeElapsed(correct, incorrect, time.Duration(duration)*time.Millisecond)
}

// RenderSummary prints a summary of stored tests.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	var totalWPM, totalRaw, totalAcc float64
	best := 0
	for _, s := range sessions {
		totalWPM += float64(s.WPM)
		totalRaw += float64(s.RawWPM)
		totalAcc += float64(s.Accuracy)
		best = max(best, s.WPM)
	}
	count := float64(len(sessions))
	overall := Overall(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", len(sessions)),
		fmt.Sprintf("Avg WPM: %.1f", totalWPM/count),
		fmt.Sprintf("Best WPM: %d", best),
		fmt.Sprintf("Avg Raw WPM: %.1f", totalRaw/count),
		fmt.Sprintf("Avg Accuracy: %.1f%%", totalAcc/count),
		fmt.Sprintf("All-time: %d WPM · %d%%", overall.WPM, overall.Accuracy),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints smoothed WPM and accuracy sparklines over stored tests.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = float64(s.WPM)
		accs[i] = float64(s.Accuracy)
	}
	wpms = MovingAverage(wpms, window)
	accs = MovingAverage(accs, window)
	if _, err := fmt.Fprintf(w, "Learning Curves (window %d)\n", window); err != nil {
		return err
	}
	rows := [][]string{
		{"WPM", fmt.Sprintf("%.1f", wpms[len(wpms)-1]), Sparkline(wpms)},
		{"Accuracy", fmt.Sprintf("%.1f%%", accs[len(accs)-1]), Sparkline(accs)},
	}
	for _, line := range FormatTable(nil, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// CharRow is a display row for per-character accuracy.
type CharRow struct {
	Char      string
	Accuracy  float64
	Correct   int
	Incorrect int
}

// CharRows sorts aggregates by lowest accuracy first.
func CharRows(aggs []model.CharAggregate) []CharRow {
	rows := make([]CharRow, 0, len(aggs))
	for _, agg := range aggs {
		label := agg.Char
		if label == " " {
			label = "<space>"
		}
		rows = append(rows, CharRow{
			Char:      label,
			Accuracy:  charAccuracy(agg),
			Correct:   agg.Correct,
			Incorrect: agg.Incorrect,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Accuracy == rows[j].Accuracy {
			return rows[i].Char < rows[j].Char
		}
		return rows[i].Accuracy < rows[j].Accuracy
	})
	return rows
}

// RenderCharTable prints per-character aggregates.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Character"); err != nil {
		return err
	}
	headers := []string{"Char", "Accuracy", "Correct", "Incorrect"}
	rows := CharRows(aggs)
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Char,
			fmt.Sprintf("%.2f%%", r.Accuracy*100),
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	for _, line := range FormatTable(headers, tableRows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
