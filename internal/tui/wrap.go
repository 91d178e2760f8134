package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
)

const visibleLines = 3

type styledRune struct {
	s       string
	width   int
	isSpace bool
	cursor  bool
}

// buildStyledRunes lays out every word of the screen separated by spaces.
// Typed characters keep the target rune and are colored by their state;
// extra characters show what was typed.
func buildStyledRunes(sc *screen) []styledRune {
	showCursor := sc.state != session.Finished
	out := make([]styledRune, 0, len(sc.words)*6)
	for i, w := range sc.words {
		if i > 0 {
			prev := sc.words[i-1]
			cursor := showCursor && i-1 == sc.cursorWord && sc.cursorChar >= prev.span()
			out = append(out, spaceRune(cursor))
		}
		current := i == sc.cursorWord
		out = append(out, wordRunes(w, current, showCursor && current, sc.cursorChar)...)
	}
	return out
}

func wordRunes(w wordView, current, showCursor bool, cursorChar int) []styledRune {
	n := w.span()
	out := make([]styledRune, 0, n)
	for j := 0; j < n; j++ {
		state := model.CharUnmatched
		if j < len(w.states) {
			state = w.states[j]
		}
		var displayed rune
		style := pendingStyle
		if j < len(w.text) {
			displayed = w.text[j]
			switch {
			case state == model.CharCorrect:
				style = correctStyle
			case state == model.CharIncorrect:
				style = incorrectStyle
			case current:
				style = currentWordStyle
			}
		} else {
			displayed = w.input[j]
			style = extraStyle
		}
		cursor := showCursor && j == cursorChar
		if cursor {
			style = style.Underline(true)
		}
		out = append(out, styledRune{
			s:      style.Render(string(displayed)),
			width:  runewidth.RuneWidth(displayed),
			cursor: cursor,
		})
	}
	return out
}

func spaceRune(cursor bool) styledRune {
	style := pendingStyle
	if cursor {
		style = cursorStyle
	}
	return styledRune{s: style.Render(" "), width: 1, isSpace: true, cursor: cursor}
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapLines breaks runes into lines no wider than width, preferring to break
// after the last space of a line. The breaking space stays on the upper line
// so a cursor resting on it remains visible.
func wrapLines(runes []styledRune, width int) [][]styledRune {
	if width <= 0 {
		return [][]styledRune{runes}
	}
	var lines [][]styledRune
	line := make([]styledRune, 0, width)
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				lines = append(lines, line[:lastSpaceIdx+1:lastSpaceIdx+1])
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				lines = append(lines, line)
				line = make([]styledRune, 0, width)
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	return append(lines, line)
}

// visibleWindow keeps at most n lines, starting one line above the cursor.
func visibleWindow(lines [][]styledRune, n int) [][]styledRune {
	if n <= 0 || len(lines) <= n {
		return lines
	}
	cursorLine := 0
	for i, line := range lines {
		for _, item := range line {
			if item.cursor {
				cursorLine = i
			}
		}
	}
	start := max(cursorLine-1, 0)
	start = min(start, len(lines)-n)
	return lines[start : start+n]
}

func renderLines(lines [][]styledRune) string {
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = renderStyledRunes(line)
	}
	return strings.Join(rendered, "\n")
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
