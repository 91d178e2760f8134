package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/typetest/internal/model"
	"github.com/verte-zerg/typetest/internal/session"
	"github.com/verte-zerg/typetest/internal/stats"
)

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		config: model.Config{Mode: model.WordCount(25)},
		screen: screen{
			state:    session.Running,
			words:    makeWordViews([]string{"a"}),
			progress: session.Progress{WordsLeft: 12},
			metrics:  stats.Metrics{WPM: 51, Accuracy: 93},
		},
		hasLast: true,
		lastWPM: 72,
		lastAcc: 98,
		hasAll:  true,
		allWPM:  68,
		allAcc:  97,
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Words 12", "51 WPM · 93%", "Last 72 WPM · 98%", "All-time 68 WPM · 97%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterDurationAndNotice(t *testing.T) {
	m := &Model{
		config: model.Config{Mode: model.Duration(30)},
		screen: screen{
			state:    session.Finished,
			words:    makeWordViews([]string{"a"}),
			progress: session.Progress{SecondsLeft: 0},
			notice:   &model.SubmitOutcome{Status: model.OutcomeLoginRequired},
		},
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Time 0s", "run typetest login"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
	if strings.Contains(out, "Last") {
		t.Fatalf("footer should not show history without any: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
