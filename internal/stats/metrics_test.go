package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeZeroElapsed(t *testing.T) {
	start := time.Unix(1000, 0)
	m := Compute(10, 2, start, start)
	assert.Equal(t, 0, m.WPM)
	assert.Equal(t, 0, m.RawWPM)
	assert.Equal(t, 83, m.Accuracy)

	m = Compute(0, 0, time.Time{}, start)
	assert.Equal(t, Metrics{Accuracy: 100}, m)
}

func TestComputeRates(t *testing.T) {
	start := time.Unix(1000, 0)
	// 50 correct + 10 incorrect characters in 30 seconds.
	m := Compute(50, 10, start, start.Add(30*time.Second))
	assert.Equal(t, 20, m.WPM)
	assert.Equal(t, 24, m.RawWPM)
	assert.Equal(t, 83, m.Accuracy)
}

func TestComputeTinyElapsedStaysFinite(t *testing.T) {
	start := time.Unix(1000, 0)
	m := Compute(5, 0, start, start.Add(time.Nanosecond))
	assert.Equal(t, 60000, m.WPM)
	assert.GreaterOrEqual(t, m.RawWPM, 0)
}

func TestAccuracyBounds(t *testing.T) {
	assert.Equal(t, 100, Accuracy(0, 0))
	assert.Equal(t, 0, Accuracy(0, 7))
	assert.Equal(t, 100, Accuracy(7, 0))
	assert.Equal(t, 67, Accuracy(2, 1))
	for c := 0; c < 20; c++ {
		for i := 0; i < 20; i++ {
			acc := Accuracy(c, i)
			assert.True(t, acc >= 0 && acc <= 100)
		}
	}
}
