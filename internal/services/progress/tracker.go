// internal/services/progress/tracker.go
package progress

import (
	"sync"
	"time"
)

const maxSamples = 5

type sample struct {
	at      time.Time
	percent float64
}

// Tracker aggregates per-file upload percentages into an overall figure
// and a remaining-time estimate. The estimate is a linear extrapolation
// over the last five overall samples; with fewer than two samples no
// estimate is available.
type Tracker struct {
	mu      sync.Mutex
	files   map[string]float64
	samples []sample
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		files: make(map[string]float64),
		now:   time.Now,
	}
}

// Update records the current percentage [0,100] for one file.
func (t *Tracker) Update(fileID string, percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.files[fileID] = percent

	t.samples = append(t.samples, sample{at: t.now(), percent: t.overallLocked()})
	if len(t.samples) > maxSamples {
		t.samples = t.samples[len(t.samples)-maxSamples:]
	}
}

// Overall returns the rolling average across all tracked files.
func (t *Tracker) Overall() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overallLocked()
}

func (t *Tracker) overallLocked() float64 {
	if len(t.files) == 0 {
		return 0
	}
	var sum float64
	for _, p := range t.files {
		sum += p
	}
	return sum / float64(len(t.files))
}

// EstimateRemaining extrapolates the time left from the recent rate of
// progress. Returns false when no meaningful estimate exists: fewer
// than two samples, no forward progress, or already complete.
func (t *Tracker) EstimateRemaining() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) < 2 {
		return 0, false
	}

	first := t.samples[0]
	last := t.samples[len(t.samples)-1]

	deltaPercent := last.percent - first.percent
	deltaTime := last.at.Sub(first.at)
	if deltaPercent <= 0 || deltaTime <= 0 {
		return 0, false
	}
	if last.percent >= 100 {
		return 0, true
	}

	rate := deltaPercent / deltaTime.Seconds() // percent per second
	remaining := (100 - last.percent) / rate
	return time.Duration(remaining * float64(time.Second)), true
}
