// Package format renders progress and timing information for the
// presentation layers: textual progress bars, smoothed ETA estimates over
// finished job counts, and human-readable durations.
package format

import (
	"fmt"
	"strings"
	"time"
)

// MaxETA caps the reported estimate; beyond this the number is noise.
const MaxETA = 24 * time.Hour

// rateSmoothing is the exponential smoothing factor for the job completion
// rate. Lower values favor the long-term rate over recent bursts.
const rateSmoothing = 0.3

// ETATracker estimates the remaining wall-clock time of a grid run from the
// stream of finished-job counts. The completion rate is exponentially
// smoothed, so a handful of slow or fast jobs does not whip the estimate
// around. It is not safe for concurrent use.
type ETATracker struct {
	startTime  time.Time
	lastUpdate time.Time
	lastDone   int
	rate       float64 // smoothed jobs per second
}

// NewETATracker starts tracking at the current time.
func NewETATracker() *ETATracker {
	now := time.Now()
	return &ETATracker{startTime: now, lastUpdate: now}
}

// Update records a new finished-job count and returns the smoothed estimate
// of the remaining time. It returns 0 while there is not yet enough data.
//
// Parameters:
//   - done: The number of jobs with a terminal result so far.
//   - total: The total number of jobs.
//
// Returns:
//   - time.Duration: The estimated remaining time, capped at MaxETA.
func (t *ETATracker) Update(done, total int) time.Duration {
	now := time.Now()
	elapsed := now.Sub(t.lastUpdate)
	if done > t.lastDone && elapsed > 0 {
		instant := float64(done-t.lastDone) / elapsed.Seconds()
		if t.rate == 0 {
			t.rate = instant
		} else {
			t.rate = rateSmoothing*instant + (1-rateSmoothing)*t.rate
		}
		t.lastDone = done
		t.lastUpdate = now
	}
	return t.eta(done, total)
}

// ETA returns the current estimate without recording an update.
func (t *ETATracker) ETA(done, total int) time.Duration {
	return t.eta(done, total)
}

func (t *ETATracker) eta(done, total int) time.Duration {
	remaining := total - done
	if remaining <= 0 || t.rate <= 0 {
		return 0
	}
	eta := time.Duration(float64(remaining) / t.rate * float64(time.Second))
	if eta > MaxETA {
		return MaxETA
	}
	return eta
}

// FormatETA renders an ETA for display. Unknown estimates (zero or
// negative) render as "calculating...".
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		m := int(eta.Minutes())
		s := int(eta.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		h := int(eta.Hours())
		m := int(eta.Minutes()) % 60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	}
}

// ProgressBar generates a string representing a textual progress bar.
//
// Parameters:
//   - progress: The normalized progress value (0.0 to 1.0).
//   - length: The total character width of the progress bar.
//
// Returns:
//   - string: A string representation of the progress bar.
func ProgressBar(progress float64, length int) string {
	if progress > 1.0 {
		progress = 1.0
	}
	if progress < 0.0 {
		progress = 0.0
	}
	count := int(progress * float64(length))
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		if i < count {
			builder.WriteRune('█')
		} else {
			builder.WriteRune('░')
		}
	}
	return builder.String()
}

// FormatProgressBarWithETA combines a progress bar, a percentage, and an ETA
// into a single status line.
func FormatProgressBarWithETA(progress float64, eta time.Duration, width int) string {
	return fmt.Sprintf("[%s] %3.0f%% | ETA: %s", ProgressBar(progress, width), progress*100, FormatETA(eta))
}
