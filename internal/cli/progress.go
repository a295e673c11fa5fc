package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/briandowns/spinner"

	"github.com/astropenguin/ndradex/internal/dispatch"
	"github.com/astropenguin/ndradex/internal/format"
	"github.com/astropenguin/ndradex/internal/radex"
)

// CLIProgressReporter renders grid progress as a spinner with a progress
// bar, a failure tally, and a smoothed ETA. It implements the dispatcher's
// ProgressReporter interface.
type CLIProgressReporter struct{}

// DisplayProgress consumes progress updates until the channel is closed.
//
// Parameters:
//   - wg: A WaitGroup to signal when display is complete.
//   - updates: Channel receiving per-job progress events.
//   - total: The total number of jobs in the grid.
//   - out: The writer for progress output.
func (CLIProgressReporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan dispatch.ProgressUpdate, total int, out io.Writer) {
	defer wg.Done()

	sp := newSpinner(spinner.WithWriter(out))
	sp.UpdateSuffix(statusLine(0, 0, total, format.FormatProgressBarWithETA(0, 0, ProgressBarWidth)))
	sp.Start()
	defer sp.Stop()

	tracker := format.NewETATracker()
	failed := 0
	for update := range updates {
		if update.Status != radex.StatusCompleted {
			failed++
		}
		eta := tracker.Update(update.Done, update.Total)
		progress := float64(update.Done) / float64(update.Total)
		sp.UpdateSuffix(statusLine(update.Done, failed, update.Total,
			format.FormatProgressBarWithETA(progress, eta, ProgressBarWidth)))
	}
}

func statusLine(done, failed, total int, bar string) string {
	line := fmt.Sprintf(" %s | %d/%d jobs", bar, done, total)
	if failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	return line
}
