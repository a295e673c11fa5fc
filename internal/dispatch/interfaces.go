package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/radex"
)

// Runner executes one solver job and returns its terminal result. It must be
// safe for concurrent use; the pool calls it from every worker.
type Runner interface {
	Run(ctx context.Context, job grid.Job) radex.JobResult
}

// RunnerFunc is a function adapter that implements Runner.
type RunnerFunc func(ctx context.Context, job grid.Job) radex.JobResult

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context, job grid.Job) radex.JobResult {
	return f(ctx, job)
}

// ProgressUpdate is one per-job progress event emitted while the grid runs.
type ProgressUpdate struct {
	// Seq is the flat ordinal of the finished job.
	Seq int
	// Status is the job's terminal status.
	Status radex.Status
	// Done is the number of jobs with a terminal result so far.
	Done int
	// Total is the grid size.
	Total int
}

// ProgressReporter defines the interface for displaying grid progress. It
// decouples the dispatch layer from presentation: implementations render
// spinners, bars, or dashboards while the dispatcher focuses on coordinating
// the jobs.
type ProgressReporter interface {
	// DisplayProgress consumes progress updates until the channel is closed.
	// It is called on its own goroutine and must signal wg when done.
	//
	// Parameters:
	//   - wg: A WaitGroup to signal when display is complete.
	//   - updates: Channel receiving per-job progress events.
	//   - total: The total number of jobs in the grid.
	//   - out: The writer for progress output.
	DisplayProgress(wg *sync.WaitGroup, updates <-chan ProgressUpdate, total int, out io.Writer)
}

// ProgressReporterFunc is a function adapter that implements ProgressReporter.
type ProgressReporterFunc func(wg *sync.WaitGroup, updates <-chan ProgressUpdate, total int, out io.Writer)

// DisplayProgress calls the underlying function.
func (f ProgressReporterFunc) DisplayProgress(wg *sync.WaitGroup, updates <-chan ProgressUpdate, total int, out io.Writer) {
	f(wg, updates, total, out)
}

// NullProgressReporter drains the update channel without displaying
// anything. Useful for quiet mode and testing.
type NullProgressReporter struct{}

// DisplayProgress drains the channel without output.
func (NullProgressReporter) DisplayProgress(wg *sync.WaitGroup, updates <-chan ProgressUpdate, _ int, _ io.Writer) {
	defer wg.Done()
	for range updates {
		// Drain channel silently
	}
}

// Observer receives one measurement per terminal job result. The metrics
// layer implements it; NullObserver keeps instrumentation optional.
type Observer interface {
	ObserveJob(status radex.Status, elapsed time.Duration)
}

// NullObserver discards all measurements.
type NullObserver struct{}

// ObserveJob discards the measurement.
func (NullObserver) ObserveJob(radex.Status, time.Duration) {}
