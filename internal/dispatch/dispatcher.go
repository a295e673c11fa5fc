package dispatch

import (
	"context"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/logging"
	"github.com/astropenguin/ndradex/internal/nd"
	"github.com/astropenguin/ndradex/internal/radex"
)

// ProgressBufferMultiplier defines the buffer size multiplier for the
// progress channel. A larger buffer reduces the likelihood of blocking
// workers when the UI is slow to consume updates.
const ProgressBufferMultiplier = 5

// Dispatcher runs grid jobs on a bounded worker pool.
type Dispatcher struct {
	runner   Runner
	workers  int
	logger   logging.Logger
	observer Observer
	tracer   trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger for dispatch diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithObserver sets the per-job measurement sink (e.g., the metrics layer).
func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) { d.observer = observer }
}

// New creates a dispatcher.
//
// Parameters:
//   - runner: The solver runner shared by all workers.
//   - workers: The pool size; values below 1 are clamped to 1.
//   - opts: Optional configuration.
//
// Returns:
//   - *Dispatcher: The configured dispatcher.
func New(runner Runner, workers int, opts ...Option) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		runner:   runner,
		workers:  workers,
		logger:   logging.Nop(),
		observer: NullObserver{},
		tracer:   otel.Tracer("ndradex/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes every job of the grid and assembles the dataset.
//
// Jobs are admitted in row-major order; completion order is unconstrained
// and never affects attribution. Canceling ctx stops admission: jobs already
// running finish (or exhaust their own budget), jobs never dispatched are
// recorded as canceled, and the partial dataset is returned together with
// the cancellation cause.
//
// Parameters:
//   - ctx: The context gating job admission.
//   - g: The parameter grid to execute.
//   - reporter: The progress reporter (use NullProgressReporter for quiet mode).
//   - out: The io.Writer for progress output.
//
// Returns:
//   - *nd.Dataset: The assembled dataset, never nil.
//   - error: The cancellation cause, or AllJobsFailedError when no job
//     completed.
func (d *Dispatcher) Run(ctx context.Context, g *grid.Grid, reporter ProgressReporter, out io.Writer) (*nd.Dataset, error) {
	total := g.Size()
	ctx, span := d.tracer.Start(ctx, "grid.dispatch", trace.WithAttributes(
		attribute.Int("jobs.total", total),
		attribute.Int("workers", d.workers),
	))
	defer span.End()

	d.logger.Info("dispatching grid",
		logging.Int("jobs", total),
		logging.Int("workers", d.workers))

	asm := nd.NewAssembler(g)
	jobs := make(chan grid.Job)
	results := make(chan radex.JobResult)
	updates := make(chan ProgressUpdate, d.workers*ProgressBufferMultiplier)

	var displayWg sync.WaitGroup
	displayWg.Add(1)
	go reporter.DisplayProgress(&displayWg, updates, total, out)

	// The producer is the single admission gate: it feeds the pool until
	// the stream ends or ctx is canceled, then drains the stream into
	// canceled results so the diagnostics stay total.
	var producerWg sync.WaitGroup
	producerWg.Add(1)
	go func() {
		defer producerWg.Done()
		defer close(jobs)
		stream := g.Stream()
		for {
			job, ok := stream.Next()
			if !ok {
				return
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				results <- radex.Canceled(job, ctx.Err())
				for {
					job, ok := stream.Next()
					if !ok {
						return
					}
					results <- radex.Canceled(job, ctx.Err())
				}
			}
		}
	}()

	var pool errgroup.Group
	for w := 0; w < d.workers; w++ {
		pool.Go(func() error {
			for job := range jobs {
				jobCtx, jobSpan := d.tracer.Start(ctx, "grid.job",
					trace.WithAttributes(attribute.Int("job.seq", job.Seq)))
				started := time.Now()
				result := d.runner.Run(jobCtx, job)
				d.observer.ObserveJob(result.Status, time.Since(started))
				jobSpan.SetAttributes(attribute.String("job.status", result.Status.String()))
				jobSpan.End()
				results <- result
			}
			return nil
		})
	}

	go func() {
		producerWg.Wait()
		pool.Wait()
		close(results)
	}()

	done := 0
	for result := range results {
		if err := asm.Add(result); err != nil {
			// A result the assembler rejects cannot be attributed to a
			// cell; losing it is better than corrupting a neighbor.
			d.logger.Error("dropping unattributable result", err,
				logging.Int("job", result.Job.Seq))
			continue
		}
		done++

		switch result.Status {
		case radex.StatusCompleted, radex.StatusCanceled:
		default:
			d.logger.Debug("job failed",
				logging.Int("job", result.Job.Seq),
				logging.String("status", result.Status.String()),
				logging.Err(result.Reason))
		}

		updates <- ProgressUpdate{
			Seq:    result.Job.Seq,
			Status: result.Status,
			Done:   done,
			Total:  total,
		}
	}
	close(updates)
	displayWg.Wait()

	ds, err := asm.Finalize()
	counts := ds.CountByStatus()
	span.SetAttributes(
		attribute.Int("jobs.completed", counts[radex.StatusCompleted]),
		attribute.Int("jobs.canceled", counts[radex.StatusCanceled]),
	)
	d.logger.Info("grid finished",
		logging.Int("completed", counts[radex.StatusCompleted]),
		logging.Int("timed_out", counts[radex.StatusTimedOut]),
		logging.Int("solver_failed", counts[radex.StatusSolverFailed]),
		logging.Int("parse_failed", counts[radex.StatusParseFailed]),
		logging.Int("canceled", counts[radex.StatusCanceled]))

	if ctx.Err() != nil {
		return ds, apperrors.WrapError(ctx.Err(), "grid run canceled")
	}
	return ds, err
}
