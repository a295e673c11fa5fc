package radex

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/logging"
)

// Runner executes solver jobs as isolated subprocesses. It is stateless
// between jobs and safe for concurrent use; each call runs one process,
// enforces the job's wall-clock budget, and classifies the outcome into a
// terminal JobResult without ever raising a per-job failure as an error.
type Runner struct {
	binDir  string
	workDir string
	logger  logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the structured logger used for per-job diagnostics.
func WithRunnerLogger(logger logging.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a solver runner.
//
// Parameters:
//   - binDir: Directory holding the solver binaries (radex-uni, radex-lvg,
//     radex-slab).
//   - workDir: Scratch directory for per-job output files. The caller owns
//     its lifecycle; the runner only creates and removes files inside it.
//   - opts: Optional configuration.
//
// Returns:
//   - *Runner: The configured runner.
func NewRunner(binDir, workDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		binDir:  binDir,
		workDir: workDir,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one job and returns its terminal result. The returned status
// is always terminal and the error field is populated for every non-completed
// status, so callers never need to inspect process state themselves.
//
// The parent context gates admission, not execution: a job that has started
// is allowed to finish (or exhaust its own budget) even if ctx is canceled
// mid-flight, so partial results stay well-defined.
func (r *Runner) Run(ctx context.Context, job grid.Job) JobResult {
	outfile := filepath.Join(r.workDir, fmt.Sprintf("job-%06d.out", job.Seq))
	defer os.Remove(outfile)

	input, err := NewInput(job, outfile)
	if err != nil {
		return r.finish(job, StatusSolverFailed, Output{}, apperrors.WrapError(err, "encoding solver input"))
	}

	binary := filepath.Join(r.binDir, Binary(job.Point.Geometry))

	runCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, job.Timeout)
	}
	defer cancel()

	started := time.Now()
	cmd := exec.CommandContext(runCtx, binary)
	cmd.Stdin = strings.NewReader(input.Encode())
	cmd.Dir = r.workDir
	runErr := cmd.Run()
	elapsed := time.Since(started)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		r.logger.Debug("solver run timed out",
			logging.Int("job", job.Seq),
			logging.String("binary", Binary(job.Point.Geometry)),
			logging.String("limit", job.Timeout.String()))
		return r.finish(job, StatusTimedOut, Output{},
			apperrors.TimeoutError{Operation: Binary(job.Point.Geometry), Limit: job.Timeout})
	case runErr != nil:
		return r.finish(job, StatusSolverFailed, Output{},
			apperrors.SolverError{Binary: Binary(job.Point.Geometry), Cause: runErr})
	}

	f, err := os.Open(outfile)
	if err != nil {
		return r.finish(job, StatusParseFailed, Output{},
			apperrors.NewParseError("solver produced no output file: %v", err))
	}
	defer f.Close()

	output, err := ParseOutput(f)
	if err != nil {
		return r.finish(job, StatusParseFailed, Output{}, err)
	}

	r.logger.Debug("solver run completed",
		logging.Int("job", job.Seq),
		logging.String("binary", Binary(job.Point.Geometry)),
		logging.String("elapsed", elapsed.Round(time.Millisecond).String()))
	return r.finish(job, StatusCompleted, output, nil)
}

func (r *Runner) finish(job grid.Job, status Status, output Output, reason error) JobResult {
	return JobResult{Job: job, Status: status, Output: output, Reason: reason}
}

// Canceled builds the terminal result for a job that was never dispatched
// because the run was canceled before its turn.
func Canceled(job grid.Job, cause error) JobResult {
	if cause == nil {
		cause = context.Canceled
	}
	return JobResult{
		Job:    job,
		Status: StatusCanceled,
		Reason: apperrors.WrapError(cause, "job %d not dispatched", job.Seq),
	}
}
