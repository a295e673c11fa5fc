package radex

import "github.com/astropenguin/ndradex/internal/grid"

// Status is the lifecycle state of one solver job. A job moves from
// StatusPending through StatusRunning to exactly one terminal state; only
// StatusCompleted carries usable values.
type Status int

const (
	// StatusPending marks a job that has not been dispatched yet.
	StatusPending Status = iota
	// StatusRunning marks a job whose solver process is executing.
	StatusRunning
	// StatusCompleted marks a successful run with decoded output values.
	StatusCompleted
	// StatusTimedOut marks a job whose solver exceeded its wall-clock budget
	// and was forcibly terminated.
	StatusTimedOut
	// StatusSolverFailed marks a non-zero solver exit or a failure to start
	// the solver process.
	StatusSolverFailed
	// StatusParseFailed marks solver output that could not be decoded.
	StatusParseFailed
	// StatusCanceled marks a job that was never dispatched because the run
	// was canceled.
	StatusCanceled
)

// String returns the stable diagnostic name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusTimedOut:
		return "timed_out"
	case StatusSolverFailed:
		return "solver_failed"
	case StatusParseFailed:
		return "parse_failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ParseStatus maps a diagnostic name back to its Status.
func ParseStatus(name string) (Status, bool) {
	for s := StatusPending; s <= StatusCanceled; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Terminal reports whether the status is a final per-job outcome.
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusRunning
}

// Output holds the ten positional fields of one solver output row, in the
// solver's column order. Optical depth is reported exactly as the solver
// produced it; negative values (inverted populations, masing) pass through.
type Output struct {
	// EUp is the upper state energy in K.
	EUp float64
	// Freq is the line frequency in GHz.
	Freq float64
	// Wavel is the line wavelength in um.
	Wavel float64
	// TEx is the excitation temperature in K.
	TEx float64
	// Tau is the line center optical depth.
	Tau float64
	// TR is the radiation temperature in K.
	TR float64
	// PopUp and PopLow are the fractional level populations.
	PopUp, PopLow float64
	// I is the velocity-integrated intensity in K km/s.
	I float64
	// F is the line flux in erg/s/cm^2.
	F float64
}

// JobResult is the terminal outcome of one grid cell. Exactly one JobResult
// exists per job; failures are data, not control flow.
type JobResult struct {
	// Job is the grid cell the result belongs to. Attribution goes through
	// Job.Index, never through completion order.
	Job grid.Job
	// Status is the terminal status of the job.
	Status Status
	// Output holds the decoded values when Status is StatusCompleted.
	Output Output
	// Reason explains a non-completed status for diagnostics. It is never
	// nil for a failure status and always nil for StatusCompleted.
	Reason error
}
