package dispatch

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/astropenguin/ndradex/internal/errors"
	"github.com/astropenguin/ndradex/internal/grid"
	"github.com/astropenguin/ndradex/internal/lamda"
	"github.com/astropenguin/ndradex/internal/nd"
	"github.com/astropenguin/ndradex/internal/radex"
)

const testDatafile = `!MOLECULE
CO
!MOLECULAR WEIGHT
28.0
!NUMBER OF ENERGY LEVELS
3
!LEVEL + ENERGIES(cm^-1) + WEIGHT + J
   1    0.000000000    1.0    0
   2    3.845033413    3.0    1
   3   11.534919938    5.0    2
!NUMBER OF RADIATIVE TRANSITIONS
2
!TRANS + UP + LOW + EINSTEINA(s^-1) + FREQ(GHz) + E_u(K)
    1     2     1   7.203e-08    115.2712018      5.53
    2     3     2   6.910e-07    230.5380000     16.60
`

// testGrid builds a one-dimensional grid with the given number of kinetic
// temperatures.
func testGrid(t *testing.T, nTKin int) *grid.Grid {
	t.Helper()
	mol, err := lamda.Parse(strings.NewReader(testDatafile))
	if err != nil {
		t.Fatalf("parsing datafile: %v", err)
	}

	tkin := make([]float64, nTKin)
	for i := range tkin {
		tkin[i] = 50 * float64(i+1)
	}
	req := grid.Request{
		Transitions: []string{"1-0"},
		TKin:        tkin,
		NMol:        []float64{1e15},
		TBg:         []float64{2.73},
		DV:          []float64{1.0},
		Geometries:  []string{"uni"},
	}
	req.Densities[grid.PartnerH2] = []float64{1e3}

	g, err := grid.New(req, mol, time.Second)
	if err != nil {
		t.Fatalf("building grid: %v", err)
	}
	return g
}

// seqRunner completes every job with values derived from its ordinal, so
// tests can verify attribution.
func seqRunner() Runner {
	return RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		return radex.JobResult{
			Job:    job,
			Status: radex.StatusCompleted,
			Output: radex.Output{I: 1.36 + float64(job.Seq), TEx: job.Point.TKin},
		}
	})
}

func TestDispatcher_AllCompleted(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 8)

	ds, err := New(seqRunner(), 4).Run(context.Background(), g, NullProgressReporter{}, io.Discard)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if got, _ := ds.At(nd.VarI, i); got != 1.36+float64(i) {
			t.Errorf("I[%d] = %v, want %v", i, got, 1.36+float64(i))
		}
		if got, _ := ds.At(nd.VarTEx, i); got != 50*float64(i+1) {
			t.Errorf("T_ex[%d] = %v, want %v", i, got, 50*float64(i+1))
		}
	}
}

// TestDispatcher_CompletionOrderIndependence delays early jobs so the pool
// finishes them out of order, then requires ordinal-exact attribution.
func TestDispatcher_CompletionOrderIndependence(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 10)

	runner := RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		// Earlier jobs sleep longer, inverting the completion order.
		time.Sleep(time.Duration(10-job.Seq) * 3 * time.Millisecond)
		return radex.JobResult{
			Job:    job,
			Status: radex.StatusCompleted,
			Output: radex.Output{I: float64(job.Seq)},
		}
	})

	ds, err := New(runner, 5).Run(context.Background(), g, NullProgressReporter{}, io.Discard)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		if got, _ := ds.At(nd.VarI, i); got != float64(i) {
			t.Errorf("I[%d] = %v, want %v", i, got, float64(i))
		}
	}
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 20)
	const workers = 3

	var inFlight, peak atomic.Int64
	runner := RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return radex.JobResult{Job: job, Status: radex.StatusCompleted}
	})

	if _, err := New(runner, workers).Run(context.Background(), g, NullProgressReporter{}, io.Discard); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency = %d, want <= %d", got, workers)
	}
}

// TestDispatcher_FaultIsolation fails two jobs and requires every other cell
// to carry its value untouched.
func TestDispatcher_FaultIsolation(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 6)

	runner := RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		switch job.Seq {
		case 1:
			return radex.JobResult{
				Job:    job,
				Status: radex.StatusTimedOut,
				Reason: apperrors.TimeoutError{Operation: "radex-uni", Limit: time.Second},
			}
		case 4:
			return radex.JobResult{
				Job:    job,
				Status: radex.StatusSolverFailed,
				Reason: apperrors.SolverError{Binary: "radex-uni", Cause: errors.New("exit status 1")},
			}
		}
		return radex.JobResult{Job: job, Status: radex.StatusCompleted, Output: radex.Output{I: float64(job.Seq)}}
	})

	ds, err := New(runner, 2).Run(context.Background(), g, NullProgressReporter{}, io.Discard)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i := 0; i < 6; i++ {
		got, _ := ds.At(nd.VarI, i)
		diag, _ := ds.DiagnosticAt(i)
		switch i {
		case 1:
			if !math.IsNaN(got) || diag.Status != radex.StatusTimedOut {
				t.Errorf("cell %d = %v/%v, want NaN/timed_out", i, got, diag.Status)
			}
		case 4:
			if !math.IsNaN(got) || diag.Status != radex.StatusSolverFailed {
				t.Errorf("cell %d = %v/%v, want NaN/solver_failed", i, got, diag.Status)
			}
		default:
			if got != float64(i) || diag.Status != radex.StatusCompleted {
				t.Errorf("cell %d = %v/%v, want %v/completed", i, got, diag.Status, float64(i))
			}
		}
	}
}

func TestDispatcher_AllFailed(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 4)

	runner := RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		return radex.JobResult{
			Job:    job,
			Status: radex.StatusParseFailed,
			Reason: apperrors.NewParseError("solver output is empty"),
		}
	})

	ds, err := New(runner, 2).Run(context.Background(), g, NullProgressReporter{}, io.Discard)
	var aErr apperrors.AllJobsFailedError
	if !errors.As(err, &aErr) {
		t.Fatalf("error should be AllJobsFailedError, got %T: %v", err, err)
	}
	if aErr.Total != 4 {
		t.Errorf("Total = %d, want 4", aErr.Total)
	}
	if ds == nil {
		t.Fatal("dataset must be returned alongside the error")
	}
}

// TestDispatcher_Cancellation cancels mid-run with all workers busy: the two
// in-flight jobs must finish, every undispatched cell must be recorded as
// canceled, and the partial dataset must be returned with the cause.
func TestDispatcher_Cancellation(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 6)

	started := make(chan int, 6)
	release := make(chan struct{})
	runner := RunnerFunc(func(_ context.Context, job grid.Job) radex.JobResult {
		started <- job.Seq
		<-release
		return radex.JobResult{Job: job, Status: radex.StatusCompleted, Output: radex.Output{I: float64(job.Seq)}}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type runOutcome struct {
		ds  *nd.Dataset
		err error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		ds, err := New(runner, 2).Run(ctx, g, NullProgressReporter{}, io.Discard)
		outcome <- runOutcome{ds, err}
	}()

	<-started
	<-started
	cancel()
	close(release)

	res := <-outcome
	if !apperrors.IsContextError(res.err) {
		t.Fatalf("err = %v, want a context cancellation in the chain", res.err)
	}

	counts := res.ds.CountByStatus()
	if counts[radex.StatusCompleted] != 2 {
		t.Errorf("completed = %d, want 2", counts[radex.StatusCompleted])
	}
	if counts[radex.StatusCanceled] != 4 {
		t.Errorf("canceled = %d, want 4", counts[radex.StatusCanceled])
	}

	// The in-flight jobs are the first two admitted; their values survive.
	for i := 0; i < 2; i++ {
		if got, _ := res.ds.At(nd.VarI, i); got != float64(i) {
			t.Errorf("I[%d] = %v, want %v", i, got, float64(i))
		}
	}
}

func TestDispatcher_ProgressUpdates(t *testing.T) {
	t.Parallel()
	g := testGrid(t, 5)

	var mu sync.Mutex
	var seen []ProgressUpdate
	reporter := ProgressReporterFunc(func(wg *sync.WaitGroup, updates <-chan ProgressUpdate, total int, _ io.Writer) {
		defer wg.Done()
		for u := range updates {
			mu.Lock()
			seen = append(seen, u)
			mu.Unlock()
		}
	})

	if _, err := New(seqRunner(), 2).Run(context.Background(), g, reporter, io.Discard); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 5 {
		t.Fatalf("received %d updates, want 5", len(seen))
	}
	for i, u := range seen {
		if u.Done != i+1 {
			t.Errorf("update %d: Done = %d, want %d", i, u.Done, i+1)
		}
		if u.Total != 5 {
			t.Errorf("update %d: Total = %d, want 5", i, u.Total)
		}
		if u.Status != radex.StatusCompleted {
			t.Errorf("update %d: Status = %v, want completed", i, u.Status)
		}
	}
}

func TestDispatcher_ScalarGrid(t *testing.T) {
	t.Parallel()
	mol, err := lamda.Parse(strings.NewReader(testDatafile))
	if err != nil {
		t.Fatalf("parsing datafile: %v", err)
	}
	req := grid.Request{
		Transitions: []string{"2-1"},
		TKin:        []float64{100},
		NMol:        []float64{1e15},
		TBg:         []float64{2.73},
		DV:          []float64{1.0},
		Geometries:  []string{"uni"},
	}
	req.Densities[grid.PartnerH2] = []float64{1e3}
	g, err := grid.New(req, mol, time.Second)
	if err != nil {
		t.Fatalf("building grid: %v", err)
	}

	ds, err := New(seqRunner(), 2).Run(context.Background(), g, NullProgressReporter{}, io.Discard)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ds.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", ds.Size())
	}
	if got, _ := ds.At(nd.VarI); got != 1.36 {
		t.Errorf("I = %v, want 1.36", got)
	}
}
