// Package dispatch coordinates the concurrent execution of grid jobs. A
// bounded worker pool pulls jobs in row-major order, runs each one through
// the solver runner, and streams terminal results to a single-threaded
// assembler, so per-job failures stay isolated and attribution never depends
// on completion order.
package dispatch
