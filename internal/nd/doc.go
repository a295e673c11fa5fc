// Package nd assembles per-job solver results into dense labeled
// N-dimensional arrays over the active grid dimensions. Every output
// variable is a row-major float64 array whose cells default to NaN, so a
// failed or canceled job leaves a well-typed hole instead of poisoning the
// run; a parallel diagnostics array records the terminal status and failure
// reason of every cell.
package nd
