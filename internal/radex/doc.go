// Package radex drives one external RADEX solver invocation per job through
// the solver's line-oriented text protocol: it encodes a resolved parameter
// vector into the fixed-order input lines, runs the solver binary as an
// isolated subprocess under a hard wall-clock timeout, and decodes the
// fixed-position fields of the generated output file.
//
// The input and output schemas live in this package alone, so a protocol
// change in a future solver release touches one module.
package radex
