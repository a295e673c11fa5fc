// Package grid expands user-supplied scalar/vector physical parameters into
// an enumerated job grid with named dimensions. Validation is eager and
// total: a malformed parameter fails the whole run before any job is
// dispatched. Enumeration is lazy, in row-major order over the active
// dimensions (the last declared active dimension varies fastest).
package grid
