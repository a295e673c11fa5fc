// Package lamda resolves species identifiers into validated local LAMDA
// datafiles and their transition tables. Resolution handles alias lookup,
// cached fetching of remote datafiles, and one-shot parsing; every job of a
// grid run referencing the same species shares the same parsed Molecule.
package lamda
