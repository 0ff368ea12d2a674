// Package deps checks that the binaries the launcher will execute exist.
//
// Requirements derives the list from configuration; CheckBinaries resolves
// each one through PATH. The status command prints the result so a missing
// renderer shows up before the first launch fails.
package deps
