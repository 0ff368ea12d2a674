// Package rendererd is the runtime of the bundled renderer process.
//
// Run holds a per-name file lock so only one renderer serves a name, writes
// the pid file used for forced termination, serves the IPC protocol, and
// announces readiness on the launcher's named event. Update commands are
// drawn by the view package; Shutdown ends Run.
package rendererd
