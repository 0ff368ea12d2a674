// Package spawn starts the renderer process detached from the caller.
//
// Two strategies exist: a plain exec in a new session, and a systemd user
// unit. Both report the pid that the launcher's watcher should probe.
package spawn
