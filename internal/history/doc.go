// Package history journals renderer launch attempts in SQLite.
//
// Each run of the launcher's worker produces one row: when it started, which
// pid it spawned, how the wait ended and the consecutive failure count after
// the attempt. The CLI reads the journal to explain why a renderer is not
// coming up without digging through logs.
package history
