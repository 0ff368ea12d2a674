// Package launcher supervises the renderer process.
//
// A Launcher owns at most one worker goroutine at a time. The worker spawns
// the renderer, waits for it to raise its ready event, and then delivers the
// single buffered Update command. The outcome of each attempt drives a small
// status machine that callers consult through CanConnect before touching the
// IPC channel, so retries happen only when a caller asks again and never on
// a timer.
//
// Status, last launch time and the consecutive failure counter are separate
// atomics. The pending command slot has its own mutex, which also covers the
// flush so a caller cannot slip a command in between the send and the slot
// reset.
package launcher
