// Package ipc connects the controlling process to the renderer over JSON-RPC
// on a Unix domain socket and ships the matching server used by the renderer.
//
// It owns socket and pid file layout for a renderer name, the handshake that
// exchanges protocol and product versions, bounded-time command delivery, and
// out-of-band termination of a renderer by name. Channels never fail to open:
// connection problems are reported through Connected and LastError so callers
// can decide between buffering, launching and giving up.
package ipc
