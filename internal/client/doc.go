// Package client is the caller-facing side of the renderer.
//
// Client.ExecCommand decides per request whether the command goes straight
// to the renderer over IPC, waits in the launcher's pending slot while the
// renderer starts, or is dropped. It also evicts renderers that speak a
// different protocol or come from a different build, giving up after a few
// mismatches so a broken installation cannot cause a relaunch loop.
//
// A Client is not safe for concurrent use; the launcher it drives is.
package client
