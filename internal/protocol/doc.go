// Package protocol defines the renderer command message and the version
// identifiers both sides compare during a handshake.
//
// The Command type travels over the IPC channel unchanged; the client and the
// launcher only inspect its kind, its visibility flag and whether it carries
// output. What the renderer draws from Output is the renderer's business.
package protocol
