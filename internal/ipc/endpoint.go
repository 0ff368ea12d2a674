package ipc

import "path/filepath"

// Endpoint locates the files belonging to one renderer instance.
type Endpoint struct {
	Dir  string
	Name string
}

// NewEndpoint returns the endpoint for name inside the runtime directory dir.
func NewEndpoint(dir, name string) Endpoint {
	return Endpoint{Dir: dir, Name: name}
}

// SocketPath is the JSON-RPC socket.
func (e Endpoint) SocketPath() string { return e.path(".sock") }

// EventPath is the datagram socket the renderer notifies once it is ready.
func (e Endpoint) EventPath() string { return e.path(".event") }

// PIDPath holds the renderer's process id.
func (e Endpoint) PIDPath() string { return e.path(".pid") }

// LockPath guards against a second renderer with the same name.
func (e Endpoint) LockPath() string { return e.path(".lock") }

func (e Endpoint) path(ext string) string {
	return filepath.Join(e.Dir, e.Name+ext)
}
