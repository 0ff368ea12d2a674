package ipc

import (
	"errors"
	"time"

	"overlay/internal/protocol"
)

// ErrorKind classifies the last channel-level failure.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorTimeout
	ErrorOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorTimeout:
		return "timeout"
	default:
		return "other"
	}
}

var (
	// ErrNotConnected is returned by Call on a channel without a live server.
	ErrNotConnected = errors.New("renderer not connected")
	// ErrCallTimeout is returned by Call when the renderer did not answer in time.
	ErrCallTimeout = errors.New("renderer call timed out")
	// ErrNotRunning indicates there is no renderer process to act on.
	ErrNotRunning = errors.New("renderer not running")
)

// Channel is a single connection attempt to a named renderer.
type Channel interface {
	Connected() bool
	Call(cmd protocol.Command, timeout time.Duration) error
	LastError() ErrorKind
	ServerProtocolVersion() int
	ServerProductVersion() string
	Close() error
}

// ChannelFactory opens channels by renderer name. A non-empty expectedPath
// enables the server executable check.
type ChannelFactory interface {
	NewChannel(name, expectedPath string) Channel
}
