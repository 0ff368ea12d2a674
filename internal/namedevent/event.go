package namedevent

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Result is the outcome of Wait.
type Result int

const (
	Timeout Result = iota
	Signaled
	ProcessDied
	Failed
)

func (r Result) String() string {
	switch r {
	case Timeout:
		return "timeout"
	case Signaled:
		return "signaled"
	case ProcessDied:
		return "process_died"
	default:
		return "failed"
	}
}

// pollInterval bounds how long a dead process can go unnoticed.
const pollInterval = 100 * time.Millisecond

// Waiter waits for a single readiness announcement.
type Waiter interface {
	Available() bool
	Wait(timeout time.Duration, pid int) Result
	Close() error
}

// Source creates waiters and sends announcements by name.
type Source interface {
	Listen(name string) Waiter
	Notify(name string) error
}

// PathSource maps names to socket paths with a caller-supplied function.
type PathSource struct {
	Path func(name string) string
}

// NewSource returns a Source resolving names through path.
func NewSource(path func(name string) string) PathSource {
	return PathSource{Path: path}
}

// Listen implements Source.
func (s PathSource) Listen(name string) Waiter { return Listen(s.Path(name)) }

// Notify implements Source.
func (s PathSource) Notify(name string) error { return Notify(s.Path(name)) }

// Listener is the waiting side of a named event.
type Listener struct {
	path string
	conn *net.UnixConn
	err  error
}

// Listen binds the datagram socket at path. The returned listener is never
// nil; check Available before relying on Wait.
func Listen(path string) *Listener {
	l := &Listener{path: path}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.err = fmt.Errorf("remove stale event socket: %w", err)
		return l
	}
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		l.err = fmt.Errorf("listen on event socket: %w", err)
		return l
	}
	l.conn = conn
	return l
}

// Available reports whether the socket could be bound.
func (l *Listener) Available() bool { return l.conn != nil }

// Err returns the bind error of an unavailable listener.
func (l *Listener) Err() error { return l.err }

// Wait blocks until a datagram arrives, pid stops existing, or timeout
// elapses. A pid <= 0 disables the liveness probe.
func (l *Listener) Wait(timeout time.Duration, pid int) Result {
	if l.conn == nil {
		return Failed
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 64)
	for {
		next := time.Now().Add(pollInterval)
		if next.After(deadline) {
			next = deadline
		}
		if err := l.conn.SetReadDeadline(next); err != nil {
			return Failed
		}
		_, _, err := l.conn.ReadFromUnix(buf)
		if err == nil {
			return Signaled
		}
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			return Failed
		}
		if pid > 0 && !processAlive(pid) {
			return ProcessDied
		}
		if !time.Now().Before(deadline) {
			return Timeout
		}
	}
}

// Close releases the socket and removes its file.
func (l *Listener) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	_ = os.Remove(l.path)
	return err
}

// Notify sends the readiness announcement to the listener at path.
func Notify(path string) error {
	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("dial event socket: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte{1}); err != nil {
		return fmt.Errorf("notify event socket: %w", err)
	}
	return nil
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || !errors.Is(err, unix.ESRCH)
}
