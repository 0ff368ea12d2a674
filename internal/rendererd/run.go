package rendererd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"overlay/internal/ipc"
	"overlay/internal/logging"
	"overlay/internal/namedevent"
	"overlay/internal/protocol"
)

// ErrAlreadyRunning is returned when another renderer holds the name's lock.
var ErrAlreadyRunning = errors.New("renderer already running")

// shutdownDrain lets the reply to a Shutdown command reach the caller before
// connections are closed.
const shutdownDrain = 50 * time.Millisecond

// Drawer renders Update commands.
type Drawer interface {
	Render(cmd protocol.Command) error
}

// Options configures Run.
type Options struct {
	Endpoint ipc.Endpoint
	Drawer   Drawer
	Info     ipc.ServerInfo
	Logger   *slog.Logger
}

// Renderer serves one renderer name.
type Renderer struct {
	endpoint ipc.Endpoint
	drawer   Drawer
	info     ipc.ServerInfo
	logger   *slog.Logger
	lock     *flock.Flock

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New prepares a renderer; nothing is acquired until Run.
func New(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		endpoint: opts.Endpoint,
		drawer:   opts.Drawer,
		info:     opts.Info,
		logger:   logging.NewComponentLogger(logger, "renderer").With(logging.String(logging.FieldRenderer, opts.Endpoint.Name)),
		lock:     flock.New(opts.Endpoint.LockPath()),
		shutdown: make(chan struct{}),
	}
}

// Run serves until ctx ends or a Shutdown command arrives.
func (r *Renderer) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.endpoint.Dir, 0o700); err != nil {
		return fmt.Errorf("ensure runtime directory: %w", err)
	}
	ok, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire renderer lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, r.endpoint.Name)
	}
	defer func() {
		_ = r.lock.Unlock()
	}()

	if err := ipc.WritePID(r.endpoint, os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(r.endpoint.PIDPath())

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	server, err := ipc.NewServer(serverCtx, r.endpoint, r, r.info, r.logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	if err := namedevent.Notify(r.endpoint.EventPath()); err != nil {
		logging.WarnWithContext(r.logger, "ready event not delivered", "renderer_ready_notify_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "launcher falls back to its grace period"),
			logging.String(logging.FieldErrorHint, "ignore when the renderer was started by hand"),
		)
	}
	r.logger.Info("renderer ready",
		logging.Int("pid", os.Getpid()),
		logging.String("socket", r.endpoint.SocketPath()),
	)

	select {
	case <-ctx.Done():
		r.logger.Info("renderer stopping", logging.String("reason", "signal"))
	case <-r.shutdown:
		time.Sleep(shutdownDrain)
		r.logger.Info("renderer stopping", logging.String("reason", "shutdown command"))
	}
	return nil
}

// Exec implements ipc.Handler.
func (r *Renderer) Exec(_ context.Context, cmd protocol.Command) error {
	switch cmd.Kind {
	case protocol.Shutdown:
		r.shutdownOnce.Do(func() { close(r.shutdown) })
		return nil
	case protocol.Update:
		if r.drawer == nil {
			return nil
		}
		if err := r.drawer.Render(cmd); err != nil {
			return fmt.Errorf("render update: %w", err)
		}
		return nil
	default:
		return nil
	}
}
