package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"overlay/internal/history"
	"overlay/internal/ipc"
	"overlay/internal/logging"
	"overlay/internal/namedevent"
	"overlay/internal/protocol"
	"overlay/internal/spawn"
)

// Reporter surfaces renderer failures to the user.
type Reporter interface {
	ReportRendererError(ctx context.Context, errorType string) error
}

// Recorder journals launch attempts.
type Recorder interface {
	RecordLaunch(ctx context.Context, attempt history.Attempt) error
}

// Metrics receives launcher counters.
type Metrics interface {
	StatusTransition(from, to string)
	LaunchOutcome(outcome string)
	PendingReplaced()
}

// Options configures a Launcher. Spawner and Events are required.
type Options struct {
	Spawner spawn.ProcessSpawner
	Events  namedevent.Source
	// Terminate kills the renderer registered under name and returns its pid.
	Terminate func(name string) (int, error)
	// Args builds the renderer command line for name.
	Args     func(name string) []string
	Reporter Reporter
	Recorder Recorder
	Metrics  Metrics
	Logger   *slog.Logger

	// SuppressErrors silences OnFatal reporting.
	SuppressErrors bool

	Now           func() time.Time
	LaunchWait    time.Duration
	DegradedGrace time.Duration
}

// Launcher starts the renderer on demand and tracks whether it can be reached.
type Launcher struct {
	spawner   spawn.ProcessSpawner
	events    namedevent.Source
	terminate func(string) (int, error)
	args      func(string) []string
	reporter  Reporter
	recorder  Recorder
	metrics   Metrics
	logger    *slog.Logger
	suppress  bool
	now       func() time.Time

	launchWait    time.Duration
	degradedGrace time.Duration

	status     atomic.Int32
	lastLaunch atomic.Int64
	errorTimes atomic.Int32

	pendingMu sync.Mutex
	pending   *protocol.Command
	target    target

	workerMu sync.Mutex
	running   bool
	requested target
	done      chan struct{}
	stop      chan struct{}
	closed    bool

	reports sync.WaitGroup
}

type target struct {
	name          string
	path          string
	skipPathCheck bool
	channels      ipc.ChannelFactory
}

func (t target) expectedPath() string {
	if t.skipPathCheck {
		return ""
	}
	return t.path
}

// New constructs a Launcher in StatusUnknown.
func New(opts Options) *Launcher {
	l := &Launcher{
		spawner:       opts.Spawner,
		events:        opts.Events,
		terminate:     opts.Terminate,
		args:          opts.Args,
		reporter:      opts.Reporter,
		recorder:      opts.Recorder,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		suppress:      opts.SuppressErrors,
		now:           opts.Now,
		launchWait:    opts.LaunchWait,
		degradedGrace: opts.DegradedGrace,
	}
	if l.logger == nil {
		l.logger = logging.NewNop()
	}
	l.logger = logging.NewComponentLogger(l.logger, "launcher")
	if l.metrics == nil {
		l.metrics = nopMetrics{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.launchWait <= 0 {
		l.launchWait = LaunchWait
	}
	if l.degradedGrace <= 0 {
		l.degradedGrace = DegradedGrace
	}
	if l.args == nil {
		l.args = func(string) []string { return nil }
	}
	return l
}

// Status returns the current status.
func (l *Launcher) Status() Status { return Status(l.status.Load()) }

// ErrorTimes returns the consecutive failed launch count.
func (l *Launcher) ErrorTimes() int { return int(l.errorTimes.Load()) }

// LastLaunch returns when the worker last started an attempt.
func (l *Launcher) LastLaunch() time.Time {
	ns := l.lastLaunch.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// CanConnect reports whether a caller may open a channel to the renderer now.
func (l *Launcher) CanConnect() bool {
	return canConnect(l.Status(), l.ErrorTimes(), l.now().Sub(l.LastLaunch()))
}

// IsAvailable reports whether the last launch completed.
func (l *Launcher) IsAvailable() bool { return l.Status() == StatusReady }

// StartRenderer marks the renderer as launching and starts the worker unless
// one is already running. A request that lands while the worker is recording
// its outcome is picked up by that worker on exit. Closed launchers ignore it.
func (l *Launcher) StartRenderer(name, path string, skipPathCheck bool, channels ipc.ChannelFactory) {
	l.workerMu.Lock()
	defer l.workerMu.Unlock()
	if l.closed {
		return
	}
	l.setStatus(StatusLaunching)

	t := target{name: name, path: path, skipPathCheck: skipPathCheck, channels: channels}
	if l.running {
		l.requested = t
		return
	}
	l.startLocked(t)
}

// startLocked spawns a worker for t. workerMu must be held.
func (l *Launcher) startLocked(t target) {
	l.pendingMu.Lock()
	l.target = t
	l.pendingMu.Unlock()

	l.requested = t
	l.running = true
	l.done = make(chan struct{})
	l.stop = make(chan struct{})
	go l.run(t, l.stop, l.done)
}

// Wait blocks until no worker is running, including one started while the
// previous worker was exiting.
func (l *Launcher) Wait(ctx context.Context) error {
	for {
		l.workerMu.Lock()
		done := l.done
		l.workerMu.Unlock()
		if done == nil {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		l.workerMu.Lock()
		next := l.done
		l.workerMu.Unlock()
		if next == done {
			return nil
		}
	}
}

// SetPendingCommand buffers cmd for delivery after the next launch. Only
// Update commands are kept; a newer one replaces the older.
func (l *Launcher) SetPendingCommand(cmd protocol.Command) {
	if cmd.Kind != protocol.Update {
		return
	}
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	if l.pending != nil {
		l.metrics.PendingReplaced()
	}
	buffered := cmd
	l.pending = &buffered
}

// PendingCommand returns the buffered command, if any.
func (l *Launcher) PendingCommand() (protocol.Command, bool) {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	if l.pending == nil {
		return protocol.Command{}, false
	}
	return *l.pending, true
}

// ForceTerminateRenderer kills the renderer registered under name.
func (l *Launcher) ForceTerminateRenderer(name string) bool {
	logger := l.logger.With(logging.String(logging.FieldRenderer, name))
	if l.terminate == nil {
		logging.WarnWithContext(logger, "renderer termination unavailable", "renderer_terminate_unavailable",
			logging.String(logging.FieldImpact, "stale renderer keeps running"),
			logging.String(logging.FieldErrorHint, "stop the renderer process manually"),
		)
		return false
	}
	pid, err := l.terminate(name)
	if errors.Is(err, ipc.ErrNotRunning) {
		logger.Debug("renderer not running; nothing to terminate")
		return true
	}
	if err != nil {
		logging.WarnWithContext(logger, "renderer termination failed", "renderer_terminate_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale renderer keeps running"),
			logging.String(logging.FieldErrorHint, "stop the renderer process manually"),
		)
		return false
	}
	logger.Info("renderer terminated", logging.Int("pid", pid))
	return true
}

// OnFatal surfaces a renderer failure unless reporting is suppressed. The
// report runs in the background; Close waits for it.
func (l *Launcher) OnFatal(kind ErrorType) {
	if l.suppress {
		l.logger.Debug("renderer error report suppressed", logging.String("error_type", kind.String()))
		return
	}
	logging.ErrorWithContext(l.logger, "renderer unusable", "renderer_error",
		logging.String("error_type", kind.String()),
		logging.String(logging.FieldErrorHint, "check the renderer installation and restart the session"),
	)
	if l.reporter == nil {
		return
	}
	l.reports.Add(1)
	go func() {
		defer l.reports.Done()
		if err := l.reporter.ReportRendererError(context.Background(), kind.String()); err != nil {
			logging.WarnWithContext(l.logger, "renderer error report failed", "renderer_report_failed",
				logging.Error(err),
				logging.String("error_type", kind.String()),
				logging.String(logging.FieldImpact, "user was not notified of the renderer failure"),
				logging.String(logging.FieldErrorHint, "check notifications configuration"),
			)
		}
	}()
}

// Close wakes the worker, waits for it and for outstanding reports. No new
// worker starts afterwards.
func (l *Launcher) Close() {
	l.workerMu.Lock()
	l.closed = true
	running := l.running
	done := l.done
	stop := l.stop
	l.stop = nil
	name := l.currentName()
	l.workerMu.Unlock()

	if running && stop != nil {
		if l.events != nil {
			if err := l.events.Notify(name); err != nil {
				l.logger.Debug("wake renderer worker", logging.Error(err))
			}
		}
		close(stop)
		<-done
	}
	l.reports.Wait()
}

func (l *Launcher) currentName() string {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return l.target.name
}

func (l *Launcher) setStatus(to Status) {
	from := Status(l.status.Swap(int32(to)))
	if from != to {
		l.metrics.StatusTransition(from.String(), to.String())
	}
}

func (l *Launcher) run(t target, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		l.workerMu.Lock()
		l.running = false
		// StartRenderer holds workerMu while it sets Launching, so a request
		// made after this worker wrote its final status is visible here.
		if !l.closed && l.Status() == StatusLaunching {
			l.logger.Info("launch requested while previous worker was exiting; relaunching",
				logging.String(logging.FieldRenderer, l.requested.name),
			)
			l.startLocked(l.requested)
		}
		l.workerMu.Unlock()
		close(done)
	}()

	started := l.now()
	l.lastLaunch.Store(started.UnixNano())
	attempt := history.Attempt{
		AttemptID: uuid.NewString(),
		Renderer:  t.name,
		StartedAt: started,
	}
	ctx := logging.WithAttempt(logging.WithRenderer(context.Background(), t.name), attempt.AttemptID)
	logger := logging.WithContext(ctx, l.logger)

	var waiter namedevent.Waiter
	if l.events != nil {
		waiter = l.events.Listen(t.name)
		defer waiter.Close()
	}

	logger.Info("launching renderer", logging.String("path", t.path))
	pid, err := l.spawner.Spawn(ctx, t.path, l.args(t.name))
	if err != nil {
		l.setStatus(StatusFatal)
		logging.ErrorWithContext(logger, "renderer spawn failed", "renderer_spawn_failed",
			logging.Error(err),
			logging.String("path", t.path),
			logging.String(logging.FieldErrorHint, "verify renderer.path and renderer.spawner in the config"),
		)
		l.finish(ctx, attempt, history.OutcomeSpawnFailed, err.Error())
		l.OnFatal(ErrorFatal)
		return
	}
	attempt.PID = pid

	if waiter == nil || !waiter.Available() {
		logging.WarnWithContext(logger, "ready event unavailable; assuming renderer starts", "renderer_degraded_wait",
			logging.Int("pid", pid),
			logging.Duration("grace", l.degradedGrace),
			logging.String(logging.FieldImpact, "commands may be lost if the renderer is slow to start"),
			logging.String(logging.FieldErrorHint, "check permissions on renderer.runtime_dir"),
		)
		timer := time.NewTimer(l.degradedGrace)
		select {
		case <-timer.C:
		case <-stop:
			timer.Stop()
		}
		l.flush(logger, t)
		l.finish(ctx, attempt, history.OutcomeReadyAssume, "")
		logger.Info("renderer assumed ready", logging.Int("pid", pid))
		return
	}

	result := waiter.Wait(l.launchWait, pid)
	switch result {
	case namedevent.Timeout:
		l.setStatus(StatusTimeout)
		failures := l.errorTimes.Add(1)
		logging.WarnWithContext(logger, "renderer did not become ready", "renderer_launch_timeout",
			logging.Int("pid", pid),
			logging.Duration("waited", l.launchWait),
			logging.Int("error_times", int(failures)),
			logging.String(logging.FieldImpact, "commands are buffered until the next attempt"),
			logging.String(logging.FieldErrorHint, "inspect renderer logs for startup errors"),
		)
		l.finish(ctx, attempt, history.OutcomeTimeout, "")
	case namedevent.Signaled:
		l.flush(logger, t)
		l.finish(ctx, attempt, history.OutcomeReady, "")
		logger.Info("renderer ready", logging.Int("pid", pid), logging.Int("error_times", 0))
	case namedevent.ProcessDied:
		l.setStatus(StatusTerminated)
		failures := l.errorTimes.Add(1)
		logging.WarnWithContext(logger, "renderer exited during startup", "renderer_launch_died",
			logging.Int("pid", pid),
			logging.Int("error_times", int(failures)),
			logging.String(logging.FieldImpact, "commands are buffered until the next attempt"),
			logging.String(logging.FieldErrorHint, "run the renderer by hand to see why it exits"),
		)
		l.finish(ctx, attempt, history.OutcomeTerminated, "")
	default:
		l.setStatus(StatusFatal)
		l.errorTimes.Add(1)
		logging.ErrorWithContext(logger, "waiting for renderer failed", "renderer_wait_failed",
			logging.Int("pid", pid),
			logging.String("result", result.String()),
			logging.String(logging.FieldErrorHint, "check renderer.runtime_dir and restart the session"),
		)
		l.finish(ctx, attempt, history.OutcomeWaitFailed, result.String())
		l.OnFatal(ErrorFatal)
	}
}

// flush delivers the buffered command and marks the renderer ready. The
// pending lock is held throughout.
func (l *Launcher) flush(logger *slog.Logger, t target) {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()

	if l.pending != nil && t.channels != nil {
		if err := l.deliver(t, *l.pending); err != nil {
			logging.WarnWithContext(logger, "pending command not delivered", "renderer_flush_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "renderer shows stale content until the next update"),
				logging.String(logging.FieldErrorHint, "check renderer logs"),
			)
		} else {
			logger.Debug("pending command delivered")
		}
	}
	l.pending = nil
	l.setStatus(StatusReady)
	l.errorTimes.Store(0)
}

func (l *Launcher) deliver(t target, cmd protocol.Command) error {
	ch := t.channels.NewChannel(t.name, t.expectedPath())
	defer ch.Close()
	if !ch.Connected() {
		return fmt.Errorf("%w (last error %s)", ipc.ErrNotConnected, ch.LastError())
	}
	return ch.Call(cmd, CallTimeout)
}

func (l *Launcher) finish(ctx context.Context, attempt history.Attempt, outcome history.Outcome, detail string) {
	attempt.FinishedAt = l.now()
	attempt.Outcome = outcome
	attempt.ErrorTimes = l.ErrorTimes()
	attempt.Detail = detail
	l.metrics.LaunchOutcome(string(outcome))
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordLaunch(ctx, attempt); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, l.logger), "launch history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "launch attempt missing from overlay history"),
			logging.String(logging.FieldErrorHint, "check history.path permissions"),
		)
	}
}

type nopMetrics struct{}

func (nopMetrics) StatusTransition(string, string) {}
func (nopMetrics) LaunchOutcome(string)            {}
func (nopMetrics) PendingReplaced()                {}
