package client

import (
	"log/slog"

	"overlay/internal/ipc"
	"overlay/internal/launcher"
	"overlay/internal/logging"
	"overlay/internal/protocol"
)

// MaxVersionMismatches is the number of mismatched renderers the client
// evicts before it stops talking to the renderer altogether.
const MaxVersionMismatches = 3

// Launcher is the part of launcher.Launcher the client drives.
type Launcher interface {
	CanConnect() bool
	IsAvailable() bool
	StartRenderer(name, path string, skipPathCheck bool, channels ipc.ChannelFactory)
	ForceTerminateRenderer(name string) bool
	OnFatal(kind launcher.ErrorType)
	SetPendingCommand(cmd protocol.Command)
}

// Metrics receives per-command dispositions.
type Metrics interface {
	CommandHandled(kind, disposition string)
	VersionMismatch(kind string)
}

// Command dispositions reported to Metrics and the decision log.
const (
	DispositionSent          = "sent"
	DispositionSendFailed    = "send_failed"
	DispositionBuffered      = "buffered"
	DispositionLaunched      = "launched"
	DispositionDropped       = "dropped"
	DispositionBlocked       = "blocked"
	DispositionTimeout       = "channel_timeout"
	DispositionEvicted       = "evicted"
	DispositionIncompatible  = "incompatible"
	DispositionStaleShutdown = "stale_shutdown"
)

// Options configures a Client.
type Options struct {
	// Name is the renderer name used for channels, events and termination.
	Name string
	// Path is the renderer executable; it doubles as the expected server path.
	Path          string
	SkipPathCheck bool

	Launcher Launcher
	Channels ipc.ChannelFactory
	Metrics  Metrics
	Logger   *slog.Logger

	// ProtocolVersion and ProductVersion default to the compiled-in values.
	ProtocolVersion int
	ProductVersion  string
}

// Client sends commands to the renderer, launching it when needed.
type Client struct {
	name          string
	path          string
	skipPathCheck bool

	launcher Launcher
	channels ipc.ChannelFactory
	metrics  Metrics
	logger   *slog.Logger

	protocolVersion int
	productVersion  string

	visible    bool
	mismatches int
}

// New constructs a Client.
func New(opts Options) *Client {
	c := &Client{
		name:            opts.Name,
		path:            opts.Path,
		skipPathCheck:   opts.SkipPathCheck,
		launcher:        opts.Launcher,
		channels:        opts.Channels,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		protocolVersion: opts.ProtocolVersion,
		productVersion:  opts.ProductVersion,
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	c.logger = logging.NewComponentLogger(c.logger, "client").With(logging.String(logging.FieldRenderer, c.name))
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if c.protocolVersion == 0 {
		c.protocolVersion = protocol.ProtocolVersion
	}
	if c.productVersion == "" {
		c.productVersion = protocol.ProductVersion
	}
	return c
}

// Name returns the renderer name.
func (c *Client) Name() string { return c.name }

// Visible reports the visibility of the last handled command.
func (c *Client) Visible() bool { return c.visible }

// VersionMismatches returns how many mismatched renderers were seen.
func (c *Client) VersionMismatches() int { return c.mismatches }

func (c *Client) expectedPath() string {
	if c.skipPathCheck {
		return ""
	}
	return c.path
}

// ExecCommand delivers cmd or arranges for its delivery. It returns false
// only when the channel could not be opened in time; every other outcome,
// including dropping the command, counts as handled.
func (c *Client) ExecCommand(cmd protocol.Command) bool {
	kind := cmd.Kind.String()

	if !c.launcher.CanConnect() {
		c.launcher.SetPendingCommand(cmd)
		// A flush may have completed while the command was being buffered.
		if !c.launcher.CanConnect() {
			c.decide(kind, DispositionBuffered, "renderer not reachable", true)
			return true
		}
	}

	if c.mismatches >= MaxVersionMismatches {
		c.decide(kind, DispositionBlocked, "too many renderer version mismatches", true)
		return true
	}

	ch := c.channels.NewChannel(c.name, c.expectedPath())
	defer ch.Close()

	if ch.LastError() == ipc.ErrorTimeout {
		c.decide(kind, DispositionTimeout, "renderer channel timed out", false)
		return false
	}

	c.visible = cmd.Visible

	if !ch.Connected() {
		if cmd.Kind == protocol.Update && (!cmd.Visible || !cmd.HasOutput()) {
			c.decide(kind, DispositionDropped, "renderer not running and nothing to show", true)
			return true
		}
		c.launcher.SetPendingCommand(cmd)
		c.launcher.StartRenderer(c.name, c.path, c.skipPathCheck, c.channels)
		c.decide(kind, DispositionLaunched, "renderer not running", false)
		return true
	}

	server := ch.ServerProtocolVersion()
	switch {
	case server > c.protocolVersion:
		c.logger.Info("renderer speaks a newer protocol; evicting",
			logging.Int("server_protocol", server),
			logging.Int("local_protocol", c.protocolVersion),
		)
		c.launcher.ForceTerminateRenderer(c.name)
		c.launcher.SetPendingCommand(cmd)
		c.mismatches++
		c.metrics.VersionMismatch("protocol_newer")
		c.decide(kind, DispositionEvicted, "renderer protocol newer than client", false)
		return true
	case server < c.protocolVersion:
		logging.WarnWithContext(c.logger, "renderer speaks an older protocol", "renderer_protocol_mismatch",
			logging.Int("server_protocol", server),
			logging.Int("local_protocol", c.protocolVersion),
			logging.String(logging.FieldImpact, "renderer disabled for this session"),
			logging.String(logging.FieldErrorHint, "restart the session after upgrading the renderer"),
		)
		c.mismatches = MaxVersionMismatches
		c.metrics.VersionMismatch("protocol_older")
		c.launcher.OnFatal(launcher.ErrorVersionMismatch)
		c.decide(kind, DispositionIncompatible, "renderer protocol older than client", false)
		return true
	}

	if protocol.ProductVersionMismatch(ch.ServerProductVersion(), c.productVersion) {
		c.logger.Info("renderer from another build; asking it to shut down",
			logging.String("server_version", ch.ServerProductVersion()),
			logging.String("local_version", c.productVersion),
		)
		c.launcher.SetPendingCommand(cmd)
		if err := ch.Call(protocol.Command{Kind: protocol.Shutdown}, launcher.CallTimeout); err != nil {
			logging.WarnWithContext(c.logger, "stale renderer shutdown failed", "renderer_shutdown_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale renderer may keep the name until it exits"),
				logging.String(logging.FieldErrorHint, "run overlay shutdown --force"),
			)
		}
		c.mismatches++
		c.metrics.VersionMismatch("product")
		c.decide(kind, DispositionStaleShutdown, "renderer product version differs", false)
		return true
	}

	if err := ch.Call(cmd, launcher.CallTimeout); err != nil {
		logging.WarnWithContext(c.logger, "renderer command failed", "renderer_call_failed",
			logging.Error(err),
			logging.String("kind", kind),
			logging.String(logging.FieldImpact, "renderer shows stale content until the next update"),
			logging.String(logging.FieldErrorHint, "check renderer logs"),
		)
		c.metrics.CommandHandled(kind, DispositionSendFailed)
		return true
	}
	c.metrics.CommandHandled(kind, DispositionSent)
	return true
}

// Activate makes sure the renderer is running.
func (c *Client) Activate() bool {
	if c.launcher.IsAvailable() {
		return true
	}
	return c.ExecCommand(protocol.Command{Kind: protocol.Noop})
}

// IsAvailable reports whether the renderer finished launching.
func (c *Client) IsAvailable() bool { return c.launcher.IsAvailable() }

// Shutdown stops the renderer. A renderer that is not running counts as
// stopped. force kills it instead of asking.
func (c *Client) Shutdown(force bool) bool {
	ch := c.channels.NewChannel(c.name, c.expectedPath())
	connected := ch.Connected()
	_ = ch.Close()
	if !connected {
		c.logger.Debug("renderer not running; shutdown is a no-op")
		return true
	}
	if force {
		return c.launcher.ForceTerminateRenderer(c.name)
	}
	return c.ExecCommand(protocol.Command{Kind: protocol.Shutdown})
}

// Close hides the renderer if the client last showed it.
func (c *Client) Close() {
	if c.launcher.IsAvailable() && c.visible {
		c.ExecCommand(protocol.NewHide())
	}
}

func (c *Client) decide(kind, disposition, reason string, routine bool) {
	c.metrics.CommandHandled(kind, disposition)
	logging.LogDecision(c.logger, routine, "renderer command "+disposition, "renderer_command", disposition, reason,
		logging.String("kind", kind),
	)
}

type nopMetrics struct{}

func (nopMetrics) CommandHandled(string, string) {}
func (nopMetrics) VersionMismatch(string)        {}
