package launcher

import "time"

// Status is the launcher's view of the renderer.
type Status int32

const (
	StatusUnknown Status = iota
	StatusLaunching
	StatusReady
	StatusTimeout
	StatusTerminated
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusLaunching:
		return "launching"
	case StatusReady:
		return "ready"
	case StatusTimeout:
		return "timeout"
	case StatusTerminated:
		return "terminated"
	case StatusFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// ErrorType classifies a user-visible renderer failure.
type ErrorType int

const (
	ErrorFatal ErrorType = iota
	ErrorVersionMismatch
)

// String returns the name passed to error reporters.
func (e ErrorType) String() string {
	switch e {
	case ErrorVersionMismatch:
		return "renderer_version_mismatch"
	default:
		return "renderer_fatal"
	}
}

// Launch policy.
const (
	// LaunchWait bounds how long the worker waits for the ready event.
	LaunchWait = 30 * time.Second
	// DegradedGrace is how long the worker assumes a launch takes when the
	// ready event cannot be observed.
	DegradedGrace = 10 * time.Second
	// MaxErrorTimes is the number of consecutive failed launches after which
	// CanConnect stays false.
	MaxErrorTimes = 5
	// RetryInterval is the minimum time between launch attempts after a
	// failure.
	RetryInterval = 30 * time.Second
	// CallTimeout bounds a single command send.
	CallTimeout = 100 * time.Millisecond
)

// canConnect is the pure decision behind Launcher.CanConnect.
func canConnect(status Status, errorTimes int, sinceLaunch time.Duration) bool {
	switch status {
	case StatusUnknown, StatusReady:
		return true
	case StatusTimeout, StatusTerminated:
		return errorTimes <= MaxErrorTimes && sinceLaunch >= RetryInterval
	default:
		return false
	}
}
