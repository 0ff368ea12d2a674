package launcher

import (
	"testing"
	"time"
)

func TestCanConnect(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		errorTimes int
		since      time.Duration
		want       bool
	}{
		{name: "unknown", status: StatusUnknown, want: true},
		{name: "ready", status: StatusReady, errorTimes: 0, want: true},
		{name: "launching", status: StatusLaunching, since: time.Hour, want: false},
		{name: "timeout too soon", status: StatusTimeout, errorTimes: 1, since: 29 * time.Second, want: false},
		{name: "timeout after interval", status: StatusTimeout, errorTimes: 1, since: 30 * time.Second, want: true},
		{name: "terminated after interval", status: StatusTerminated, errorTimes: 5, since: time.Minute, want: true},
		{name: "terminated over cap", status: StatusTerminated, errorTimes: 6, since: time.Hour, want: false},
		{name: "fatal", status: StatusFatal, since: time.Hour, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canConnect(tt.status, tt.errorTimes, tt.since); got != tt.want {
				t.Fatalf("canConnect(%s, %d, %s) = %v, want %v", tt.status, tt.errorTimes, tt.since, got, tt.want)
			}
		})
	}
}

func TestErrorTypeNames(t *testing.T) {
	if got := ErrorFatal.String(); got != "renderer_fatal" {
		t.Fatalf("ErrorFatal = %q", got)
	}
	if got := ErrorVersionMismatch.String(); got != "renderer_version_mismatch" {
		t.Fatalf("ErrorVersionMismatch = %q", got)
	}
}
