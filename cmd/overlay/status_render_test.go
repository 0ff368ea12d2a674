package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"overlay/internal/config"
	"overlay/internal/deps"
	"overlay/internal/protocol"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Renderer", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Renderer:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Renderer", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRendererStatusLines(t *testing.T) {
	cfg := config.Default()
	cfg.Renderer.Path = "/usr/bin/overlayd"

	tests := []struct {
		name   string
		status rendererStatus
		skip   bool
		want   []string
	}{
		{
			name:   "healthy",
			status: rendererStatus{running: true, pathOK: true, pid: 42, protocol: protocol.ProtocolVersion, product: protocol.ProductVersion},
			want:   []string{"[OK] running (pid 42)", "[OK] /usr/bin/overlayd", "[OK] " + protocol.ProductVersion},
		},
		{
			name:   "foreign executable",
			status: rendererStatus{running: true, protocol: protocol.ProtocolVersion, product: protocol.ProductVersion},
			want:   []string{"[ERROR] served by a different executable"},
		},
		{
			name:   "skip path check",
			status: rendererStatus{running: true, protocol: protocol.ProtocolVersion, product: protocol.ProductVersion},
			skip:   true,
			want:   []string{"[INFO] path check skipped"},
		},
		{
			name:   "newer protocol",
			status: rendererStatus{running: true, pathOK: true, protocol: protocol.ProtocolVersion + 1, product: protocol.ProductVersion},
			want:   []string{"[WARN]", "will be replaced"},
		},
		{
			name:   "older protocol",
			status: rendererStatus{running: true, pathOK: true, protocol: protocol.ProtocolVersion - 1, product: protocol.ProductVersion},
			want:   []string{"[ERROR]", "incompatible"},
		},
		{
			name:   "product mismatch",
			status: rendererStatus{running: true, pathOK: true, protocol: protocol.ProtocolVersion},
			want:   []string{"[WARN] unknown (client " + protocol.ProductVersion + ")"},
		},
		{
			name:   "not running",
			status: rendererStatus{},
			want:   []string{"[WARN] not running"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := cfg
			c.Renderer.SkipPathCheck = tc.skip
			out := strings.Join(rendererStatusLines(tc.status, &c, false), "\n")
			for _, want := range tc.want {
				requireContains(t, out, want)
			}
		})
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "Renderer", Command: "/usr/bin/overlayd", Available: true},
		{Name: "Error dialog", Command: "zenity", Optional: true, Detail: `binary "zenity" not found`},
		{Name: "systemctl", Command: "systemctl"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	requireContains(t, lines[0], "[OK] Ready (command: /usr/bin/overlayd)")
	requireContains(t, lines[1], `[WARN] binary "zenity" not found`)
	requireContains(t, lines[2], "[ERROR] not available")
	requireContains(t, lines[3], "systemctl (renderer launches will fail)")
}
