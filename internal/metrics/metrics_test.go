package metrics_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"overlay/internal/metrics"
)

func TestCollectorCountsLauncherEvents(t *testing.T) {
	c := metrics.NewCollector()

	c.StatusTransition("unknown", "launching")
	c.StatusTransition("launching", "ready")
	c.StatusTransition("unknown", "launching")
	c.LaunchOutcome("ready")
	c.PendingReplaced()
	c.PendingReplaced()

	expected := `
		# HELP overlay_launcher_status_transitions_total Total number of launcher status transitions
		# TYPE overlay_launcher_status_transitions_total counter
		overlay_launcher_status_transitions_total{from="launching",to="ready"} 1
		overlay_launcher_status_transitions_total{from="unknown",to="launching"} 2
		# HELP overlay_launcher_pending_replaced_total Total number of buffered commands overwritten before delivery
		# TYPE overlay_launcher_pending_replaced_total counter
		overlay_launcher_pending_replaced_total 2
	`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"overlay_launcher_status_transitions_total", "overlay_launcher_pending_replaced_total"); err != nil {
		t.Fatalf("unexpected launcher metrics: %v", err)
	}

	count, err := testutil.GatherAndCount(c.Registry(), "overlay_launcher_launch_outcomes_total")
	if err != nil {
		t.Fatalf("count outcomes: %v", err)
	}
	if count != 1 {
		t.Fatalf("outcome series = %d, want 1", count)
	}
}

func TestCollectorCountsClientEvents(t *testing.T) {
	c := metrics.NewCollector()

	c.CommandHandled("update", "sent")
	c.CommandHandled("update", "sent")
	c.CommandHandled("noop", "launched")
	c.VersionMismatch("product")

	expected := `
		# HELP overlay_client_commands_total Total number of client commands by kind and disposition
		# TYPE overlay_client_commands_total counter
		overlay_client_commands_total{disposition="launched",kind="noop"} 1
		overlay_client_commands_total{disposition="sent",kind="update"} 2
		# HELP overlay_client_version_mismatches_total Total number of renderer version mismatches seen by the client
		# TYPE overlay_client_version_mismatches_total counter
		overlay_client_version_mismatches_total{kind="product"} 1
	`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"overlay_client_commands_total", "overlay_client_version_mismatches_total"); err != nil {
		t.Fatalf("unexpected client metrics: %v", err)
	}
}

func TestServeExposesRegistry(t *testing.T) {
	c := metrics.NewCollector()
	c.LaunchOutcome("timeout")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := metrics.Serve(ctx, "127.0.0.1:0", c, nil)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	t.Cleanup(srv.Close)

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `overlay_launcher_launch_outcomes_total{outcome="timeout"} 1`) {
		t.Fatalf("metric missing from response:\n%s", body)
	}
}

func TestServeRejectsBadBind(t *testing.T) {
	if _, err := metrics.Serve(context.Background(), "not-an-address", metrics.NewCollector(), nil); err == nil {
		t.Fatal("expected listen error")
	}
}
