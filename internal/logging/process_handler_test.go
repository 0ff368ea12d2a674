package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return record
}

func TestProcessHandlerStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	handler := newProcessHandler(slog.NewJSONHandler(&buf, nil), "overlayd", "session-abc")

	slog.New(handler).With(FieldRenderer, "renderer.:0").Info("renderer ready")

	record := decodeRecord(t, &buf)
	if record[FieldProcess] != "overlayd" {
		t.Errorf("process = %v", record[FieldProcess])
	}
	if record[FieldSessionID] != "session-abc" {
		t.Errorf("session_id = %v", record[FieldSessionID])
	}
	if record[FieldRenderer] != "renderer.:0" {
		t.Errorf("renderer = %v", record[FieldRenderer])
	}
}

func TestProcessHandlerStampFollowsOpenGroup(t *testing.T) {
	var buf bytes.Buffer
	handler := newProcessHandler(slog.NewJSONHandler(&buf, nil), "overlay", "session-1")

	slog.New(handler).WithGroup("ipc").Info("call", "kind", "update")

	record := decodeRecord(t, &buf)
	group, ok := record["ipc"].(map[string]any)
	if !ok || group["kind"] != "update" {
		t.Fatalf("ipc group = %v", record["ipc"])
	}
	if _, ok := group[FieldProcess]; !ok {
		t.Fatalf("expected process inside the open group, got %v", record)
	}
}

func TestProcessHandlerWithoutStampReturnsBase(t *testing.T) {
	base := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if got := newProcessHandler(base, "", ""); got != base {
		t.Errorf("expected base handler, got %T", got)
	}
	if _, ok := newProcessHandler(nil, "overlay", "s").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
}
