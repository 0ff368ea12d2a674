package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value slog.Value
		want  string
	}{
		{"plain string", slog.StringValue("ready"), "ready"},
		{"string with space", slog.StringValue("stale content"), `"stale content"`},
		{"empty string", slog.StringValue(""), `""`},
		{"launch wait", slog.DurationValue(5*time.Second + 1234567), "5.001s"},
		{"sub millisecond", slog.DurationValue(1500 * time.Microsecond), "2ms"},
		{"tiny duration", slog.DurationValue(250 * time.Microsecond), "250µs"},
		{"error", slog.AnyValue(errors.New("connection refused")), `"connection refused"`},
		{"binaries", slog.AnyValue([]string{"systemctl", "overlayd"}), "systemctl,overlayd"},
		{"bool", slog.BoolValue(true), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Fatalf("formatValue = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttrStringClipsLongPreedit(t *testing.T) {
	preedit := strings.Repeat("あ", maxConsoleValue+10)
	got := attrString(slog.StringValue(preedit))
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected clipped value, got %q", got)
	}
	if n := len([]rune(got)); n != maxConsoleValue+1 {
		t.Fatalf("clipped to %d runes, want %d", n, maxConsoleValue+1)
	}
}
