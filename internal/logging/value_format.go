package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxConsoleValue bounds a single value on the console. Preedit and candidate
// text can be arbitrarily long; the JSON log keeps it whole.
const maxConsoleValue = 120

// attrString renders v unquoted, for headers and info fields.
func attrString(v slog.Value) string {
	return clip(plainValue(v.Resolve()))
}

// formatValue renders v for debug key/value lines, quoting when the text
// would be ambiguous.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString, slog.KindAny:
		return quoteIfNeeded(clip(plainValue(v)))
	default:
		return clip(plainValue(v))
	}
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return formatDuration(v.Duration())
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		case []string:
			return strings.Join(x, ",")
		default:
			return fmt.Sprint(x)
		}
	default:
		return v.String()
	}
}

// formatDuration keeps launch waits and retry intervals readable: whole
// milliseconds above one millisecond, exact below.
func formatDuration(d time.Duration) string {
	if d > time.Millisecond || d < -time.Millisecond {
		d = d.Round(time.Millisecond)
	}
	return d.String()
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxConsoleValue {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxConsoleValue]) + "…"
}

func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}
