package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

// infoHighlightKeys are printed first, in this order, on info and above.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	"status",
	"previous_status",
	"command_kind",
	"error_times",
	"pid",
	FieldErrorHint,
	FieldImpact,
	"error",
}

// skipInfoKeys are already shown in the header or carry no value on the console.
var skipInfoKeys = map[string]struct{}{
	FieldRenderer:  {},
	FieldAttemptID: {},
	FieldSessionID: {},
	FieldProcess:   {},
}

// selectInfoFields returns formatted info-level fields and a count of hidden
// entries. limit=0 means no limit.
func selectInfoFields(attrs []kv, limit int) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0
	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if _, skip := skipInfoKeys[attr.key]; skip {
			return
		}
		if limit > 0 && len(result) >= limit {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: formatInfoValue(attr.value)})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result, hidden
}

func formatInfoValue(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	return attrString(v)
}

// displayLabel turns snake_case keys into "Snake case" labels.
func displayLabel(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return key
	}
	label := strings.ReplaceAll(key, "_", " ")
	label = strings.ReplaceAll(label, ".", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}
