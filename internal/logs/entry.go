package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"eraser/internal/logging"
)

// Entry is one decoded log record.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	JobID     string
	Stage     string
	Fields    map[string]any
}

// reserved keys are promoted to Entry fields instead of Fields.
var reserved = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "source": {},
	logging.FieldComponent: {}, logging.FieldJobID: {}, logging.FieldStage: {},
}

// ParseEntry decodes a JSON log line. It reports false for blank or
// malformed lines.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, logging.FieldComponent),
		JobID:     stringField(raw, logging.FieldJobID),
		Stage:     stringField(raw, logging.FieldStage),
	}
	if ts := stringField(raw, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = parsed
		}
	}
	if lvl := stringField(raw, "level"); lvl != "" {
		_ = entry.Level.UnmarshalText([]byte(lvl))
	}
	for key, value := range raw {
		if _, skip := reserved[key]; skip {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]any)
		}
		entry.Fields[key] = value
	}
	return entry, true
}

// Format renders the entry on one line, with extra fields sorted by key.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", e.Level.String())
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.JobID != "" {
		fmt.Fprintf(&b, " job=%s", shortJobID(e.JobID))
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Fields[key])
	}
	return b.String()
}

// Query filters entries. Zero values match everything at info level and above.
type Query struct {
	// JobID matches by prefix so short IDs from `eraser jobs list` work.
	JobID    string
	MinLevel slog.Level
	// Limit keeps only the last N matches; <= 0 keeps all.
	Limit int
}

// Match reports whether e passes the filter.
func (q Query) Match(e Entry) bool {
	if e.Level < q.MinLevel {
		return false
	}
	if id := strings.TrimSpace(q.JobID); id != "" && !strings.HasPrefix(e.JobID, id) {
		return false
	}
	return true
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

func shortJobID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
