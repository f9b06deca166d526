package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	RunID     int64
	Stage     string
	Episode   string
	Fields    map[string]any
}

var reservedKeys = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "component": {}, "run_id": {}, "stage": {}, "episode": {},
}

// Decode parses a JSON log line. Lines that are not JSON objects report false.
func Decode(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Level:     stringField(raw, "level"),
		Message:   stringField(raw, "msg"),
		Component: stringField(raw, "component"),
		Stage:     stringField(raw, "stage"),
		Episode:   stringField(raw, "episode"),
		Fields:    make(map[string]any),
	}
	if ts := stringField(raw, "ts"); ts != "" {
		entry.Time, _ = time.Parse(time.RFC3339, ts)
	}
	switch id := raw["run_id"].(type) {
	case float64:
		entry.RunID = int64(id)
	case string:
		entry.RunID, _ = strconv.ParseInt(id, 10, 64)
	}
	for key, value := range raw {
		if _, reserved := reservedKeys[key]; !reserved {
			entry.Fields[key] = value
		}
	}
	return entry, true
}

func stringField(raw map[string]any, key string) string {
	value, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return value
}

// Filter narrows entries. Zero values match everything.
type Filter struct {
	RunID    int64
	Episode  string
	MinLevel string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Match reports whether entry passes the filter.
func (f Filter) Match(entry Entry) bool {
	if f.RunID != 0 && entry.RunID != f.RunID {
		return false
	}
	if f.Episode != "" && entry.Episode != f.Episode {
		return false
	}
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		if ok && levelRank[strings.ToLower(entry.Level)] < want {
			return false
		}
	}
	return true
}

// Format renders entry on one line: local time, level, component, message,
// then the remaining fields sorted by key.
func Format(entry Entry) string {
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(entry.Level))
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields)+3)
	for key := range entry.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if entry.RunID != 0 {
		fmt.Fprintf(&b, " run=%d", entry.RunID)
	}
	if entry.Episode != "" {
		fmt.Fprintf(&b, " episode=%s", entry.Episode)
	}
	if entry.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", entry.Stage)
	}
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Fields[key])
	}
	return b.String()
}
