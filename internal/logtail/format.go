package logtail

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time    time.Time
	Level   string // upper case, e.g. INFO
	Message string
	Fields  []Field
}

// Field is a key/value pair outside the standard keys.
type Field struct {
	Key   string
	Value string
}

// Keys rendered separately or dropped from the compact form.
var reservedKeys = map[string]bool{
	"ts": true, "level": true, "msg": true,
	"caller": true, "stacktrace": true, "logger": true, "service": true,
}

// Parse decodes a zap JSON line. It reports false for anything else.
func Parse(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Entry{}, false
	}

	e := Entry{
		Time:    parseTime(raw["ts"]),
		Level:   strings.ToUpper(asString(raw["level"])),
		Message: asString(raw["msg"]),
	}
	for k, v := range raw {
		if reservedKeys[k] {
			continue
		}
		e.Fields = append(e.Fields, Field{Key: k, Value: asString(v)})
	}
	sort.Slice(e.Fields, func(i, j int) bool { return e.Fields[i].Key < e.Fields[j].Key })
	return e, true
}

// String renders the entry as "15:04:05 LEVEL message key=value".
func (e Entry) String() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		b.WriteString(e.Level)
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)
	for _, f := range e.Fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		if strings.ContainsAny(f.Value, " \t\"") {
			b.WriteString(strconv.Quote(f.Value))
		} else {
			b.WriteString(f.Value)
		}
	}
	return b.String()
}

// FormatLine renders a zap JSON line in compact form. Lines that are not
// JSON are returned unchanged.
func FormatLine(line string) string {
	e, ok := Parse(line)
	if !ok {
		return line
	}
	return e.String()
}

// FormatLines applies FormatLine to each line.
func FormatLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = FormatLine(line)
	}
	return out
}

func parseTime(v any) time.Time {
	switch ts := v.(type) {
	case string:
		for _, layout := range []string{"2006-01-02T15:04:05.000Z0700", time.RFC3339Nano} {
			if t, err := time.Parse(layout, ts); err == nil {
				return t
			}
		}
	case float64:
		sec := int64(ts)
		return time.Unix(sec, int64((ts-float64(sec))*1e9))
	}
	return time.Time{}
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
