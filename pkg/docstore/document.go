package docstore

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Document is the decoded form of a stored JSON object. Numbers decode as
// float64.
type Document map[string]any

type serverTimestamp struct{}

// ServerTimestamp is replaced by the backend's commit time when written.
var ServerTimestamp any = serverTimestamp{}

func (d Document) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d[key]
	return ok
}

// String returns the trimmed string value at key. Whole numbers are
// formatted without a fraction.
func (d Document) String(key string) string {
	if d == nil {
		return ""
	}
	return stringValue(d[key])
}

// Lookup resolves a dotted path through nested objects.
func (d Document) Lookup(path string) (any, bool) {
	if d == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = map[string]any(d)
	for _, part := range parts {
		var obj map[string]any
		switch cast := current.(type) {
		case Document:
			obj = cast
		case map[string]any:
			obj = cast
		default:
			return nil, false
		}
		next, ok := obj[part]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// LookupString is Lookup followed by String conversion.
func (d Document) LookupString(path string) string {
	value, ok := d.Lookup(path)
	if !ok {
		return ""
	}
	return stringValue(value)
}

func (d Document) Int64(key string) int64 {
	if d == nil {
		return 0
	}
	switch cast := d[key].(type) {
	case float64:
		return int64(cast)
	case int64:
		return cast
	case int:
		return int64(cast)
	case json.Number:
		n, _ := cast.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(cast), 10, 64)
		return n
	default:
		return 0
	}
}

func (d Document) Time(key string) time.Time {
	raw := d.String(key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func stringValue(value any) string {
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == float64(int64(cast)) {
			return strconv.FormatInt(int64(cast), 10)
		}
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}
