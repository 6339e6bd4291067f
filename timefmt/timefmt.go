// Package timefmt converts job timestamps and durations to and from
// their wire representations.
//
// Writes always emit one canonical extended ISO-8601 form. Reads also
// accept raw epoch milliseconds, the format records used before the
// canonical form was adopted, so callers never need to know which era
// wrote a given record.
package timefmt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hako/durafmt"
)

// Layout is the canonical wire form: extended ISO-8601 with
// millisecond precision and an explicit offset.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// ParseError reports timestamp text that is not valid ISO-8601.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports a timestamp field holding neither a string nor
// an integer.
type SchemaError struct {
	Value string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("timestamp must be an ISO-8601 string or epoch milliseconds, got %s", e.Value)
}

// Write renders t in the canonical form. There is no failure path;
// every valid time is representable.
func Write(t time.Time) string {
	return t.Format(Layout)
}

// Read parses a raw JSON timestamp value. Strings are parsed as
// ISO-8601, integers as legacy epoch milliseconds; any other shape
// fails with a SchemaError.
func Read(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, &SchemaError{Value: "nothing"}
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, &SchemaError{Value: string(raw)}
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, &ParseError{Value: s, Err: err}
		}
		return t, nil
	case c == '-' || (c >= '0' && c <= '9'):
		var ms int64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return time.Time{}, &SchemaError{Value: string(raw)}
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, &SchemaError{Value: string(raw)}
	}
}

// WriteDuration renders d in words ("2 hours 3 minutes"). Negative
// spans keep their sign. Write-only; nothing reads these back.
func WriteDuration(d time.Duration) string {
	if d < 0 {
		return "-" + durafmt.Parse(-d).String()
	}
	return durafmt.Parse(d).String()
}
