package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/datatypes"
)

// TimestampLayout is the only form stored in the timestamp columns. It is
// fixed-width UTC, so text order on the column is time order.
const TimestampLayout = "2006-01-02T15:04:05Z"

// timestampLayouts are the ISO-8601 renderings accepted for query bounds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp in any accepted layout.
// Zone-less values are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not ISO-8601", value)
}

// CheckTimestamp accepts only values already in TimestampLayout,
// e.g. 2025-03-01T14:30:00Z.
func CheckTimestamp(value string) error {
	t, err := time.Parse(TimestampLayout, value)
	if err != nil || t.Format(TimestampLayout) != value {
		return fmt.Errorf("timestamp %q must be UTC in the form %s", value, TimestampLayout)
	}
	return nil
}

// FormatTimestamp renders t in TimestampLayout, dropping sub-second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NormalizeBound converts any ISO-8601 value into an inclusive bound on the
// stored timestamps. Lower bounds round up to the next whole second and upper
// bounds round down, so no stored value outside the requested range matches.
func NormalizeBound(value string, upper bool) (string, error) {
	t, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	t = t.UTC()
	truncated := t.Truncate(time.Second)
	if !upper && truncated.Before(t) {
		truncated = truncated.Add(time.Second)
	}
	return FormatTimestamp(truncated), nil
}

// EncodeJSON marshals v into a JSON column value.
func EncodeJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// MustJSON is EncodeJSON for literals known to marshal.
func MustJSON(v any) datatypes.JSON {
	raw, err := EncodeJSON(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// IsJSONArray reports whether raw is a well-formed JSON array.
func IsJSONArray(raw []byte) bool {
	return gjson.ValidBytes(raw) && gjson.ParseBytes(raw).IsArray()
}

// IsJSONObject reports whether raw is a well-formed JSON object.
func IsJSONObject(raw []byte) bool {
	return gjson.ValidBytes(raw) && gjson.ParseBytes(raw).IsObject()
}
