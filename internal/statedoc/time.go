package statedoc

import (
	"errors"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

var fallbackLayouts = []string{
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// timeNow is replaced in tests to pin generated timestamps.
var timeNow = time.Now

func nowStamp() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// ParseTimestamp accepts the ISO-8601 variants people and tools write by
// hand: RFC3339 with or without zone, fractional seconds, space separators,
// and bare dates.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if dt, err := strfmt.ParseDateTime(raw); err == nil {
		return time.Time(dt), nil
	}
	var err error
	for _, layout := range fallbackLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ValidTimestamp reports whether raw parses as a timestamp.
func ValidTimestamp(raw string) bool {
	_, err := ParseTimestamp(raw)
	return err == nil
}
