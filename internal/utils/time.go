package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayouts are tried in order when parsing client timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time is a timestamp accepted from clients either as RFC 3339 or as a bare
// date (YYYY-MM-DD, midnight UTC). Values without a zone are read as UTC.
//
// It decodes from JSON bodies and from query parameters bound by gin.
type Time struct {
	time.Time
}

// ParseTime parses s using the accepted layouts and returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid time: expected a string")
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// UnmarshalParam implements gin's binding.BindUnmarshaler for query strings.
func (t *Time) UnmarshalParam(param string) error {
	v, err := ParseTime(param)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// MarshalJSON renders the timestamp as RFC 3339 in UTC.
func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// Ptr returns a pointer to the UTC instant, or nil when t is nil.
func (t *Time) Ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
