package httpx

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTime is a UTC timestamp encoded as "yyyy-MM-dd HH:mm:ss" in JSON.
type DateTime struct {
	time.Time
}

// NewDateTime wraps t.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

// NewDateTimePtr wraps an optional t.
func NewDateTimePtr(t *time.Time) *DateTime {
	if t == nil {
		return nil
	}
	value := NewDateTime(*t)
	return &value
}

// MarshalJSON implements json.Marshaler.
func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatDateTime(d.Time))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("datetime must be a string: %w", err)
	}
	parsed, err := ParseDateTime(raw)
	if err != nil {
		return fmt.Errorf("datetime must match %s: %w", DateTimeLayout, err)
	}
	d.Time = parsed
	return nil
}
