package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Timestamp is written as unix milliseconds and read from either unix
// milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to millisecond precision.
func Now() Timestamp {
	return Timestamp{time.Now().Truncate(time.Millisecond)}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return t.set(raw)
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.UnixMilli(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!int" || node.Tag == "!!float" {
		ms, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return err
		}
		t.Time = time.UnixMilli(int64(ms))
		return nil
	}
	return t.set(node.Value)
}

// ParseTimestamp accepts the values found in stored notes: a number of
// milliseconds, a numeric string, or an RFC 3339 string.
func ParseTimestamp(raw any) (Timestamp, error) {
	var t Timestamp
	err := t.set(raw)
	return t, err
}

func (t *Timestamp) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		t.Time = time.Time{}
	case float64:
		t.Time = time.UnixMilli(int64(v))
	case int:
		t.Time = time.UnixMilli(int64(v))
	case int64:
		t.Time = time.UnixMilli(v)
	case time.Time:
		t.Time = v
	case string:
		if v == "" {
			t.Time = time.Time{}
			return nil
		}
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("models: invalid timestamp %q: %w", v, err)
		}
		t.Time = parsed
	default:
		return fmt.Errorf("models: invalid timestamp type %T", raw)
	}
	return nil
}
