package survey

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean decoded from any of the encodings the backend emits:
// 0/1, "0"/"1", "true"/"false" or a native boolean.
type Flag bool

// ToBool is the single boolean coercion used for every visibility-like value.
// 1, true, "1" and "true" (case-insensitive, trimmed) are true; everything
// else, including the empty string and nil, is false.
func ToBool(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case Flag:
		return bool(b)
	case *Flag:
		return b != nil && bool(*b)
	case string:
		s := strings.ToLower(strings.TrimSpace(b))
		return s == "1" || s == "true"
	case []byte:
		return ToBool(string(b))
	case json.Number:
		return ToBool(string(b))
	case int:
		return b == 1
	case int8:
		return b == 1
	case int16:
		return b == 1
	case int32:
		return b == 1
	case int64:
		return b == 1
	case uint:
		return b == 1
	case uint8:
		return b == 1
	case uint16:
		return b == 1
	case uint32:
		return b == 1
	case uint64:
		return b == 1
	case float32:
		return b == 1
	case float64:
		return b == 1
	}
	return false
}

// NewFlag returns a pointer to a Flag holding v.
func NewFlag(v bool) *Flag {
	f := Flag(v)
	return &f
}

// Bool returns the flag as a plain bool.
func (f Flag) Bool() bool {
	return bool(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Flag(ToBool(v))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*f = false
		return nil
	}
	*f = Flag(ToBool(node.Value))
	return nil
}

// Scan implements sql.Scanner.
func (f *Flag) Scan(src any) error {
	*f = Flag(ToBool(src))
	return nil
}

// Value implements driver.Valuer.
func (f Flag) Value() (driver.Value, error) {
	return bool(f), nil
}
