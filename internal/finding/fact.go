package finding

import (
	"fmt"
	"time"
)

// ResourceFact is an immutable snapshot of one cloud resource as produced by a collector.
type ResourceFact struct {
	Service    Service    `json:"service"`
	Type       string     `json:"type"`
	ResourceID string     `json:"resource_id"`
	Region     string     `json:"region"`
	Attrs      Attributes `json:"attributes,omitempty"`
}

// Attributes is the adapter-defined attribute bag of a fact.
// Accessors return an error when a key is missing or holds the wrong type so that
// predicates can surface malformed facts instead of guessing.
type Attributes map[string]any

// Has reports whether key is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Float returns a numeric attribute as float64.
func (a Attributes) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, missing(key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, mistyped(key, "number", v)
	}
}

// Int returns a numeric attribute as int.
func (a Attributes) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, missing(key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, mistyped(key, "integer", v)
	}
}

// String returns a string attribute.
func (a Attributes) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", mistyped(key, "string", v)
	}
	return s, nil
}

// StringOr returns a string attribute or def when absent or mistyped.
func (a Attributes) StringOr(key, def string) string {
	s, err := a.String(key)
	if err != nil {
		return def
	}
	return s
}

// Bool returns a boolean attribute.
func (a Attributes) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok {
		return false, missing(key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, mistyped(key, "bool", v)
	}
	return b, nil
}

// Strings returns a string slice attribute. A missing key yields an empty slice.
func (a Attributes) Strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	s, ok := v.([]string)
	if !ok {
		return nil, mistyped(key, "[]string", v)
	}
	return s, nil
}

// StringMap returns a map attribute such as tags. A missing key yields a nil map.
func (a Attributes) StringMap(key string) (map[string]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[string]string)
	if !ok {
		return nil, mistyped(key, "map[string]string", v)
	}
	return m, nil
}

// Time returns a timestamp attribute.
func (a Attributes) Time(key string) (time.Time, error) {
	v, ok := a[key]
	if !ok {
		return time.Time{}, missing(key)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, mistyped(key, "time", v)
	}
	return t, nil
}

func missing(key string) error {
	return fmt.Errorf("attribute %q missing", key)
}

func mistyped(key, want string, got any) error {
	return fmt.Errorf("attribute %q: expected %s, got %T", key, want, got)
}
