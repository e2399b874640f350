package imaging

import (
	"encoding/json"
	"math"
)

// Spec is a transform configuration. It is stored verbatim next to each
// generated variant and compared against the declared spec to decide whether
// the variant is stale, so it must stay JSON-compatible.
type Spec map[string]any

// Int returns the integer value of key, accepting any JSON number form.
// Missing or non-numeric values yield 0.
func (s Spec) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(math.Round(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return int(math.Round(f))
	}
	return 0
}

// Bool returns the boolean value of key, false when missing.
func (s Spec) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// String returns the string value of key, "" when missing.
func (s Spec) String(key string) string {
	str, _ := s[key].(string)
	return str
}
