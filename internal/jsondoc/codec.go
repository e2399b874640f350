package jsondoc

import (
	"encoding/json"
	"reflect"

	"github.com/rs/zerolog/log"
)

// Document is a decoded JSON object. Values are JSON-compatible Go values:
// string, float64, bool, nil, []any and map[string]any.
type Document map[string]any

// Encode serializes v as JSON. Map keys are emitted in sorted order and
// time.Time values use their RFC 3339 text form, so the output is stable
// for equal inputs.
func Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses text into a Document. It never fails: malformed input is
// logged and yields nil. A payload that decodes to a JSON string is decoded
// once more to tolerate rows written by double-encoding clients.
func Decode(text string) Document {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		log.Warn().Err(err).Str("component", "jsondoc").Msg("json document decode failed")
		return nil
	}

	if s, ok := v.(string); ok {
		log.Warn().Str("component", "jsondoc").Str("input", text).
			Msg("json document decode: expected object, got string")
		v = nil
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			log.Warn().Err(err).Str("component", "jsondoc").Msg("json document decode failed")
			return nil
		}
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return Document(m)
}

// Normalize returns v as it would look after a trip through the database:
// encoded, then decoded into plain JSON values.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Equal reports whether a and b hold the same JSON value. Both sides are
// normalized first, so an int declared in code equals the float64 read back
// from storage. Values that cannot be encoded are never equal.
func Equal(a, b any) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}
