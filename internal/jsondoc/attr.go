package jsondoc

import (
	"database/sql/driver"
	"fmt"
)

// Attr is a JSON document attribute owned by a single entity value.
//
// The stored text is decoded on the first Get and the result is cached, so
// every later Get returns the same map and in-place edits are kept. Set is
// eager and replaces both the raw value and the cache. Attr implements
// sql.Scanner and driver.Valuer so it can be bound directly to a text column;
// Value is the pre-save hook that reflects live edits.
//
// An Attr is not safe for concurrent use.
type Attr struct {
	raw    any // nil, string or Document
	data   Document
	cached bool
}

// Get returns the decoded document, decoding and caching it on first use.
// It returns nil when nothing is stored or the stored text is malformed.
func (a *Attr) Get() Document {
	if !a.cached {
		switch v := a.raw.(type) {
		case Document:
			a.data = v
		case string:
			a.data = Decode(v)
		}
		a.cached = true
	}
	return a.data
}

// Ensure is Get for writers: when no usable document is stored it caches and
// returns a new empty one.
func (a *Attr) Ensure() Document {
	if a.Get() == nil {
		a.data = Document{}
	}
	return a.data
}

// Set assigns doc as both the raw and the cached value.
func (a *Attr) Set(doc Document) {
	a.raw = doc
	a.data = doc
	a.cached = true
}

// Raw returns the value last loaded or assigned, before decoding.
func (a *Attr) Raw() any {
	return a.raw
}

// Scan implements sql.Scanner. The text is kept raw until the next Get.
func (a *Attr) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.raw = nil
	case string:
		a.raw = v
	case []byte:
		a.raw = string(v)
	default:
		return fmt.Errorf("jsondoc: cannot scan %T into Attr", src)
	}
	a.data = nil
	a.cached = false
	return nil
}

// Value implements driver.Valuer. It encodes the cached document when there
// is one and otherwise falls back to the raw value, so text that failed to
// decode is written back untouched.
func (a Attr) Value() (driver.Value, error) {
	if a.cached && a.data != nil {
		return Encode(a.data)
	}
	switch v := a.raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case Document:
		if v == nil {
			return nil, nil
		}
		return Encode(v)
	default:
		return Encode(v)
	}
}

// String returns the column text for the attribute, or "" when empty.
func (a Attr) String() string {
	v, err := a.Value()
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
