package types

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"

	"github.com/flowdeck/flowdeck/utils"
)

// Data is the execution context threaded through a run: string keys to
// JSON-serializable values. Handlers must never mutate the Data they
// receive; they Clone it, add their own keys and return the copy.
type Data map[string]any

func (d *Data) Get(key string) (any, bool) {
	v, exists := (*d)[key]
	return v, exists
}

func (d *Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

func (d *Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d *Data) GetBool(key string) (bool, bool) {
	v, exists := d.Get(key)
	return cast.ToBool(v), exists
}

func (d *Data) GetFloat64(key string) (float64, bool) {
	v, exists := d.Get(key)
	return cast.ToFloat64(v), exists
}

func (d *Data) GetData(key string) (Data, bool) {
	v, exists := d.Get(key)
	if !exists {
		return nil, false
	}
	if nested, ok := v.(Data); ok {
		return nested, true
	}
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, false
	}
	return Data(m), true
}

func (d *Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFoundf("key: %s", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Trace(err)
	}
	return json.Unmarshal(b, s)
}

func (d *Data) Set(key string, value any) {
	(*d)[key] = value
}

// Clone makes a shallow copy. Nested values are shared, which is fine as
// long as handlers treat inherited sections as read-only.
func (d Data) Clone() Data {
	return Data(utils.CloneMap(d))
}

// Merge returns d plus every key of other, other winning on conflicts.
// Neither input is touched.
func (d Data) Merge(other Data) Data {
	merged := d.Clone()
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Lookup resolves a dotted path like "http_response.data.value" against
// nested maps. A missing segment returns ("", false) rather than an error;
// template substitution relies on that.
func (d Data) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")

	var current any = map[string]any(d)
	for _, seg := range segments {
		// nested sections are often stored as Data, which cast does not
		// recognize as a string map
		if nested, ok := current.(Data); ok {
			current = map[string]any(nested)
		}
		m, err := cast.ToStringMapE(current)
		if err != nil {
			return nil, false
		}
		v, exists := m[seg]
		if !exists {
			return nil, false
		}
		current = v
	}
	return current, true
}

// LookupString is Lookup rendered to a string; nil resolves to "".
// Non-scalar values are JSON-encoded so templates can splice whole
// sections (e.g. {{http_response.data}}) into a prompt.
func (d Data) LookupString(path string) string {
	v, exists := d.Lookup(path)
	if !exists || v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
