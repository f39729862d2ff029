// Package record provides the open attribute bag that flows through search,
// sorting and import. Values are untyped at this layer; their meaning comes
// from the field schema that produced or describes them.
package record

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// Map is an insertion-ordered map from attribute key to value.
// K is usually plain string; schema-derived key types can be used to keep
// call sites honest about which attributes they touch.
type Map[K ~string] struct {
	keys   []K
	values map[K]any
}

// Record is one data row keyed by attribute name.
type Record = Map[string]

// New returns an empty map.
func New[K ~string]() *Map[K] {
	return &Map[K]{values: make(map[K]any)}
}

// FromMap builds a record from m. Keys listed in order come first, in that
// order; remaining keys follow in sorted order so the result is deterministic.
func FromMap(m map[string]any, order ...string) *Record {
	r := New[string]()
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !r.Has(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// Set assigns v to k. A new key is appended to the key order; an existing key
// keeps its position. Returns the map for chaining.
func (m *Map[K]) Set(k K, v any) *Map[K] {
	if m.values == nil {
		m.values = make(map[K]any)
	}
	if _, exists := m.values[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
	return m
}

// Get returns the value for k and whether the key is present.
// A present key may still hold nil.
func (m *Map[K]) Get(k K) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[k]
	return v, ok
}

// Value returns the value for k, or nil when absent.
func (m *Map[K]) Value(k K) any {
	v, _ := m.Get(k)
	return v
}

// Has reports whether k is present.
func (m *Map[K]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Delete removes k, preserving the order of the remaining keys.
func (m *Map[K]) Delete(k K) {
	if m == nil || m.values == nil {
		return
	}
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (m *Map[K]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map[K]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map[K]) Range(fn func(k K, v any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy.
func (m *Map[K]) Clone() *Map[K] {
	out := New[K]()
	m.Range(func(k K, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// MarshalJSON writes the map as a JSON object in insertion order.
func (m *Map[K]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", string(k), err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order. Nested objects
// become *Record values and numbers are kept as json.Number.
func (m *Map[K]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[K]any)
	if err := decodeObject(dec, func(k string, v any) { m.Set(K(k), v) }); err != nil {
		return err
	}
	return nil
}

// decodeObject consumes object members up to and including the closing brace.
func decodeObject(dec *json.Decoder, set func(string, any)) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return err
		}
		set(key, v)
	}
	_, err := dec.Token() // '}'
	return err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			nested := New[string]()
			if err := decodeObject(dec, func(k string, v any) { nested.Set(k, v) }); err != nil {
				return nil, err
			}
			return nested, nil
		case '[':
			list := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("record: unexpected delimiter %v", t)
	default:
		return t, nil
	}
}

// String renders a value the way search and fallback comparison see it.
// nil renders as the empty string; structured values render as JSON.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case *Record:
		b, err := x.MarshalJSON()
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case fmt.Stringer:
		return x.String()
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// IsStructured reports whether v is an object-like value: a record, a map,
// a slice/array (other than []byte) or a struct other than time.Time.
func IsStructured(v any) bool {
	switch v.(type) {
	case nil, string, []byte, time.Time:
		return false
	case *Record:
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
