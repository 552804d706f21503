package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is a string map that remembers insertion order. The order is kept
// through JSON encoding so rendered chunks stay byte-identical across runs.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds metadata from alternating key/value pairs.
func NewMetadata(kv ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value for key or the empty string.
func (m Metadata) Value(key string) string { return m.values[key] }

func (m Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m Metadata) Len() int { return len(m.keys) }

func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Map returns an unordered copy.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.keys))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

func (m Metadata) Clone() Metadata {
	var c Metadata
	for _, k := range m.keys {
		c.Set(k, m.values[k])
	}
	return c
}

// Merge returns m with every key of over applied on top; keys new to m are
// appended in over's order.
func (m Metadata) Merge(over Metadata) Metadata {
	out := m.Clone()
	for _, k := range over.keys {
		out.Set(k, over.values[k])
	}
	return out
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = Metadata{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}
	var out Metadata
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("metadata: expected string key, got %v", kt)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch v := raw.(type) {
		case string:
			out.Set(key, v)
		case nil:
			out.Set(key, "")
		default:
			out.Set(key, fmt.Sprint(v))
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
