package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Kind int

const (
	KindAbsent Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindMap
	KindSeq
)

// Node is a read-only view over a decoded document node. The zero Node is
// "absent" and every accessor tolerates it.
type Node struct {
	n *yaml.Node
}

type Pair struct {
	Key   string
	Value Node
}

// Wrap returns the Node for a raw yaml node, following documents and aliases.
func Wrap(n *yaml.Node) Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return Node{}
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return Node{n: n}
		}
	}
	return Node{}
}

// Raw exposes the underlying yaml node, nil when absent.
func (n Node) Raw() *yaml.Node { return n.n }

func (n Node) Exists() bool { return n.n != nil }

func (n Node) Kind() Kind {
	if n.n == nil {
		return KindAbsent
	}
	switch n.n.Kind {
	case yaml.MappingNode:
		return KindMap
	case yaml.SequenceNode:
		return KindSeq
	case yaml.ScalarNode:
		switch n.n.ShortTag() {
		case "!!null":
			return KindNull
		case "!!bool":
			return KindBool
		case "!!int", "!!float":
			return KindNumber
		default:
			return KindString
		}
	}
	return KindAbsent
}

func (n Node) IsMap() bool { return n.Kind() == KindMap }
func (n Node) IsSeq() bool { return n.Kind() == KindSeq }

// Get looks up a mapping key. The last duplicate wins, matching how the
// document would decode into a plain map.
func (n Node) Get(key string) (Node, bool) {
	if n.n == nil || n.n.Kind != yaml.MappingNode {
		return Node{}, false
	}
	var found Node
	ok := false
	for i := 0; i+1 < len(n.n.Content); i += 2 {
		if n.n.Content[i].Value == key {
			found = Wrap(n.n.Content[i+1])
			ok = true
		}
	}
	return found, ok
}

// Field is Get without the presence flag.
func (n Node) Field(key string) Node {
	v, _ := n.Get(key)
	return v
}

func (n Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

func (n Node) Index(i int) (Node, bool) {
	if n.n == nil || n.n.Kind != yaml.SequenceNode || i < 0 || i >= len(n.n.Content) {
		return Node{}, false
	}
	return Wrap(n.n.Content[i]), true
}

// Len is the number of entries of a mapping or sequence, zero otherwise.
func (n Node) Len() int {
	if n.n == nil {
		return 0
	}
	switch n.n.Kind {
	case yaml.MappingNode:
		return len(n.n.Content) / 2
	case yaml.SequenceNode:
		return len(n.n.Content)
	}
	return 0
}

func (n Node) Items() []Node {
	if n.n == nil || n.n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]Node, 0, len(n.n.Content))
	for _, c := range n.n.Content {
		out = append(out, Wrap(c))
	}
	return out
}

// Pairs lists mapping entries in document order.
func (n Node) Pairs() []Pair {
	if n.n == nil || n.n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Pair, 0, len(n.n.Content)/2)
	for i := 0; i+1 < len(n.n.Content); i += 2 {
		out = append(out, Pair{Key: n.n.Content[i].Value, Value: Wrap(n.n.Content[i+1])})
	}
	return out
}

// String returns the scalar text, empty for non-scalars and null.
func (n Node) String() string {
	if n.n == nil || n.n.Kind != yaml.ScalarNode || n.n.ShortTag() == "!!null" {
		return ""
	}
	return n.n.Value
}

// Bool reports the boolean value and whether the node is a boolean.
func (n Node) Bool() (bool, bool) {
	if n.Kind() != KindBool {
		return false, false
	}
	var b bool
	if err := n.n.Decode(&b); err != nil {
		return false, false
	}
	return b, true
}

// StringList collects the scalar items of a sequence.
func (n Node) StringList() []string {
	var out []string
	for _, it := range n.Items() {
		if it.n.Kind == yaml.ScalarNode {
			out = append(out, it.String())
		}
	}
	return out
}

// Keys lists mapping keys in document order.
func (n Node) Keys() []string {
	pairs := n.Pairs()
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Key)
	}
	return out
}

// MarshalJSON renders the node as JSON, keeping mapping order and scalar types.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON is MarshalJSON for callers rendering text; failures render as null.
func (n Node) JSON() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(b)
}

func (n Node) writeJSON(buf *bytes.Buffer) error {
	switch n.Kind() {
	case KindAbsent, KindNull:
		buf.WriteString("null")
	case KindMap:
		buf.WriteByte('{')
		for i, p := range n.Pairs() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, p.Key)
			buf.WriteByte(':')
			if err := p.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindSeq:
		buf.WriteByte('[')
		for i, it := range n.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindBool:
		b, _ := n.Bool()
		buf.WriteString(strconv.FormatBool(b))
	case KindNumber:
		if json.Valid([]byte(n.n.Value)) {
			buf.WriteString(n.n.Value)
			return nil
		}
		var v any
		if err := n.n.Decode(&v); err != nil {
			return fmt.Errorf("decode number %q: %w", n.n.Value, err)
		}
		// JSON has no infinities or NaN; keep the source spelling.
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			writeString(buf, n.n.Value)
			return nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode number %q: %w", n.n.Value, err)
		}
		buf.Write(b)
	default:
		writeString(buf, n.n.Value)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encode always succeeds for strings; drop the trailing newline.
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}
