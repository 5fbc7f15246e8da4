package posted

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Kind classifies a Node.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindArray
)

// Node is a JSON value whose object keys keep the order they were posted in.
// Numbers are kept as json.Number so identifiers survive unchanged.
type Node struct {
	kind     Kind
	value    any
	keys     []string
	children []Node
}

// Entry is one keyed child of a collection. Array children use their
// position as key.
type Entry struct {
	Key  string
	Node Node
}

// Scalar wraps a string, bool or number.
func Scalar(value any) Node {
	if value == nil {
		return Node{}
	}
	return Node{kind: KindScalar, value: value}
}

// Object builds an object node from entries in the supplied order.
func Object(entries ...Entry) Node {
	node := Node{kind: KindObject}
	for _, entry := range entries {
		node.keys = append(node.keys, entry.Key)
		node.children = append(node.children, entry.Node)
	}
	return node
}

// Array builds an array node.
func Array(items ...Node) Node {
	return Node{kind: KindArray, children: append([]Node{}, items...)}
}

// Field is shorthand for an entry.
func Field(key string, node Node) Entry {
	return Entry{Key: key, Node: node}
}

// FromValue converts plain Go data (as produced by encoding/json) into a
// Node. Map keys are sorted because Go maps carry no order.
func FromValue(value any) Node {
	switch v := value.(type) {
	case nil:
		return Node{}
	case Node:
		return v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		entries := make([]Entry, 0, len(keys))
		for _, key := range keys {
			entries = append(entries, Field(key, FromValue(v[key])))
		}
		return Object(entries...)
	case []any:
		items := make([]Node, 0, len(v))
		for _, item := range v {
			items = append(items, FromValue(item))
		}
		return Array(items...)
	default:
		return Scalar(v)
	}
}

// Parse decodes JSON into a Node.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	node, err := decodeNode(dec)
	if err != nil {
		return Node{}, fmt.Errorf("posted: parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, errors.New("posted: parse: trailing data after document")
	}
	return node, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	node, err := Parse(data)
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// MarshalJSON writes the node back with its original key order.
func (n Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case KindNull:
		return []byte("null"), nil
	case KindScalar:
		return json.Marshal(n.value)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, child := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			encoded, err := child.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(encoded)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodedKey, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			encoded, err := n.children[i].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(encodedKey)
			buf.WriteByte(':')
			buf.Write(encoded)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
}

func decodeNode(dec *json.Decoder) (Node, error) {
	token, err := dec.Token()
	if err != nil {
		return Node{}, err
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			node := Node{kind: KindObject}
			for dec.More() {
				keyToken, err := dec.Token()
				if err != nil {
					return Node{}, err
				}
				key, ok := keyToken.(string)
				if !ok {
					return Node{}, fmt.Errorf("unexpected object key %v", keyToken)
				}
				child, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				node.keys = append(node.keys, key)
				node.children = append(node.children, child)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return node, nil
		case '[':
			node := Node{kind: KindArray, children: []Node{}}
			for dec.More() {
				child, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				node.children = append(node.children, child)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return node, nil
		default:
			return Node{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Node{}, nil
	default:
		return Node{kind: KindScalar, value: t}, nil
	}
}

// Kind reports the node classification.
func (n Node) Kind() Kind { return n.kind }

// IsNull reports whether the node is JSON null or absent.
func (n Node) IsNull() bool { return n.kind == KindNull }

// IsCollection reports whether the node is an object or an array.
func (n Node) IsCollection() bool {
	return n.kind == KindObject || n.kind == KindArray
}

// Len returns the number of children of a collection.
func (n Node) Len() int { return len(n.children) }

// Get returns the child stored under key. Arrays accept decimal indexes.
func (n Node) Get(key string) (Node, bool) {
	switch n.kind {
	case KindObject:
		for i, k := range n.keys {
			if k == key {
				return n.children[i], true
			}
		}
	case KindArray:
		idx, err := strconv.Atoi(key)
		if err == nil && idx >= 0 && idx < len(n.children) {
			return n.children[idx], true
		}
	}
	return Node{}, false
}

// Has reports whether key is present.
func (n Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Entries returns the keyed children of a collection in order.
func (n Node) Entries() []Entry {
	if !n.IsCollection() {
		return nil
	}
	out := make([]Entry, len(n.children))
	for i, child := range n.children {
		key := strconv.Itoa(i)
		if n.kind == KindObject {
			key = n.keys[i]
		}
		out[i] = Entry{Key: key, Node: child}
	}
	return out
}

// String returns the scalar rendered as text. Non-scalars yield "".
func (n Node) String() string {
	if n.kind != KindScalar {
		return ""
	}
	switch v := n.value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Interface converts the node to plain Go values: map[string]any, []any,
// string, bool, json.Number or nil.
func (n Node) Interface() any {
	switch n.kind {
	case KindScalar:
		return n.value
	case KindObject:
		out := make(map[string]any, len(n.children))
		for i, key := range n.keys {
			out[key] = n.children[i].Interface()
		}
		return out
	case KindArray:
		out := make([]any, len(n.children))
		for i, child := range n.children {
			out[i] = child.Interface()
		}
		return out
	default:
		return nil
	}
}

// Empty mirrors the host platform's notion of an empty value: null, false,
// "", "0", numeric zero and empty collections are empty.
func (n Node) Empty() bool {
	switch n.kind {
	case KindNull:
		return true
	case KindObject, KindArray:
		return len(n.children) == 0
	}
	switch v := n.value.(type) {
	case bool:
		return !v
	case string:
		return v == "" || v == "0"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	}
	return false
}
