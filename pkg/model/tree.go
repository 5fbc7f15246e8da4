package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Tree is the encoded response for one content item: one Group per applicable,
// populated field group in registry order.
type Tree []Group

// Group is a titled list of field nodes.
type Group struct {
	Title  string      `json:"title"`
	Fields []FieldNode `json:"fields"`
}

// FieldNode is one encoded field. Repeating groups set Repeater and carry Rows
// instead of Value; every other node carries Value (an empty string when the
// item stores nothing for the field).
type FieldNode struct {
	Name         string
	Label        string
	Value        any
	Choices      Choices
	Relationship *Relationship
	Rows         [][]FieldNode
	Repeater     bool
}

// Placeholder returns the node emitted for a field without a stored value.
func Placeholder(def FieldDefinition) FieldNode {
	return FieldNode{Name: def.Name, Label: def.Label, Value: ""}
}

// MarshalJSON writes the node keys in a fixed order: name, label, value,
// choices, relationship, fields.
func (n FieldNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("model: encode field %q key %q: %w", n.Name, key, err)
		}
		buf.WriteString(`"` + key + `":`)
		buf.Write(encoded)
		return nil
	}

	if err := write("name", n.Name); err != nil {
		return nil, err
	}
	if err := write("label", n.Label); err != nil {
		return nil, err
	}
	if !n.Repeater {
		if err := write("value", n.Value); err != nil {
			return nil, err
		}
	}
	if len(n.Choices) > 0 {
		if err := write("choices", n.Choices); err != nil {
			return nil, err
		}
	}
	if n.Relationship != nil {
		if err := write("relationship", n.Relationship); err != nil {
			return nil, err
		}
	}
	if n.Repeater {
		rows := n.Rows
		if rows == nil {
			rows = [][]FieldNode{}
		}
		if err := write("fields", rows); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a node written by MarshalJSON. A node with a
// "fields" key and no "value" key is treated as a repeating group. Scalar
// values and lists of scalars decode into generic JSON types with numbers
// kept as json.Number. Values holding objects (item and term summaries) stay
// json.RawMessage so marshalling them again writes the same bytes.
func (n *FieldNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: decode field node: %w", err)
	}

	var out FieldNode
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &out.Name); err != nil {
			return fmt.Errorf("model: decode field name: %w", err)
		}
	}
	if v, ok := raw["label"]; ok {
		if err := json.Unmarshal(v, &out.Label); err != nil {
			return fmt.Errorf("model: decode field %q label: %w", out.Name, err)
		}
	}
	if v, ok := raw["choices"]; ok {
		if err := json.Unmarshal(v, &out.Choices); err != nil {
			return err
		}
	}
	if v, ok := raw["relationship"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		out.Relationship = &Relationship{}
		if err := json.Unmarshal(v, out.Relationship); err != nil {
			return fmt.Errorf("model: decode field %q relationship: %w", out.Name, err)
		}
	}

	value, hasValue := raw["value"]
	rows, hasRows := raw["fields"]
	if hasRows && !hasValue {
		out.Repeater = true
		if err := json.Unmarshal(rows, &out.Rows); err != nil {
			return fmt.Errorf("model: decode field %q rows: %w", out.Name, err)
		}
	} else if hasValue {
		decoded, err := decodeValue(value)
		if err != nil {
			return fmt.Errorf("model: decode field %q value: %w", out.Name, err)
		}
		out.Value = decoded
	}

	*n = out
	return nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	hasObject, err := containsObject(raw)
	if err != nil {
		return nil, err
	}
	if hasObject {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return json.RawMessage(buf.Bytes()), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

func containsObject(raw []byte) (bool, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if token == json.Delim('{') {
			return true, nil
		}
	}
}

// EmbeddedItems returns the ids of referenced items whose own trees are
// embedded under "advanced", at any depth, sorted and without duplicates.
// Only typed summaries are inspected; trees restored from JSON carry their
// summaries as raw bytes.
func (t Tree) EmbeddedItems() []int64 {
	seen := map[int64]struct{}{}
	t.collectEmbedded(seen)
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t Tree) collectEmbedded(seen map[int64]struct{}) {
	for _, group := range t {
		collectNodes(group.Fields, seen)
	}
}

func collectNodes(nodes []FieldNode, seen map[int64]struct{}) {
	for _, node := range nodes {
		for _, row := range node.Rows {
			collectNodes(row, seen)
		}
		switch v := node.Value.(type) {
		case ItemSummary:
			collectSummary(v, seen)
		case *ItemSummary:
			if v != nil {
				collectSummary(*v, seen)
			}
		case []ItemSummary:
			for _, summary := range v {
				collectSummary(summary, seen)
			}
		}
	}
}

func collectSummary(summary ItemSummary, seen map[int64]struct{}) {
	if summary.Advanced == nil {
		return
	}
	seen[summary.ID] = struct{}{}
	summary.Advanced.collectEmbedded(seen)
}
