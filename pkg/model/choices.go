package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Choice is one selectable option of a choice field.
type Choice struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Choices is an ordered set of options. It serialises as a JSON object whose
// keys keep declaration order, e.g. {"red":"Red","blue":"Blue"}.
type Choices []Choice

// Clone returns a copy of the slice.
func (c Choices) Clone() Choices {
	if c == nil {
		return nil
	}
	return append(Choices(nil), c...)
}

// Label returns the label registered for value.
func (c Choices) Label(value string) (string, bool) {
	for _, choice := range c {
		if choice.Value == value {
			return choice.Label, true
		}
	}
	return "", false
}

// MarshalJSON writes the choices as an order-preserving object.
func (c Choices) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, choice := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(choice.Value)
		if err != nil {
			return nil, err
		}
		label, err := json.Marshal(choice.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(label)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either an object (value -> label, order preserved) or
// an array of {"value","label"} entries.
func (c *Choices) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}

	if trimmed[0] == '[' {
		var list []Choice
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("model: decode choices: %w", err)
		}
		*c = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("model: decode choices: %w", err)
	}
	out := Choices{}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return fmt.Errorf("model: decode choices: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("model: decode choices: unexpected key %v", keyToken)
		}
		var label any
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("model: decode choice %q: %w", key, err)
		}
		out = append(out, Choice{Value: key, Label: labelString(label)})
	}
	*c = out
	return nil
}

// UnmarshalYAML accepts a mapping (order preserved) or a sequence of
// {value, label} entries.
func (c *Choices) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Choices, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, Choice{
				Value: node.Content[i].Value,
				Label: node.Content[i+1].Value,
			})
		}
		*c = out
		return nil
	case yaml.SequenceNode:
		var list []Choice
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("model: decode choices: %w", err)
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("model: decode choices: unsupported yaml node at line %d", node.Line)
	}
}

func labelString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
