package model

import "strings"

// ReturnFormat controls how a reference field's stored value is presented:
// as resolved objects or as raw identifiers.
type ReturnFormat string

const (
	ReturnObject ReturnFormat = "object"
	ReturnID     ReturnFormat = "id"
)

// FieldDefinition describes one configurable data slot. Definitions are owned
// by the registry and treated as immutable snapshots by the codec.
type FieldDefinition struct {
	Key                string            `json:"key" yaml:"key"`
	Name               string            `json:"name" yaml:"name"`
	Label              string            `json:"label,omitempty" yaml:"label"`
	Type               string            `json:"type,omitempty" yaml:"type"`
	Kind               FieldKind         `json:"kind,omitempty" yaml:"kind"`
	Choices            Choices           `json:"choices,omitempty" yaml:"choices"`
	SubFields          []FieldDefinition `json:"subFields,omitempty" yaml:"subFields"`
	TargetContentTypes []string          `json:"targetContentTypes,omitempty" yaml:"targetContentTypes"`
	TargetTaxonomy     string            `json:"targetTaxonomy,omitempty" yaml:"targetTaxonomy"`
	ReturnFormat       ReturnFormat      `json:"returnFormat,omitempty" yaml:"returnFormat"`
}

// EffectiveKind is shorthand for ResolveKind(d).
func (d FieldDefinition) EffectiveKind() FieldKind {
	return ResolveKind(d)
}

// EffectiveReturnFormat applies the host defaults: objects for content
// references, identifiers for everything else.
func (d FieldDefinition) EffectiveReturnFormat() ReturnFormat {
	switch ReturnFormat(strings.ToLower(string(d.ReturnFormat))) {
	case ReturnObject:
		return ReturnObject
	case ReturnID:
		return ReturnID
	}
	if d.EffectiveKind() == KindContentReference {
		return ReturnObject
	}
	return ReturnID
}

// SubField returns the direct sub-field with the supplied key.
func (d FieldDefinition) SubField(key string) (FieldDefinition, bool) {
	for _, sub := range d.SubFields {
		if sub.Key == key {
			return sub, true
		}
	}
	return FieldDefinition{}, false
}

// Clone returns a deep copy of the definition.
func (d FieldDefinition) Clone() FieldDefinition {
	out := d
	out.Choices = d.Choices.Clone()
	if d.TargetContentTypes != nil {
		out.TargetContentTypes = append([]string(nil), d.TargetContentTypes...)
	}
	if d.SubFields != nil {
		out.SubFields = make([]FieldDefinition, len(d.SubFields))
		for i, sub := range d.SubFields {
			out.SubFields[i] = sub.Clone()
		}
	}
	return out
}

// FieldGroup is a named, conditionally applicable bundle of field
// definitions. ContentTypes holds applicability patterns interpreted by the
// registry adapters; the codec only asks the registry whether a group applies.
type FieldGroup struct {
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title" yaml:"title"`
	ContentTypes []string          `json:"contentTypes,omitempty" yaml:"contentTypes"`
	Fields       []FieldDefinition `json:"fields,omitempty" yaml:"fields"`
}

// Clone returns a deep copy of the group.
func (g FieldGroup) Clone() FieldGroup {
	out := g
	if g.ContentTypes != nil {
		out.ContentTypes = append([]string(nil), g.ContentTypes...)
	}
	if g.Fields != nil {
		out.Fields = make([]FieldDefinition, len(g.Fields))
		for i, field := range g.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// StoredValues is the flat snapshot of an item's stored field values keyed by
// field name. Repeating groups hold a list of nested StoredValues rows.
type StoredValues map[string]any
