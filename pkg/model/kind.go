package model

import "strings"

// FieldKind is the closed set of field variants the codec understands.
type FieldKind string

const (
	KindScalar              FieldKind = "scalar"
	KindChoice              FieldKind = "choice"
	KindContentReference    FieldKind = "content_reference"
	KindTaxonomyReference   FieldKind = "taxonomy_reference"
	KindGenericRelationship FieldKind = "generic_relationship"
	KindRepeatingGroup      FieldKind = "repeating_group"

	// Presentation-only kinds. They carry no value and are filtered out by
	// the schema accessor.
	KindTab     FieldKind = "tab"
	KindMessage FieldKind = "message"
)

// Kinds lists every value-carrying kind in a stable order.
func Kinds() []FieldKind {
	return []FieldKind{
		KindScalar,
		KindChoice,
		KindContentReference,
		KindTaxonomyReference,
		KindGenericRelationship,
		KindRepeatingGroup,
	}
}

// Valid reports whether k is one of the declared kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindScalar, KindChoice, KindContentReference, KindTaxonomyReference,
		KindGenericRelationship, KindRepeatingGroup, KindTab, KindMessage:
		return true
	default:
		return false
	}
}

// Presentational reports whether the kind is a layout separator.
func (k FieldKind) Presentational() bool {
	return k == KindTab || k == KindMessage
}

// Reference reports whether the kind points at other entities.
func (k FieldKind) Reference() bool {
	switch k {
	case KindContentReference, KindTaxonomyReference, KindGenericRelationship:
		return true
	default:
		return false
	}
}

// ParseKind normalises a configured kind name. Hyphens, spaces and case are
// ignored so "Content-Reference" and "content_reference" are equivalent.
func ParseKind(raw string) (FieldKind, bool) {
	normalised := strings.ToLower(strings.TrimSpace(raw))
	normalised = strings.NewReplacer("-", "_", " ", "_").Replace(normalised)
	if normalised == "" {
		return "", false
	}
	kind := FieldKind(normalised)
	if !kind.Valid() {
		return "", false
	}
	return kind, true
}

// Host field types that point at other entities.
var relationshipTypes = map[string]struct{}{
	"page_link":    {},
	"post_object":  {},
	"relationship": {},
	"taxonomy":     {},
	"user":         {},
}

var choiceTypes = map[string]struct{}{
	"select":       {},
	"checkbox":     {},
	"radio":        {},
	"button_group": {},
}

// IsRelationshipType reports whether the host field type references other
// entities (content items, terms or users).
func IsRelationshipType(fieldType string) bool {
	_, ok := relationshipTypes[strings.ToLower(strings.TrimSpace(fieldType))]
	return ok
}

// ResolveKind returns the definition's kind, deriving it from the host type
// when it was not set explicitly. Among relationship types, target content
// types take precedence over a target taxonomy.
func ResolveKind(def FieldDefinition) FieldKind {
	if def.Kind != "" {
		return def.Kind
	}

	fieldType := strings.ToLower(strings.TrimSpace(def.Type))
	switch fieldType {
	case "repeater":
		return KindRepeatingGroup
	case "tab":
		return KindTab
	case "message":
		return KindMessage
	}

	if IsRelationshipType(fieldType) {
		switch {
		case len(def.TargetContentTypes) > 0:
			return KindContentReference
		case def.TargetTaxonomy != "":
			return KindTaxonomyReference
		default:
			return KindGenericRelationship
		}
	}

	if _, ok := choiceTypes[fieldType]; ok {
		return KindChoice
	}
	if len(def.Choices) > 0 {
		return KindChoice
	}
	return KindScalar
}
