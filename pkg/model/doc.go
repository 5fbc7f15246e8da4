// Package model defines the types shared by the field tree codec: field
// definitions supplied by a registry, the stored values snapshot supplied by a
// value store, the response tree produced by the encoder and the flattened
// update list produced by the decoder.
//
// Field definitions are read-only to the codec. A FieldDefinition carries a
// closed FieldKind; presentation-only kinds (tab, message) never reach the
// encoder or decoder because the schema accessor filters them out. When a
// definition omits its kind, ResolveKind derives it from the host field type
// and the reference targets it declares.
//
// The response tree serialises to the wire shape
//
//	[{"title": "...", "fields": [{"name": "...", "label": "...", "value": ...}]}]
//
// with `choices` on choice fields, `relationship` on reference fields and
// `fields` (rows of nodes) replacing `value` on repeating groups. Key order is
// fixed so fixtures can be compared byte for byte.
package model
