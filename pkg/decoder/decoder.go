// Package decoder flattens a posted field tree into the update list a value
// store persists.
//
// Classification is structural: the decoder looks at the posted shape, not
// at the field definitions. A posted field is treated as a repeating group
// when either
//
//   - one of its rows holds a sub-field that itself has "fields" (a repeater
//     containing repeaters), or
//   - at least one row is a collection and every sub-field of every row
//     carries a non-empty "value".
//
// Anything else is a plain field whose "value" is emitted as is. A repeater
// row with an empty sub-field value therefore falls back to the plain-field
// path; callers that need schema-accurate decoding must validate against the
// registry themselves.
package decoder

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/posted"
)

const (
	keyKey    = "key"
	keyValue  = "value"
	keyFields = "fields"

	// PayloadKey is the request member holding the posted groups.
	PayloadKey = "advanced"
)

// Flatten walks the posted groups (an array or an index-keyed object of
// groups) and returns one update per posted field in posted order.
func Flatten(groups posted.Node) []model.Update {
	var nodes []posted.Node
	for _, entry := range groups.Entries() {
		nodes = append(nodes, entry.Node)
	}
	return FlattenGroups(nodes)
}

// FlattenGroups is Flatten over an already split list of groups.
func FlattenGroups(groups []posted.Node) []model.Update {
	updates := []model.Update{}
	for _, group := range groups {
		fields, ok := group.Get(keyFields)
		if !ok {
			continue
		}
		for _, entry := range fields.Entries() {
			updates = append(updates, flattenField(entry.Node))
		}
	}
	return updates
}

// FlattenJSON parses a request body and flattens it. The body may be the
// bare list of groups or an object holding them under "advanced".
func FlattenJSON(data []byte) ([]model.Update, error) {
	root, err := posted.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	groups := root
	if root.Kind() == posted.KindObject {
		advanced, ok := root.Get(PayloadKey)
		if !ok {
			return nil, errors.New("decoder: payload has no \"advanced\" member")
		}
		groups = advanced
	}
	if !groups.IsCollection() {
		return nil, errors.New("decoder: posted groups must be an array or object")
	}
	return Flatten(groups), nil
}

func flattenField(field posted.Node) model.Update {
	key := stringAt(field, keyKey)

	if isNestedRepeater(field) || isRepeaterWithValues(field) {
		rows, _ := field.Get(keyFields)
		return model.Update{Key: key, Value: collectSubFields(rows)}
	}

	var value any
	if raw, ok := field.Get(keyValue); ok {
		value = raw.Interface()
	}
	return model.Update{Key: key, Value: value}
}

// isNestedRepeater reports whether any row holds a sub-field with its own
// "fields" member.
func isNestedRepeater(field posted.Node) bool {
	rows, ok := field.Get(keyFields)
	if !ok || !rows.IsCollection() {
		return false
	}
	for _, row := range rows.Entries() {
		if !row.Node.IsCollection() {
			continue
		}
		for _, sub := range row.Node.Entries() {
			if sub.Node.Has(keyFields) {
				return true
			}
		}
	}
	return false
}

// isRepeaterWithValues reports whether at least one row is a collection and
// every sub-field of every row carries a non-empty value.
func isRepeaterWithValues(field posted.Node) bool {
	rows, ok := field.Get(keyFields)
	if !ok || !rows.IsCollection() {
		return false
	}

	sawCollection := false
	for _, row := range rows.Entries() {
		if !row.Node.IsCollection() {
			continue
		}
		sawCollection = true
		for _, sub := range row.Node.Entries() {
			value, ok := sub.Node.Get(keyValue)
			if !ok || value.Empty() {
				return false
			}
		}
	}
	return sawCollection
}

// collectSubFields turns the posted rows of a repeating group into Rows,
// recursing into sub-fields that carry their own rows. Sub-fields without a
// key cannot be addressed and are skipped.
func collectSubFields(rows posted.Node) model.Rows {
	out := model.Rows{}
	for _, row := range rows.Entries() {
		if !row.Node.IsCollection() {
			continue
		}
		collected := model.Row{Index: row.Key, Fields: map[string]any{}}
		for _, sub := range row.Node.Entries() {
			subKey := stringAt(sub.Node, keyKey)
			if subKey == "" {
				continue
			}
			if nested, ok := sub.Node.Get(keyFields); ok && nested.IsCollection() {
				collected.Fields[subKey] = collectSubFields(nested)
				continue
			}
			var value any
			if raw, ok := sub.Node.Get(keyValue); ok {
				value = raw.Interface()
			}
			collected.Fields[subKey] = value
		}
		out = append(out, collected)
	}
	return out
}

func stringAt(node posted.Node, key string) string {
	child, ok := node.Get(key)
	if !ok {
		return ""
	}
	return child.String()
}
