package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/schema"
)

// Target resolves the top-level field a posted key writes to.
func Target(lookup schema.Lookup, key string) (schema.Located, error) {
	loc, ok := lookup.ByKey(key)
	if !ok {
		return schema.Located{}, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return loc, nil
}

// StorageValue converts a flattened update value into the shape stores keep
// under def's name. Repeating-group rows become a list of maps keyed by
// sub-field name; sub-field keys the definition does not declare are dropped.
// Every other value is stored as posted.
func StorageValue(def model.FieldDefinition, value any) any {
	rows, ok := value.(model.Rows)
	if !ok {
		return value
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		stored := make(map[string]any, len(row.Fields))
		for key, raw := range row.Fields {
			sub, ok := def.SubField(key)
			if !ok {
				continue
			}
			stored[sub.Name] = StorageValue(sub, raw)
		}
		out = append(out, stored)
	}
	return out
}

// Populated reports whether a stored value counts towards its group being
// populated.
func Populated(value any) bool {
	if value == nil {
		return false
	}
	if b, ok := value.(bool); ok && !b {
		return false
	}
	return true
}

// PopulatedGroups derives the populated group ids from a value snapshot.
// Names no registered field owns are ignored. The result is sorted.
func PopulatedGroups(lookup schema.Lookup, values model.StoredValues) []string {
	seen := map[string]struct{}{}
	for name, value := range values {
		if !Populated(value) {
			continue
		}
		for _, groupID := range lookup.Groups(name) {
			seen[groupID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for groupID := range seen {
		out = append(out, groupID)
	}
	sort.Strings(out)
	return out
}

// Formatter shapes stored reference values per return format: object
// formats replace identifiers with items or terms from the content source,
// id formats leave them untouched.
type Formatter struct {
	content ContentSource
}

// NewFormatter returns a Formatter backed by content. A nil source disables
// formatting.
func NewFormatter(content ContentSource) *Formatter {
	return &Formatter{content: content}
}

// Format returns a copy of values with reference fields formatted. Missing
// referenced items are dropped.
func (f *Formatter) Format(ctx context.Context, lookup schema.Lookup, values model.StoredValues) (model.StoredValues, error) {
	out := make(model.StoredValues, len(values))
	for name, value := range values {
		loc, ok := lookup.ByName(name)
		if !ok || f == nil || f.content == nil {
			out[name] = value
			continue
		}
		formatted, err := f.formatValue(ctx, loc.Definition, value)
		if err != nil {
			return nil, fmt.Errorf("store: format %q: %w", name, err)
		}
		out[name] = formatted
	}
	return out, nil
}

func (f *Formatter) formatValue(ctx context.Context, def model.FieldDefinition, value any) (any, error) {
	switch def.EffectiveKind() {
	case model.KindContentReference, model.KindTaxonomyReference:
		if def.EffectiveReturnFormat() != model.ReturnObject {
			return value, nil
		}
		return f.resolveReferences(ctx, def.EffectiveKind(), value)
	case model.KindRepeatingGroup:
		if len(def.SubFields) == 0 {
			return value, nil
		}
		return f.formatRows(ctx, def, value)
	default:
		return value, nil
	}
}

func (f *Formatter) formatRows(ctx context.Context, def model.FieldDefinition, value any) (any, error) {
	var rows []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		rows = v
	case []any:
		rows = make([]map[string]any, 0, len(v))
		for _, element := range v {
			row, ok := element.(map[string]any)
			if !ok {
				return value, nil
			}
			rows = append(rows, row)
		}
	default:
		return value, nil
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		formatted := make(map[string]any, len(row))
		for name, raw := range row {
			sub, ok := subFieldByName(def, name)
			if !ok {
				formatted[name] = raw
				continue
			}
			next, err := f.formatValue(ctx, sub, raw)
			if err != nil {
				return nil, err
			}
			formatted[name] = next
		}
		out[i] = formatted
	}
	return out, nil
}

func (f *Formatter) resolveReferences(ctx context.Context, kind model.FieldKind, value any) (any, error) {
	if list, ok := value.([]any); ok {
		out := make([]any, 0, len(list))
		for _, element := range list {
			id, ok := ParseID(element)
			if !ok {
				out = append(out, element)
				continue
			}
			resolved, found, err := f.lookup(ctx, kind, id)
			if err != nil {
				return nil, err
			}
			if found {
				out = append(out, resolved)
			}
		}
		return out, nil
	}
	if ids, ok := value.([]int64); ok {
		list := make([]any, len(ids))
		for i, id := range ids {
			list[i] = id
		}
		return f.resolveReferences(ctx, kind, list)
	}

	id, ok := ParseID(value)
	if !ok {
		return value, nil
	}
	resolved, found, err := f.lookup(ctx, kind, id)
	if err != nil || !found {
		return nil, err
	}
	return resolved, nil
}

func (f *Formatter) lookup(ctx context.Context, kind model.FieldKind, id int64) (any, bool, error) {
	var (
		resolved any
		err      error
	)
	if kind == model.KindTaxonomyReference {
		resolved, err = f.content.Term(ctx, id)
	} else {
		resolved, err = f.content.Item(ctx, id)
	}
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return resolved, true, nil
}

func subFieldByName(def model.FieldDefinition, name string) (model.FieldDefinition, bool) {
	for _, sub := range def.SubFields {
		if sub.Name == name {
			return sub, true
		}
	}
	return model.FieldDefinition{}, false
}
