// Package encoder builds response trees for content items.
//
// The encoder is schema driven: every value-carrying field of every
// applicable, populated group is emitted exactly once, in registry order,
// whether or not the item stores a value for it. Content references are
// expanded into the referenced item's own tree while the traversal policy
// allows, which keeps cyclic reference graphs finite.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/reference"
	"github.com/goliatone/go-fieldtree/pkg/sanitize"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// ErrUnknownKind reports a definition whose kind has no handler.
var ErrUnknownKind = errors.New("encoder: unknown field kind")

// Encoder turns stored values into response trees. It keeps no per-call
// state and is safe for concurrent use.
type Encoder struct {
	schema         *schema.Accessor
	values         store.Reader
	resolver       *reference.Resolver
	sanitizer      sanitize.Sanitizer
	policy         TraversalPolicy
	valueSanitizer ValueSanitizer
	transforms     map[model.FieldKind][]KindTransform
}

// New builds an Encoder reading definitions from registry and values from
// values.
func New(registry schema.Registry, values store.Reader, options ...Option) *Encoder {
	e := &Encoder{
		schema:    schema.NewAccessor(registry),
		values:    values,
		sanitizer: sanitize.NewRichText(),
		policy:    DefaultPolicy(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = reference.New(e.sanitizer)
	}
	if e.valueSanitizer == nil {
		e.valueSanitizer = RichTextValues(e.sanitizer)
	}
	return e
}

// Policy returns the traversal policy in use.
func (e *Encoder) Policy() TraversalPolicy {
	return e.policy
}

// Encode builds the tree for item at depth. Callers encode root items at
// depth 0. Collaborator errors are returned wrapped; the tree is never
// partially returned.
func (e *Encoder) Encode(ctx context.Context, item model.Item, depth int) (model.Tree, error) {
	if ctx == nil {
		return nil, errors.New("encoder: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// one registry snapshot per tree level
	accessor := e.schema.Pinned()
	groups, err := accessor.ApplicableGroups(ctx, item.ContentType)
	if err != nil {
		return nil, fmt.Errorf("encoder: item %d: %w", item.ID, err)
	}
	tree := model.Tree{}
	if len(groups) == 0 {
		return tree, nil
	}

	populated, err := e.values.PopulatedGroups(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("encoder: populated groups of item %d: %w", item.ID, err)
	}
	if len(populated) == 0 {
		return tree, nil
	}
	populatedSet := make(map[string]struct{}, len(populated))
	for _, id := range populated {
		populatedSet[id] = struct{}{}
	}

	values, err := e.values.Values(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("encoder: values of item %d: %w", item.ID, err)
	}

	for _, group := range groups {
		if _, ok := populatedSet[group.ID]; !ok {
			continue
		}
		defs, err := accessor.Fields(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("encoder: item %d: %w", item.ID, err)
		}
		fields := make([]model.FieldNode, 0, len(defs))
		for _, def := range defs {
			node, err := e.encodeField(ctx, def, values, depth)
			if err != nil {
				return nil, fmt.Errorf("encoder: item %d group %q: %w", item.ID, group.ID, err)
			}
			fields = append(fields, node)
		}
		tree = append(tree, model.Group{Title: group.Title, Fields: fields})
	}
	return tree, nil
}

func (e *Encoder) encodeField(ctx context.Context, def model.FieldDefinition, values map[string]any, depth int) (model.FieldNode, error) {
	raw, ok := values[def.Name]
	if !ok {
		return model.Placeholder(def), nil
	}

	node := model.FieldNode{Name: def.Name, Label: def.Label}
	kind := def.EffectiveKind()
	switch kind {
	case model.KindScalar:
		node.Value = e.valueSanitizer(def, raw)
	case model.KindChoice:
		node.Value = raw
		node.Choices = def.Choices.Clone()
	case model.KindContentReference:
		node.Relationship = model.RelationshipFor(def)
		value, err := e.expand(ctx, e.resolver.Resolve(kind, raw), depth)
		if err != nil {
			return model.FieldNode{}, fmt.Errorf("field %q: %w", def.Name, err)
		}
		node.Value = value
	case model.KindTaxonomyReference:
		node.Relationship = model.RelationshipFor(def)
		node.Value = e.resolver.Resolve(kind, raw)
	case model.KindGenericRelationship:
		node.Relationship = model.RelationshipFor(def)
		node.Value = raw
	case model.KindRepeatingGroup:
		if len(def.SubFields) == 0 {
			node.Value = raw
			break
		}
		rows, err := e.encodeRows(ctx, def, raw, depth)
		if err != nil {
			return model.FieldNode{}, fmt.Errorf("field %q: %w", def.Name, err)
		}
		node.Repeater = true
		node.Rows = rows
	default:
		return model.FieldNode{}, fmt.Errorf("%w %q on field %q", ErrUnknownKind, kind, def.Name)
	}

	for _, transform := range e.transforms[kind] {
		transform(def, &node)
	}
	return node, nil
}

// expand attaches the referenced items' own trees to resolved summaries.
// Identifier values are returned untouched.
func (e *Encoder) expand(ctx context.Context, resolved any, depth int) (any, error) {
	switch v := resolved.(type) {
	case []model.ItemSummary:
		for i := range v {
			if err := e.attach(ctx, &v[i], depth); err != nil {
				return nil, err
			}
		}
		return v, nil
	case model.ItemSummary:
		if err := e.attach(ctx, &v, depth); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return resolved, nil
	}
}

func (e *Encoder) attach(ctx context.Context, summary *model.ItemSummary, depth int) error {
	if !e.policy.CanExpand(depth) {
		return nil
	}
	advanced, err := e.Encode(ctx, summary.Item(), e.policy.Next(depth))
	if err != nil {
		return err
	}
	summary.Advanced = advanced
	return nil
}

func (e *Encoder) encodeRows(ctx context.Context, def model.FieldDefinition, raw any, depth int) ([][]model.FieldNode, error) {
	rows := rowsOf(raw)
	out := make([][]model.FieldNode, 0, len(rows))
	for i, row := range rows {
		nodes := make([]model.FieldNode, 0, len(def.SubFields))
		for _, sub := range def.SubFields {
			node, err := e.encodeField(ctx, sub, row, depth)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			nodes = append(nodes, node)
		}
		out = append(out, nodes)
	}
	return out, nil
}

// rowsOf reads repeating-group rows from a stored value: a list of row maps,
// or a map from row index to row map (ordered by numeric index). Anything
// else has no rows.
func rowsOf(raw any) []map[string]any {
	switch v := raw.(type) {
	case []map[string]any:
		return v
	case []model.StoredValues:
		out := make([]map[string]any, len(v))
		for i, row := range v {
			out[i] = row
		}
		return out
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, element := range v {
			if row, ok := rowMap(element); ok {
				out = append(out, row)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			if (errA == nil) != (errB == nil) {
				return errA == nil
			}
			return keys[i] < keys[j]
		})
		out := make([]map[string]any, 0, len(keys))
		for _, key := range keys {
			if row, ok := rowMap(v[key]); ok {
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}

func rowMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case model.StoredValues:
		return v, true
	default:
		return nil, false
	}
}
