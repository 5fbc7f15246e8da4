// Package schema exposes field definitions to the codec. The Registry
// interface is the boundary with whatever system owns field groups; Accessor
// layers the codec's view on top of it (applicable groups, value-carrying
// fields only) and Index resolves posted field keys back to definitions.
package schema

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// Registry is the field-definition registry.
type Registry interface {
	// FieldGroups returns every registered group in registry order.
	FieldGroups(ctx context.Context) ([]model.FieldGroup, error)
	// FieldsInGroup returns the group's definitions in registry order.
	FieldsInGroup(ctx context.Context, groupID string) ([]model.FieldDefinition, error)
	// IsGroupApplicable reports whether the group applies to items of the
	// given content type.
	IsGroupApplicable(ctx context.Context, groupID, contentType string) (bool, error)
}

// Snapshotter is implemented by registries whose contents change at run
// time. Snapshot returns a registry that stays fixed while it is in use.
type Snapshotter interface {
	Snapshot() Registry
}

// Accessor filters registry output for the encoder and decoder.
type Accessor struct {
	registry Registry
}

// NewAccessor wraps a registry.
func NewAccessor(registry Registry) *Accessor {
	return &Accessor{registry: registry}
}

// Registry returns the wrapped registry.
func (a *Accessor) Registry() Registry {
	return a.registry
}

// Pinned returns an accessor over a fixed snapshot of the registry when the
// registry is a Snapshotter, and the receiver otherwise. Callers making several
// registry calls for one result pin first so a reload cannot land between
// them.
func (a *Accessor) Pinned() *Accessor {
	if s, ok := a.registry.(Snapshotter); ok {
		if snapshot := s.Snapshot(); snapshot != nil {
			return &Accessor{registry: snapshot}
		}
	}
	return a
}

// ApplicableGroups returns the groups that apply to contentType, in registry
// order.
func (a *Accessor) ApplicableGroups(ctx context.Context, contentType string) ([]model.FieldGroup, error) {
	groups, err := a.registry.FieldGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: list field groups: %w", err)
	}

	out := make([]model.FieldGroup, 0, len(groups))
	for _, group := range groups {
		ok, err := a.registry.IsGroupApplicable(ctx, group.ID, contentType)
		if err != nil {
			return nil, fmt.Errorf("schema: applicability of group %q: %w", group.ID, err)
		}
		if ok {
			out = append(out, group)
		}
	}
	return out, nil
}

// Fields returns the group's value-carrying definitions: tab and message
// separators are dropped at every nesting level.
func (a *Accessor) Fields(ctx context.Context, groupID string) ([]model.FieldDefinition, error) {
	defs, err := a.registry.FieldsInGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("schema: fields of group %q: %w", groupID, err)
	}
	return ValueFields(defs), nil
}

// ValueFields drops presentation-only definitions, recursing into sub-fields.
// The input is not modified.
func ValueFields(defs []model.FieldDefinition) []model.FieldDefinition {
	out := make([]model.FieldDefinition, 0, len(defs))
	for _, def := range defs {
		if def.EffectiveKind().Presentational() {
			continue
		}
		if len(def.SubFields) > 0 {
			def.SubFields = ValueFields(def.SubFields)
		}
		out = append(out, def)
	}
	return out
}
