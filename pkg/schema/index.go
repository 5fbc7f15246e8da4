package schema

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// Located is a top-level field definition together with its owning group.
type Located struct {
	Definition model.FieldDefinition
	GroupID    string
}

// Lookup is a point-in-time view of every top-level field in the registry.
// When two groups declare the same key or name, the first in registry order
// wins.
type Lookup struct {
	byKey  map[string]Located
	byName map[string]Located
	groups map[string][]string
}

// ByKey resolves a field key (the identifier used by posted trees).
func (l Lookup) ByKey(key string) (Located, bool) {
	loc, ok := l.byKey[key]
	return loc, ok
}

// ByName resolves a storage name (the key of StoredValues).
func (l Lookup) ByName(name string) (Located, bool) {
	loc, ok := l.byName[name]
	return loc, ok
}

// Groups lists every group declaring a top-level field with the storage
// name, in registry order.
func (l Lookup) Groups(name string) []string {
	return l.groups[name]
}

// Len reports how many distinct keys the lookup holds.
func (l Lookup) Len() int { return len(l.byKey) }

// Index builds Lookups from a registry.
type Index interface {
	Snapshot(ctx context.Context) (Lookup, error)
}

// RegistryIndex builds a fresh Lookup from the registry on every call so it
// follows registries that reload.
type RegistryIndex struct {
	registry Registry
}

// NewIndex returns an Index over registry.
func NewIndex(registry Registry) *RegistryIndex {
	return &RegistryIndex{registry: registry}
}

// Snapshot implements Index.
func (i *RegistryIndex) Snapshot(ctx context.Context) (Lookup, error) {
	lookup := Lookup{
		byKey:  map[string]Located{},
		byName: map[string]Located{},
		groups: map[string][]string{},
	}

	groups, err := i.registry.FieldGroups(ctx)
	if err != nil {
		return Lookup{}, fmt.Errorf("schema: index field groups: %w", err)
	}
	for _, group := range groups {
		defs, err := i.registry.FieldsInGroup(ctx, group.ID)
		if err != nil {
			return Lookup{}, fmt.Errorf("schema: index group %q: %w", group.ID, err)
		}
		for _, def := range ValueFields(defs) {
			loc := Located{Definition: def, GroupID: group.ID}
			if _, exists := lookup.byKey[def.Key]; !exists && def.Key != "" {
				lookup.byKey[def.Key] = loc
			}
			if def.Name == "" {
				continue
			}
			if _, exists := lookup.byName[def.Name]; !exists {
				lookup.byName[def.Name] = loc
			}
			if owners := lookup.groups[def.Name]; len(owners) == 0 || owners[len(owners)-1] != group.ID {
				lookup.groups[def.Name] = append(owners, group.ID)
			}
		}
	}
	return lookup, nil
}
