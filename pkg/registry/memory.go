package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// ErrGroupNotFound is returned when a group id is not registered.
var ErrGroupNotFound = errors.New("registry: field group not found")

// Memory is an ordered, in-process registry. Groups keep registration order
// and apply to the content types matched by their ContentTypes patterns
// (doublestar syntax, e.g. "post", "{post,page}", "*"). A group without
// patterns applies to every content type.
type Memory struct {
	mu     sync.RWMutex
	groups []model.FieldGroup
	byID   map[string]int
}

// NewMemory registers the supplied groups in order.
func NewMemory(groups ...model.FieldGroup) (*Memory, error) {
	m := &Memory{byID: make(map[string]int)}
	for _, group := range groups {
		if err := m.Register(group); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustMemory panics if the groups are invalid. Useful for tests and fixtures.
func MustMemory(groups ...model.FieldGroup) *Memory {
	m, err := NewMemory(groups...)
	if err != nil {
		panic(err)
	}
	return m
}

// Register validates and appends a group.
func (m *Memory) Register(group model.FieldGroup) error {
	normalised, err := normaliseGroup(group)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID == nil {
		m.byID = make(map[string]int)
	}
	if _, exists := m.byID[normalised.ID]; exists {
		return fmt.Errorf("registry: duplicate field group %q", normalised.ID)
	}
	m.byID[normalised.ID] = len(m.groups)
	m.groups = append(m.groups, normalised)
	return nil
}

// FieldGroups implements schema.Registry.
func (m *Memory) FieldGroups(context.Context) ([]model.FieldGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.FieldGroup, len(m.groups))
	for i, group := range m.groups {
		out[i] = group.Clone()
	}
	return out, nil
}

// FieldsInGroup implements schema.Registry.
func (m *Memory) FieldsInGroup(_ context.Context, groupID string) ([]model.FieldDefinition, error) {
	group, err := m.group(groupID)
	if err != nil {
		return nil, err
	}
	return group.Clone().Fields, nil
}

// IsGroupApplicable implements schema.Registry.
func (m *Memory) IsGroupApplicable(_ context.Context, groupID, contentType string) (bool, error) {
	group, err := m.group(groupID)
	if err != nil {
		return false, err
	}
	return MatchContentType(group.ContentTypes, contentType)
}

func (m *Memory) group(groupID string) (model.FieldGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byID[groupID]
	if !ok {
		return model.FieldGroup{}, fmt.Errorf("%w: %q", ErrGroupNotFound, groupID)
	}
	return m.groups[idx], nil
}

// MatchContentType reports whether contentType matches any pattern. An empty
// pattern list matches everything.
func MatchContentType(patterns []string, contentType string) (bool, error) {
	if len(patterns) == 0 {
		return true, nil
	}
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, contentType)
		if err != nil {
			return false, fmt.Errorf("registry: content type pattern %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func normaliseGroup(group model.FieldGroup) (model.FieldGroup, error) {
	out := group.Clone()
	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return model.FieldGroup{}, errors.New("registry: field group id is required")
	}
	if out.Title == "" {
		out.Title = out.ID
	}
	for _, pattern := range out.ContentTypes {
		if !doublestar.ValidatePattern(pattern) {
			return model.FieldGroup{}, fmt.Errorf("registry: group %q has invalid content type pattern %q", out.ID, pattern)
		}
	}
	fields, err := normaliseFields(out.Fields, out.ID)
	if err != nil {
		return model.FieldGroup{}, err
	}
	out.Fields = fields
	return out, nil
}

func normaliseFields(defs []model.FieldDefinition, path string) ([]model.FieldDefinition, error) {
	seen := make(map[string]struct{}, len(defs))
	for i := range defs {
		def := &defs[i]
		def.Key = strings.TrimSpace(def.Key)
		def.Name = strings.TrimSpace(def.Name)
		if def.Key == "" {
			return nil, fmt.Errorf("registry: %s field %d has no key", path, i)
		}
		if _, dup := seen[def.Key]; dup {
			return nil, fmt.Errorf("registry: %s declares field key %q twice", path, def.Key)
		}
		seen[def.Key] = struct{}{}

		if def.Kind != "" {
			kind, ok := model.ParseKind(string(def.Kind))
			if !ok {
				return nil, fmt.Errorf("registry: %s field %q has unknown kind %q", path, def.Key, def.Kind)
			}
			def.Kind = kind
		}
		if def.Name == "" && !def.EffectiveKind().Presentational() {
			return nil, fmt.Errorf("registry: %s field %q has no name", path, def.Key)
		}
		if def.Label == "" {
			def.Label = def.Name
		}

		if len(def.SubFields) > 0 {
			subs, err := normaliseFields(def.SubFields, path+"/"+def.Key)
			if err != nil {
				return nil, err
			}
			def.SubFields = subs
		}
	}
	return defs, nil
}
