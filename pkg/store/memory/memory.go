// Package memory provides in-process value store and content source
// implementations, used by tests, the CLI and small deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// Option configures a Store.
type Option func(*Store)

// WithContent enables return-format formatting of reference values against
// the supplied content source.
func WithContent(content store.ContentSource) Option {
	return func(s *Store) {
		s.formatter = store.NewFormatter(content)
	}
}

// WithValues seeds the stored values of one item, keyed by field name.
func WithValues(itemID int64, values model.StoredValues) Option {
	return func(s *Store) {
		s.Seed(itemID, values)
	}
}

// Store keeps field values in memory. Nested values are shared with callers
// and must be treated as immutable.
type Store struct {
	index     schema.Index
	formatter *store.Formatter

	mu     sync.RWMutex
	values map[int64]model.StoredValues
}

var _ store.ValueStore = (*Store)(nil)

// New returns an empty store resolving field keys through index.
func New(index schema.Index, options ...Option) *Store {
	s := &Store{
		index:  index,
		values: make(map[int64]model.StoredValues),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Values implements store.Reader. Unknown items have no values.
func (s *Store) Values(ctx context.Context, itemID int64) (model.StoredValues, error) {
	snapshot := s.snapshot(itemID)
	if s.formatter == nil {
		return snapshot, nil
	}
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.formatter.Format(ctx, lookup, snapshot)
}

// PopulatedGroups implements store.Reader.
func (s *Store) PopulatedGroups(ctx context.Context, itemID int64) ([]string, error) {
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return store.PopulatedGroups(lookup, s.snapshot(itemID)), nil
}

// Seed replaces every stored value of an item, keyed by field name.
func (s *Store) Seed(itemID int64, values model.StoredValues) {
	seeded := make(model.StoredValues, len(values))
	for name, value := range values {
		seeded[name] = value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[itemID] = seeded
}

// SetValue implements store.Writer.
func (s *Store) SetValue(ctx context.Context, itemID int64, key string, value any) error {
	lookup, err := s.index.Snapshot(ctx)
	if err != nil {
		return err
	}
	loc, err := store.Target(lookup, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.values[itemID]
	if value == nil {
		delete(values, loc.Definition.Name)
		return nil
	}
	if values == nil {
		values = make(model.StoredValues)
		s.values[itemID] = values
	}
	values[loc.Definition.Name] = store.StorageValue(loc.Definition, value)
	return nil
}

func (s *Store) snapshot(itemID int64) model.StoredValues {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(model.StoredValues, len(s.values[itemID]))
	for name, value := range s.values[itemID] {
		out[name] = value
	}
	return out
}

// Content is an in-memory store.ContentSource.
type Content struct {
	mu    sync.RWMutex
	items map[int64]model.Item
	terms map[int64]model.Term
}

var _ store.ContentSource = (*Content)(nil)

// NewContent returns a source holding items.
func NewContent(items ...model.Item) *Content {
	c := &Content{
		items: make(map[int64]model.Item),
		terms: make(map[int64]model.Term),
	}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

// PutItem adds or replaces an item.
func (c *Content) PutItem(item model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

// PutTerm adds or replaces a term.
func (c *Content) PutTerm(term model.Term) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terms[term.TermID] = term
}

// Item implements store.ContentSource.
func (c *Content) Item(_ context.Context, id int64) (model.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: item %d", store.ErrItemNotFound, id)
	}
	return item, nil
}

// Term implements store.ContentSource.
func (c *Content) Term(_ context.Context, id int64) (model.Term, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	term, ok := c.terms[id]
	if !ok {
		return model.Term{}, fmt.Errorf("%w: term %d", store.ErrItemNotFound, id)
	}
	return term, nil
}
