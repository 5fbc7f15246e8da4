// Package cache memoises encoded trees per content item. Entries are
// best-effort: concurrent writers race and the last write wins.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// ErrMiss reports that no tree is cached for the item.
var ErrMiss = errors.New("cache: miss")

// Cache stores encoded trees keyed by item id. Set records which items a
// tree embeds (model.Tree.EmbeddedItems); Delete drops the item's own tree
// and every cached tree that embeds it.
type Cache interface {
	Get(ctx context.Context, itemID int64) (model.Tree, error)
	Set(ctx context.Context, itemID int64, tree model.Tree) error
	Delete(ctx context.Context, itemID int64) error
}

// Memory is an in-process Cache. Trees are kept in their JSON form so reads
// return the same shapes as the Redis adapter.
type Memory struct {
	mu      sync.RWMutex
	entries map[int64][]byte
	// embedded item id -> ids of cached trees that embed it
	dependents map[int64]map[int64]struct{}
}

var _ Cache = (*Memory)(nil)

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[int64][]byte),
		dependents: make(map[int64]map[int64]struct{}),
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, itemID int64) (model.Tree, error) {
	m.mu.RLock()
	payload, ok := m.entries[itemID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	return decode(payload)
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, itemID int64, tree model.Tree) error {
	payload, err := encode(tree)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[itemID] = payload
	for _, embedded := range tree.EmbeddedItems() {
		if embedded == itemID {
			continue
		}
		set, ok := m.dependents[embedded]
		if !ok {
			set = make(map[int64]struct{})
			m.dependents[embedded] = set
		}
		set[itemID] = struct{}{}
	}
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, itemID)
	for dependent := range m.dependents[itemID] {
		delete(m.entries, dependent)
	}
	delete(m.dependents, itemID)
	return nil
}

// Nop never stores anything.
type Nop struct{}

var _ Cache = Nop{}

// Get implements Cache.
func (Nop) Get(context.Context, int64) (model.Tree, error) { return nil, ErrMiss }

// Set implements Cache.
func (Nop) Set(context.Context, int64, model.Tree) error { return nil }

// Delete implements Cache.
func (Nop) Delete(context.Context, int64) error { return nil }

func encode(tree model.Tree) ([]byte, error) {
	if tree == nil {
		tree = model.Tree{}
	}
	payload, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("cache: encode tree: %w", err)
	}
	return payload, nil
}

func decode(payload []byte) (model.Tree, error) {
	var tree model.Tree
	if err := json.Unmarshal(payload, &tree); err != nil {
		return nil, fmt.Errorf("cache: decode tree: %w", err)
	}
	if tree == nil {
		tree = model.Tree{}
	}
	return tree, nil
}
