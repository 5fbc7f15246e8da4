// Package store defines the value store boundary and the normalisation shared
// by its adapters.
//
// Stores hold one flat map of values per content item, keyed by field name.
// Writes arrive keyed by field key (the identifier posted trees carry), so
// adapters translate keys to names through a schema.Index before persisting,
// and translate repeating-group rows from sub-field keys to sub-field names.
// Reads return reference values shaped by each field's return format.
package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

var (
	// ErrItemNotFound reports an unknown content item or term.
	ErrItemNotFound = errors.New("store: item not found")
	// ErrUnknownField reports a write against a key no registered field owns.
	ErrUnknownField = errors.New("store: unknown field key")
)

// Reader is the read side of a value store.
type Reader interface {
	// Values returns the item's stored values keyed by field name.
	Values(ctx context.Context, itemID int64) (model.StoredValues, error)
	// PopulatedGroups returns the ids of groups for which the item stores at
	// least one value that is neither nil nor false.
	PopulatedGroups(ctx context.Context, itemID int64) ([]string, error)
}

// Writer is the write side of a value store.
type Writer interface {
	// SetValue persists one flattened update. A nil value clears the field.
	SetValue(ctx context.Context, itemID int64, key string, value any) error
}

// ValueStore combines Reader and Writer.
type ValueStore interface {
	Reader
	Writer
}

// ContentSource resolves content items and taxonomy terms by id.
type ContentSource interface {
	Item(ctx context.Context, id int64) (model.Item, error)
	Term(ctx context.Context, id int64) (model.Term, error)
}
