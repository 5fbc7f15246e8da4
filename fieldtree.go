// Package fieldtree is the top-level entry point: it re-exports the tree
// types and offers one-call helpers around the encoder, the decoder and the
// write gate for callers that do not need the full service wiring.
package fieldtree

import (
	"context"

	"github.com/goliatone/go-fieldtree/pkg/decoder"
	"github.com/goliatone/go-fieldtree/pkg/encoder"
	"github.com/goliatone/go-fieldtree/pkg/gate"
	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/posted"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/service"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// Tree is the encoded field tree of one item.
type Tree = model.Tree

// FieldNode is one encoded field.
type FieldNode = model.FieldNode

// Update is one flattened (key, value) pair.
type Update = model.Update

// Item is a host content item.
type Item = model.Item

// MaxDepth is the default reference expansion depth.
const MaxDepth = encoder.DefaultMaxDepth

// NewService exposes the service constructor from the top-level module.
func NewService(options ...service.Option) *service.Service {
	return service.New(options...)
}

// Encode builds item's tree starting at depth zero.
func Encode(ctx context.Context, registry schema.Registry, values store.Reader, item Item, options ...encoder.Option) (Tree, error) {
	return encoder.New(registry, values, options...).Encode(ctx, item, 0)
}

// Flatten turns posted groups into updates.
func Flatten(groups posted.Node) []Update {
	return decoder.Flatten(groups)
}

// FlattenJSON parses and flattens a request body.
func FlattenJSON(data []byte) ([]Update, error) {
	return decoder.FlattenJSON(data)
}

// ShouldPersist applies the default write gate.
func ShouldPersist(allowed bool, status string, autosave bool) bool {
	return gate.New().ShouldPersist(gate.Request{Allowed: allowed, Status: status, Autosave: autosave})
}
