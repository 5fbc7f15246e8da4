package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/pkg/cache"
	"github.com/goliatone/go-fieldtree/pkg/decoder"
	"github.com/goliatone/go-fieldtree/pkg/encoder"
	"github.com/goliatone/go-fieldtree/pkg/gate"
	"github.com/goliatone/go-fieldtree/pkg/metrics"
	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/posted"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/store"
)

// Option customises the service configuration.
type Option func(*Service)

// WithRegistry sets the field registry. Required.
func WithRegistry(registry schema.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithValueStore sets the value store. Required.
func WithValueStore(values store.ValueStore) Option {
	return func(s *Service) {
		s.values = values
	}
}

// WithContent sets the content source used to look up root items. Required.
func WithContent(content store.ContentSource) Option {
	return func(s *Service) {
		s.content = content
	}
}

// WithCache replaces the default in-memory tree cache. Pass cache.Nop{} to
// disable caching.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithGate replaces the default write gate.
func WithGate(g *gate.Gate) Option {
	return func(s *Service) {
		s.gate = g
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = recorder
	}
}

// WithEncoderOptions forwards options to the encoder built by the service.
func WithEncoderOptions(options ...encoder.Option) Option {
	return func(s *Service) {
		s.encoderOptions = append(s.encoderOptions, options...)
	}
}

// Service is the boundary around the codec: it looks up items, serves
// trees through the cache, degrades failed reads to empty trees and runs the
// gated write path.
type Service struct {
	registry       schema.Registry
	values         store.ValueStore
	content        store.ContentSource
	cache          cache.Cache
	gate           *gate.Gate
	logger         *zap.Logger
	metrics        metrics.Recorder
	encoderOptions []encoder.Option

	encoder       *encoder.Encoder
	initialiseErr error
}

// New constructs a Service. Missing optional collaborators fall back to the
// in-memory cache, the default gate, a no-op logger and no-op metrics.
// Missing required collaborators surface as an error from every call.
func New(options ...Option) *Service {
	s := &Service{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.applyDefaults()
	return s
}

func (s *Service) applyDefaults() {
	switch {
	case s.registry == nil:
		s.initialiseErr = errors.New("service: registry is required")
	case s.values == nil:
		s.initialiseErr = errors.New("service: value store is required")
	case s.content == nil:
		s.initialiseErr = errors.New("service: content source is required")
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.gate == nil {
		s.gate = gate.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.initialiseErr == nil {
		s.encoder = encoder.New(s.registry, s.values, s.encoderOptions...)
	}
}

// Registry returns the configured registry.
func (s *Service) Registry() schema.Registry {
	return s.registry
}

// Response is the read payload for one item.
type Response struct {
	ID          int64      `json:"id"`
	ContentType string     `json:"contentType"`
	Advanced    model.Tree `json:"advanced"`
}

// Read returns the item's tree. Encoder failures are logged and answered
// with an empty tree; a missing item is returned as store.ErrItemNotFound.
func (s *Service) Read(ctx context.Context, itemID int64) (Response, error) {
	item, err := s.item(ctx, itemID)
	if err != nil {
		return Response{}, err
	}
	return s.respond(item, s.Tree(ctx, item)), nil
}

// Tree serves item's tree from the cache, encoding and caching it on a miss.
func (s *Service) Tree(ctx context.Context, item model.Item) model.Tree {
	tree, err := s.cache.Get(ctx, item.ID)
	if err == nil {
		s.metrics.CacheLookup(true)
		return tree
	}
	s.metrics.CacheLookup(false)
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cached tree unavailable", zap.Int64("item_id", item.ID), zap.Error(err))
	}
	return s.refresh(ctx, item)
}

// refresh encodes item and stores the result. Failed encodes are not cached.
func (s *Service) refresh(ctx context.Context, item model.Item) model.Tree {
	started := time.Now()
	tree, err := s.encoder.Encode(ctx, item, 0)
	if err != nil {
		s.metrics.Degraded()
		s.logger.Error("encode failed, serving empty tree",
			zap.Int64("item_id", item.ID),
			zap.String("content_type", item.ContentType),
			zap.Error(err),
		)
		return model.Tree{}
	}
	s.metrics.Encoded(time.Since(started))

	if err := s.cache.Set(ctx, item.ID, tree); err != nil {
		s.logger.Warn("cache tree failed", zap.Int64("item_id", item.ID), zap.Error(err))
	}
	return tree
}

// WriteRequest carries a posted tree and the write signals for one item.
type WriteRequest struct {
	ItemID int64
	// Allowed is the external write flag consulted by the gate.
	Allowed bool
	// Autosave marks background autosave requests.
	Autosave bool
	// Groups is the posted group collection (the "advanced" payload).
	Groups posted.Node
}

// WriteResult reports what a write did.
type WriteResult struct {
	Response
	// Persisted is false when the gate refused the write.
	Persisted bool `json:"persisted"`
	// Reason is the gate's decision reason.
	Reason gate.Reason `json:"reason"`
	// Updates counts the flattened updates written.
	Updates int `json:"updates"`
	// Skipped lists posted keys no registered field owns.
	Skipped []string `json:"skipped,omitempty"`
}

// Write runs the gated decode/persist cycle and returns the item's fresh
// tree. When the gate refuses, nothing is decoded or stored and the current
// tree is returned.
func (s *Service) Write(ctx context.Context, req WriteRequest) (WriteResult, error) {
	item, err := s.item(ctx, req.ItemID)
	if err != nil {
		return WriteResult{}, err
	}

	ok, reason := s.gate.Evaluate(gate.Request{
		Allowed:  req.Allowed,
		Status:   item.Status,
		Autosave: req.Autosave,
	})
	if !ok {
		s.metrics.Gated(string(reason))
		s.logger.Debug("write gated", zap.Int64("item_id", item.ID), zap.String("reason", string(reason)))
		return WriteResult{
			Response: s.respond(item, s.Tree(ctx, item)),
			Reason:   reason,
		}, nil
	}

	result := WriteResult{Persisted: true, Reason: reason}
	for _, update := range decoder.Flatten(req.Groups) {
		err := s.values.SetValue(ctx, item.ID, update.Key, update.Value)
		if errors.Is(err, store.ErrUnknownField) {
			s.logger.Warn("skipping unknown field", zap.Int64("item_id", item.ID), zap.String("key", update.Key))
			result.Skipped = append(result.Skipped, update.Key)
			continue
		}
		if err != nil {
			s.invalidate(ctx, item.ID)
			return WriteResult{}, fmt.Errorf("service: persist %q on item %d: %w", update.Key, item.ID, err)
		}
		result.Updates++
	}
	s.metrics.Persisted(result.Updates)
	s.logger.Info("fields persisted",
		zap.Int64("item_id", item.ID),
		zap.Int("updates", result.Updates),
		zap.Int("skipped", len(result.Skipped)),
	)

	s.invalidate(ctx, item.ID)
	result.Response = s.respond(item, s.refresh(ctx, item))
	return result, nil
}

// Invalidate drops the cached tree of an item.
func (s *Service) Invalidate(ctx context.Context, itemID int64) error {
	if err := s.initialiseErr; err != nil {
		return err
	}
	return s.cache.Delete(ctx, itemID)
}

func (s *Service) invalidate(ctx context.Context, itemID int64) {
	if err := s.cache.Delete(ctx, itemID); err != nil {
		s.logger.Warn("invalidate cached tree failed", zap.Int64("item_id", itemID), zap.Error(err))
	}
}

func (s *Service) item(ctx context.Context, itemID int64) (model.Item, error) {
	if ctx == nil {
		return model.Item{}, errors.New("service: context is required")
	}
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}
	if err := s.initialiseErr; err != nil {
		return model.Item{}, err
	}
	item, err := s.content.Item(ctx, itemID)
	if err != nil {
		return model.Item{}, fmt.Errorf("service: load item %d: %w", itemID, err)
	}
	return item, nil
}

func (s *Service) respond(item model.Item, tree model.Tree) Response {
	return Response{ID: item.ID, ContentType: item.ContentType, Advanced: tree}
}
