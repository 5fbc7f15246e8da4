package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// DefaultRedisPrefix namespaces tree keys.
const DefaultRedisPrefix = "fieldtree:tree:"

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithTTL sets the expiration of cached trees. Zero keeps them until
// deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// Redis stores trees as JSON strings. Each embedded item also gets a set
// under "<prefix>deps:<id>" listing the cached trees that embed it.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to addr.
func NewRedis(addr, password string, db int, opts ...RedisOption) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Redis) key(itemID int64) string {
	return r.prefix + strconv.FormatInt(itemID, 10)
}

func (r *Redis) depsKey(itemID int64) string {
	return r.prefix + "deps:" + strconv.FormatInt(itemID, 10)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, itemID int64) (model.Tree, error) {
	payload, err := r.client.Get(ctx, r.key(itemID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: redis get item %d: %w", itemID, err)
	}
	return decode(payload)
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, itemID int64, tree model.Tree) error {
	payload, err := encode(tree)
	if err != nil {
		return err
	}
	member := strconv.FormatInt(itemID, 10)
	_, err = r.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, r.key(itemID), payload, r.ttl)
		for _, embedded := range tree.EmbeddedItems() {
			if embedded == itemID {
				continue
			}
			pipe.SAdd(ctx, r.depsKey(embedded), member)
			if r.ttl > 0 {
				pipe.Expire(ctx, r.depsKey(embedded), r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: redis set item %d: %w", itemID, err)
	}
	return nil
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, itemID int64) error {
	dependents, err := r.client.SMembers(ctx, r.depsKey(itemID)).Result()
	if err != nil {
		return fmt.Errorf("cache: redis dependents of item %d: %w", itemID, err)
	}
	keys := []string{r.key(itemID), r.depsKey(itemID)}
	for _, member := range dependents {
		keys = append(keys, r.prefix+member)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: redis delete item %d: %w", itemID, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
