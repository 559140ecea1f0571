package jobs

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// DefaultRedisPrefix namespaces job keys.
const DefaultRedisPrefix = "cityposter:job:"

// maxTxRetries bounds optimistic-lock retries in Update.
const maxTxRetries = 16

// RedisRegistry stores jobs as JSON strings in redis. Updates use
// WATCH/MULTI so concurrent writers on different instances never lose a
// transition.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

// NewRedisRegistry connects to addr and verifies the connection.
func NewRedisRegistry(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	r := NewRedisRegistryFromClient(client, "", ttl)
	r.owned = true
	return r, nil
}

// NewRedisRegistryFromClient wraps an existing client. Close leaves the
// client open.
func NewRedisRegistryFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) key(id string) string { return r.prefix + id }

func (r *RedisRegistry) Create(ctx context.Context, j *Job) error {
	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(j.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeConflict, "job %s already exists", j.ID)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*Job, error) {
	return r.get(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRegistry) get(ctx context.Context, c getter, id string) (*Job, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &j, nil
}

func (r *RedisRegistry) Update(ctx context.Context, id string, fn func(*Job) error) (*Job, error) {
	key := r.key(id)
	var result *Job

	txf := func(tx *redis.Tx) error {
		j, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(j); err != nil {
			return err
		}
		data, err := json.Marshal(j)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			result = j
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, errors.New(errors.ErrCodeConflict, "job %s: too much contention", id)
}

func (r *RedisRegistry) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}

var _ Registry = (*RedisRegistry)(nil)
