package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis command failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisPersister keeps the entries as two string keys under a prefix, so
// several shells sharing one Redis see the same session.
type RedisPersister struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisPersister creates a persister on client. prefix namespaces the keys,
// e.g. "mpconsole:" yields "mpconsole:token" and "mpconsole:username".
func NewRedisPersister(client redis.UniversalClient, prefix string) *RedisPersister {
	return &RedisPersister{
		redis:  client,
		prefix: prefix,
	}
}

func (r *RedisPersister) key(name string) string {
	return r.prefix + name
}

func (r *RedisPersister) Load(ctx context.Context) (Credential, error) {
	vals, err := r.redis.MGet(ctx, r.key(KeyToken), r.key(KeyUsername)).Result()
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var cred Credential
	if len(vals) > 0 {
		cred.Token, _ = vals[0].(string)
	}
	if len(vals) > 1 {
		cred.Username, _ = vals[1].(string)
	}
	return cred, nil
}

func (r *RedisPersister) Save(ctx context.Context, cred Credential) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(KeyToken), cred.Token, 0)
		pipe.Set(ctx, r.key(KeyUsername), cred.Username, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisPersister) Delete(ctx context.Context) error {
	if err := r.redis.Del(ctx, r.key(KeyToken), r.key(KeyUsername)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Close is a no-op; the client belongs to the caller.
func (r *RedisPersister) Close() error { return nil }
