package redis

import (
	"context"
	"time"
)

const (
	idempotencyPrefix = "idempotency"
	lockSuffix        = "lock"
)

// IdempotencyStore keeps one replayable response per key plus a short
// in-flight lock while the first request is still running.
type IdempotencyStore interface {
	IdempotencyKey(scope, id string) string
	LoadResponse(ctx context.Context, key string) (string, bool, error)
	SaveResponse(ctx context.Context, key, payload string, ttl time.Duration) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// IdempotencyKey namespaces a client key under its caller scope.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// LoadResponse returns the stored response for key; ok is false on a miss.
func (c *Client) LoadResponse(ctx context.Context, key string) (string, bool, error) {
	if c.store == nil {
		return "", false, errNotInitialized
	}
	payload, err := c.store.Get(ctx, key).Result()
	if isMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

// SaveResponse stores payload unless a response is already pinned to key.
func (c *Client) SaveResponse(ctx context.Context, key, payload string, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.SetNX(ctx, key, payload, ttl).Err()
}

// AcquireLock marks key as in flight. It reports false when another request
// holds the lock.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, lockKey(key), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, lockKey(key)).Err()
}

func lockKey(key string) string {
	return key + ":" + lockSuffix
}
