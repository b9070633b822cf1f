package redis

import (
	"context"
	"strconv"
	"time"
)

const rateLimitPrefix = "rate_limit"

// recordAttemptScript increments the window counter and starts the window on
// the first attempt, atomically.
const recordAttemptScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`

// RateLimiter counts auth attempts in fixed windows.
type RateLimiter interface {
	RateLimitKey(parts ...string) string
	Attempts(ctx context.Context, key string) (count int64, retryAfter time.Duration, err error)
	RecordAttempt(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitKey namespaces a counter, e.g. RateLimitKey("login", "ip", addr).
func (c *Client) RateLimitKey(parts ...string) string {
	return buildKey(append([]string{rateLimitPrefix}, parts...)...)
}

// Attempts reads the counter and the time left in its window. A missing
// counter is zero attempts.
func (c *Client) Attempts(ctx context.Context, key string) (int64, time.Duration, error) {
	if c.store == nil {
		return 0, 0, errNotInitialized
	}
	raw, err := c.store.Get(ctx, key).Result()
	if isMiss(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	left, err := c.store.PTTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if left < 0 {
		left = 0
	}
	return count, left, nil
}

// RecordAttempt adds one attempt to the window that starts at the first one.
func (c *Client) RecordAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	if window <= 0 {
		window = time.Minute
	}
	return c.store.Eval(ctx, recordAttemptScript, []string{key}, window.Milliseconds()).Int64()
}
