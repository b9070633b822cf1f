package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestRecordAttemptStartsWindowOnFirstAttempt(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("login", "email", "abc")

	for want := int64(1); want <= 3; want++ {
		count, err := client.RecordAttempt(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Fatalf("expected %d attempts got %d", want, count)
		}
	}
	if len(mock.windows) != 1 || mock.windows[key] != time.Minute {
		t.Fatalf("expected a single one-minute window, got %v", mock.windows)
	}

	count, left, err := client.Attempts(ctx, key)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if count != 3 || left != time.Minute {
		t.Fatalf("expected 3 attempts with a minute left, got %d and %s", count, left)
	}
}

func TestAttemptsOnFreshKeyIsZero(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	count, left, err := client.Attempts(context.Background(), client.RateLimitKey("signup", "ip", "10.0.0.1"))
	if err != nil || count != 0 || left != 0 {
		t.Fatalf("expected empty window, got count=%d left=%s err=%v", count, left, err)
	}
}

func TestStoredResponseAndLock(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.IdempotencyKey("customer:7|POST|/api/v1/checkout", "order-1")

	if _, ok, err := client.LoadResponse(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	locked, err := client.AcquireLock(ctx, key, time.Second)
	if err != nil || !locked {
		t.Fatalf("first lock should win, locked=%v err=%v", locked, err)
	}
	if again, _ := client.AcquireLock(ctx, key, time.Second); again {
		t.Fatalf("second lock should lose while the first is held")
	}

	if err := client.SaveResponse(ctx, key, `{"status":201}`, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := client.SaveResponse(ctx, key, `{"status":500}`, time.Hour); err != nil {
		t.Fatalf("second save: %v", err)
	}
	payload, ok, err := client.LoadResponse(ctx, key)
	if err != nil || !ok || payload != `{"status":201}` {
		t.Fatalf("expected the first response pinned, got %q ok=%v err=%v", payload, ok, err)
	}

	if err := client.ReleaseLock(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := mock.data[key+":lock"]; held {
		t.Fatalf("lock should be released")
	}
}

func TestLoadResponseSurfacesErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.getErr = errors.New("connection reset")
	client := &Client{store: mock}
	if _, _, err := client.LoadResponse(context.Background(), "k"); err == nil {
		t.Fatalf("expected the store error")
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if _, err := client.RecordAttempt(context.Background(), "k", time.Second); err == nil {
		t.Fatalf("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on uninitialized client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("login", "ip", "1.2.3.4"); got != "sf:rate_limit:login:ip:1.2.3.4" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.RateLimitKey("login", " ", "x"); got != "sf:rate_limit:login:x" {
		t.Fatalf("blank parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.Password != "pw" || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data    map[string]string
	windows map[string]time.Duration
	getErr  error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: map[string]string{}, windows: map[string]time.Duration{}}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) PTTL(_ context.Context, key string) *redis.DurationCmd {
	if window, ok := m.windows[key]; ok {
		return redis.NewDurationResult(window, nil)
	}
	return redis.NewDurationResult(-2*time.Millisecond, nil)
}

// Eval emulates the attempt script: INCR then PEXPIRE on the first hit.
func (m *mockCmdable) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	var n int64
	fmt.Sscan(m.data[key], &n)
	n++
	m.data[key] = fmt.Sprint(n)
	if n == 1 {
		m.windows[key] = time.Duration(args[0].(int64)) * time.Millisecond
	}
	return redis.NewCmdResult(n, nil)
}
