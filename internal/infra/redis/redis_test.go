//go:build !integration

package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telegram-ad-moderation/internal/domain"
)

// fakeClient is an in-memory RedisClient with explicit expiry.
type fakeClient struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
	now    func() time.Time
	setErr error
	// failSetNX makes that many SetNX calls fail before the fake behaves normally
	failSetNX int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: map[string]string{},
		expiry: map[string]time.Time{},
		now:    time.Now,
	}
}

func (f *fakeClient) expire(key string) {
	if exp, ok := f.expiry[key]; ok && !f.now().Before(exp) {
		delete(f.values, key)
		delete(f.expiry, key)
	}
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = toString(value)
	if ttl > 0 {
		f.expiry[key] = f.now().Add(ttl)
	}
	return nil
}

func (f *fakeClient) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.failSetNX > 0 {
		f.failSetNX--
		return false, errors.New("i/o timeout")
	}
	f.expire(key)
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = toString(value)
	if ttl > 0 {
		f.expiry[key] = f.now().Add(ttl)
	}
	return true, nil
}

func (f *fakeClient) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	return f.values[key], nil
}

func (f *fakeClient) TTL(_ context.Context, key string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	exp, ok := f.expiry[key]
	if !ok {
		return 0, nil
	}
	return exp.Sub(f.now()), nil
}

func (f *fakeClient) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(key)
	n := int64(len(f.values[key]))
	f.values[key] += "x"
	return n + 1, nil
}

func (f *fakeClient) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiry[key] = f.now().Add(ttl)
	return nil
}

func (f *fakeClient) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
		delete(f.expiry, k)
	}
	return nil
}

func (f *fakeClient) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values[key] != value {
		return false, nil
	}
	delete(f.values, key)
	delete(f.expiry, key)
	return true, nil
}

func (f *fakeClient) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return "v"
	}
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	locker := NewLocker(cli)
	key := "lock:submission:01HX"

	token, err := locker.TryLock(ctx, key, time.Second)
	if err != nil || token == "" {
		t.Fatalf("first TryLock failed: %q %v", token, err)
	}

	if _, err := locker.TryLock(ctx, key, time.Second); !errors.Is(err, domain.ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}

	// a foreign token must not release the lock
	if err := locker.Unlock(ctx, key, "someone-else"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := locker.TryLock(ctx, key, time.Second); !errors.Is(err, domain.ErrLockBusy) {
		t.Fatalf("lock released by foreign token: %v", err)
	}

	if err := locker.Unlock(ctx, key, token); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := locker.TryLock(ctx, key, time.Second); err != nil {
		t.Fatalf("expected lock to be free, got %v", err)
	}
}

func TestRedisLocker_BackendError(t *testing.T) {
	cli := newFakeClient()
	cli.setErr = errors.New("connection refused")
	if _, err := NewLocker(cli).TryLock(context.Background(), "k", time.Second); err == nil || errors.Is(err, domain.ErrLockBusy) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRedisLocker_BusyAfterTransientError(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	key := "lock:submission:01HY"
	if _, err := NewLocker(cli).TryLock(ctx, key, time.Minute); err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}

	cli.failSetNX = 1
	if _, err := NewLocker(cli).TryLock(ctx, key, time.Minute); !errors.Is(err, domain.ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy once the key is seen held, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter(newFakeClient())
	key := UserCommandKey(42, "claim")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("call %d: expected allowed, got %v %v", i, ok, err)
		}
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("expected 4th call to be limited, got %v %v", ok, err)
	}
}

func TestCooldownRepo(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cli.now = func() time.Time { return now }
	repo := NewCooldownRepo(cli)

	if d, err := repo.Remaining(ctx, 1, "sell"); err != nil || d != 0 {
		t.Fatalf("expected no cooldown, got %s %v", d, err)
	}
	if err := repo.Start(ctx, 1, "sell", time.Hour); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	now = now.Add(20 * time.Minute)
	if d, _ := repo.Remaining(ctx, 1, "sell"); d != 40*time.Minute {
		t.Errorf("expected 40m remaining, got %s", d)
	}
	if d, _ := repo.Remaining(ctx, 1, "buy"); d != 0 {
		t.Errorf("categories must be independent, got %s", d)
	}

	now = now.Add(time.Hour)
	if d, _ := repo.Remaining(ctx, 1, "sell"); d != 0 {
		t.Errorf("expected cooldown to expire, got %s", d)
	}
}

func TestCooldownRepo_ZeroDurationIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := NewCooldownRepo(newFakeClient())
	if err := repo.Start(ctx, 1, "sell", 0); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if d, _ := repo.Remaining(ctx, 1, "sell"); d != 0 {
		t.Errorf("expected no cooldown, got %s", d)
	}
}

func TestMediaGroupIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMediaGroupIndex(newFakeClient())

	first, id, err := idx.Reserve(ctx, "album-1", time.Minute)
	if err != nil || !first || id != "" {
		t.Fatalf("expected first sighting, got %v %q %v", first, id, err)
	}
	first, id, err = idx.Reserve(ctx, "album-1", time.Minute)
	if err != nil || first || id != "" {
		t.Fatalf("expected unbound repeat, got %v %q %v", first, id, err)
	}

	if err := idx.Bind(ctx, "album-1", "01HX", time.Minute); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	first, id, err = idx.Reserve(ctx, "album-1", time.Minute)
	if err != nil || first || id != "01HX" {
		t.Fatalf("expected bound repeat, got %v %q %v", first, id, err)
	}
}
