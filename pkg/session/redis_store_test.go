package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements redisCommander over an in-process map.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = append([]byte(nil), value.([]byte)...)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(data), nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			delete(f.ttls, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	if ok {
		f.ttls[key] = expiration
	}
	return redis.NewBoolResult(ok, nil)
}

func TestRedisStore(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake)
	ctx := context.Background()
	expiresAt := time.Now().Add(5 * time.Minute)

	t.Run("SaveUsesPrefix", func(t *testing.T) {
		if err := store.Save(ctx, "abc", []byte("state"), expiresAt); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, ok := fake.data["hstream:session:abc"]; !ok {
			t.Errorf("keys in fake = %v, want prefixed key", keysOf(fake.data))
		}
	})

	t.Run("Load", func(t *testing.T) {
		data, err := store.Load(ctx, "abc")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if string(data) != "state" {
			t.Errorf("Load = %q, want %q", data, "state")
		}
	})

	t.Run("LoadMissingIsNilNil", func(t *testing.T) {
		data, err := store.Load(ctx, "nope")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if data != nil {
			t.Errorf("Load = %q for missing session, want nil", data)
		}
	})

	t.Run("Touch", func(t *testing.T) {
		if err := store.Touch(ctx, "abc", time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		if ttl := fake.ttls["hstream:session:abc"]; ttl < 59*time.Minute {
			t.Errorf("ttl = %v after Touch, want about an hour", ttl)
		}
	})

	t.Run("SaveExpiredDeletes", func(t *testing.T) {
		if err := store.Save(ctx, "abc", []byte("x"), time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, ok := fake.data["hstream:session:abc"]; ok {
			t.Error("expired Save left the key in place")
		}
	})

	t.Run("SaveAll", func(t *testing.T) {
		err := store.SaveAll(ctx, map[string]StoredState{
			"one": {Data: []byte("1"), ExpiresAt: expiresAt},
			"two": {Data: []byte("2"), ExpiresAt: expiresAt},
			"old": {Data: []byte("3"), ExpiresAt: time.Now().Add(-time.Minute)},
		})
		if err != nil {
			t.Fatalf("SaveAll failed: %v", err)
		}
		if _, ok := fake.data["hstream:session:one"]; !ok {
			t.Error("session one not saved")
		}
		if _, ok := fake.data["hstream:session:old"]; ok {
			t.Error("expired session saved anyway")
		}
	})

	t.Run("Closed", func(t *testing.T) {
		if err := store.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := store.Save(ctx, "abc", []byte("x"), expiresAt); err == nil {
			t.Error("Save succeeded on closed store")
		}
		if _, err := store.Load(ctx, "abc"); err == nil {
			t.Error("Load succeeded on closed store")
		}
	})
}

func TestRedisStorePrefixOption(t *testing.T) {
	fake := newFakeRedis()
	store := NewRedisStore(fake, WithRedisPrefix("app:"))
	if store.Prefix() != "app:" {
		t.Errorf("Prefix() = %q, want %q", store.Prefix(), "app:")
	}

	if err := store.Save(context.Background(), "abc", []byte("x"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := fake.data["app:abc"]; !ok {
		t.Errorf("keys = %v, want app:abc", keysOf(fake.data))
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestRedisStoreConcurrentClose(t *testing.T) {
	store := NewRedisStore(newFakeRedis())
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Save(ctx, "abc", []byte("x"), expiresAt)
			}
		}()
	}
	store.Close()
	wg.Wait()

	if err := store.Save(ctx, "abc", []byte("x"), expiresAt); err == nil {
		t.Error("Save succeeded after Close")
	}
}
