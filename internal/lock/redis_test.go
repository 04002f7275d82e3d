package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, "tender-lock:", ttl, nil), server
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	locker, server := newRedisLocker(t, time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !server.Exists("tender-lock:t1") {
		t.Fatal("expected lease key to be set")
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(waitCtx, "t1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second lock to time out, got %v", err)
	}

	other, err := locker.Lock(ctx, "t2")
	if err != nil {
		t.Fatalf("expected independent key to lock, got %v", err)
	}
	other()

	unlock()
	unlock()
	if server.Exists("tender-lock:t1") {
		t.Fatal("expected lease key to be released")
	}

	again, err := locker.Lock(ctx, "t1")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	again()
}

func TestRedisLocker_RenewsLease(t *testing.T) {
	locker, server := newRedisLocker(t, 300*time.Millisecond)

	unlock, err := locker.Lock(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlock()

	server.FastForward(250 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for server.TTL("tender-lock:t1") <= 100*time.Millisecond {
		if time.Now().After(deadline) {
			t.Fatalf("expected lease to be renewed, ttl is %s", server.TTL("tender-lock:t1"))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !server.Exists("tender-lock:t1") {
		t.Fatal("expected lease to survive past its original ttl")
	}
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	locker, server := newRedisLocker(t, time.Second)

	unlock, err := locker.Lock(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// аренда истекла и её взял другой процесс
	server.Del("tender-lock:t1")
	if err := server.Set("tender-lock:t1", "someone-else"); err != nil {
		t.Fatalf("failed to set foreign lease: %v", err)
	}

	unlock()
	got, err := server.Get("tender-lock:t1")
	if err != nil || got != "someone-else" {
		t.Fatalf("expected foreign lease to survive, got %q (%v)", got, err)
	}
}
