package leaselock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRegistry(t *testing.T, ttl time.Duration) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "lock:lead:", ttl), mr
}

func TestAcquireAndRelease(t *testing.T) {
	reg, mr := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	lease, err := reg.Acquire(ctx, "lead-1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("expected acquire to succeed, got %v", err)
	}
	if !mr.Exists("lock:lead:lead-1") {
		t.Fatalf("expected lock key to exist in redis")
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	if mr.Exists("lock:lead:lead-1") {
		t.Fatalf("expected lock key to be removed after release")
	}
}

func TestAcquireBusyReturnsErrBusy(t *testing.T) {
	reg, _ := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	held, err := reg.Acquire(ctx, "lead-1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	defer held.Release(ctx)

	_, err = reg.Acquire(ctx, "lead-1", 120*time.Millisecond)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestAcquireDifferentKeysDoNotContend(t *testing.T) {
	reg, _ := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	a, err := reg.Acquire(ctx, "lead-1", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire lead-1 failed: %v", err)
	}
	defer a.Release(ctx)

	b, err := reg.Acquire(ctx, "lead-2", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire lead-2 failed: %v", err)
	}
	defer b.Release(ctx)
}

func TestAcquireSucceedsAfterRelease(t *testing.T) {
	reg, _ := newTestRegistry(t, 10*time.Second)
	ctx := context.Background()

	first, err := reg.Acquire(ctx, "lead-1", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		lease, err := reg.Acquire(ctx, "lead-1", 2*time.Second)
		if err == nil {
			_ = lease.Release(ctx)
		}
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("expected waiting acquire to succeed after release, got %v", err)
	}
}

func TestReleaseAfterExpiryLeavesNewHolderIntact(t *testing.T) {
	reg, mr := newTestRegistry(t, 200*time.Millisecond)
	ctx := context.Background()

	stale, err := reg.Acquire(ctx, "lead-1", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// Let the lease expire and a new holder take over.
	mr.FastForward(300 * time.Millisecond)

	fresh, err := reg.Acquire(ctx, "lead-1", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("expected acquire after expiry to succeed, got %v", err)
	}

	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release errored: %v", err)
	}
	if !mr.Exists("lock:lead:lead-1") {
		t.Fatalf("stale release must not delete the new holder's lease")
	}

	if err := fresh.Release(ctx); err != nil {
		t.Fatalf("fresh release failed: %v", err)
	}
}
