package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLockerExclusive(t *testing.T) {
	locker := NewLocalLocker()
	lease, err := locker.Acquire(context.Background(), "payout:1:2024-01-01", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "payout:1:2024-01-01", time.Minute); !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("expected ErrLockNotAcquired, got %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "payout:2:2024-01-01", time.Minute); err != nil {
		t.Fatalf("different key should not conflict: %v", err)
	}
	lease.Release()
	if _, err := locker.Acquire(context.Background(), "payout:1:2024-01-01", time.Minute); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestLocalLockerExpires(t *testing.T) {
	locker := NewLocalLocker()
	if _, err := locker.Acquire(context.Background(), "k", time.Millisecond); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); err != nil {
		t.Fatalf("expired lock should be reacquirable: %v", err)
	}
}

func TestStaleReleaseDoesNotDropNewHolder(t *testing.T) {
	locker := NewLocalLocker()
	stale, err := locker.Acquire(context.Background(), "k", time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	stale.Release()
	if err := stale.Extend(context.Background()); !errors.Is(err, ErrLockLost) {
		t.Fatalf("stale lease must not extend current holder, got %v", err)
	}
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("stale release must not free current holder, got %v", err)
	}
}

func TestLocalLeaseExtendOutlivesTTL(t *testing.T) {
	locker := NewLocalLocker()
	lease, err := locker.Acquire(context.Background(), "k", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := lease.Extend(context.Background()); err != nil {
		t.Fatalf("extend failed: %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("extended lease should still hold the lock, got %v", err)
	}
	lease.Release()
}

func TestLocalLeaseExtendAfterExpiryIsLost(t *testing.T) {
	locker := NewLocalLocker()
	lease, err := locker.Acquire(context.Background(), "k", time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := lease.Extend(context.Background()); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestKeepAliveHoldsLockUntilStopped(t *testing.T) {
	locker := NewLocalLocker()
	lease, err := locker.Acquire(context.Background(), "k", 60*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	keepAlive := StartKeepAlive(lease, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); !errors.Is(err, ErrLockNotAcquired) {
		t.Fatalf("renewed lock should still be held, got %v", err)
	}
	keepAlive.Stop()
	keepAlive.Stop()
	if err := keepAlive.Err(); err != nil {
		t.Fatalf("unexpected renewal error: %v", err)
	}
	lease.Release()
	if _, err := locker.Acquire(context.Background(), "k", time.Minute); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

type lostLease struct{}

func (lostLease) Extend(context.Context) error { return ErrLockLost }
func (lostLease) Release()                     {}

func TestKeepAliveReportsLostLease(t *testing.T) {
	keepAlive := StartKeepAlive(lostLease{}, time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for keepAlive.Err() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	keepAlive.Stop()
	if !errors.Is(keepAlive.Err(), ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", keepAlive.Err())
	}
}

func TestCacheDisabledIsNoop(t *testing.T) {
	if Enabled() {
		t.Skip("redis enabled in environment")
	}
	var dest map[string]int
	hit, err := GetJSON(context.Background(), "vip:summary", &dest)
	if err != nil || hit {
		t.Fatalf("disabled cache should miss without error, hit=%v err=%v", hit, err)
	}
	if err := SetJSON(context.Background(), "vip:summary", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("disabled set should be noop: %v", err)
	}
	if _, ok := NewLocker().(*LocalLocker); !ok {
		t.Fatalf("expected local locker when redis disabled")
	}
}
