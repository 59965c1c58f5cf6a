// Package lock provides per-key locking so that read-modify-write cycles
// on one backlog never interleave while different backlogs proceed in parallel.
package lock

import (
	"context"
	"sync"
	"time"
)

// KeyLock hands out one lock per key. Each lock is a one-slot channel, so a
// waiter can give up on a deadline without leaving anything behind.
type KeyLock struct {
	slots sync.Map // map[string]chan struct{}
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

func (kl *KeyLock) slot(key string) chan struct{} {
	if v, ok := kl.slots.Load(key); ok {
		return v.(chan struct{})
	}
	v, _ := kl.slots.LoadOrStore(key, make(chan struct{}, 1))
	return v.(chan struct{})
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key string) {
	kl.slot(key) <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a free key does nothing.
func (kl *KeyLock) Unlock(key string) {
	select {
	case <-kl.slot(key):
	default:
	}
}

// LockWithTimeout waits up to timeout for the lock.
// Returns false if the timeout or ctx expired first.
func (kl *KeyLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case kl.slot(key) <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the lock for key.
// It returns ErrLockTimeout if the lock is not acquired within timeout.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return kl.WithLock(key, fn)
	}
	if !kl.LockWithTimeout(ctx, key, timeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
