// Package keylock provides mutual exclusion per key with FIFO fairness.
// It backs the per-scheme serialization of document mutations: callers for
// the same key run strictly in arrival order, callers for different keys
// run concurrently, and keys with no holders are forgotten so the lock
// table does not grow with the keyspace.
package keylock

import (
	"context"
	"sync"
)

// KeyedLock serializes operations per int64 key.
// The zero value is not usable; construct with NewKeyedLock.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// entry tracks the wait chain for one key. Each queued holder waits on its
// predecessor's done channel; tail is the most recently queued holder's.
type entry struct {
	tail    chan struct{}
	holders int
}

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{entries: make(map[int64]*entry)}
}

// Acquire blocks until every earlier holder of key has released, then
// returns a release function. The caller must call release exactly once.
//
// If ctx is canceled while waiting, Acquire returns the context error and
// the abandoned queue slot is handed through to the next waiter once the
// predecessor releases.
func (l *KeyedLock) Acquire(ctx context.Context, key int64) (func(), error) {
	done := make(chan struct{})

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	prev := e.tail
	e.tail = done
	e.holders++
	l.mu.Unlock()

	release := func() {
		close(done)
		l.leave(key)
	}

	if prev == nil {
		return release, nil
	}

	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			close(done)
			l.leave(key)
		}()
		return nil, ctx.Err()
	}
}

// leave drops one holder from key's chain and forgets the key once the
// chain has fully drained.
func (l *KeyedLock) leave(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[key]
	if e == nil {
		return
	}
	e.holders--
	if e.holders == 0 {
		delete(l.entries, key)
	}
}

// Keys reports how many keys currently have active or queued holders.
func (l *KeyedLock) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
