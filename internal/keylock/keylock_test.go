package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls cond until it returns true or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// holders reports the active plus queued holder count for key.
func holders(l *KeyedLock, key int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e := l.entries[key]; e != nil {
		return e.holders
	}
	return 0
}

func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	l := NewKeyedLock()
	release, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Keys())

	release()
	assert.Equal(t, 0, l.Keys(), "idle keys should be forgotten")

	release2, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	release2()
}

func TestIndependentKeys(t *testing.T) {
	t.Parallel()

	l := NewKeyedLock()
	release1, err := l.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer release1()

	// A different key must not block behind key 1.
	done := make(chan struct{})
	go func() {
		defer close(done)
		release2, err := l.Acquire(context.Background(), 2)
		assert.NoError(t, err)
		release2()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire on independent key blocked")
	}
}

func TestFIFOOrder(t *testing.T) {
	t.Parallel()

	l := NewKeyedLock()
	release, err := l.Acquire(context.Background(), 7)
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	// Queue waiters one at a time so arrival order is deterministic.
	for i := 1; i <= 5; i++ {
		i := i
		queued := holders(l, 7)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := l.Acquire(context.Background(), 7)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			r()
		}()
		waitFor(t, func() bool { return holders(l, 7) == queued+1 })
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, order, "holders should run in arrival order")
	assert.Equal(t, 0, l.Keys())
}

func TestAcquireCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	l := NewKeyedLock()
	release, err := l.Acquire(context.Background(), 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Acquire(ctx, 3)
		errCh <- err
	}()
	waitFor(t, func() bool { return holders(l, 3) == 2 })

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// A third acquirer queued behind the abandoned slot must still get the
	// lock once the first holder releases.
	acquired := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background(), 3)
		assert.NoError(t, err)
		close(acquired)
		r()
	}()
	waitFor(t, func() bool { return holders(l, 3) == 3 })

	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not handed past the canceled waiter")
	}

	waitFor(t, func() bool { return l.Keys() == 0 })
}

func TestSerializesReadModifyWrite(t *testing.T) {
	t.Parallel()

	l := NewKeyedLock()

	// Unsynchronized read-modify-write would lose updates; under the lock
	// every increment must land.
	const n = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), 9)
			if err != nil {
				t.Error(err)
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
	assert.Equal(t, 0, l.Keys())
}
