package cache

import (
	"context"
	"sync"

	"github.com/foodtruck/backend/internal/domain/royalty"
)

// lockSlot is a one-token semaphore plus the number of goroutines using it
type lockSlot struct {
	token chan struct{}
	refs  int
}

// InMemoryGenerationLock implements royalty.GenerationLock inside one process.
// This is suitable for single-instance deployments and testing.
type InMemoryGenerationLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

// NewInMemoryGenerationLock creates a new in-process lock
func NewInMemoryGenerationLock() *InMemoryGenerationLock {
	return &InMemoryGenerationLock{slots: make(map[string]*lockSlot)}
}

// Acquire waits for the key's token or for ctx to end
func (l *InMemoryGenerationLock) Acquire(ctx context.Context, key string) (func(), error) {
	slot := l.ref(key)

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, lockTimeoutError(key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.token
			l.unref(key)
		})
	}, nil
}

func (l *InMemoryGenerationLock) ref(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *InMemoryGenerationLock) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if slot, ok := l.slots[key]; ok {
		slot.refs--
		if slot.refs == 0 {
			delete(l.slots, key)
		}
	}
}

// Len returns the number of keys currently held or awaited
func (l *InMemoryGenerationLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// Ensure InMemoryGenerationLock implements GenerationLock
var _ royalty.GenerationLock = (*InMemoryGenerationLock)(nil)
