package locking

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local Locker.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*slot)}
}

func (m *Memory) Acquire(ctx context.Context, key string) (Lease, error) {
	m.mu.Lock()

	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}

	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return &memoryLease{locker: m, key: key, slot: s}, nil
	case <-ctx.Done():
		m.drop(key, s)

		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, ctx.Err())
	}
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) drop(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

type memoryLease struct {
	once   sync.Once
	locker *Memory
	key    string
	slot   *slot
}

func (l *memoryLease) Release(_ context.Context) error {
	released := false

	l.once.Do(func() {
		<-l.slot.ch
		l.locker.drop(l.key, l.slot)

		released = true
	})

	if !released {
		return ErrNotHeld
	}

	return nil
}
