package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps locks and marks inside the process.
type Memory struct {
	marks *gocache.Cache

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewMemory(defaultExpiration, gcInterval time.Duration) *Memory {
	if defaultExpiration <= 0 {
		defaultExpiration = time.Minute
	}
	if gcInterval <= 0 {
		gcInterval = 10 * time.Minute
	}
	return &Memory{
		marks: gocache.New(defaultExpiration, gcInterval),
		locks: make(map[string]*keyLock),
	}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.release(key, l)
		})
	}, nil
}

// release drops a reference and forgets the lock once nobody waits on it.
func (m *Memory) release(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}

func (m *Memory) Mark(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	if err := m.marks.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Memory) Close() error {
	m.marks.Flush()
	return nil
}
