package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dating-api/internal/config"
)

func TestMemoryLockSerialises(t *testing.T) {
	m := NewMemory(time.Minute, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "user-1")
			if err != nil {
				t.Error(err)
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Empty(t, m.locks)
}

func TestMemoryLockKeysAreIndependent(t *testing.T) {
	m := NewMemory(time.Minute, time.Minute)
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestMemoryLockHonoursContext(t *testing.T) {
	m := NewMemory(time.Minute, time.Minute)

	unlock, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := m.Lock(context.Background(), "a")
	require.NoError(t, err)
	again()
	assert.Empty(t, m.locks)
}

func TestMemoryMark(t *testing.T) {
	m := NewMemory(time.Minute, time.Minute)
	ctx := context.Background()

	first, err := m.Mark(ctx, "seen:1", 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := m.Mark(ctx, "seen:1", 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, second)

	time.Sleep(80 * time.Millisecond)
	third, err := m.Mark(ctx, "seen:1", 50*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, third)

	always, err := m.Mark(ctx, "seen:2", 0)
	require.NoError(t, err)
	assert.True(t, always)
	always, err = m.Mark(ctx, "seen:2", 0)
	require.NoError(t, err)
	assert.True(t, always)
}

func TestNew(t *testing.T) {
	log := logrus.New()

	c, err := New(context.Background(), config.CacheConfig{Type: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, c.Close())

	_, err = New(context.Background(), config.CacheConfig{Type: "memcached"}, log)
	assert.Error(t, err)
}
