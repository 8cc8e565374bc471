package redislock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "1234 N Western Ave"

type locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func lockers(t *testing.T) map[string]locker {
	rl, _ := newRedisLocker(t, time.Minute)
	return map[string]locker{
		"redis": rl,
		"local": NewLocalLocker(),
	}
}

func TestLock_ExcludesSameKey(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			unlock, err := l.Lock(context.Background(), testKey)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, testKey)
			require.ErrorIs(t, err, context.DeadlineExceeded)

			unlock()

			unlock2, err := l.Lock(context.Background(), testKey)
			require.NoError(t, err)
			unlock2()
		})
	}
}

func TestLock_DifferentKeysIndependent(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			unlockA, err := l.Lock(context.Background(), "1 S State St")
			require.NoError(t, err)
			defer unlockA()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			unlockB, err := l.Lock(ctx, "1234 N Western Ave")
			require.NoError(t, err)
			unlockB()
		})
	}
}

func TestLock_SerializesConcurrentHolders(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				inside  atomic.Int32
				maxSeen atomic.Int32
			)
			for range 5 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(context.Background(), testKey)
					if !assert.NoError(t, err) {
						return
					}
					n := inside.Add(1)
					if n > maxSeen.Load() {
						maxSeen.Store(n)
					}
					time.Sleep(5 * time.Millisecond)
					inside.Add(-1)
					unlock()
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxSeen.Load())
		})
	}
}

func TestRedisLocker_ExpiredLockCanBeTaken(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)

	unlockStale, err := l.Lock(context.Background(), testKey)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := l.Lock(context.Background(), testKey)
	require.NoError(t, err)

	// The stale holder must not delete the new holder's lock.
	unlockStale()
	assert.True(t, mr.Exists(keyPrefix+testKey))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+testKey))
}

func TestRedisLocker_SetsTTL(t *testing.T) {
	l, mr := newRedisLocker(t, 3*time.Minute)

	unlock, err := l.Lock(context.Background(), testKey)
	require.NoError(t, err)
	defer unlock()

	assert.Equal(t, 3*time.Minute, mr.TTL(keyPrefix+testKey))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	l, mr := newRedisLocker(t, time.Minute)
	mr.Close()

	_, err := l.Lock(context.Background(), testKey)
	require.Error(t, err)
}

func TestDial(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Dial(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Dial(context.Background(), "not a url")
	require.Error(t, err)
}

func TestLocalLocker_CleansUpKeys(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 1, l.held())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Lock(ctx, testKey)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.held())

	unlock()
	assert.Equal(t, 0, l.held())
}
