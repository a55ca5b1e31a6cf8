package runlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by Acquire when another process holds the key.
var ErrLocked = errors.New("sync already running")

// ReleaseFunc gives the lock back and stops its refresh. Calling it after
// the TTL expired and someone else took the key is a no-op.
type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// Key builds the lock key for one repository/project pair.
func Key(repository, project string) string {
	return fmt.Sprintf("ghas-sync:lock:%s:%s", repository, project)
}

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends the TTL only while the key still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker returns a locker whose keys expire after ttl unless the
// holder is still alive; a held lock is refreshed every ttl/3.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generating lock token: %w", err)
	}

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.refresh(context.WithoutCancel(ctx), key, token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("releasing lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// refresh keeps the TTL from lapsing during a long run. It gives up once the
// key no longer holds token.
func (l *redisLocker) refresh(ctx context.Context, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := refreshScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
			if err != nil {
				slog.WarnContext(ctx, "lock refresh failed", "key", key, "error", err)
				continue
			}
			if n == 0 {
				slog.WarnContext(ctx, "lock lost before release", "key", key)
				return
			}
		}
	}
}

type noopLocker struct{}

// NewNoopLocker is used when no Redis is configured.
func NewNoopLocker() Locker {
	return noopLocker{}
}

func (noopLocker) Acquire(context.Context, string) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
