// Package redislock provides a Redis backed lock used to serialize
// transaction applies for one client across service instances.
package redislock

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// Locker hands out per-key mutexes backed by Redis.
type Locker struct {
	log *slog.Logger
	rs  *redsync.Redsync
}

func New(log *slog.Logger, client goredislib.UniversalClient) *Locker {
	return &Locker{
		log: log,
		rs:  redsync.New(goredis.NewPool(client)),
	}
}

// Lock blocks until the key's mutex is held or ctx is done. The returned
// function releases the mutex; a failed release is logged and the mutex
// stays held until its expiry lapses. Applies finish well within it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	m := l.rs.NewMutex(key,
		redsync.WithExpiry(8*time.Second),
		redsync.WithTries(64),
		redsync.WithRetryDelay(10*time.Millisecond),
	)

	if err := m.LockContext(ctx); err != nil {
		return nil, err
	}

	unlock := func() {
		if _, err := m.Unlock(); err != nil {
			l.log.Error("failed to unlock", "key", key, "ERROR", err)
		}
	}

	return unlock, nil
}
