package possync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// Locker enforces the single-flight rule: only one drain cycle may be in
// flight at a time, no matter whether the timer or an online-transition
// wake triggered it.
type Locker interface {
	// TryAcquire returns a release func and true when the lock was taken,
	// or (nil, false) when another cycle already holds it.
	TryAcquire(ctx context.Context) (func(), bool)
}

type processLocker struct {
	mu sync.Mutex
}

// NewProcessLocker returns the in-process guard used on a till, where the
// driver is the only drainer.
func NewProcessLocker() Locker {
	return &processLocker{}
}

func (l *processLocker) TryAcquire(ctx context.Context) (func(), bool) {
	if l.mu.TryLock() {
		return l.mu.Unlock, true
	}
	return nil, false
}

type redisLocker struct {
	client *redislock.Client
	logger *logrus.Logger
	key    string
	ttl    time.Duration
}

// NewRedisLocker serializes drain cycles across store-server instances via
// a Redis advisory lock. The TTL bounds how long a crashed instance can
// hold the queue hostage.
func NewRedisLocker(client *redislock.Client, logger *logrus.Logger) Locker {
	return &redisLocker{
		client: client,
		logger: logger,
		key:    "pitix_pos:sync-drain",
		ttl:    2 * time.Minute,
	}
}

func (l *redisLocker) TryAcquire(ctx context.Context) (func(), bool) {
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) && l.logger != nil {
			l.logger.WithFields(logrus.Fields{
				"module": "possync",
				"key":    l.key,
			}).Warn("drain lock error: " + err.Error())
		}
		return nil, false
	}
	return func() {
		_ = lock.Release(context.Background())
	}, true
}
