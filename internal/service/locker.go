// internal/service/locker.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrPlanBusy means another mass-edit currently holds the plan's lock.
// Concurrent commands on one applied plan are serialized, never
// interleaved.
var ErrPlanBusy = errors.New("another mass-edit is running for this plan")

// AdvisoryLocker serializes mutations on a shared resource. Acquire
// returns a release function; the caller must run it on every exit path.
type AdvisoryLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// redisLocker implements AdvisoryLocker with SET NX + a fencing token,
// so an expired holder cannot release a lock somebody else re-acquired.
type redisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker creates an advisory locker over redis.
func NewRedisLocker(rdb *redis.Client) AdvisoryLocker {
	return &redisLocker{rdb: rdb}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlanBusy
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
	}
	return release, nil
}
