package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLeaseHeld is returned by Acquire when another holder owns the key.
var ErrLeaseHeld = errors.New("lease held by another holder")

const keyPrefix = "lease:"

// Sync types used in lease keys
const (
	SyncTypeERP        = "erp"
	SyncTypeStorefront = "storefront"
)

// Key builds the lease key for a (sync type, outlet) scope. Outlet 0 means
// the whole sync type.
func Key(syncType string, outletID int) string {
	if outletID == 0 {
		return fmt.Sprintf("%s%s:all", keyPrefix, syncType)
	}
	return fmt.Sprintf("%s%s:%d", keyPrefix, syncType, outletID)
}

// Lease is a held mutual-exclusion lease.
type Lease interface {
	Key() string
	// Lost is closed when a heartbeat finds the lease gone or owned by someone else.
	Lost() <-chan struct{}
	Release(ctx context.Context) error
}

// Locker hands out leases.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// deletes the key only when it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extends the TTL only when it still carries our token
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX plus a heartbeat that keeps
// the TTL alive while the holder works. A crashed holder stops heartbeating
// and the lease expires after ttl.
type RedisLocker struct {
	rdb       *redis.Client
	ttl       time.Duration
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		rdb:       rdb,
		ttl:       ttl,
		heartbeat: ttl / 3,
		logger:    logger,
	}
}

// Acquire tries once; it never waits for a held lease.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	lease := &redisLease{
		locker: l,
		key:    key,
		token:  token,
		cancel: cancel,
		lost:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go lease.keepAlive(hbCtx)
	return lease, nil
}

type redisLease struct {
	locker   *RedisLocker
	key      string
	token    string
	cancel   context.CancelFunc
	lost     chan struct{}
	lostOnce sync.Once
	done     chan struct{}
}

func (r *redisLease) Key() string { return r.key }

func (r *redisLease) Lost() <-chan struct{} { return r.lost }

func (r *redisLease) keepAlive(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.locker.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := extendScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token, r.locker.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.locker.logger.Warn("Lease heartbeat failed", zap.String("key", r.key), zap.Error(err))
				continue
			}
			if res == 0 {
				r.locker.logger.Error("Lease lost", zap.String("key", r.key))
				r.lostOnce.Do(func() { close(r.lost) })
				return
			}
		}
	}
}

// Release stops the heartbeat and deletes the key if we still own it.
func (r *redisLease) Release(ctx context.Context) error {
	r.cancel()
	<-r.done
	if _, err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Result(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", r.key, err)
	}
	return nil
}
