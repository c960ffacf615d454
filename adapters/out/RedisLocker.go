/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package out

import (
	"context"
	"errors"
	"fmt"
	"github.com/bsm/redislock"
	"s3-event-bridge/logging"
	"s3-event-bridge/pkg/awsutils"
	"sync"
	"time"
)

const (
	lockKeyPrefix   = "s3-event-bridge:lock:"
	refreshesPerTTL = 3
)

type heldLock struct {
	lock *redislock.Lock
	stop context.CancelFunc
	done chan struct{}
}

// RedisLocker keeps two consumers from running the handler over the same prefix at once.
// A held lock is refreshed every third of its TTL until released, so handlers may outlive the TTL.
type RedisLocker struct {
	locks       map[string]*heldLock
	elasticache *awsutils.Elasticache
	ttl         time.Duration
	logger      logging.Logger
	lock        sync.Mutex
}

func NewRedisLocker(url, password string, useTLS bool, ttl time.Duration, logger logging.Logger) *RedisLocker {
	elasticache := &awsutils.Elasticache{}
	elasticache.InitRedis(url, password, useTLS)

	return &RedisLocker{
		elasticache: elasticache,
		locks:       make(map[string]*heldLock),
		ttl:         ttl,
		logger:      logger,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) error {
	lock, err := r.elasticache.Lock(ctx, lockKeyPrefix+key, r.ttl)
	if err != nil {
		return err
	}

	refreshCtx, stop := context.WithCancel(context.Background())
	held := &heldLock{lock: lock, stop: stop, done: make(chan struct{})}

	go func() {
		defer close(held.done)
		keepAlive(refreshCtx, key, r.ttl/refreshesPerTTL, func(ctx context.Context) error {
			return r.elasticache.Refresh(ctx, lock, r.ttl)
		}, r.logger)
	}()

	r.lock.Lock()
	defer r.lock.Unlock()
	r.locks[key] = held

	return nil
}

func (r *RedisLocker) Unlock(ctx context.Context, key string) error {
	r.lock.Lock()
	held, ok := r.locks[key]
	delete(r.locks, key)
	r.lock.Unlock()

	if !ok {
		return fmt.Errorf("lock not found. key %s", key)
	}

	held.stop()
	<-held.done

	return r.elasticache.Unlock(ctx, held.lock)
}

func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.elasticache.Ping(ctx)
}

func (r *RedisLocker) Close() error {
	return r.elasticache.Close()
}

// keepAlive calls refresh every interval until ctx is done or the lock is reported lost.
// Other refresh errors are logged and retried on the next tick.
func keepAlive(ctx context.Context, key string, interval time.Duration, refresh func(context.Context) error, logger logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := refresh(ctx)
			switch {
			case err == nil:
			case errors.Is(err, redislock.ErrNotObtained):
				logger.Errorw("Lock expired before it could be refreshed", "key", key, "error", err)
				return
			case ctx.Err() == nil:
				logger.Warnw("Failed to refresh lock", "key", key, "error", err)
			}
		}
	}
}
