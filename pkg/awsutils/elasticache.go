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

package awsutils

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v9"
)

const (
	minBackoffTime = 20 * time.Millisecond
	maxBackoffTime = 30 * time.Second
	maxLockRetry   = 10
)

type Elasticache struct {
	rdb    *redis.Client
	locker *redislock.Client
}

func (e *Elasticache) InitRedis(url, password string, useTLS bool) {
	options := redis.Options{
		Addr:     url,
		Password: password,
		DB:       0, // use default DB
	}

	if useTLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	e.rdb = redis.NewClient(&options)
	e.locker = redislock.New(e.rdb)
}

func (e *Elasticache) Lock(ctx context.Context, key string, duration time.Duration) (*redislock.Lock, error) {
	return e.locker.Obtain(ctx, key, duration, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.ExponentialBackoff(minBackoffTime, maxBackoffTime), maxLockRetry),
	})
}

func (e *Elasticache) Unlock(ctx context.Context, lock *redislock.Lock) error {
	if lock != nil {
		return lock.Release(ctx)
	}

	return nil
}

func (e *Elasticache) Refresh(ctx context.Context, lock *redislock.Lock, duration time.Duration) error {
	return lock.Refresh(ctx, duration, nil)
}

func (e *Elasticache) Ping(ctx context.Context) error {
	return e.rdb.Ping(ctx).Err()
}

func (e *Elasticache) Close() error {
	return e.rdb.Close()
}
