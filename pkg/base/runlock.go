// Copyright 2024 zhengshuai.xiao@outlook.com
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	// lockExpiry is how long a run lock is held before it expires. It must
	// outlive any gap between renewals, not the whole run.
	lockExpiry = 30 * time.Second

	// renewalInterval is significantly shorter than lockExpiry so a live
	// run never loses its lock.
	renewalInterval = 10 * time.Second
)

// Lua script to release the lock only if the current owner still holds it.
// KEYS[1]: the lock key
// ARGV[1]: the owner ID
const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

// Lua script to extend the lock expiry only for the current owner.
// KEYS[1]: the lock key
// ARGV[1]: the owner ID
// ARGV[2]: the new expiry in milliseconds
const renewLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("pexpire", KEYS[1], ARGV[2])
else
    return 0
end
`

// RunLock guards one finddupes run per index. Two dispatch loops writing
// dupe tags into the same index would race each other's batches, so the
// second run refuses to start.
type RunLock struct {
	key        string
	ownerID    string
	rdb        redis.UniversalClient
	cancelFunc context.CancelFunc
}

func NewRunLock(rdb redis.UniversalClient, index string) *RunLock {
	return &RunLock{
		key:     fmt.Sprintf("dupefinder:lock:run:%s", index),
		ownerID: uuid.NewString(),
		rdb:     rdb,
	}
}

// TryLock attempts to acquire the run lock without blocking. On success it
// starts a background renewal goroutine that keeps the lock alive until
// Unlock is called.
func (l *RunLock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.rdb.SetNX(ctx, l.key, l.ownerID, lockExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock %s: %w", l.key, err)
	}
	if !acquired {
		return false, nil
	}

	var renewalCtx context.Context
	renewalCtx, l.cancelFunc = context.WithCancel(context.Background())
	go l.renew(renewalCtx)
	logger.Tracef("acquired run lock %s", l.key)
	return true, nil
}

// renew periodically extends the lock's TTL while the run is alive.
func (l *RunLock) renew(ctx context.Context) {
	ticker := time.NewTicker(renewalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Tracef("stopping renewal for run lock %s", l.key)
			return
		case <-ticker.C:
			err := l.rdb.Eval(ctx, renewLockScript, []string{l.key}, l.ownerID, lockExpiry.Milliseconds()).Err()
			if err != nil {
				logger.Warnf("failed to renew run lock %s: %v. The lock may have expired or been lost.", l.key, err)
				return
			}
			logger.Tracef("renewed run lock %s", l.key)
		}
	}
}

// Unlock releases the run lock.
func (l *RunLock) Unlock() {
	if l.cancelFunc != nil {
		l.cancelFunc()
	}
	_, err := l.rdb.Eval(context.Background(), releaseLockScript, []string{l.key}, l.ownerID).Result()
	if err != nil {
		logger.Errorf("failed to release run lock %s: %v", l.key, err)
	} else {
		logger.Tracef("released run lock %s", l.key)
	}
}
