package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisx "github.com/example/tablegate/internal/redis"
)

// Lua script for compare-and-increment on a bucket counter.
// KEYS[1] = bucket key
// ARGV[1] = limit
// ARGV[2] = ttl_sec
const luaReserveSlot = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local cur = tonumber(redis.call('GET', key) or '0')
if cur >= limit then
  return {0, cur}
end
cur = redis.call('INCR', key)
redis.call('EXPIRE', key, ttl)
return {1, cur}
`

// SlotCounter serializes admissions for one (rule, bucket) pair.
// Two near-simultaneous candidates reading the same SQL count can both
// admit; routing the final slot claim through this counter closes that
// window. Postgres counts stay authoritative.
type SlotCounter struct {
	rdb    *redis.Client
	ttl    time.Duration
	script *redis.Script
}

func NewSlotCounter(rdb *redis.Client, ttl time.Duration) *SlotCounter {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}

	return &SlotCounter{
		rdb:    rdb,
		ttl:    ttl,
		script: redis.NewScript(luaReserveSlot),
	}
}

// TryReserveSlot atomically claims one slot in the rule's bucket.
// Returns false when the bucket already holds limit claims.
func (c *SlotCounter) TryReserveSlot(
	ctx context.Context,
	ruleID, bucket string,
	limit int,
) (bool, int64, error) {
	const op = "redisrepo.SlotCounter.TryReserveSlot"

	key := redisx.KeyBucketCount(ruleID, bucket)

	res, err := c.script.Run(
		ctx,
		c.rdb,
		[]string{key},
		limit, int(c.ttl.Seconds()),
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s:%w", op, err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return false, 0, fmt.Errorf("%s: bad script result: %v", op, res)
	}

	return toInt(arr[0]) == 1, toInt(arr[1]), nil
}

// ReleaseSlot undoes a claim, e.g. when a later rule rejected the
// candidate after an earlier bucket was already reserved.
func (c *SlotCounter) ReleaseSlot(ctx context.Context, ruleID, bucket string) error {
	const op = "redisrepo.SlotCounter.ReleaseSlot"

	key := redisx.KeyBucketCount(ruleID, bucket)

	cur, err := c.rdb.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if cur < 0 {
		_ = c.rdb.Del(ctx, key).Err()
	}

	return nil
}
