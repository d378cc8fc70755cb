package queue

import "github.com/redis/go-redis/v9"

// KEYS: wait, active, paused. ARGV: now ms, lease deadline ms, job key prefix,
// lease token.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[3]) == 1 then
  return false
end
local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
  return false
end
local id = popped[1]
redis.call('ZADD', KEYS[2], ARGV[2], id)
redis.call('HSET', ARGV[3] .. id, 'state', 'active', 'processedOn', ARGV[1], 'leaseToken', ARGV[4])
return id
`)

// KEYS: delayed, wait. ARGV: now ms, job key prefix, batch limit, priority weight.
var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  redis.call('ZREM', KEYS[1], id)
  local priority = tonumber(redis.call('HGET', key, 'priority') or '0') or 0
  redis.call('ZADD', KEYS[2], priority * tonumber(ARGV[4]) + tonumber(ARGV[1]), id)
  redis.call('HSET', key, 'state', 'waiting')
end
return #ids
`)

// KEYS: active, wait, failed. ARGV: now ms, job key prefix, batch limit,
// priority weight, failure reason.
var recoverScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[3]))
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  redis.call('ZREM', KEYS[1], id)
  redis.call('HDEL', key, 'leaseToken')
  local made = redis.call('HINCRBY', key, 'attemptsMade', 1)
  local max = tonumber(redis.call('HGET', key, 'maxAttempts') or '1') or 1
  if made >= max then
    redis.call('ZADD', KEYS[3], ARGV[1], id)
    redis.call('HSET', key, 'state', 'failed', 'failedReason', ARGV[5], 'finishedOn', ARGV[1])
  else
    local priority = tonumber(redis.call('HGET', key, 'priority') or '0') or 0
    redis.call('ZADD', KEYS[2], priority * tonumber(ARGV[4]) + tonumber(ARGV[1]), id)
    redis.call('HSET', key, 'state', 'waiting', 'failedReason', ARGV[5])
  end
end
return #ids
`)

// leaseCheck is prepended to every script that acts on a claimed entry. It
// returns 0 unless the entry is active and still held by the caller's token.
// KEYS[1] is the active set, KEYS[2] the job hash; ARGV[1] entry id, ARGV[2]
// lease token.
const leaseCheck = `
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
if redis.call('HGET', KEYS[2], 'leaseToken') ~= ARGV[2] then
  return 0
end
`

// ARGV[3]: lease deadline ms.
var extendScript = redis.NewScript(leaseCheck + `
redis.call('ZADD', KEYS[1], 'XX', ARGV[3], ARGV[1])
return 1
`)

// ARGV[3]: progress.
var progressScript = redis.NewScript(leaseCheck + `
redis.call('HSET', KEYS[2], 'progress', ARGV[3])
return 1
`)

// KEYS[3]: completed. ARGV[3]: now ms.
var completeScript = redis.NewScript(leaseCheck + `
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], 'leaseToken')
redis.call('HSET', KEYS[2], 'state', 'completed', 'progress', 100, 'finishedOn', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// KEYS[3]: delayed. ARGV[3]: available at ms, ARGV[4]: reason.
var requeueScript = redis.NewScript(leaseCheck + `
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], 'leaseToken')
redis.call('HINCRBY', KEYS[2], 'attemptsMade', 1)
redis.call('HSET', KEYS[2], 'state', 'delayed', 'failedReason', ARGV[4], 'availableAt', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)

// KEYS[3]: failed. ARGV[3]: now ms, ARGV[4]: reason.
var failScript = redis.NewScript(leaseCheck + `
redis.call('ZREM', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[2], 'leaseToken')
redis.call('HINCRBY', KEYS[2], 'attemptsMade', 1)
redis.call('HSET', KEYS[2], 'state', 'failed', 'failedReason', ARGV[4], 'finishedOn', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
return 1
`)
