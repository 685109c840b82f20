package redis

import (
	"context"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaSlidingWindow: KEYS[1]=ключ, ARGV = now, windowStart, windowSec, member, limit.
// Возвращает число запросов в окне или -1, если лимит исчерпан.
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
end
return -1
`

// RateLimiter — распределённый лимит запросов со скользящим окном
type RateLimiter struct {
	rdb *rd.Client
	now func() time.Time
}

func NewRateLimiter(rdb *rd.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb, now: time.Now}
}

// Allow регистрирует запрос и сообщает, укладывается ли он в limit за window
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	t := l.now()
	now := t.UnixMilli()
	windowStart := now - window.Milliseconds()
	windowSec := int64(window.Seconds())
	if windowSec < 1 {
		windowSec = 1
	}
	member := fmt.Sprintf("%d-%d", now, t.UnixNano())

	res, err := l.rdb.Eval(ctx, luaSlidingWindow, []string{key}, now, windowStart, windowSec, member, limit).Int()
	if err != nil {
		return false, err
	}
	return res >= 0, nil
}
