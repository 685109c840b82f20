package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// luaReleaseIfMatch удаляет ключ, только если в нём наш токен, чтобы не снять чужую блокировку.
const luaReleaseIfMatch = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker — короткоживущие блокировки на SET NX с TTL
type Locker struct {
	rdb *rd.Client
}

func NewLocker(rdb *rd.Client) *Locker {
	return &Locker{rdb: rdb}
}

// TryLock пытается занять ключ на ttl. Если ключ занят, acquired == false и ошибки нет.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	unlock = func(ctx context.Context) error {
		return l.rdb.Eval(ctx, luaReleaseIfMatch, []string{key}, token).Err()
	}
	return unlock, true, nil
}
