package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/pkg/helpers"
)

func keySessionToken(token string) string { return "session:token:" + token }
func keyUserSessions(userID string) string { return "user:sessions:" + userID }

// cachedSession is the Redis representation of a resolved session.
type cachedSession struct {
	Session *entity.Session `json:"session"`
	User    *entity.User    `json:"user"`
}

// SessionCache fronts the sessions table with Redis. A per-user token set is
// kept alongside the token keys so withdrawal can drop every cached session
// for a user without scanning.
type SessionCache struct {
	rdb *redis.Client
}

func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

func (c *SessionCache) Get(ctx context.Context, token string) (*entity.Session, *entity.User, bool) {
	if c == nil || c.rdb == nil {
		return nil, nil, false
	}
	var cs cachedSession
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, keySessionToken(token), &cs)
	if err != nil || !ok || cs.Session == nil || cs.User == nil {
		return nil, nil, false
	}
	return cs.Session, cs.User, true
}

func (c *SessionCache) Put(ctx context.Context, s *entity.Session, u *entity.User) {
	if c == nil || c.rdb == nil {
		return
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return
	}
	// Cap the cache TTL; profile updates reach the cache lazily.
	if ttl > time.Hour {
		ttl = time.Hour
	}
	key := keySessionToken(s.Token)
	if err := helpers.RedisSetJSON(ctx, c.rdb, key, cachedSession{Session: s, User: u}, ttl); err != nil {
		return
	}
	pipe := c.rdb.Pipeline()
	pipe.SAdd(ctx, keyUserSessions(s.UserID), s.Token)
	pipe.Expire(ctx, keyUserSessions(s.UserID), time.Until(s.ExpiresAt))
	_, _ = pipe.Exec(ctx)
}

func (c *SessionCache) Drop(ctx context.Context, token string) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = helpers.RedisDel(ctx, c.rdb, keySessionToken(token))
}

// DropUser removes every cached session for the user.
func (c *SessionCache) DropUser(ctx context.Context, userID string) {
	if c == nil || c.rdb == nil {
		return
	}
	setKey := keyUserSessions(userID)
	tokens, err := c.rdb.SMembers(ctx, setKey).Result()
	if err == nil {
		keys := make([]string, 0, len(tokens)+1)
		for _, t := range tokens {
			keys = append(keys, keySessionToken(t))
		}
		keys = append(keys, setKey)
		_ = helpers.RedisDel(ctx, c.rdb, keys...)
	}
}
