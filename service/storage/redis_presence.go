package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var rdb *redis.Client

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

// presence key: im:presence:<user>
// Value: gateway_id, TTL controls the online validity period
func presenceKey(user string) string { return "im:presence:" + user }

// releaseScript deletes the presence entry only while it still points at the
// releasing gateway. A late disconnect on one gateway must not evict a fresh
// registration written through another.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisPresence mirrors gateway-local registrations into redis so peers can
// route cross-gateway pushes. Entries expire unless renewed by the owning
// connection's keepalive traffic.
type RedisPresence struct{}

func NewRedisPresence() *RedisPresence { return &RedisPresence{} }

// Online marks the user online on gatewayID and (re)arms the TTL.
func (RedisPresence) Online(ctx context.Context, user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// Offline removes the entry if it still belongs to gatewayID.
func (RedisPresence) Offline(ctx context.Context, user, gatewayID string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return releaseScript.Run(ctx, rdb, []string{presenceKey(user)}, gatewayID).Err()
}

// Lookup reports which gateway currently holds the user, if any.
func (RedisPresence) Lookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
