package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var compareAndDelete = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

type RedisStore struct {
	redisCli *redis.Client
	prefix   string
}

func NewRedisStore(redisCli *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		redisCli: redisCli,
		prefix:   prefix,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.redisCli.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		log.Error("Error reading key from redis: ", err)
		return "", false, err
	}
	return res, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.redisCli.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		log.Error("Error writing key to redis: ", err)
		return err
	}
	return nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ok, err := s.redisCli.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		log.Error("Error writing key to redis: ", err)
		return false, err
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.redisCli.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := compareAndDelete.Run(ctx, s.redisCli, []string{s.prefix + key}, value).Int()
	if err != nil {
		log.Error("Error releasing redis key: ", err)
		return false, err
	}
	return n == 1, nil
}
