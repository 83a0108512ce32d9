package tokens

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/common"
	"github.com/dmitrijs2005/vaultify/internal/server/models"
	"github.com/go-redis/redis"
)

const redisKeyPrefix = "presigned:"

// RedisStore keeps tokens in redis with the token TTL as key expiry, so
// expired tokens disappear without a sweep.
type RedisStore struct {
	db *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", address, err)
	}

	return &RedisStore{db: client}, nil
}

func (s *RedisStore) Put(key string, t *models.DelegatedToken, ttl time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	if err := s.db.Set(redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(key string) (*models.DelegatedToken, error) {
	data, err := s.db.Get(redisKeyPrefix + key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	t := &models.DelegatedToken{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return t, nil
}

func (s *RedisStore) Delete(key string) error {
	if err := s.db.Del(redisKeyPrefix + key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (s *RedisStore) Close() error {
	return s.db.Close()
}
