package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tidecartapp/tidecart/internal/checkout"
	"github.com/tidecartapp/tidecart/internal/crypto"
)

const redisKeyPrefix = "checkout:"

// RedisStore persists checkout sessions in redis. Sessions hold customer
// PII (contact info, addresses), so the JSON document is encrypted at rest.
type RedisStore struct {
	client    *redis.Client
	encryptor crypto.Encryptor
}

func NewRedisStore(ctx context.Context, addr, password string, db int, encryptor crypto.Encryptor) (*RedisStore, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w (and failed to close client: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, encryptor: encryptor}, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (*checkout.Session, bool) {
	if r == nil || r.client == nil || key == "" || ctx == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ciphertext, err := r.client.Get(ctx, redisSessionKey(key)).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}

	plaintext, err := r.encryptor.Decrypt(ciphertext)
	if err != nil {
		return nil, false
	}

	var s checkout.Session
	if err := json.Unmarshal([]byte(plaintext), &s); err != nil {
		return nil, false
	}

	return &s, true
}

func (r *RedisStore) Set(ctx context.Context, key string, s *checkout.Session, ttl time.Duration) {
	if r == nil || r.client == nil || key == "" || s == nil || ctx == nil {
		return
	}

	val, err := json.Marshal(s)
	if err != nil {
		return
	}

	ciphertext, err := r.encryptor.Encrypt(string(val))
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, redisSessionKey(key), ciphertext, ttl).Err(); err != nil {
		return
	}
}

func (r *RedisStore) Delete(ctx context.Context, key string) {
	if r == nil || r.client == nil || key == "" || ctx == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Del(ctx, redisSessionKey(key)).Err(); err != nil {
		return
	}
}

func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func redisSessionKey(id string) string {
	return redisKeyPrefix + id
}
