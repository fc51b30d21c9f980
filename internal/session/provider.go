package session

import (
	"context"
	"fmt"

	"github.com/tidecartapp/tidecart/internal/crypto"
)

type Config struct {
	Provider      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Encryptor protects session PII at rest. Required for the redis
	// provider; the memory provider never leaves the process.
	Encryptor crypto.Encryptor
}

func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Encryptor)
	default:
		return nil, fmt.Errorf("unsupported session store provider: %s", cfg.Provider)
	}
}
