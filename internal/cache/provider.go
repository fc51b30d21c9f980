// Package cache provides caching for storefront settings lookups and
// payment webhook idempotency.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Provider is a string KV cache with TTLs. Values are small JSON documents
// (tax tables, method catalogs) or idempotency markers.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// TaxConfigKey caches the merged file+db tax table.
func TaxConfigKey() string {
	return "settings:tax_config"
}

// MethodCatalogKey caches the shipping method catalog.
func MethodCatalogKey() string {
	return "settings:shipping_methods"
}

// CouponKey caches individual coupon lookups by normalized code.
func CouponKey(code string) string {
	return "coupon:" + code
}

// WebhookKey marks processed payment webhook events for idempotency.
func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}
