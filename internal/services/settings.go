package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidecartapp/tidecart/internal/cache"
	"github.com/tidecartapp/tidecart/internal/catalog"
	"github.com/tidecartapp/tidecart/internal/logging"
	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

const settingsCacheTTL = 5 * time.Minute

type taxRateStore interface {
	CountryTaxRates(ctx context.Context) ([]models.CountryTaxRate, error)
}

// SettingsService resolves storefront settings: the shipping method catalog
// and the tax configuration. The storefront file supplies the baseline;
// admin-managed rates in the database override file entries per country.
// Implements checkout.SettingsSource.
type SettingsService struct {
	storefront *catalog.StorefrontConfig
	taxRates   taxRateStore
	cache      cache.Provider
	logger     *slog.Logger
}

func NewSettingsService(storefront *catalog.StorefrontConfig, taxRates taxRateStore, cacheProvider cache.Provider, logger *slog.Logger) (*SettingsService, error) {
	if storefront == nil {
		return nil, fmt.Errorf("settings service storefront config is required")
	}

	return &SettingsService{
		storefront: storefront,
		taxRates:   taxRates,
		cache:      cacheProvider,
		logger:     logger,
	}, nil
}

// TaxConfig merges the file-based tax table with database overrides.
func (s *SettingsService) TaxConfig(ctx context.Context) (models.TaxConfig, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.TaxConfigKey()); err == nil {
			var cfg models.TaxConfig
			if err := json.Unmarshal([]byte(cached), &cfg); err == nil {
				return cfg, nil
			}
		}
	}

	cfg := s.storefront.TaxConfig()

	if s.taxRates != nil {
		overrides, err := s.taxRates.CountryTaxRates(ctx)
		if err != nil {
			return models.TaxConfig{}, fmt.Errorf("failed to load tax rate overrides: %w", err)
		}
		if cfg.Countries == nil {
			cfg.Countries = make(map[string]models.CountryTaxRate, len(overrides))
		}
		for _, entry := range overrides {
			// Admin rows may carry lowercase codes; the resolver looks up
			// upper-cased.
			entry.CountryCode = strings.ToUpper(strings.TrimSpace(entry.CountryCode))
			cfg.Countries[entry.CountryCode] = entry
		}
	}

	s.cacheSet(ctx, cache.TaxConfigKey(), cfg)
	return cfg, nil
}

// ShippingMethods returns the method catalog. File entries override the
// built-in display names and fallback durations; methods absent from the
// file keep their defaults.
func (s *SettingsService) ShippingMethods(ctx context.Context) ([]pricing.MethodInfo, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cache.MethodCatalogKey()); err == nil {
			var infos []pricing.MethodInfo
			if err := json.Unmarshal([]byte(cached), &infos); err == nil {
				return infos, nil
			}
		}
	}

	overrides := make(map[pricing.Method]catalog.MethodConfig, len(s.storefront.Shipping.Methods))
	for _, entry := range s.storefront.Shipping.Methods {
		overrides[pricing.Method(entry.ID)] = entry
	}

	infos := make([]pricing.MethodInfo, 0, len(pricing.Methods()))
	for _, method := range pricing.Methods() {
		info := method.Info()
		if override, ok := overrides[method]; ok {
			if override.DisplayName != "" {
				info.DisplayName = override.DisplayName
			}
			if override.Carrier != "" {
				info.Carrier = override.Carrier
			}
			if override.Description != "" {
				info.Description = override.Description
			}
			if override.FallbackDurationDays > 0 {
				info.FallbackDurationDays = override.FallbackDurationDays
			}
		}
		infos = append(infos, info)
	}

	s.cacheSet(ctx, cache.MethodCatalogKey(), infos)
	return infos, nil
}

func (s *SettingsService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), settingsCacheTTL); err != nil {
		logging.FromContext(ctx, s.logger).Warn("failed to cache settings", "error", err, "key", key)
	}
}
