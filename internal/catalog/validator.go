package catalog

// Package catalog provides configuration validation.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/money"
	"github.com/tidecartapp/tidecart/internal/pricing"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var currencyCodeRegex = regexp.MustCompile(`^[a-z]{3}$`)

func (v *Validator) Validate(config *StorefrontConfig) error {
	if err := v.validateShop(&config.Shop); err != nil {
		return fmt.Errorf("shop validation failed: %w", err)
	}

	if len(config.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	skus := make(map[string]bool)
	for i, product := range config.Products {
		if err := v.validateProduct(&product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if skus[product.SKU] {
			return fmt.Errorf("duplicate SKU: %s", product.SKU)
		}
		skus[product.SKU] = true
	}

	if err := v.validateShipping(&config.Shipping); err != nil {
		return fmt.Errorf("shipping validation failed: %w", err)
	}

	if err := v.validateTax(&config.Tax); err != nil {
		return fmt.Errorf("tax validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateShop(shop *ShopConfig) error {
	if strings.TrimSpace(shop.Name) == "" {
		return fmt.Errorf("shop name is required")
	}

	if !currencyCodeRegex.MatchString(shop.Currency) {
		return fmt.Errorf("currency must be a lowercase ISO 4217 code")
	}

	return nil
}

func (v *Validator) validateProduct(product *ProductConfig) error {
	if strings.TrimSpace(product.SKU) == "" {
		return fmt.Errorf("product SKU is required")
	}

	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	price, err := money.ParseAmount(product.UnitPrice)
	if err != nil {
		return fmt.Errorf("product unit price %q is not a valid amount", product.UnitPrice)
	}
	if !price.IsPositive() {
		return fmt.Errorf("product unit price must be positive")
	}

	// Shipping fields are intentionally not validated here. Partial or
	// malformed shipping data makes a method unavailable for the item, it
	// does not make the storefront invalid.

	return nil
}

func (v *Validator) validateShipping(shipping *ShippingConfig) error {
	ids := make(map[string]bool)
	for i, method := range shipping.Methods {
		if !pricing.Method(method.ID).Valid() {
			return fmt.Errorf("method %d: unknown shipping method id %q", i, method.ID)
		}
		if ids[method.ID] {
			return fmt.Errorf("duplicate shipping method id: %s", method.ID)
		}
		ids[method.ID] = true

		if strings.TrimSpace(method.DisplayName) == "" {
			return fmt.Errorf("method %s: display name is required", method.ID)
		}
		if method.FallbackDurationDays < 0 {
			return fmt.Errorf("method %s: fallback duration must be zero or positive", method.ID)
		}
	}

	return nil
}

func (v *Validator) validateTax(tax *TaxSection) error {
	if err := validateRate(tax.DefaultRate); err != nil {
		return fmt.Errorf("default rate: %w", err)
	}

	codes := make(map[string]bool)
	for i, entry := range tax.Countries {
		code := strings.ToUpper(strings.TrimSpace(entry.Code))
		if len(code) != 2 {
			return fmt.Errorf("country %d: code must be a two-letter ISO code", i)
		}
		if codes[code] {
			return fmt.Errorf("duplicate country code: %s", code)
		}
		codes[code] = true

		if err := validateRate(entry.Rate); err != nil {
			return fmt.Errorf("country %s: %w", code, err)
		}
	}

	return nil
}

func validateRate(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	rate, err := money.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("rate %q is not a valid number", raw)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("rate must be between 0 and 1")
	}
	return nil
}
