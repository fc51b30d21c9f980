// Package catalog parses and validates the storefront.yaml file that
// describes the shop, its products, shipping methods, and tax rates.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/money"
)

type StorefrontConfig struct {
	Shop     ShopConfig      `yaml:"shop"`
	Products []ProductConfig `yaml:"products"`
	Shipping ShippingConfig  `yaml:"shipping"`
	Tax      TaxSection      `yaml:"tax"`
}

type ShopConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	Support  string `yaml:"support_email"`
}

type ShippingConfig struct {
	Methods []MethodConfig `yaml:"methods"`
}

type MethodConfig struct {
	ID                   string `yaml:"id"`
	DisplayName          string `yaml:"display_name"`
	Carrier              string `yaml:"carrier"`
	Description          string `yaml:"description"`
	FallbackDurationDays int    `yaml:"fallback_duration_days"`
}

type TaxSection struct {
	DefaultRate string             `yaml:"default_rate"`
	Countries   []CountryRateEntry `yaml:"countries"`
}

type CountryRateEntry struct {
	Code   string `yaml:"code"`
	Rate   string `yaml:"rate"`
	Active bool   `yaml:"active"`
}

type ProductConfig struct {
	SKU         string          `yaml:"sku"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	UnitPrice   string          `yaml:"unit_price"`
	Active      bool            `yaml:"active"`
	Shipping    ProductShipping `yaml:"shipping"`
}

// ProductShipping carries per-method shipping data. Fields are left untyped
// because upstream product feeds deliver them inconsistently: bare numbers,
// quoted strings with currency glyphs, or missing entirely. The pricing
// evaluator decides what counts as usable.
type ProductShipping struct {
	AirPrice        any `yaml:"air_price"`
	AirDurationDays any `yaml:"air_duration_days"`
	SeaPrice        any `yaml:"sea_price"`
	SeaDurationDays any `yaml:"sea_duration_days"`
}

// LineItem converts a product entry into a cart line at the given quantity.
func (p ProductConfig) LineItem(quantity int) models.LineItem {
	return models.LineItem{
		ID:                  p.SKU,
		Name:                p.Name,
		UnitPrice:           money.NormalizeAmount(p.UnitPrice),
		Quantity:            quantity,
		AirShippingPrice:    p.Shipping.AirPrice,
		AirShippingDuration: p.Shipping.AirDurationDays,
		SeaShippingPrice:    p.Shipping.SeaPrice,
		SeaShippingDuration: p.Shipping.SeaDurationDays,
	}
}

// Product looks up a product by SKU.
func (c *StorefrontConfig) Product(sku string) (ProductConfig, bool) {
	for _, product := range c.Products {
		if product.SKU == sku {
			return product, true
		}
	}
	return ProductConfig{}, false
}

// TaxConfig converts the tax section into the resolver's lookup shape.
// Country codes are upper-cased so a lowercase config entry still matches
// the resolver's upper-cased lookup.
func (c *StorefrontConfig) TaxConfig() models.TaxConfig {
	cfg := models.TaxConfig{
		DefaultRate: money.NormalizeAmount(c.Tax.DefaultRate),
		Countries:   make(map[string]models.CountryTaxRate, len(c.Tax.Countries)),
	}
	for _, entry := range c.Tax.Countries {
		code := strings.ToUpper(strings.TrimSpace(entry.Code))
		cfg.Countries[code] = models.CountryTaxRate{
			CountryCode: code,
			Rate:        money.NormalizeAmount(entry.Rate),
			Active:      entry.Active,
		}
	}
	return cfg
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*StorefrontConfig, error) {
	var config StorefrontConfig
	if err := yaml.Unmarshal(content, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func (p *Parser) ParseFile(path string) (*StorefrontConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(content)
}
