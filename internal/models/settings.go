package models

import (
	"github.com/shopspring/decimal"
)

// CountryTaxRate is one configured country override. Inactive entries are
// kept in the table but ignored by the resolver.
type CountryTaxRate struct {
	CountryCode string          `json:"countryCode"`
	Rate        decimal.Decimal `json:"rate"`
	Active      bool            `json:"active"`
}

// TaxConfig is the effective tax configuration for a storefront: a default
// rate plus per-country overrides keyed by upper-case ISO country code.
type TaxConfig struct {
	DefaultRate decimal.Decimal           `json:"defaultRate"`
	Countries   map[string]CountryTaxRate `json:"countries"`
}
