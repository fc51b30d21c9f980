package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
)

// ResolveTaxRate returns the effective tax rate for a destination country:
// the configured country rate when present and active, otherwise the default
// rate. An empty country code (address step not completed yet) always yields
// the default, so the rate is usable before an address is known.
func ResolveTaxRate(countryCode string, cfg models.TaxConfig) decimal.Decimal {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return cfg.DefaultRate
	}
	entry, ok := cfg.Countries[code]
	if !ok || !entry.Active {
		return cfg.DefaultRate
	}
	return entry.Rate
}
