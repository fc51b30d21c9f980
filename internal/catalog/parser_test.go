package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

const sampleStorefront = `
shop:
  name: Tidecart Demo
  currency: usd
  support_email: support@example.com
products:
  - sku: HOODIE_V1
    name: Hoodie
    unit_price: "50.00"
    active: true
    shipping:
      air_price: 10
      air_duration_days: 5
      sea_price: "₦21"
      sea_duration_days: "30"
  - sku: CAP_V1
    name: Cap
    unit_price: "20"
    active: true
    shipping:
      air_price: 4.5
shipping:
  methods:
    - id: air
      display_name: Air Freight
      carrier: DHL
      fallback_duration_days: 7
    - id: sea
      display_name: Sea Freight
      carrier: Maersk
      fallback_duration_days: 30
tax:
  default_rate: "0.075"
  countries:
    - code: NG
      rate: "0.075"
      active: true
    - code: GH
      rate: "0.125"
      active: false
`

func TestParser_Parse(t *testing.T) {
	t.Parallel()

	config, err := NewParser().Parse([]byte(sampleStorefront))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if config.Shop.Name != "Tidecart Demo" {
		t.Errorf("shop name = %q, want Tidecart Demo", config.Shop.Name)
	}
	if len(config.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(config.Products))
	}
	if len(config.Shipping.Methods) != 2 {
		t.Fatalf("got %d shipping methods, want 2", len(config.Shipping.Methods))
	}
	if config.Shipping.Methods[1].FallbackDurationDays != 30 {
		t.Errorf("sea fallback = %d, want 30", config.Shipping.Methods[1].FallbackDurationDays)
	}
}

func TestParser_ParseInvalidYAML(t *testing.T) {
	t.Parallel()

	if _, err := NewParser().Parse([]byte("shop: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestProductConfig_LineItem(t *testing.T) {
	t.Parallel()

	config, err := NewParser().Parse([]byte(sampleStorefront))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	item := config.Products[0].LineItem(2)
	if item.ID != "HOODIE_V1" {
		t.Errorf("ID = %q, want HOODIE_V1", item.ID)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("50")) {
		t.Errorf("UnitPrice = %s, want 50", item.UnitPrice)
	}
	if item.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2", item.Quantity)
	}
	// Loose shipping fields pass through untouched for the evaluator.
	if item.SeaShippingPrice != "₦21" {
		t.Errorf("SeaShippingPrice = %v, want raw string", item.SeaShippingPrice)
	}
}

func TestStorefrontConfig_TaxConfig(t *testing.T) {
	t.Parallel()

	config, err := NewParser().Parse([]byte(sampleStorefront))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	taxCfg := config.TaxConfig()
	if !taxCfg.DefaultRate.Equal(decimal.RequireFromString("0.075")) {
		t.Errorf("DefaultRate = %s, want 0.075", taxCfg.DefaultRate)
	}
	ng, ok := taxCfg.Countries["NG"]
	if !ok || !ng.Active {
		t.Fatalf("NG entry = %+v, want active entry", ng)
	}
	if gh := taxCfg.Countries["GH"]; gh.Active {
		t.Error("GH entry should be inactive")
	}
}

func TestStorefrontConfig_TaxConfigUppercasesCodes(t *testing.T) {
	t.Parallel()

	config := &StorefrontConfig{
		Tax: TaxSection{
			DefaultRate: "0.05",
			Countries: []CountryRateEntry{
				{Code: "ng", Rate: "0.20", Active: true},
				{Code: " ke ", Rate: "0.16", Active: true},
			},
		},
	}

	taxCfg := config.TaxConfig()
	for _, code := range []string{"NG", "KE"} {
		entry, ok := taxCfg.Countries[code]
		if !ok {
			t.Fatalf("entry %q missing; keys must be upper-cased for the resolver", code)
		}
		if entry.CountryCode != code {
			t.Errorf("CountryCode = %q, want %q", entry.CountryCode, code)
		}
	}
	if !taxCfg.Countries["NG"].Rate.Equal(decimal.RequireFromString("0.20")) {
		t.Errorf("NG rate = %s, want 0.20", taxCfg.Countries["NG"].Rate)
	}
}
