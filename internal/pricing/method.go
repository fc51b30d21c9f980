// Package pricing implements the checkout pricing engine: shipping
// eligibility, tax resolution, coupon application, and order totals.
package pricing

// Method identifies a shipping method. The set is closed: every method the
// storefront offers is declared here with its required metadata, so a method
// can never be missing display data at runtime.
type Method string

const (
	MethodAir Method = "air"
	MethodSea Method = "sea"
)

// MethodInfo carries the static catalog entry for a shipping method.
type MethodInfo struct {
	ID                   Method `json:"id"`
	DisplayName          string `json:"displayName"`
	Carrier              string `json:"carrier"`
	Description          string `json:"description"`
	FallbackDurationDays int    `json:"fallbackDurationDays"`
}

var methodCatalog = map[Method]MethodInfo{
	MethodAir: {
		ID:                   MethodAir,
		DisplayName:          "Air Freight",
		Carrier:              "DHL",
		Description:          "Fastest option, delivered by air cargo",
		FallbackDurationDays: 7,
	},
	MethodSea: {
		ID:                   MethodSea,
		DisplayName:          "Sea Freight",
		Carrier:              "Maersk",
		Description:          "Economy option, delivered by container ship",
		FallbackDurationDays: 30,
	},
}

// Methods returns all shipping methods in display order.
func Methods() []Method {
	return []Method{MethodAir, MethodSea}
}

// Valid reports whether m names a known shipping method.
func (m Method) Valid() bool {
	_, ok := methodCatalog[m]
	return ok
}

// Info returns the catalog entry for m. Unknown methods return a zero entry.
func (m Method) Info() MethodInfo {
	return methodCatalog[m]
}
