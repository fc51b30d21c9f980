package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidecartapp/tidecart/internal/models"
	"github.com/tidecartapp/tidecart/internal/money"
)

// ShippingQuote is the computed price, availability, and duration for one
// shipping method given a set of line items. It is a transient computation
// result, recomputed whenever the items or the selected method change.
type ShippingQuote struct {
	MethodID              Method          `json:"methodId"`
	UnitPriceTotal        decimal.Decimal `json:"unitPriceTotal"`
	EstimatedDurationDays int             `json:"estimatedDurationDays"`
	IsAvailable           bool            `json:"isAvailable"`
}

// Evaluator derives shipping quotes from line-item data. It is stateless;
// Evaluate is a pure function of its inputs.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate aggregates the method-specific shipping data across items.
//
// An item counts toward a method only when both its price and duration for
// that method are present, non-empty, and strictly positive. Partial data
// contributes nothing. The quote is unavailable when no item qualifies, in
// which case price and duration are zero and the method must not be offered.
func (e *Evaluator) Evaluate(method Method, items []models.LineItem) ShippingQuote {
	quote := ShippingQuote{MethodID: method}
	if !method.Valid() {
		return quote
	}

	total := decimal.Zero
	maxDuration := 0
	for _, item := range items {
		price, duration, ok := shippingData(method, item)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		if duration > maxDuration {
			maxDuration = duration
		}
		quote.IsAvailable = true
	}

	if !quote.IsAvailable {
		return quote
	}

	if maxDuration == 0 {
		// Unreachable given the strict positive-duration check above, but a
		// quote must never display a zero duration.
		maxDuration = method.Info().FallbackDurationDays
	}

	quote.UnitPriceTotal = total
	quote.EstimatedDurationDays = maxDuration
	return quote
}

// shippingData extracts the method-specific price and duration from an item.
// ok is false unless both values parse and are strictly positive.
func shippingData(method Method, item models.LineItem) (decimal.Decimal, int, bool) {
	var rawPrice, rawDuration any
	switch method {
	case MethodAir:
		rawPrice, rawDuration = item.AirShippingPrice, item.AirShippingDuration
	case MethodSea:
		rawPrice, rawDuration = item.SeaShippingPrice, item.SeaShippingDuration
	default:
		return decimal.Zero, 0, false
	}

	price, err := money.ParseAmount(rawPrice)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, 0, false
	}

	duration, ok := parseDurationDays(rawDuration)
	if !ok || duration <= 0 {
		return decimal.Zero, 0, false
	}

	return price, duration, true
}

// parseDurationDays accepts the duration representations found in catalog
// data: integers, floats holding whole numbers, and numeric strings.
func parseDurationDays(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		days, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, false
		}
		return days, true
	default:
		return 0, false
	}
}
