package pricing

import (
	"strings"
	"testing"
	"time"

	"github.com/tidecartapp/tidecart/internal/models"
)

func TestAggregate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		subtotal  string
		shipping  string
		taxRate   string
		discount  string
		wantTax   string
		wantTotal string
	}{
		{
			name:      "subtotal 100 with 15 percent tax and 10 percent coupon",
			subtotal:  "100",
			shipping:  "42",
			taxRate:   "0.15",
			discount:  "10",
			wantTax:   "15",
			wantTotal: "147",
		},
		{
			name:      "tax computed on pre-discount subtotal",
			subtotal:  "200",
			shipping:  "0",
			taxRate:   "0.1",
			discount:  "200",
			wantTax:   "20",
			wantTotal: "20",
		},
		{
			name:      "zero everything",
			subtotal:  "0",
			shipping:  "0",
			taxRate:   "0",
			discount:  "0",
			wantTax:   "0",
			wantTotal: "0",
		},
		{
			name:      "oversized discount leaves total negative",
			subtotal:  "50",
			shipping:  "5",
			taxRate:   "0",
			discount:  "60",
			wantTax:   "0",
			wantTotal: "-5",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			totals := Aggregate(dec(tc.subtotal), dec(tc.shipping), dec(tc.taxRate), dec(tc.discount))
			if !totals.Tax.Equal(dec(tc.wantTax)) {
				t.Fatalf("Tax = %s, want %s", totals.Tax, tc.wantTax)
			}
			if !totals.Total.Equal(dec(tc.wantTotal)) {
				t.Fatalf("Total = %s, want %s", totals.Total, tc.wantTotal)
			}
		})
	}
}

func TestBuildDraft(t *testing.T) {
	t.Parallel()

	items := []models.LineItem{
		{ID: "a", Name: "Hoodie", UnitPrice: dec("40"), Quantity: 2},
		{ID: "b", Name: "Cap", UnitPrice: dec("20"), Quantity: 1},
	}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	draft, err := BuildDraft(DraftInput{
		Items:        items,
		Method:       MethodSea,
		ShippingCost: dec("42"),
		TaxRate:      dec("0.15"),
		Discount:     dec("10"),
		CouponCode:   "SAVE10",
		Contact:      models.ContactInfo{Email: "jo@example.com", Phone: "+2348012345678"},
	}, now)
	if err != nil {
		t.Fatalf("BuildDraft() error: %v", err)
	}

	if !draft.Subtotal.Equal(dec("100")) {
		t.Fatalf("Subtotal = %s, want 100", draft.Subtotal)
	}
	if !draft.Tax.Equal(dec("15")) {
		t.Fatalf("Tax = %s, want 15", draft.Tax)
	}
	wantTotal := draft.Subtotal.Add(draft.ShippingCost).Add(draft.Tax).Sub(draft.Discount)
	if !draft.Total.Equal(wantTotal) {
		t.Fatalf("Total = %s, violates subtotal+shipping+tax-discount = %s", draft.Total, wantTotal)
	}
	if draft.ShippingMethodID != "sea" {
		t.Fatalf("ShippingMethodID = %q, want sea", draft.ShippingMethodID)
	}
	if !strings.HasPrefix(draft.OrderNumber, "TC-") {
		t.Fatalf("OrderNumber = %q, want TC- prefix", draft.OrderNumber)
	}
	if !draft.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %s, want %s", draft.CreatedAt, now)
	}

	// The draft owns its own copy of the line items.
	items[0].Quantity = 99
	if draft.LineItems[0].Quantity == 99 {
		t.Fatal("draft line items share backing array with caller")
	}
}

func TestBuildDraftRequiresItemsAndMethod(t *testing.T) {
	t.Parallel()

	now := time.Now()

	if _, err := BuildDraft(DraftInput{Method: MethodAir}, now); err == nil {
		t.Fatal("expected error for empty line items")
	}

	items := []models.LineItem{{ID: "a", UnitPrice: dec("10"), Quantity: 1}}
	if _, err := BuildDraft(DraftInput{Items: items}, now); err == nil {
		t.Fatal("expected error for missing shipping method")
	}
}
