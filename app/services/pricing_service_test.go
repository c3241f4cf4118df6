package services

import (
	"testing"

	"DoceApp/app/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeSubtotalWithoutPromotion(t *testing.T) {
	svc := NewPricingService()

	subtotal, disc, full := svc.ComputeSubtotal(3, 5.00, nil, nil)
	assert.Equal(t, 15.00, subtotal)
	assert.Equal(t, 0, disc)
	assert.Equal(t, 3, full)
}

func TestComputeSubtotalPromotionGroups(t *testing.T) {
	svc := NewPricingService()
	promo := floatPtr(4.50)
	groupOf3 := intPtr(3)

	cases := []struct {
		name     string
		quantity int
		subtotal float64
		disc     int
		full     int
	}{
		{"below threshold", 2, 10.00, 0, 2},
		{"exact group", 3, 13.50, 3, 0},
		{"two groups", 6, 27.00, 6, 0},
		{"group plus remainder", 7, 32.00, 6, 1},
		{"zero quantity", 0, 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subtotal, disc, full := svc.ComputeSubtotal(tc.quantity, 5.00, promo, groupOf3)
			assert.InDelta(t, tc.subtotal, subtotal, 0.001)
			assert.Equal(t, tc.disc, disc)
			assert.Equal(t, tc.full, full)
		})
	}
}

func TestComputeSubtotalIgnoresBrokenPromotion(t *testing.T) {
	svc := NewPricingService()

	// Promo price without a group size cannot apply
	subtotal, disc, full := svc.ComputeSubtotal(5, 5.00, floatPtr(4.50), nil)
	assert.Equal(t, 25.00, subtotal)
	assert.Equal(t, 0, disc)
	assert.Equal(t, 5, full)
}

func truffleCatalog() map[uint]*models.Product {
	return map[uint]*models.Product{
		1: {ID: 1, Type: "trufa", Flavor: "brigadeiro", BasePrice: 5.00, PromoPrice: floatPtr(4.50), PromoQty: intPtr(3)},
		2: {ID: 2, Type: "trufa", Flavor: "limão", BasePrice: 5.00, PromoPrice: floatPtr(4.50), PromoQty: intPtr(3)},
		3: {ID: 3, Type: "surpresa", Flavor: "morango", BasePrice: 12.00},
	}
}

func TestRecalculateLinesPoolsSameType(t *testing.T) {
	svc := NewPricingService()
	products := truffleCatalog()

	id1, id2 := uint(1), uint(2)
	lines := []PricingLine{
		{ProductID: &id1, Quantity: 2},
		{ProductID: &id2, Quantity: 2},
	}

	priced := svc.RecalculateLines(lines, products)
	assert.Len(t, priced, 2)

	// Pool of 4 qualifies one group of 3: first line fully discounted,
	// second gets the leftover discounted unit.
	assert.InDelta(t, 9.00, priced[0].Subtotal, 0.001)
	assert.Equal(t, 2, priced[0].DiscountedQty)
	assert.Equal(t, 0, priced[0].FullPriceQty)

	assert.InDelta(t, 9.50, priced[1].Subtotal, 0.001)
	assert.Equal(t, 1, priced[1].DiscountedQty)
	assert.Equal(t, 1, priced[1].FullPriceQty)
}

func TestRecalculateLinesSeparateTypes(t *testing.T) {
	svc := NewPricingService()
	products := truffleCatalog()

	id1, id3 := uint(1), uint(3)
	lines := []PricingLine{
		{ProductID: &id1, Quantity: 2},
		{ProductID: &id3, Quantity: 1},
	}

	priced := svc.RecalculateLines(lines, products)

	// Two truffles alone stay below the threshold; surpresa has no promo.
	assert.InDelta(t, 10.00, priced[0].Subtotal, 0.001)
	assert.Equal(t, 0, priced[0].DiscountedQty)
	assert.InDelta(t, 12.00, priced[1].Subtotal, 0.001)
}

func TestRecalculateLinesUnresolvedUsesSnapshot(t *testing.T) {
	svc := NewPricingService()
	products := truffleCatalog()

	gone := uint(99)
	id1 := uint(1)
	lines := []PricingLine{
		{ProductID: &gone, ProductType: "trufa", ProductFlavor: "antiga", Quantity: 2,
			BasePrice: 5.00, PromoPrice: floatPtr(4.50), PromoQty: intPtr(3)},
		{ProductID: &id1, Quantity: 2},
	}

	priced := svc.RecalculateLines(lines, products)

	// The unresolved line does not pool with the live truffle line, so
	// neither reaches the threshold on its own.
	assert.InDelta(t, 10.00, priced[0].Subtotal, 0.001)
	assert.Equal(t, "antiga", priced[0].ProductFlavor)
	assert.InDelta(t, 10.00, priced[1].Subtotal, 0.001)
}

func TestPromotionApplies(t *testing.T) {
	svc := NewPricingService()
	products := truffleCatalog()

	id1, id2, id3 := uint(1), uint(2), uint(3)
	lines := []PricingLine{
		{ProductID: &id1, Quantity: 2},
		{ProductID: &id2, Quantity: 1},
		{ProductID: &id3, Quantity: 5},
	}

	assert.True(t, svc.PromotionApplies(lines[0], lines, products))
	assert.True(t, svc.PromotionApplies(lines[1], lines, products))
	assert.False(t, svc.PromotionApplies(lines[2], lines, products))

	assert.False(t, svc.PromotionApplies(lines[0], lines[:1], products))
}
