package services

import (
	"DoceApp/app/models"
)

// PricingService computes sale subtotals. Promotions are "leve X pague Y"
// style: every complete group of PromoQty units is charged at PromoPrice per
// unit, leftover units at BasePrice. Pure computation, no database access.
type PricingService struct{}

// NewPricingService creates a new pricing service
func NewPricingService() *PricingService {
	return &PricingService{}
}

// PricedLine is a fully priced sale line: quantity, price snapshots and the
// promotional breakdown that produced the subtotal.
type PricedLine struct {
	ProductID     *uint    `json:"product_id,omitempty"`
	ProductType   string   `json:"product_type"`
	ProductFlavor string   `json:"product_flavor"`
	Quantity      int      `json:"quantity"`
	BasePrice     float64  `json:"base_price"`
	PromoPrice    *float64 `json:"promo_price,omitempty"`
	PromoQty      *int     `json:"promo_qty,omitempty"`
	DiscountedQty int      `json:"discounted_qty"`
	FullPriceQty  int      `json:"full_price_qty"`
	Subtotal      float64  `json:"subtotal"`
}

// PricingLine is the input to RecalculateLines. ProductID nil (or unknown to
// the catalog) means the line is priced from its own snapshot fields and does
// not participate in cross-line pooling.
type PricingLine struct {
	ProductID     *uint
	ProductType   string
	ProductFlavor string
	Quantity      int
	BasePrice     float64
	PromoPrice    *float64
	PromoQty      *int
}

// ComputeSubtotal prices a single quantity against a base price and optional
// promotion. Only complete promotional groups get the promo price; the
// remainder is charged at base price. Without a usable promotion the result is
// quantity times base price.
func (s *PricingService) ComputeSubtotal(quantity int, basePrice float64, promoPrice *float64, promoQty *int) (subtotal float64, discountedQty, fullPriceQty int) {
	if quantity <= 0 {
		return 0, 0, 0
	}

	if promoPrice == nil || promoQty == nil || *promoQty <= 0 {
		return float64(quantity) * basePrice, 0, quantity
	}

	fullGroups := quantity / *promoQty
	discountedQty = fullGroups * *promoQty
	fullPriceQty = quantity - discountedQty

	subtotal = float64(discountedQty)**promoPrice + float64(fullPriceQty)*basePrice
	return subtotal, discountedQty, fullPriceQty
}

// RecalculateLines prices a full set of sale lines with cross-line promotion
// pooling: lines that resolve to catalog products of the same type pool their
// quantities, the pooled total decides how many units qualify for the promo
// price, and qualifying units are assigned to lines in input order. Lines
// whose product reference does not resolve are priced standalone from their
// snapshot fields.
func (s *PricingService) RecalculateLines(lines []PricingLine, products map[uint]*models.Product) []PricedLine {
	type pool struct {
		promoQty      int
		totalQty      int
		remainingDisc int
	}
	pools := make(map[string]*pool)

	// First pass: pool quantities per product type for resolved lines whose
	// product carries a promotion.
	for _, line := range lines {
		product := s.resolve(line, products)
		if product == nil || !product.HasPromotion() {
			continue
		}
		p, ok := pools[product.Type]
		if !ok {
			p = &pool{promoQty: *product.PromoQty}
			pools[product.Type] = p
		}
		p.totalQty += line.Quantity
	}
	for _, p := range pools {
		p.remainingDisc = (p.totalQty / p.promoQty) * p.promoQty
	}

	// Second pass: assign discounted units in input order and price each line.
	priced := make([]PricedLine, 0, len(lines))
	for _, line := range lines {
		product := s.resolve(line, products)

		if product == nil {
			subtotal, disc, full := s.ComputeSubtotal(line.Quantity, line.BasePrice, line.PromoPrice, line.PromoQty)
			priced = append(priced, PricedLine{
				ProductID:     line.ProductID,
				ProductType:   line.ProductType,
				ProductFlavor: line.ProductFlavor,
				Quantity:      line.Quantity,
				BasePrice:     line.BasePrice,
				PromoPrice:    line.PromoPrice,
				PromoQty:      line.PromoQty,
				DiscountedQty: disc,
				FullPriceQty:  full,
				Subtotal:      subtotal,
			})
			continue
		}

		out := PricedLine{
			ProductID:     line.ProductID,
			ProductType:   product.Type,
			ProductFlavor: product.Flavor,
			Quantity:      line.Quantity,
			BasePrice:     product.BasePrice,
			PromoPrice:    product.PromoPrice,
			PromoQty:      product.PromoQty,
		}

		if product.HasPromotion() {
			p := pools[product.Type]
			disc := line.Quantity
			if disc > p.remainingDisc {
				disc = p.remainingDisc
			}
			p.remainingDisc -= disc
			out.DiscountedQty = disc
			out.FullPriceQty = line.Quantity - disc
			out.Subtotal = float64(disc)**product.PromoPrice + float64(out.FullPriceQty)*product.BasePrice
		} else {
			out.FullPriceQty = line.Quantity
			out.Subtotal = float64(line.Quantity) * product.BasePrice
		}

		priced = append(priced, out)
	}

	return priced
}

// PromotionApplies reports whether a line's product type reaches the pooled
// promotional threshold across all lines of the sale.
func (s *PricingService) PromotionApplies(line PricingLine, allLines []PricingLine, products map[uint]*models.Product) bool {
	product := s.resolve(line, products)
	if product == nil || !product.HasPromotion() {
		return false
	}

	total := 0
	for _, other := range allLines {
		p := s.resolve(other, products)
		if p != nil && p.HasPromotion() && p.Type == product.Type {
			total += other.Quantity
		}
	}

	return total >= *product.PromoQty
}

func (s *PricingService) resolve(line PricingLine, products map[uint]*models.Product) *models.Product {
	if line.ProductID == nil {
		return nil
	}
	return products[*line.ProductID]
}
