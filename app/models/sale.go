package models

import (
	"time"
)

// Sale status values
const (
	SaleStatusPaid    = "OK"
	SaleStatusPending = "PENDENTE"
)

// Sale represents a transaction against one or more products for a named
// customer. TotalPrice is derived and recomputed on every create/update so it
// always equals the sum of the item subtotals.
type Sale struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Customer      string     `gorm:"not null;index" json:"customer"` // natural join key to Customer.Name
	Date          string     `gorm:"not null" json:"date"`           // ISO timestamp
	Status        string     `gorm:"not null" json:"status"`         // "OK" or "PENDENTE"
	PaymentMethod string     `json:"payment_method"`
	TotalPrice    float64    `gorm:"not null" json:"total_price"`
	Items         []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SaleItem is one product-quantity entry within a sale. Prices and the
// type/flavor pair are snapshotted at sale time so historical sales stay
// stable when the catalog changes or the product is deleted (ProductID goes
// NULL, the snapshots remain).
type SaleItem struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	SaleID        uint     `gorm:"not null;index" json:"sale_id"`
	ProductID     *uint    `gorm:"index" json:"product_id,omitempty"`
	Product       *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"product,omitempty"`
	ProductType   string   `json:"product_type"`
	ProductFlavor string   `json:"product_flavor"`
	Quantity      int      `gorm:"not null" json:"quantity"`
	BasePrice     float64  `gorm:"not null" json:"base_price"`
	PromoPrice    *float64 `json:"promo_price,omitempty"`
	Subtotal      float64  `gorm:"not null" json:"subtotal"`
	// Promotional breakdown, kept for display only.
	DiscountedQty int       `json:"discounted_qty"`
	FullPriceQty  int       `json:"full_price_qty"`
	CreatedAt     time.Time `json:"created_at"`
}
