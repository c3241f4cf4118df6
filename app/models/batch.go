package models

import (
	"time"
)

// Batch represents a production run ("remessa") that introduces a set of
// sellable product lines with starting quantities.
type Batch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      string    `gorm:"not null" json:"date"` // ISO date (YYYY-MM-DD)
	Note      string    `json:"note"`
	Active    bool      `gorm:"default:true" json:"active"`
	Products  []Product `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Product represents a type+flavor line within a batch, with its own stock
// counter and pricing. SoldQty is derived: only sale creation/update/deletion
// mutates it, always through the stock helpers in BatchService.
type Product struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	BatchID         uint           `gorm:"not null;index" json:"batch_id"`
	Batch           *Batch         `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	ProductConfigID *uint          `json:"product_config_id,omitempty"` // pricing template used, if any
	ProductConfig   *ProductConfig `gorm:"foreignKey:ProductConfigID" json:"product_config,omitempty"`
	Type            string         `gorm:"not null;index" json:"type"`
	Flavor          string         `gorm:"not null" json:"flavor"`
	InitialQty      int            `gorm:"not null" json:"initial_qty"`
	SoldQty         int            `gorm:"not null;default:0" json:"sold_qty"`
	UnitCost        float64        `gorm:"not null;default:0" json:"unit_cost"`
	BasePrice       float64        `gorm:"not null;default:0" json:"base_price"`
	PromoPrice      *float64       `json:"promo_price,omitempty"`
	PromoQty        *int           `json:"promo_qty,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Available returns the sellable units remaining for the product.
func (p *Product) Available() int {
	return p.InitialQty - p.SoldQty
}

// HasPromotion reports whether the product carries a usable promo config.
func (p *Product) HasPromotion() bool {
	return p.PromoPrice != nil && p.PromoQty != nil && *p.PromoQty > 0
}

// StockMovement is the audit trail for every change to a product's SoldQty.
type StockMovement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Product     *Product  `json:"product,omitempty"`
	Type        string    `json:"type"`     // "sale", "reversal", "adjustment"
	Quantity    int       `json:"quantity"` // positive for sales, negative for reversals
	PreviousQty int       `json:"previous_qty"`
	NewQty      int       `json:"new_qty"`
	Reference   string    `json:"reference"` // sale id, adjustment reason, etc.
	CreatedAt   time.Time `json:"created_at"`
}
