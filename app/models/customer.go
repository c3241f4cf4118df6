package models

import (
	"encoding/json"
	"time"
)

// Customer status values
const (
	CustomerStatusDebtor  = "devedor"
	CustomerStatusCurrent = "em_dia"
)

// Customer is an aggregate view derived from the customer's sales. All the
// numeric fields are recomputed from scratch by CustomerService on every sale
// mutation; they are never hand-edited.
type Customer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null;unique" json:"name"`
	TotalPurchased float64   `gorm:"not null;default:0" json:"total_purchased"`
	TotalOwed      float64   `gorm:"not null;default:0" json:"total_owed"`
	PurchaseCount  int       `gorm:"not null;default:0" json:"purchase_count"`
	LastPurchase   string    `json:"last_purchase"`
	Status         string    `gorm:"not null;default:em_dia" json:"status"`
	RegisteredAt   string    `gorm:"not null" json:"registered_at"`
	SaleIDs        string    `gorm:"not null;default:'[]'" json:"-"` // JSON array, rebuilt in full on every sync
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SaleIDList decodes the denormalized sale id list.
func (c *Customer) SaleIDList() []uint {
	var ids []uint
	if err := json.Unmarshal([]byte(c.SaleIDs), &ids); err != nil {
		return nil
	}
	return ids
}

// SetSaleIDList replaces the denormalized sale id list.
func (c *Customer) SetSaleIDList(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		c.SaleIDs = "[]"
		return
	}
	c.SaleIDs = string(data)
}
