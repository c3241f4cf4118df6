package models

import (
	"strconv"
	"time"
)

// ProductConfig is a reusable per-type pricing template consumed when adding
// products to a batch without explicit prices. Templates replace the hardcoded
// per-type fallback prices the UI used to carry around.
type ProductConfig struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Type        string    `gorm:"not null;index" json:"type"`
	CustomLabel string    `json:"custom_label"`
	BasePrice   float64   `gorm:"not null" json:"base_price"`
	PromoPrice  *float64  `json:"promo_price,omitempty"`
	PromoQty    *int      `json:"promo_qty,omitempty"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SystemConfig stores typed key/value application settings.
type SystemConfig struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"unique;not null" json:"key"`
	Value     string    `json:"value"`
	Type      string    `json:"type"` // "string", "number", "boolean"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FloatValue parses the value as a float, returning fallback on failure or
// when the config is not numeric.
func (c *SystemConfig) FloatValue(fallback float64) float64 {
	if c == nil || c.Type != "number" {
		return fallback
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return fallback
	}
	return v
}

// BoolValue parses the value as a boolean, returning fallback on failure.
func (c *SystemConfig) BoolValue(fallback bool) bool {
	if c == nil || c.Type != "boolean" {
		return fallback
	}
	v, err := strconv.ParseBool(c.Value)
	if err != nil {
		return fallback
	}
	return v
}
