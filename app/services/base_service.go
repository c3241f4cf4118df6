package services

import (
	"DoceApp/app/database"
	"DoceApp/app/models"
	"fmt"

	"gorm.io/gorm"
)

// BaseService provides common functionality for all services
type BaseService struct {
	db *gorm.DB
}

// NewBaseService creates a new base service instance
func NewBaseService() *BaseService {
	return &BaseService{
		db: database.GetDB(),
	}
}

// GetDB returns the database connection
func (b *BaseService) GetDB() *gorm.DB {
	return b.db
}

// SetDB sets the database connection (useful for testing)
func (b *BaseService) SetDB(db *gorm.DB) {
	b.db = db
}

// EnsureDB checks if database is initialized and returns an error if not
func (b *BaseService) EnsureDB() error {
	if b.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return nil
}

// WithTransaction executes a function within a database transaction
func (b *BaseService) WithTransaction(fn func(tx *gorm.DB) error) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.db.Transaction(fn)
}

// First finds the first record matching the given conditions
func (b *BaseService) First(dest interface{}, conds ...interface{}) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.db.First(dest, conds...).Error
}

// Find finds all records matching the given conditions
func (b *BaseService) Find(dest interface{}, conds ...interface{}) error {
	if err := b.EnsureDB(); err != nil {
		return err
	}
	return b.db.Find(dest, conds...).Error
}

// CreateStockMovement writes one audit row for a SoldQty change.
func CreateStockMovement(tx *gorm.DB, productID uint, movementType string, quantity, previousQty, newQty int, reference string) error {
	movement := models.StockMovement{
		ProductID:   productID,
		Type:        movementType,
		Quantity:    quantity,
		PreviousQty: previousQty,
		NewQty:      newQty,
		Reference:   reference,
	}
	return tx.Create(&movement).Error
}
