package services

import (
	"DoceApp/app/database"
	"DoceApp/app/models"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Stock movement types
const (
	MovementSale       = "sale"
	MovementReversal   = "reversal"
	MovementAdjustment = "adjustment"
)

// BatchService manages production batches, their products and the stock
// ledger. All stock counter changes go through the *InTransaction helpers so
// every change leaves a StockMovement row behind.
type BatchService struct {
	*BaseService
	configSvc *ConfigService
}

// NewBatchService creates a new batch service
func NewBatchService() *BatchService {
	return &BatchService{
		BaseService: &BaseService{db: database.GetDB()},
		configSvc:   NewConfigService(),
	}
}

// SetDB sets the database connection on the service and its dependencies
func (s *BatchService) SetDB(db *gorm.DB) {
	s.BaseService.SetDB(db)
	s.configSvc.SetDB(db)
}

// ProductInput describes one product line to add to a batch. Price fields are
// optional: when BasePrice is nil the active pricing template for the type is
// used, and creation fails if no template exists either.
type ProductInput struct {
	Type       string   `json:"type"`
	Flavor     string   `json:"flavor"`
	InitialQty int      `json:"initial_qty"`
	UnitCost   *float64 `json:"unit_cost,omitempty"`
	BasePrice  *float64 `json:"base_price,omitempty"`
	PromoPrice *float64 `json:"promo_price,omitempty"`
	PromoQty   *int     `json:"promo_qty,omitempty"`
}

// BatchInput describes a new production batch with its products.
type BatchInput struct {
	Date     string         `json:"date"`
	Note     string         `json:"note"`
	Products []ProductInput `json:"products"`
}

// CreateBatch creates a batch and its products in one transaction. Each
// product resolves its prices from the request, falling back to the active
// pricing template for its type.
func (s *BatchService) CreateBatch(input BatchInput) (*models.Batch, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if len(input.Products) == 0 {
		return nil, models.ValidationError("batch needs at least one product")
	}

	batch := &models.Batch{
		Date:   date,
		Note:   input.Note,
		Active: true,
	}

	err := s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		for _, in := range input.Products {
			product, err := s.buildProduct(batch.ID, in)
			if err != nil {
				return err
			}
			if err := tx.Create(product).Error; err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}
			batch.Products = append(batch.Products, *product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

// buildProduct validates a product line and resolves its pricing and unit
// cost. Resolution order: explicit request values, then the active pricing
// template for the type, then ErrMissingPrice.
func (s *BatchService) buildProduct(batchID uint, in ProductInput) (*models.Product, error) {
	productType := strings.TrimSpace(in.Type)
	flavor := strings.TrimSpace(in.Flavor)
	if productType == "" {
		return nil, models.ValidationError("product type is required")
	}
	if flavor == "" {
		return nil, models.ValidationError("product flavor is required")
	}
	if in.InitialQty < 0 {
		return nil, models.ValidationError("initial quantity cannot be negative")
	}

	product := &models.Product{
		BatchID:    batchID,
		Type:       productType,
		Flavor:     flavor,
		InitialQty: in.InitialQty,
	}

	if in.BasePrice != nil {
		product.BasePrice = *in.BasePrice
		product.PromoPrice = in.PromoPrice
		product.PromoQty = in.PromoQty
	} else {
		template, err := s.configSvc.GetConfigByType(productType)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", models.ErrMissingPrice, productType)
			}
			return nil, err
		}
		product.ProductConfigID = &template.ID
		product.BasePrice = template.BasePrice
		product.PromoPrice = template.PromoPrice
		product.PromoQty = template.PromoQty
	}

	if err := validatePromotion(product.BasePrice, product.PromoPrice, product.PromoQty); err != nil {
		return nil, err
	}

	if in.UnitCost != nil {
		product.UnitCost = *in.UnitCost
	} else {
		product.UnitCost = s.configSvc.DefaultUnitCost(productType)
	}
	if product.UnitCost < 0 {
		return nil, models.ValidationError("unit cost cannot be negative")
	}

	return product, nil
}

// validatePromotion enforces the promotion shape: both fields or neither,
// promo price below base price, group size of at least 2.
func validatePromotion(basePrice float64, promoPrice *float64, promoQty *int) error {
	if basePrice < 0 {
		return models.ValidationError("base price cannot be negative")
	}
	if promoPrice == nil && promoQty == nil {
		return nil
	}
	if promoPrice == nil || promoQty == nil {
		return models.ValidationError("promotion needs both promo price and promo quantity")
	}
	if *promoPrice >= basePrice {
		return models.ValidationError("promo price must be below base price")
	}
	if *promoQty < 2 {
		return models.ValidationError("promo quantity must be at least 2")
	}
	return nil
}

// GetBatch returns a batch with its products
func (s *BatchService) GetBatch(id uint) (*models.Batch, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var batch models.Batch
	err := s.db.Preload("Products").First(&batch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("batch %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return &batch, nil
}

// GetAllBatches returns all batches, newest first, with products preloaded
func (s *BatchService) GetAllBatches() ([]models.Batch, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var batches []models.Batch
	err := s.db.Preload("Products").Order("date DESC, id DESC").Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get batches: %w", err)
	}
	return batches, nil
}

// GetActiveBatches returns active batches that still have sellable stock
func (s *BatchService) GetActiveBatches() ([]models.Batch, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var batches []models.Batch
	err := s.db.Preload("Products").
		Where("active = ?", true).
		Order("date DESC, id DESC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get active batches: %w", err)
	}

	available := make([]models.Batch, 0, len(batches))
	for _, batch := range batches {
		for _, product := range batch.Products {
			if product.Available() > 0 {
				available = append(available, batch)
				break
			}
		}
	}
	return available, nil
}

// UpdateBatch updates the batch header fields
func (s *BatchService) UpdateBatch(id uint, date, note string) (*models.Batch, error) {
	batch, err := s.GetBatch(id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(date) != "" {
		batch.Date = strings.TrimSpace(date)
	}
	batch.Note = note

	if err := s.db.Save(batch).Error; err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}
	return batch, nil
}

// ToggleActive flips the batch active flag
func (s *BatchService) ToggleActive(id uint) (*models.Batch, error) {
	batch, err := s.GetBatch(id)
	if err != nil {
		return nil, err
	}

	batch.Active = !batch.Active
	if err := s.db.Model(&models.Batch{}).Where("id = ?", id).Update("active", batch.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle batch: %w", err)
	}
	return batch, nil
}

// DeleteBatch removes a batch and its products. Historical sale items keep
// their snapshots; their product reference is cleared.
func (s *BatchService) DeleteBatch(id uint) error {
	if _, err := s.GetBatch(id); err != nil {
		return err
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SaleItem{}).
			Where("product_id IN (?)", tx.Model(&models.Product{}).Select("id").Where("batch_id = ?", id)).
			Update("product_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach sale items: %w", err)
		}

		if err := tx.Where("product_id IN (?)", tx.Model(&models.Product{}).Select("id").Where("batch_id = ?", id)).
			Delete(&models.StockMovement{}).Error; err != nil {
			return fmt.Errorf("failed to delete stock movements: %w", err)
		}

		if err := tx.Where("batch_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return fmt.Errorf("failed to delete products: %w", err)
		}

		if err := tx.Delete(&models.Batch{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		return nil
	})
}

// AddProduct adds a product line to an existing batch
func (s *BatchService) AddProduct(batchID uint, input ProductInput) (*models.Product, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}

	product, err := s.buildProduct(batchID, input)
	if err != nil {
		return nil, err
	}

	if err := s.db.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}
	return product, nil
}

// UpdateProduct updates a product's flavor, stock ceiling and pricing.
// InitialQty cannot drop below what was already sold.
func (s *BatchService) UpdateProduct(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	if flavor := strings.TrimSpace(input.Flavor); flavor != "" {
		product.Flavor = flavor
	}
	if input.InitialQty > 0 {
		if input.InitialQty < product.SoldQty {
			return nil, models.ValidationError("initial quantity %d is below sold quantity %d", input.InitialQty, product.SoldQty)
		}
		product.InitialQty = input.InitialQty
	}
	if input.BasePrice != nil {
		product.BasePrice = *input.BasePrice
		product.PromoPrice = input.PromoPrice
		product.PromoQty = input.PromoQty
	}
	if input.UnitCost != nil {
		product.UnitCost = *input.UnitCost
	}

	if err := validatePromotion(product.BasePrice, product.PromoPrice, product.PromoQty); err != nil {
		return nil, err
	}
	if product.UnitCost < 0 {
		return nil, models.ValidationError("unit cost cannot be negative")
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteProduct removes a product that has never been sold. Products
// referenced by sale items are kept so history stays explainable.
func (s *BatchService) DeleteProduct(id uint) error {
	if _, err := s.GetProduct(id); err != nil {
		return err
	}

	var refs int64
	if err := s.db.Model(&models.SaleItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
		return fmt.Errorf("failed to check sale references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("product %d: %w", id, models.ErrProductHasSales)
	}

	return s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.StockMovement{}).Error; err != nil {
			return fmt.Errorf("failed to delete stock movements: %w", err)
		}
		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

// GetProduct returns a single product
func (s *BatchService) GetProduct(id uint) (*models.Product, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.db.First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// GetProductsByBatch returns all products of a batch
func (s *BatchService) GetProductsByBatch(batchID uint) ([]models.Product, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var products []models.Product
	err := s.db.Where("batch_id = ?", batchID).Order("type, flavor").Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// GetProductsByIDs loads products keyed by id, for sale pricing
func (s *BatchService) GetProductsByIDs(ids []uint) (map[uint]*models.Product, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var products []models.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// AdjustStock sets a product's sold counter to a new value as a manual
// correction, recording an adjustment movement with the given reason.
func (s *BatchService) AdjustStock(productID uint, newSoldQty int, reason string) (*models.Product, error) {
	product, err := s.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	if newSoldQty < 0 || newSoldQty > product.InitialQty {
		return nil, models.ValidationError("sold quantity must be between 0 and %d", product.InitialQty)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, models.ValidationError("adjustment reason is required")
	}

	previous := product.SoldQty
	err = s.WithTransaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("sold_qty", newSoldQty).Error; err != nil {
			return fmt.Errorf("failed to adjust stock: %w", err)
		}
		return CreateStockMovement(tx, productID, MovementAdjustment, newSoldQty-previous, previous, newSoldQty, reason)
	})
	if err != nil {
		return nil, err
	}

	product.SoldQty = newSoldQty
	return product, nil
}

// ReserveStockInTransaction increments a product's sold counter inside an
// existing transaction, failing with InsufficientStockError when the request
// exceeds availability. Callers reserve every line of a sale in one
// transaction so a late failure rolls back the earlier lines too.
func (s *BatchService) ReserveStockInTransaction(tx *gorm.DB, productID uint, quantity int, reference string) error {
	if quantity <= 0 {
		return models.ValidationError("reserve quantity must be positive")
	}

	var product models.Product
	err := tx.First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	if quantity > product.Available() {
		return &models.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.Available(),
		}
	}

	newSold := product.SoldQty + quantity
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).
		Update("sold_qty", newSold).Error; err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	return CreateStockMovement(tx, productID, MovementSale, quantity, product.SoldQty, newSold, reference)
}

// ReleaseStockInTransaction returns previously reserved units inside an
// existing transaction. Products deleted after the sale are skipped; the sold
// counter never drops below zero.
func (s *BatchService) ReleaseStockInTransaction(tx *gorm.DB, productID uint, quantity int, reference string) error {
	if quantity <= 0 {
		return nil
	}

	var product models.Product
	err := tx.First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	newSold := product.SoldQty - quantity
	if newSold < 0 {
		newSold = 0
	}

	if err := tx.Model(&models.Product{}).Where("id = ?", productID).
		Update("sold_qty", newSold).Error; err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}

	return CreateStockMovement(tx, productID, MovementReversal, -quantity, product.SoldQty, newSold, reference)
}

// GetStockMovements returns the audit trail for a product, newest first
func (s *BatchService) GetStockMovements(productID uint) ([]models.StockMovement, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var movements []models.StockMovement
	err := s.db.Where("product_id = ?", productID).Order("id DESC").Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get stock movements: %w", err)
	}
	return movements, nil
}
