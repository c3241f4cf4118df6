package services

import (
	"DoceApp/app/database"
	"DoceApp/app/models"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SalesService handles the sale lifecycle: pricing, stock bookkeeping and the
// customer sync that follows every mutation.
type SalesService struct {
	db          *gorm.DB
	pricingSvc  *PricingService
	batchSvc    *BatchService
	customerSvc *CustomerService
	logger      *LoggerService
}

// NewSalesService creates a new sales service
func NewSalesService(logger *LoggerService) *SalesService {
	return &SalesService{
		db:          database.GetDB(),
		pricingSvc:  NewPricingService(),
		batchSvc:    NewBatchService(),
		customerSvc: NewCustomerService(),
		logger:      logger,
	}
}

// SetDB sets the database connection on the service and its dependencies
func (s *SalesService) SetDB(db *gorm.DB) {
	s.db = db
	s.batchSvc.SetDB(db)
	s.customerSvc.SetDB(db)
}

// SaleItemInput is one product-quantity pair of a sale request
type SaleItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// SaleInput describes a new sale
type SaleInput struct {
	Customer      string          `json:"customer"`
	Date          string          `json:"date"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Items         []SaleItemInput `json:"items"`
}

// SaleUpdateInput patches a sale. Nil fields are left unchanged; a non-nil
// Items slice replaces the whole item set.
type SaleUpdateInput struct {
	Customer      *string         `json:"customer,omitempty"`
	Date          *string         `json:"date,omitempty"`
	Status        *string         `json:"status,omitempty"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Items         []SaleItemInput `json:"items,omitempty"`
}

// CreateSale validates and prices the request, then inserts the sale and
// reserves stock for every line in a single transaction. Customer aggregates
// are synced after commit; a sync failure is logged but never fails the sale.
func (s *SalesService) CreateSale(input SaleInput) (*models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	customer := strings.TrimSpace(input.Customer)
	if customer == "" {
		return nil, models.ValidationError("customer name is required")
	}
	if len(input.Items) == 0 {
		return nil, models.ValidationError("sale needs at least one item")
	}

	status := input.Status
	if status == "" {
		status = models.SaleStatusPending
	}
	if status != models.SaleStatusPaid && status != models.SaleStatusPending {
		return nil, models.ValidationError("invalid status %q", status)
	}

	date := strings.TrimSpace(input.Date)
	if date == "" {
		date = time.Now().Format(time.RFC3339)
	}

	priced, err := s.priceItems(input.Items)
	if err != nil {
		return nil, err
	}

	sale := &models.Sale{
		Customer:      customer,
		Date:          date,
		Status:        status,
		PaymentMethod: input.PaymentMethod,
	}
	for _, line := range priced {
		sale.TotalPrice += line.Subtotal
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		reference := "sale:" + strconv.FormatUint(uint64(sale.ID), 10)
		for _, line := range priced {
			item := pricedLineToItem(sale.ID, line)
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
			sale.Items = append(sale.Items, item)

			if err := s.batchSvc.ReserveStockInTransaction(tx, *line.ProductID, line.Quantity, reference); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncCustomer(sale.Customer)
	return sale, nil
}

// priceItems validates item quantities, loads the referenced products and
// runs them through the pricing engine.
func (s *SalesService) priceItems(items []SaleItemInput) ([]PricedLine, error) {
	ids := make([]uint, 0, len(items))
	lines := make([]PricingLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, models.ValidationError("item quantity must be positive")
		}
		id := item.ProductID
		ids = append(ids, id)
		lines = append(lines, PricingLine{ProductID: &id, Quantity: item.Quantity})
	}

	products, err := s.batchSvc.GetProductsByIDs(ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if products[id] == nil {
			return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
		}
	}

	return s.pricingSvc.RecalculateLines(lines, products), nil
}

func pricedLineToItem(saleID uint, line PricedLine) models.SaleItem {
	return models.SaleItem{
		SaleID:        saleID,
		ProductID:     line.ProductID,
		ProductType:   line.ProductType,
		ProductFlavor: line.ProductFlavor,
		Quantity:      line.Quantity,
		BasePrice:     line.BasePrice,
		PromoPrice:    line.PromoPrice,
		Subtotal:      line.Subtotal,
		DiscountedQty: line.DiscountedQty,
		FullPriceQty:  line.FullPriceQty,
	}
}

// GetSale returns a sale with its items
func (s *SalesService) GetSale(id uint) (*models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var sale models.Sale
	err := s.db.Preload("Items").First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return &sale, nil
}

// UpdateSale patches a sale's header fields and, when items are provided,
// replaces the whole item set: old reservations are released, the new set is
// re-priced and reserved against current availability, all in one
// transaction. Both the old and new customer are synced on a rename.
func (s *SalesService) UpdateSale(id uint, input SaleUpdateInput) (*models.Sale, error) {
	sale, err := s.GetSale(id)
	if err != nil {
		return nil, err
	}

	oldCustomer := sale.Customer

	if input.Customer != nil {
		name := strings.TrimSpace(*input.Customer)
		if name == "" {
			return nil, models.ValidationError("customer name is required")
		}
		sale.Customer = name
	}
	if input.Date != nil && strings.TrimSpace(*input.Date) != "" {
		sale.Date = strings.TrimSpace(*input.Date)
	}
	if input.Status != nil {
		if *input.Status != models.SaleStatusPaid && *input.Status != models.SaleStatusPending {
			return nil, models.ValidationError("invalid status %q", *input.Status)
		}
		sale.Status = *input.Status
	}
	if input.PaymentMethod != nil {
		sale.PaymentMethod = *input.PaymentMethod
	}

	var priced []PricedLine
	if input.Items != nil {
		if len(input.Items) == 0 {
			return nil, models.ValidationError("sale needs at least one item")
		}
		priced, err = s.priceItems(input.Items)
		if err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		reference := "sale:" + strconv.FormatUint(uint64(sale.ID), 10)

		if priced != nil {
			for _, old := range sale.Items {
				if old.ProductID == nil {
					continue
				}
				if err := s.batchSvc.ReleaseStockInTransaction(tx, *old.ProductID, old.Quantity, reference); err != nil {
					return err
				}
			}
			if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
				return fmt.Errorf("failed to delete old sale items: %w", err)
			}

			sale.Items = nil
			sale.TotalPrice = 0
			for _, line := range priced {
				item := pricedLineToItem(sale.ID, line)
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("failed to create sale item: %w", err)
				}
				sale.Items = append(sale.Items, item)
				sale.TotalPrice += line.Subtotal

				if err := s.batchSvc.ReserveStockInTransaction(tx, *line.ProductID, line.Quantity, reference); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).Updates(map[string]interface{}{
			"customer":       sale.Customer,
			"date":           sale.Date,
			"status":         sale.Status,
			"payment_method": sale.PaymentMethod,
			"total_price":    sale.TotalPrice,
		}).Error; err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.syncCustomer(sale.Customer)
	if oldCustomer != sale.Customer {
		s.syncCustomer(oldCustomer)
	}
	return sale, nil
}

// DeleteSale removes a sale, returning every reserved unit to stock
func (s *SalesService) DeleteSale(id uint) error {
	sale, err := s.GetSale(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		reference := "sale:" + strconv.FormatUint(uint64(sale.ID), 10)
		for _, item := range sale.Items {
			if item.ProductID == nil {
				continue
			}
			if err := s.batchSvc.ReleaseStockInTransaction(tx, *item.ProductID, item.Quantity, reference); err != nil {
				return err
			}
		}

		if err := tx.Where("sale_id = ?", sale.ID).Delete(&models.SaleItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete sale items: %w", err)
		}
		if err := tx.Delete(&models.Sale{}, sale.ID).Error; err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.syncCustomer(sale.Customer)
	return nil
}

// UpdateStatus flips a sale between paid and pending
func (s *SalesService) UpdateStatus(id uint, status string) (*models.Sale, error) {
	if status != models.SaleStatusPaid && status != models.SaleStatusPending {
		return nil, models.ValidationError("invalid status %q", status)
	}

	sale, err := s.GetSale(id)
	if err != nil {
		return nil, err
	}

	if sale.Status != status {
		if err := s.db.Model(&models.Sale{}).Where("id = ?", id).Update("status", status).Error; err != nil {
			return nil, fmt.Errorf("failed to update status: %w", err)
		}
		sale.Status = status
		s.syncCustomer(sale.Customer)
	}
	return sale, nil
}

// GetSalesByPeriod returns sales whose date falls in [start, end], inclusive,
// newest first. Dates are ISO strings so day-level comparison uses the date
// prefix.
func (s *SalesService) GetSalesByPeriod(start, end string) ([]models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var sales []models.Sale
	err := s.db.Preload("Items").
		Where("substr(date, 1, 10) BETWEEN ? AND ?", start, end).
		Order("date DESC, id DESC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by period: %w", err)
	}
	return sales, nil
}

// GetRecentSales returns the latest sales, bounded for dashboard use
func (s *SalesService) GetRecentSales(limit int) ([]models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	var sales []models.Sale
	err := s.db.Preload("Items").Order("date DESC, id DESC").Limit(limit).Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sales: %w", err)
	}
	return sales, nil
}

// GetSalesByCustomer returns every sale for a customer name, oldest first
func (s *SalesService) GetSalesByCustomer(customer string) ([]models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var sales []models.Sale
	err := s.db.Preload("Items").
		Where("customer = ?", customer).
		Order("date ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by customer: %w", err)
	}
	return sales, nil
}

// GetSalesByProduct returns sales containing a given product
func (s *SalesService) GetSalesByProduct(productID uint) ([]models.Sale, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var sales []models.Sale
	err := s.db.Preload("Items").
		Joins("JOIN sale_items ON sale_items.sale_id = sales.id").
		Where("sale_items.product_id = ?", productID).
		Group("sales.id").
		Order("sales.date DESC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by product: %w", err)
	}
	return sales, nil
}

// GetTotalSoldByPeriod sums paid sale totals in the period
func (s *SalesService) GetTotalSoldByPeriod(start, end string) (float64, error) {
	return s.sumByStatus(start, end, models.SaleStatusPaid)
}

// GetTotalPendingByPeriod sums pending sale totals in the period
func (s *SalesService) GetTotalPendingByPeriod(start, end string) (float64, error) {
	return s.sumByStatus(start, end, models.SaleStatusPending)
}

func (s *SalesService) sumByStatus(start, end, status string) (float64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var total float64
	err := s.db.Model(&models.Sale{}).
		Where("substr(date, 1, 10) BETWEEN ? AND ? AND status = ?", start, end, status).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales: %w", err)
	}
	return total, nil
}

// syncCustomer recomputes a customer's aggregates after a sale mutation.
// Failures leave the aggregates stale until the next sync, so they are
// logged and swallowed.
func (s *SalesService) syncCustomer(name string) {
	if err := s.customerSvc.SyncCustomerFromSale(name); err != nil {
		if s.logger != nil {
			s.logger.LogError("Customer sync failed", err, fmt.Sprintf("customer=%s", name))
		}
	}
}
