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

// CustomerService maintains the customer aggregates. Aggregates are never
// patched incrementally: every sync replays the customer's full sale history,
// which makes the operation idempotent and self-healing.
type CustomerService struct {
	*BaseService
}

// NewCustomerService creates a new customer service
func NewCustomerService() *CustomerService {
	return &CustomerService{
		BaseService: &BaseService{db: database.GetDB()},
	}
}

// CustomerStats summarizes the customer base
type CustomerStats struct {
	TotalCustomers int64   `json:"total_customers"`
	TotalDebtors   int64   `json:"total_debtors"`
	TotalOwed      float64 `json:"total_owed"`
	TotalPurchased float64 `json:"total_purchased"`
}

// SyncCustomerFromSale recomputes every aggregate for a customer name by
// replaying all sales recorded under it. The customer record is created
// lazily on the first sale; with zero remaining sales the aggregates reset
// to an empty, up-to-date state.
func (s *CustomerService) SyncCustomerFromSale(name string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.ValidationError("customer name is required")
	}

	var sales []models.Sale
	if err := s.db.Where("customer = ?", name).Order("date ASC, id ASC").Find(&sales).Error; err != nil {
		return fmt.Errorf("failed to load sales for %q: %w", name, err)
	}

	var customer models.Customer
	err := s.db.Where("name = ?", name).First(&customer).Error
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load customer %q: %w", name, err)
	}

	if !exists && len(sales) == 0 {
		return nil
	}

	if !exists {
		customer.Name = name
		customer.RegisteredAt = sales[0].Date
	}
	if customer.RegisteredAt == "" {
		customer.RegisteredAt = time.Now().Format(time.RFC3339)
	}

	customer.TotalPurchased = 0
	customer.TotalOwed = 0
	customer.PurchaseCount = len(sales)
	customer.LastPurchase = ""

	ids := make([]uint, 0, len(sales))
	for _, sale := range sales {
		customer.TotalPurchased += sale.TotalPrice
		if sale.Status == models.SaleStatusPending {
			customer.TotalOwed += sale.TotalPrice
		}
		if sale.Date > customer.LastPurchase {
			customer.LastPurchase = sale.Date
		}
		ids = append(ids, sale.ID)
	}
	customer.SetSaleIDList(ids)

	if customer.TotalOwed > 0 {
		customer.Status = models.CustomerStatusDebtor
	} else {
		customer.Status = models.CustomerStatusCurrent
	}

	if err := s.db.Save(&customer).Error; err != nil {
		return fmt.Errorf("failed to save customer %q: %w", name, err)
	}
	return nil
}

// SyncAllCustomers replays every customer's history: each distinct customer
// name across sales plus every existing customer record, so customers whose
// sales were all deleted get reset too. Used as a startup repair pass.
func (s *CustomerService) SyncAllCustomers() error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	var names []string
	if err := s.db.Model(&models.Sale{}).Distinct("customer").Pluck("customer", &names).Error; err != nil {
		return fmt.Errorf("failed to list sale customers: %w", err)
	}

	var existing []string
	if err := s.db.Model(&models.Customer{}).Pluck("name", &existing).Error; err != nil {
		return fmt.Errorf("failed to list customers: %w", err)
	}

	seen := make(map[string]bool, len(names)+len(existing))
	for _, name := range append(names, existing...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if err := s.SyncCustomerFromSale(name); err != nil {
			return err
		}
	}
	return nil
}

// GetCustomer returns a customer by id
func (s *CustomerService) GetCustomer(id uint) (*models.Customer, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var customer models.Customer
	err := s.db.First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// GetCustomerByName returns a customer by exact name
func (s *CustomerService) GetCustomerByName(name string) (*models.Customer, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var customer models.Customer
	err := s.db.Where("name = ?", name).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("customer %q: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

// GetAllCustomers returns all customers ordered by name
func (s *CustomerService) GetAllCustomers() ([]models.Customer, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var customers []models.Customer
	if err := s.db.Order("name").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to get customers: %w", err)
	}
	return customers, nil
}

// SearchCustomers returns up to 10 customers matching a name fragment,
// for sale-form autocomplete
func (s *CustomerService) SearchCustomers(query string) ([]models.Customer, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Customer{}, nil
	}

	var customers []models.Customer
	err := s.db.Where("name LIKE ?", "%"+query+"%").
		Order("name").Limit(10).Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	return customers, nil
}

// GetDebtors returns customers with outstanding debt, biggest first
func (s *CustomerService) GetDebtors() ([]models.Customer, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var customers []models.Customer
	err := s.db.Where("status = ?", models.CustomerStatusDebtor).
		Order("total_owed DESC").Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get debtors: %w", err)
	}
	return customers, nil
}

// GetCustomerStats aggregates the customer base
func (s *CustomerService) GetCustomerStats() (*CustomerStats, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	stats := &CustomerStats{}
	if err := s.db.Model(&models.Customer{}).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if err := s.db.Model(&models.Customer{}).
		Where("status = ?", models.CustomerStatusDebtor).
		Count(&stats.TotalDebtors).Error; err != nil {
		return nil, fmt.Errorf("failed to count debtors: %w", err)
	}

	row := s.db.Model(&models.Customer{}).
		Select("COALESCE(SUM(total_owed), 0), COALESCE(SUM(total_purchased), 0)").
		Row()
	if err := row.Scan(&stats.TotalOwed, &stats.TotalPurchased); err != nil {
		return nil, fmt.Errorf("failed to sum customer totals: %w", err)
	}
	return stats, nil
}

// DeleteCustomer removes a customer record. Sales stay untouched; the record
// reappears on the next sync if sales still exist for the name.
func (s *CustomerService) DeleteCustomer(id uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	result := s.db.Delete(&models.Customer{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete customer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("customer %d: %w", id, models.ErrNotFound)
	}
	return nil
}
