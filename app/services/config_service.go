package services

import (
	"DoceApp/app/database"
	"DoceApp/app/models"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// System config keys
const (
	ConfigDailyGoal       = "daily_goal_value"
	ConfigUnitCostTrufa   = "default_unit_cost_trufa"
	ConfigUnitCostDessert = "default_unit_cost_dessert"
	ConfigCurrencySymbol  = "currency_symbol"
)

// ConfigService manages pricing templates and the typed key/value settings
type ConfigService struct {
	*BaseService
}

// NewConfigService creates a new config service
func NewConfigService() *ConfigService {
	return &ConfigService{
		BaseService: &BaseService{db: database.GetDB()},
	}
}

// CreateProductConfig creates a pricing template for a product type
func (s *ConfigService) CreateProductConfig(config *models.ProductConfig) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	config.Type = strings.TrimSpace(config.Type)
	if config.Type == "" {
		return models.ValidationError("product type is required")
	}
	if err := validatePromotion(config.BasePrice, config.PromoPrice, config.PromoQty); err != nil {
		return err
	}

	config.Active = true
	if err := s.db.Create(config).Error; err != nil {
		return fmt.Errorf("failed to create product config: %w", err)
	}
	return nil
}

// GetProductConfigs returns all pricing templates
func (s *ConfigService) GetProductConfigs() ([]models.ProductConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var configs []models.ProductConfig
	if err := s.db.Order("type, id").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to get product configs: %w", err)
	}
	return configs, nil
}

// GetActiveProductConfigs returns only the active pricing templates
func (s *ConfigService) GetActiveProductConfigs() ([]models.ProductConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var configs []models.ProductConfig
	if err := s.db.Where("active = ?", true).Order("type, id").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to get product configs: %w", err)
	}
	return configs, nil
}

// GetConfigByType returns the active pricing template for a product type
func (s *ConfigService) GetConfigByType(productType string) (*models.ProductConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var config models.ProductConfig
	err := s.db.Where("type = ? AND active = ?", productType, true).
		Order("id DESC").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("pricing template for %q: %w", productType, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing template: %w", err)
	}
	return &config, nil
}

// UpdateProductConfig updates a pricing template
func (s *ConfigService) UpdateProductConfig(id uint, basePrice float64, promoPrice *float64, promoQty *int, customLabel string) (*models.ProductConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var config models.ProductConfig
	err := s.db.First(&config, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product config %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product config: %w", err)
	}

	if err := validatePromotion(basePrice, promoPrice, promoQty); err != nil {
		return nil, err
	}

	config.BasePrice = basePrice
	config.PromoPrice = promoPrice
	config.PromoQty = promoQty
	config.CustomLabel = customLabel

	if err := s.db.Save(&config).Error; err != nil {
		return nil, fmt.Errorf("failed to update product config: %w", err)
	}
	return &config, nil
}

// DeleteProductConfig deactivates a pricing template. Products already priced
// from it are unaffected; it just stops serving as a fallback.
func (s *ConfigService) DeleteProductConfig(id uint) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	result := s.db.Model(&models.ProductConfig{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate product config: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product config %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// DefaultUnitCost returns the seeded default production cost for a type.
// Truffles have their own default; everything else uses the dessert default.
func (s *ConfigService) DefaultUnitCost(productType string) float64 {
	key := ConfigUnitCostDessert
	if productType == "trufa" {
		key = ConfigUnitCostTrufa
	}
	return s.GetFloat(key, 0)
}

// GetValue returns a system config entry by key
func (s *ConfigService) GetValue(key string) (*models.SystemConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var config models.SystemConfig
	err := s.db.Where("key = ?", key).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("config %q: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return &config, nil
}

// GetFloat returns a numeric system config value with a fallback
func (s *ConfigService) GetFloat(key string, fallback float64) float64 {
	config, err := s.GetValue(key)
	if err != nil {
		return fallback
	}
	return config.FloatValue(fallback)
}

// SetValue upserts a system config entry
func (s *ConfigService) SetValue(key, value, valueType string) error {
	if err := s.EnsureDB(); err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return models.ValidationError("config key is required")
	}
	switch valueType {
	case "string":
	case "number":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return models.ValidationError("config %q expects a numeric value", key)
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return models.ValidationError("config %q expects a boolean value", key)
		}
	default:
		return models.ValidationError("unknown config type %q", valueType)
	}

	var existing models.SystemConfig
	err := s.db.Where("key = ?", key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		config := models.SystemConfig{Key: key, Value: value, Type: valueType}
		if err := s.db.Create(&config).Error; err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	existing.Value = value
	existing.Type = valueType
	if err := s.db.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	return nil
}

// GetAllValues returns every system config entry
func (s *ConfigService) GetAllValues() ([]models.SystemConfig, error) {
	if err := s.EnsureDB(); err != nil {
		return nil, err
	}

	var configs []models.SystemConfig
	if err := s.db.Order("key").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to get configs: %w", err)
	}
	return configs, nil
}
