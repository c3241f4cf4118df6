package database

import (
	"DoceApp/app/config"
	"DoceApp/app/models"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// buildPostgresDSN constructs the connection string from environment variables
// or the provided config. Priority: DATABASE_URL > config values.
func buildPostgresDSN(cfg *config.AppConfig) string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		log.Printf("Using DATABASE_URL for database connection")
		return dsn
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	log.Printf("Built database connection from config: host=%s port=%d dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, cfg.Database.SSLMode)

	return dsn
}

// Initialize sets up the database connection with default settings
// (local SQLite file under ./data).
func Initialize() error {
	return InitializeWithConfig(nil)
}

// InitializeWithConfig sets up the database connection. With nil config the
// local SQLite store is used; otherwise the configured driver decides.
func InitializeWithConfig(appConfig *config.AppConfig) error {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	driver := "sqlite"
	if appConfig != nil && appConfig.Database.Driver != "" {
		driver = appConfig.Database.Driver
	}

	var err error
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(buildPostgresDSN(appConfig)), gormConfig)
	case "sqlite":
		dbPath := "./data/doceapp.db"
		if appConfig != nil && appConfig.Database.Path != "" {
			dbPath = appConfig.Database.Path
		}
		if mkErr := os.MkdirAll(filepath.Dir(dbPath), 0755); mkErr != nil {
			return fmt.Errorf("failed to create database directory: %w", mkErr)
		}
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := SeedInitialData(); err != nil {
		log.Printf("Warning: failed to seed initial data: %v", err)
	}

	return nil
}

// testDBCounter gives each test database a unique name so shared-cache
// in-memory databases stay isolated between tests.
var testDBCounter atomic.Int64

// InitializeForTest opens an in-memory SQLite database and runs migrations.
// Used by the service tests; no seed data so fixtures stay explicit.
// The shared-cache DSN keeps every pooled connection on the same in-memory
// database; a plain ":memory:" gives each connection its own empty one.
func InitializeForTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	old := db
	db = testDB
	err = RunMigrations()
	db = old

	if err != nil {
		return nil, fmt.Errorf("failed to migrate in-memory database: %w", err)
	}
	return testDB, nil
}

// RunMigrations runs database migrations
func RunMigrations() error {
	err := db.AutoMigrate(
		// Catalog models
		&models.ProductConfig{},
		&models.Batch{},
		&models.Product{},
		&models.StockMovement{},

		// Sale models
		&models.Sale{},
		&models.SaleItem{},

		// Customer models
		&models.Customer{},

		// Config models
		&models.SystemConfig{},
	)

	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	createIndexes()

	return nil
}

// createIndexes creates database indexes for better query performance
func createIndexes() {
	// Sale indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sales_date ON sales(date)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sales_status ON sales(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items(sale_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_sale_items_product_id ON sale_items(product_id)")

	// Product indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_products_batch_id ON products(batch_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_products_type ON products(type)")

	// Movement indexes
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_product_id ON stock_movements(product_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_stock_movements_created_at ON stock_movements(created_at)")
}

// SeedInitialData seeds the default pricing templates and system settings.
// Templates replace the per-type fallback prices the original screens carried
// inline; users can edit or deactivate them.
func SeedInitialData() error {
	promoTrufa := 4.50
	promoTrufaQty := 3
	promoTorta := 10.00
	promoTortaQty := 2

	productConfigs := []models.ProductConfig{
		{Type: "trufa", BasePrice: 5.00, PromoPrice: &promoTrufa, PromoQty: &promoTrufaQty, Active: true},
		{Type: "torta", BasePrice: 12.00, PromoPrice: &promoTorta, PromoQty: &promoTortaQty, Active: true},
		{Type: "surpresa", BasePrice: 12.00, Active: true},
	}

	for _, pc := range productConfigs {
		var count int64
		db.Model(&models.ProductConfig{}).Where("type = ?", pc.Type).Count(&count)
		if count == 0 {
			db.Create(&pc)
		}
	}

	configs := []models.SystemConfig{
		{Key: "daily_goal_value", Value: "200.00", Type: "number"},
		{Key: "default_unit_cost_trufa", Value: "2.50", Type: "number"},
		{Key: "default_unit_cost_dessert", Value: "5.00", Type: "number"},
		{Key: "currency_symbol", Value: "R$", Type: "string"},
	}

	for _, cfg := range configs {
		var count int64
		db.Model(&models.SystemConfig{}).Where("key = ?", cfg.Key).Count(&count)
		if count == 0 {
			db.Create(&cfg)
		}
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction
func Transaction(fn func(*gorm.DB) error) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return db.Transaction(fn)
}
