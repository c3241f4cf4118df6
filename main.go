package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"DoceApp/app/config"
	"DoceApp/app/database"
	"DoceApp/app/services"

	"github.com/joho/godotenv"
)

// App wires every service together; the UI layer binds against it.
type App struct {
	Logger    *services.LoggerService
	Batches   *services.BatchService
	Pricing   *services.PricingService
	Sales     *services.SalesService
	Customers *services.CustomerService
	Reports   *services.ReportsService
	Config    *services.ConfigService
}

// NewApp creates the service graph. Call after database.Initialize*.
func NewApp(logger *services.LoggerService) *App {
	sales := services.NewSalesService(logger)
	return &App{
		Logger:    logger,
		Batches:   services.NewBatchService(),
		Pricing:   services.NewPricingService(),
		Sales:     sales,
		Customers: services.NewCustomerService(),
		Reports:   services.NewReportsService(sales),
		Config:    services.NewConfigService(),
	}
}

func main() {
	// .env is optional; real settings live in config.json
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	logger := services.NewLoggerService()
	defer logger.Close()

	exists, err := config.ConfigExists()
	if err != nil {
		logger.LogFatal("Could not check configuration", err)
	}

	var appConfig *config.AppConfig
	if exists {
		appConfig, err = config.LoadConfig()
		if err != nil {
			logger.LogFatal("Could not load configuration", err)
		}
	} else {
		logger.LogInfo("No configuration found, creating defaults")
		appConfig, err = config.CreateDefaultConfig()
		if err != nil {
			logger.LogFatal("Could not create default configuration", err)
		}
	}

	if err := database.InitializeWithConfig(appConfig); err != nil {
		logger.LogFatal("Database initialization failed", err)
	}
	defer database.Close()
	logger.LogInfo("Database ready", appConfig.Database.Driver)

	app := NewApp(logger)

	// Startup repair: rebuild customer aggregates from the sale history in
	// case a previous run was interrupted between commit and sync.
	if err := app.Customers.SyncAllCustomers(); err != nil {
		logger.LogError("Customer aggregate repair failed", err)
	}

	if err := logger.CleanOldLogs(30); err != nil {
		logger.LogWarning("Could not clean old logs", err.Error())
	}

	if appConfig.FirstRun {
		if err := config.MarkSetupComplete(); err != nil {
			logger.LogWarning("Could not mark setup complete", err.Error())
		}
	}

	logger.LogInfo("DoceApp started", appConfig.Business.Name)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogInfo("Shutting down")
}
