package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Database Configuration
	Database DatabaseConfig `json:"database"`

	// Business Information
	Business BusinessConfig `json:"business"`

	// System Configuration
	System SystemConfig `json:"system"`

	// First run flag
	FirstRun bool `json:"first_run"`
}

// DatabaseConfig holds database connection settings. Driver is "sqlite"
// (default, local file) or "postgres".
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Path     string `json:"path"` // sqlite database file
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"ssl_mode"`
}

// BusinessConfig holds business information
type BusinessConfig struct {
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// SystemConfig holds system settings
type SystemConfig struct {
	DataPath string `json:"data_path"`
	Language string `json:"language"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	base := os.Getenv("DOCEAPP_HOME")
	if base == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		base = filepath.Join(homeDir, ".doceapp")
	}

	if err := os.MkdirAll(base, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}

	return filepath.Join(base, "config.json"), nil
}

// LoadConfig loads configuration from config.json
func LoadConfig() (*AppConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

// SaveConfig saves configuration to config.json
func SaveConfig(cfg *AppConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("could not write config file: %w", err)
	}

	return nil
}

// ConfigExists checks if config file exists
func ConfigExists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// CreateDefaultConfig creates a default configuration file
func CreateDefaultConfig() (*AppConfig, error) {
	dataDir := "./data"
	if base := os.Getenv("DOCEAPP_HOME"); base != "" {
		dataDir = filepath.Join(base, "data")
	}

	cfg := &AppConfig{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dataDir, "doceapp.db"),
			Host:   "localhost",
			Port:   5432,
			SSLMode: "disable",
		},
		Business: BusinessConfig{
			Name: "Minha Doceria",
		},
		System: SystemConfig{
			DataPath: dataDir,
			Language: "pt-BR",
		},
		FirstRun: true,
	}

	cfg.applyEnvOverrides()

	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MarkSetupComplete marks the first run as complete
func MarkSetupComplete() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	cfg.FirstRun = false
	return SaveConfig(cfg)
}

// applyEnvOverrides lets environment variables take priority over config.json.
func (cfg *AppConfig) applyEnvOverrides() {
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Database = name
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.Username = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
}
