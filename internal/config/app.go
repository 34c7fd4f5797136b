package config

import (
	"fmt"
	"mindmeld/internal/logger"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Storage backends
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Storage  StorageConfig
	Database DatabaseConfig
	Provider ProviderConfig
	UI       UIConfig
}

// StorageConfig selects and configures the snapshot store
type StorageConfig struct {
	Backend   string
	Path      string
	Name      string
	SaveDelay time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// ProviderConfig holds the placeholder response provider timings
type ProviderConfig struct {
	LoadDelay     time.Duration
	ThinkMin      time.Duration
	ThinkMax      time.Duration
	ResponsesPath string
}

// UIConfig holds presentation settings
type UIConfig struct {
	// PrefersDark overrides terminal background detection when set
	PrefersDark *bool `toml:"prefers_dark"`
}

// tomlFile is the on-disk layout; durations are written as "250ms", "2s"
type tomlFile struct {
	Storage struct {
		Backend   string `toml:"backend"`
		Path      string `toml:"path"`
		Name      string `toml:"name"`
		SaveDelay string `toml:"save_delay"`
	} `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Provider struct {
		LoadDelay     string `toml:"load_delay"`
		ThinkMin      string `toml:"think_min"`
		ThinkMax      string `toml:"think_max"`
		ResponsesPath string `toml:"responses_path"`
	} `toml:"provider"`
	UI UIConfig `toml:"ui"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Backend:   StoreFile,
			Name:      "mindmeld-storage",
			SaveDelay: 250 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "mindmeld",
			SSLMode: "disable",
		},
		Provider: ProviderConfig{
			LoadDelay: 2 * time.Second,
			ThinkMin:  1 * time.Second,
			ThinkMax:  3 * time.Second,
		},
	}
}

// LoadConfig loads and validates application configuration from the
// optional MINDMELD_CONFIG file and the environment
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	if path := os.Getenv("MINDMELD_CONFIG"); path != "" {
		if err := config.mergeFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// mergeFile overlays non-empty values from a TOML file
func (c *AppConfig) mergeFile(path string) error {
	var f tomlFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return err
	}

	setString(&c.Storage.Backend, f.Storage.Backend)
	setString(&c.Storage.Path, f.Storage.Path)
	setString(&c.Storage.Name, f.Storage.Name)
	if err := setDuration(&c.Storage.SaveDelay, f.Storage.SaveDelay); err != nil {
		return fmt.Errorf("storage.save_delay: %w", err)
	}

	setString(&c.Database.Host, f.Database.Host)
	setString(&c.Database.Port, f.Database.Port)
	setString(&c.Database.User, f.Database.User)
	setString(&c.Database.Password, f.Database.Password)
	setString(&c.Database.Name, f.Database.Name)
	setString(&c.Database.SSLMode, f.Database.SSLMode)

	if err := setDuration(&c.Provider.LoadDelay, f.Provider.LoadDelay); err != nil {
		return fmt.Errorf("provider.load_delay: %w", err)
	}
	if err := setDuration(&c.Provider.ThinkMin, f.Provider.ThinkMin); err != nil {
		return fmt.Errorf("provider.think_min: %w", err)
	}
	if err := setDuration(&c.Provider.ThinkMax, f.Provider.ThinkMax); err != nil {
		return fmt.Errorf("provider.think_max: %w", err)
	}
	setString(&c.Provider.ResponsesPath, f.Provider.ResponsesPath)

	if f.UI.PrefersDark != nil {
		c.UI.PrefersDark = f.UI.PrefersDark
	}

	logger.Log.WithField("path", path).Info("Loaded config file")
	return nil
}

func (c *AppConfig) applyEnv() {
	c.Storage.Backend = getEnvOrDefault("MINDMELD_STORE", c.Storage.Backend)
	c.Storage.Path = getEnvOrDefault("MINDMELD_STORE_PATH", c.Storage.Path)
	c.Storage.Name = getEnvOrDefault("MINDMELD_STORAGE_NAME", c.Storage.Name)
	c.Storage.SaveDelay = getEnvAsDuration("MINDMELD_SAVE_DELAY", c.Storage.SaveDelay)

	c.Database.Host = getEnvOrDefault("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvOrDefault("DB_PORT", c.Database.Port)
	c.Database.User = getEnvOrDefault("DB_USER", c.Database.User)
	c.Database.Password = getEnvOrDefault("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnvOrDefault("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", c.Database.SSLMode)

	c.Provider.LoadDelay = getEnvAsDuration("MINDMELD_LOAD_DELAY", c.Provider.LoadDelay)
	c.Provider.ThinkMin = getEnvAsDuration("MINDMELD_THINK_MIN", c.Provider.ThinkMin)
	c.Provider.ThinkMax = getEnvAsDuration("MINDMELD_THINK_MAX", c.Provider.ThinkMax)
	c.Provider.ResponsesPath = getEnvOrDefault("MINDMELD_RESPONSES_PATH", c.Provider.ResponsesPath)

	if v := os.Getenv("MINDMELD_PREFERS_DARK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UI.PrefersDark = &b
		} else {
			logger.Log.WithField("value", v).Warn("Invalid MINDMELD_PREFERS_DARK value, ignoring")
		}
	}
}

// Validate checks the configuration and fills derived defaults
func (c *AppConfig) Validate() error {
	if c.Storage.Name == "" {
		return fmt.Errorf("storage name cannot be empty")
	}

	switch c.Storage.Backend {
	case StoreFile:
		if c.Storage.Path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to resolve store path: %w", err)
			}
			c.Storage.Path = filepath.Join(home, ".mindmeld", c.Storage.Name+".json")
		}
	case StorePostgres:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", c.Storage.Backend, StoreFile, StorePostgres)
	}

	if c.Storage.SaveDelay < 0 {
		return fmt.Errorf("save delay cannot be negative")
	}
	if c.Provider.ThinkMax < c.Provider.ThinkMin {
		return fmt.Errorf("think_max (%s) must not be less than think_min (%s)", c.Provider.ThinkMax, c.Provider.ThinkMin)
	}
	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
