// Package config loads the estimator configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LayoutTwoColumn = "two_column"
	LayoutWide      = "wide"
)

type Config struct {
	App struct {
		Variant string `yaml:"variant"`
	} `yaml:"app"`
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Model struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
	} `yaml:"model"`
	Dataset struct {
		Path string `yaml:"path"`
	} `yaml:"dataset"`
	UI struct {
		Layout      string `yaml:"layout"`
		SortOptions *bool  `yaml:"sort_options"`
	} `yaml:"ui"`
	Store struct {
		Enabled *bool  `yaml:"enabled"`
		Driver  string `yaml:"driver"`
		Path    string `yaml:"path"`
		DSN     string `yaml:"dsn"`
	} `yaml:"store"`
	Pricing struct {
		Margin         *int   `yaml:"margin"`
		CurrencySymbol string `yaml:"currency_symbol"`
		Locale         string `yaml:"locale"`
	} `yaml:"pricing"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

// Variant is one of the preset form flavours.
type Variant struct {
	Layout  string
	Sorted  bool
	Persist bool
}

var Variants = map[string]Variant{
	"classic":        {Layout: LayoutTwoColumn},
	"sorted":         {Layout: LayoutWide, Sorted: true},
	"persist":        {Layout: LayoutTwoColumn, Persist: true},
	"sorted_persist": {Layout: LayoutWide, Sorted: true, Persist: true},
}

// envFile is the optional dotenv file read before PRICE_* overrides apply.
var envFile = ".env"

// Load reads path (skipped when empty), applies PRICE_* environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.App.Variant, "PRICE_VARIANT")
	setString(&c.Log.Level, "PRICE_LOG_LEVEL")
	setString(&c.Log.File, "PRICE_LOG_FILE")
	setString(&c.Model.Type, "PRICE_MODEL_TYPE")
	setString(&c.Model.Path, "PRICE_MODEL_PATH")
	setString(&c.Dataset.Path, "PRICE_DATASET_PATH")
	setString(&c.UI.Layout, "PRICE_UI_LAYOUT")
	setString(&c.Store.Driver, "PRICE_STORE_DRIVER")
	setString(&c.Store.Path, "PRICE_STORE_PATH")
	setString(&c.Store.DSN, "PRICE_STORE_DSN")
	setString(&c.Pricing.Locale, "PRICE_LOCALE")

	if v := os.Getenv("PRICE_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRICE_HTTP_PORT: %w", err)
		}
		c.Http.Port = port
	}
	if v := os.Getenv("PRICE_STORE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRICE_STORE_ENABLED: %w", err)
		}
		c.Store.Enabled = &enabled
	}
	if v := os.Getenv("PRICE_SORT_OPTIONS"); v != "" {
		sorted, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRICE_SORT_OPTIONS: %w", err)
		}
		c.UI.SortOptions = &sorted
	}
	if v := os.Getenv("PRICE_MARGIN"); v != "" {
		margin, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRICE_MARGIN: %w", err)
		}
		c.Pricing.Margin = &margin
	}
	return nil
}

func (c *Config) applyDefaults() error {
	if c.App.Variant == "" {
		c.App.Variant = "classic"
	}
	variant, ok := Variants[c.App.Variant]
	if !ok {
		return fmt.Errorf("unknown variant %q", c.App.Variant)
	}
	if c.UI.Layout == "" {
		c.UI.Layout = variant.Layout
	}
	if c.UI.SortOptions == nil {
		sorted := variant.Sorted
		c.UI.SortOptions = &sorted
	}
	if c.Store.Enabled == nil {
		persist := variant.Persist
		c.Store.Enabled = &persist
	}

	if c.Http.Port == 0 {
		c.Http.Port = 8080
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = 30 * time.Second
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = []string{"*"}
	}
	if c.Http.MaxBodyBytes == 0 {
		c.Http.MaxBodyBytes = 1 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Model.Type == "" {
		c.Model.Type = "random_forest"
	}
	if c.Model.Path == "" {
		c.Model.Path = "models/pipe.json"
	}
	if c.Dataset.Path == "" {
		c.Dataset.Path = "data/traineddata.csv"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/predictions.db"
	}
	if c.Pricing.Margin == nil {
		margin := 1000
		c.Pricing.Margin = &margin
	}
	if c.Pricing.CurrencySymbol == "" {
		c.Pricing.CurrencySymbol = "₹"
	}
	if c.Pricing.Locale == "" {
		c.Pricing.Locale = "en-IN"
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 256
	}
	return nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.UI.Layout != LayoutTwoColumn && c.UI.Layout != LayoutWide {
		return fmt.Errorf("ui.layout must be %s or %s", LayoutTwoColumn, LayoutWide)
	}
	if c.Pricing.Margin != nil && *c.Pricing.Margin < 0 {
		return fmt.Errorf("pricing.margin must not be negative")
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative")
	}
	if c.Persist() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				return fmt.Errorf("store.path is required for sqlite")
			}
		case "postgres":
			if c.Store.DSN == "" {
				return fmt.Errorf("store.dsn is required for postgres")
			}
		default:
			return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
		}
	}
	return nil
}

func (c *Config) Persist() bool {
	return c.Store.Enabled != nil && *c.Store.Enabled
}

func (c *Config) Sorted() bool {
	return c.UI.SortOptions != nil && *c.UI.SortOptions
}

func (c *Config) Margin() int {
	if c.Pricing.Margin == nil {
		return 1000
	}
	return *c.Pricing.Margin
}

// StoreSource is the path or DSN handed to the configured driver.
func (c *Config) StoreSource() string {
	if c.Store.Driver == "postgres" {
		return c.Store.DSN
	}
	return c.Store.Path
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
