package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "hstream.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultStoreDriver is the default session store driver.
	DefaultStoreDriver = "memory"

	// DefaultSessionTTL is the default visitor session lifetime.
	DefaultSessionTTL = "24h"

	// DefaultStylesheet is the default stylesheet served with every page.
	DefaultStylesheet = "https://unpkg.com/mvp.css"
)

// Config represents the complete hstream.json configuration.
type Config struct {
	// Name is the application name.
	Name string `json:"name,omitempty"`

	// Addr is the listen address (host:port).
	Addr string `json:"addr,omitempty"`

	// StylesheetHref is the stylesheet URL included in rendered pages.
	StylesheetHref string `json:"stylesheet,omitempty"`

	// SessionTTL is the visitor session lifetime as a Go duration
	// string (e.g. "24h", "30m").
	SessionTTL string `json:"sessionTTL,omitempty"`

	// SecureCookies requires session cookies to be sent over HTTPS.
	SecureCookies bool `json:"secureCookies,omitempty"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarded headers
	// are honored when deciding whether a request arrived over HTTPS.
	TrustedProxies []string `json:"trustedProxies,omitempty"`

	// Store contains session store configuration.
	Store StoreConfig `json:"store,omitempty"`

	// Metrics enables the Prometheus middleware and /metrics endpoint.
	Metrics bool `json:"metrics,omitempty"`

	// Tracing enables the OpenTelemetry middleware.
	Tracing bool `json:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	// Driver is one of "memory", "redis", "sqlite", "postgres",
	// "mysql", or "s3".
	Driver string `json:"driver,omitempty"`

	// DSN is the database connection string for SQL drivers.
	DSN string `json:"dsn,omitempty"`

	// Addr is the Redis server address.
	Addr string `json:"addr,omitempty"`

	// Password is the Redis password.
	Password string `json:"password,omitempty"`

	// DB is the Redis database number.
	DB int `json:"db,omitempty"`

	// TableName is the SQL table name for session rows.
	TableName string `json:"tableName,omitempty"`

	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix for Redis keys or S3 objects.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region for the S3 driver.
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Addr:           DefaultAddr,
		StylesheetHref: DefaultStylesheet,
		SessionTTL:     DefaultSessionTTL,
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for hstream.json in the directory. A missing file is not an
// error: defaults are returned.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// TTL returns the parsed session lifetime.
func (c *Config) TTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL %q: %w", c.SessionTTL, err)
	}
	return ttl, nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.StylesheetHref == "" {
		c.StylesheetHref = DefaultStylesheet
	}
	if c.SessionTTL == "" {
		c.SessionTTL = DefaultSessionTTL
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Addr == "" {
			return fmt.Errorf("store driver %q requires addr", c.Store.Driver)
		}
	case "sqlite", "postgres", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires dsn", c.Store.Driver)
		}
	case "s3":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store driver %q requires bucket", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if _, err := c.TTL(); err != nil {
		return err
	}
	return nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing hstream.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in %s or any parent directory", ConfigFileName, startDir)
		}
		dir = parent
	}
}
