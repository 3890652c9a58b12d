package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/jponter/proxyforge/internal/models"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Fetcher FetcherConfig     `yaml:"fetcher"`
	Print   PrintConfig       `yaml:"print"`
	Orders  OrdersConfig      `yaml:"orders"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Fetcher.Validate(); err != nil {
		return err
	}
	if err := c.Print.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// FetcherConfig holds the remote image lookup service settings.
type FetcherConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
}

// Timeout returns the per-request timeout.
func (c *FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the fetcher configuration.
func (c *FetcherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxConcurrent, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// PrintConfig holds card defaults applied during resolution.
//
// BleedDefault is the application-wide bleed flag inherited by cards whose
// order entry carries no explicit <bleedchecked> element.
type PrintConfig struct {
	BleedDefault    bool    `yaml:"bleed_default"`
	CardWidthMM     float64 `yaml:"card_width_mm"`
	CardHeightMM    float64 `yaml:"card_height_mm"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	BitmapCacheSize int     `yaml:"bitmap_cache_size"`
}

// Validate validates the print configuration.
func (c *PrintConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CardWidthMM, validation.Required, validation.Min(1.0)),
		validation.Field(&c.CardHeightMM, validation.Required, validation.Min(1.0)),
		validation.Field(&c.JPEGQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.BitmapCacheSize, validation.Min(0)),
	)
}

// OrdersConfig holds the hot-folder path watched for incoming order XML
// files. An empty path disables the watcher.
type OrdersConfig struct {
	HotFolder string `yaml:"hot_folder"`
}

// SQLiteConfig holds SQLite catalog configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Fetcher: FetcherConfig{
			BaseURL:        "https://cards.example.com/lookup",
			TimeoutSeconds: 30,
			MaxConcurrent:  4,
		},
		Print: PrintConfig{
			BleedDefault:    true,
			CardWidthMM:     models.DefaultCardWidthMM,
			CardHeightMM:    models.DefaultCardHeightMM,
			JPEGQuality:     85,
			BitmapCacheSize: 64,
		},
		SQLite: SQLiteConfig{
			Path: "./proxyforge.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
