package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App          ApplicationConfig  `yaml:"app"`
	SQLite       SQLiteConfig       `yaml:"sqlite"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Search       SearchConfig       `yaml:"search"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Auth         AuthConfig         `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Connectivity.Validate(); err != nil {
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

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CatalogConfig holds remote character catalog configuration. The keys are
// the API key pair issued by the catalog provider.
type CatalogConfig struct {
	BaseURL           string        `yaml:"base_url"`
	PublicKey         string        `yaml:"public_key"`
	PrivateKey        string        `yaml:"private_key"`
	Timeout           time.Duration `yaml:"timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	PageSize          int           `yaml:"page_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.PublicKey, validation.Required),
		validation.Field(&c.PrivateKey, validation.Required),
		validation.Field(&c.RetryAttempts, validation.Min(0), validation.Max(10)),
		validation.Field(&c.PageSize, validation.Min(1), validation.Max(100)),
	)
}

// SearchConfig holds settings for the debounced search pipeline. Debounce
// may be changed at runtime through config reloads. EventThrottle bounds how
// often search.updated events go out over SSE; zero falls back to the broker
// default.
type SearchConfig struct {
	Debounce      time.Duration `yaml:"debounce"`
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	if c.Debounce < 0 {
		return fmt.Errorf("search: debounce must not be negative, got %s", c.Debounce)
	}
	if c.EventThrottle < 0 {
		return fmt.Errorf("search: event_throttle must not be negative, got %s", c.EventThrottle)
	}
	return nil
}

// ConnectivityConfig holds the reachability probe settings. An empty
// ProbeAddr disables probing and pins connectivity to available.
type ConnectivityConfig struct {
	ProbeAddr string        `yaml:"probe_addr"`
	Interval  time.Duration `yaml:"interval"`
}

// Validate validates the connectivity configuration.
func (c *ConnectivityConfig) Validate() error {
	if c.ProbeAddr != "" && c.Interval <= 0 {
		return fmt.Errorf("connectivity: interval must be positive when probe_addr is set, got %s", c.Interval)
	}
	return nil
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
		SQLite: SQLiteConfig{
			Path: "./comicslibrary.db",
		},
		Catalog: CatalogConfig{
			BaseURL:           "https://gateway.marvel.com",
			Timeout:           10 * time.Second,
			RetryAttempts:     3,
			PageSize:          20,
			RequestsPerSecond: 3,
		},
		Search: SearchConfig{
			Debounce:      300 * time.Millisecond,
			EventThrottle: 250 * time.Millisecond,
		},
		Connectivity: ConnectivityConfig{
			Interval: 15 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
