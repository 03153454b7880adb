package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for autodirecto-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (keys, session secret) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Datastore is the shared appointments/listings database.
	Datastore DatastoreConfig `yaml:"datastore"`

	// Admin session configuration
	Admin AdminConfig `yaml:"admin"`

	// CRM is the SimplyAPI backend used to validate admin credentials.
	CRM CRMConfig `yaml:"crm"`

	// Quotes is the MrCar quoting service reached through /api/quotes.
	Quotes QuotesConfig `yaml:"quotes"`
}

// DatastoreConfig holds the credentials for the shared database project.
// The recognized options are exactly {url, key}: URL is the project's
// Postgres URL and Key is the service-role secret, injected as the
// connection password. Running without a datastore is a supported
// degraded mode; a half-configured pair is a startup error.
type DatastoreConfig struct {
	URL string `yaml:"url" env:"DATASTORE_URL" env-default:""`
	Key string `yaml:"-" env:"DATASTORE_KEY"` // Secret - not in YAML

	MaxConnections int32  `yaml:"max_connections" env:"DATASTORE_MAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"DATASTORE_MIGRATIONS_PATH" env-default:"migrations"`
}

// AdminConfig holds admin session settings.
type AdminConfig struct {
	// SessionSecret signs the admin session cookie. Any passphrase; it is
	// SHA-256 hashed to derive the signing key.
	SessionSecret string `yaml:"-" env:"ADMIN_SESSION_SECRET" env-default:"autodirecto-crm-secret-2026"`

	// SessionTTLHours is how long an admin session stays valid.
	SessionTTLHours int `yaml:"session_ttl_hours" env:"ADMIN_SESSION_TTL_HOURS" env-default:"8"`

	// SecureCookies requires HTTPS for the session cookie. Disable for
	// local development only.
	SecureCookies bool `yaml:"secure_cookies" env:"ADMIN_SECURE_COOKIES" env-default:"false"`
}

// CRMConfig holds the SimplyAPI connection settings.
type CRMConfig struct {
	BaseURL string `yaml:"base_url" env:"SIMPLYAPI_URL" env-default:"http://localhost:8080"`
}

// QuotesConfig holds the MrCar quoting service settings.
type QuotesConfig struct {
	BaseURL string `yaml:"base_url" env:"MRCAR_API_BASE" env-default:"https://mrcar-cotizacion.vercel.app/api"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints once at startup.
func (c *Config) Validate() error {
	if err := c.Datastore.validate(); err != nil {
		return fmt.Errorf("invalid datastore configuration: %w", err)
	}
	if c.Admin.SessionSecret == "" {
		return fmt.Errorf("admin session secret must not be empty")
	}
	if c.Admin.SessionTTLHours <= 0 {
		return fmt.Errorf("admin session TTL must be positive, got %d", c.Admin.SessionTTLHours)
	}
	if _, err := url.Parse(c.CRM.BaseURL); err != nil {
		return fmt.Errorf("invalid CRM base URL: %w", err)
	}
	if _, err := url.Parse(c.Quotes.BaseURL); err != nil {
		return fmt.Errorf("invalid quotes base URL: %w", err)
	}
	return nil
}

func (d *DatastoreConfig) validate() error {
	urlSet := d.URL != ""
	keySet := d.Key != ""

	// Both must be provided together or both empty (unconfigured mode)
	if urlSet != keySet {
		return fmt.Errorf("datastore url and key must be provided together")
	}

	if urlSet {
		u, err := url.Parse(d.URL)
		if err != nil {
			return fmt.Errorf("datastore URL is not a valid URL: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("datastore URL must use postgres scheme, got %q", u.Scheme)
		}
	}

	return nil
}

// IsConfigured reports whether the shared datastore credentials are set.
// When false the service runs in degraded mode: match and data endpoints
// answer with a distinct "service not configured" condition.
func (d *DatastoreConfig) IsConfigured() bool {
	return d.URL != "" && d.Key != ""
}

// ConnectionString returns the Postgres connection URL with the service
// key applied as the password.
func (d *DatastoreConfig) ConnectionString() (string, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse datastore URL: %w", err)
	}

	user := "autodirecto"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, d.Key)

	return u.String(), nil
}

// CRMEndpoint joins a path onto the SimplyAPI base URL.
func (c *CRMConfig) CRMEndpoint(parts ...string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Join(parts, "/")
}
