package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/safevault/safevault/internal/vault"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Locator kinds.
const (
	LocatorStatic   = "static"
	LocatorReported = "reported"
)

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	S3       S3Config          `yaml:"s3"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Location LocationConfig    `yaml:"location"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if c.Vault.Backend == BackendS3 {
		if err := c.S3.Validate(); err != nil {
			return fmt.Errorf("s3: %w", err)
		}
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Location.Validate(); err != nil {
		return fmt.Errorf("location: %w", err)
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

// VaultConfig selects the storage backend and the document folder inside it.
//
// Root is the local directory for the fs backend. Folder, Extension,
// OnDuplicate and SyncMode are passed to the vault store. Watch enables
// the fsnotify watcher (fs backend only).
type VaultConfig struct {
	Backend     string `yaml:"backend"`
	Root        string `yaml:"root"`
	Folder      string `yaml:"folder"`
	Extension   string `yaml:"extension"`
	OnDuplicate string `yaml:"on_duplicate"`
	SyncMode    string `yaml:"sync_mode"`
	Watch       bool   `yaml:"watch"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFS, BackendS3)),
		validation.Field(&c.Root, validation.When(c.Backend == BackendFS, validation.Required)),
		validation.Field(&c.Folder, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extPattern)),
		validation.Field(&c.OnDuplicate, validation.In(string(vault.DuplicateOverwrite), string(vault.DuplicateReject))),
		validation.Field(&c.SyncMode, validation.In(string(vault.SyncRelist), string(vault.SyncPatch))),
	)
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
	)
}

// SQLiteConfig holds the key-value database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LocationConfig selects where the current position comes from.
//
//   - "reported" (default): the device pushes positions to POST /api/location/report.
//   - "static": Latitude and Longitude are always returned.
type LocationConfig struct {
	Locator   string  `yaml:"locator"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// Validate validates the location configuration.
func (c *LocationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Locator, validation.Required, validation.In(LocatorStatic, LocatorReported)),
		validation.Field(&c.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&c.Longitude, validation.Min(-180.0), validation.Max(180.0)),
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
		Vault: VaultConfig{
			Backend:     BackendFS,
			Root:        "./data",
			Folder:      vault.DefaultFolder,
			Extension:   vault.DefaultExtension,
			OnDuplicate: string(vault.DuplicateOverwrite),
			SyncMode:    string(vault.SyncRelist),
			Watch:       true,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		SQLite: SQLiteConfig{
			Path: "./safevault.db",
		},
		Location: LocationConfig{
			Locator: LocatorReported,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
