package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/lexicon/internal/dictionary"
	"github.com/starford/lexicon/internal/scheduler"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	StorageBackendSQLite = "sqlite"
	StorageBackendFS     = "fs"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Document   DocumentConfig    `yaml:"document"`
	Dictionary DictionaryConfig  `yaml:"dictionary"`
	Storage    StorageConfig     `yaml:"storage"`
	Scheduler  SchedulerConfig   `yaml:"scheduler"`
	Tooltip    TooltipConfig     `yaml:"tooltip"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Document, &c.Dictionary, &c.Storage, &c.Scheduler, &c.Tooltip, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
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

// DocumentConfig names the page the engine runs against.
//
// Source is a file path or an http(s) URL. Watch only applies to files.
type DocumentConfig struct {
	Source            string `yaml:"source"`
	Watch             bool   `yaml:"watch"`
	SanitizeFragments bool   `yaml:"sanitize_fragments"`
}

// Validate validates the document configuration.
func (c *DocumentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
	)
}

// DictionaryConfig describes the remote dictionary endpoint.
type DictionaryConfig struct {
	URL       string        `yaml:"url"`
	AccessKey string        `yaml:"access_key"`
	TTL       time.Duration `yaml:"ttl"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Validate validates the dictionary configuration.
func (c *DictionaryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// StorageConfig selects the durable key-value backend.
//
// Path is the SQLite file for "sqlite" and a directory for "fs". When
// PersistSession is false the session area lives in memory and is lost on
// restart.
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	PersistSession bool   `yaml:"persist_session"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(StorageBackendSQLite, StorageBackendFS)),
		validation.Field(&c.Path, validation.Required),
	)
}

// SchedulerConfig holds the rescan timings.
type SchedulerConfig struct {
	QuietPeriod    time.Duration `yaml:"quiet_period"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	InitialScan    bool          `yaml:"initial_scan"`
}

// Validate validates the scheduler configuration.
func (c *SchedulerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QuietPeriod, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.DebounceWindow, validation.Required, validation.Min(time.Millisecond)),
	)
}

// TooltipConfig holds the rendered tooltip height used to place it above its
// owner.
type TooltipConfig struct {
	Height float64 `yaml:"height"`
}

// Validate validates the tooltip configuration.
func (c *TooltipConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Height, validation.Min(0.0)),
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
		Document: DocumentConfig{
			Source:            "./page.html",
			Watch:             true,
			SanitizeFragments: true,
		},
		Dictionary: DictionaryConfig{
			TTL:     dictionary.DefaultTTL,
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: StorageBackendSQLite,
			Path:    "./lexicon.db",
		},
		Scheduler: SchedulerConfig{
			QuietPeriod:    scheduler.DefaultQuietPeriod,
			DebounceWindow: scheduler.DefaultDebounceWindow,
			InitialScan:    true,
		},
		Tooltip: TooltipConfig{
			Height: 24,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
