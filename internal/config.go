package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/wheel"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Wheel     WheelConfig       `yaml:"wheel"`
	Canvas    CanvasConfig      `yaml:"canvas"`
	Connector ConnectorConfig   `yaml:"connector"`
	Autosave  AutosaveConfig    `yaml:"autosave"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []validation.Validatable{
		&c.App, &c.Vault, &c.SQLite, &c.Auth, &c.Wheel, &c.Canvas, &c.Connector, &c.Autosave,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
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

// VaultConfig holds the directory the note files live in.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds the search index database configuration.
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
//   - "disabled" (default): no authentication required, suitable for local use.
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

// WheelConfig describes the ring. Year 0 shows the current year.
type WheelConfig struct {
	Year   int     `yaml:"year"`
	Radius float64 `yaml:"radius"`
	Margin float64 `yaml:"margin"`
}

// Validate validates the wheel configuration.
func (c *WheelConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Year, validation.Min(0), validation.Max(9999)),
		validation.Field(&c.Radius, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Margin, validation.Min(0.0)),
	)
}

// Layout converts the configuration into a wheel layout.
func (c *WheelConfig) Layout() wheel.Layout {
	return wheel.Layout{Year: c.Year, Radius: c.Radius, Margin: c.Margin}
}

// CanvasConfig is the initial size of the drawing surface.
type CanvasConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Validate validates the canvas configuration.
func (c *CanvasConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1.0)),
		validation.Field(&c.Height, validation.Required, validation.Min(1.0)),
	)
}

// ConnectorConfig tunes connector editing.
//
// CommitThreshold is the smallest handle travel, in pixels, that is saved
// as a custom path. OnMoveComplete decides what a finished card move or
// resize does to a custom path: "reset" restores the automatic route,
// "translate" shifts it with the card.
type ConnectorConfig struct {
	CommitThreshold float64          `yaml:"commit_threshold"`
	OnMoveComplete  notestore.Policy `yaml:"on_move_complete"`
}

// Validate validates the connector configuration.
func (c *ConnectorConfig) Validate() error {
	if c.OnMoveComplete == "" {
		c.OnMoveComplete = notestore.PolicyReset
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.CommitThreshold, validation.Min(0.0)),
		validation.Field(&c.OnMoveComplete, validation.In(notestore.PolicyReset, notestore.PolicyTranslate)),
	)
}

// AutosaveConfig holds the debounce applied to drag-driven writes.
type AutosaveConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the autosave configuration.
func (c *AutosaveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0)), validation.Max(time.Minute)),
	)
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
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./yearwheel.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Wheel: WheelConfig{
			Radius: 300,
			Margin: 40,
		},
		Canvas: CanvasConfig{
			Width:  1200,
			Height: 800,
		},
		Connector: ConnectorConfig{
			OnMoveComplete: notestore.PolicyReset,
		},
		Autosave: AutosaveConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}
