package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/stk/internal/objconv"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Paths   PathsConfig       `yaml:"paths"`
	Objects ObjectsConfig     `yaml:"objects"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Objects.Validate()
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

// LibraryConfig holds the path to the playlist library directory.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// PathsConfig holds recording path rewriting rules.
type PathsConfig struct {
	// ServerAliases maps a UNC server prefix to the prefix a recording must
	// be checked at, e.g. \\lifs010s -> \\lifs010.
	ServerAliases map[string]string `yaml:"server_aliases"`
}

// ObjectsConfig configures the object extraction of `stk objects`.
type ObjectsConfig struct {
	MinLifetime  int                  `yaml:"min_lifetime"`
	RelevantLane int                  `yaml:"relevant_lane"`
	Timestamp    string               `yaml:"timestamp"`
	Lifecycle    string               `yaml:"lifecycle"`
	Signals      []objconv.SignalSpec `yaml:"signals"`
	AOJ          *objconv.AOJ         `yaml:"aoj"`
}

// Validate validates the objects configuration.
func (c *ObjectsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MinLifetime, validation.Min(0)),
		validation.Field(&c.RelevantLane, validation.Min(0)),
	); err != nil {
		return err
	}
	for i, s := range c.Signals {
		if s.Name == "" || s.Port == "" {
			return fmt.Errorf("objects: signal %d: name and port are required", i)
		}
	}
	if c.AOJ != nil {
		if err := validation.ValidateStruct(c.AOJ,
			validation.Field(&c.AOJ.Mapping, validation.Required),
			validation.Field(&c.AOJ.ListSize, validation.Min(1)),
		); err != nil {
			return fmt.Errorf("objects: aoj: %w", err)
		}
	}
	return nil
}

// ConverterOptions turns the configuration into objconv options.
func (c *ObjectsConfig) ConverterOptions(logger *slog.Logger) []objconv.Option {
	opts := []objconv.Option{
		objconv.WithMinLifetime(c.MinLifetime),
		objconv.WithRelevantLane(c.RelevantLane),
		objconv.WithLogger(logger),
	}
	if c.Timestamp != "" {
		opts = append(opts, objconv.WithTimestamp(c.Timestamp))
	}
	if c.AOJ != nil {
		opts = append(opts, objconv.WithAOJ(*c.AOJ))
	}
	return opts
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
		Library: LibraryConfig{
			Path: "./playlists",
		},
		SQLite: SQLiteConfig{
			Path: "./stk.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Objects: ObjectsConfig{
			MinLifetime:  objconv.DefaultMinLifetime,
			RelevantLane: objconv.DefaultRelevantLane,
			Lifecycle:    "Obj[%d].eLifeCycle",
		},
	}
}
