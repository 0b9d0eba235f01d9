package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkpad/internal/convert"
	"github.com/starford/inkpad/internal/pipeline"
	"github.com/starford/inkpad/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Drawing DrawingConfig     `yaml:"drawing"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Drawing.Validate()
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

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// DrawingConfig holds the drawing pipeline configuration.
type DrawingConfig struct {
	WorkDir        string        `yaml:"work_dir"`
	Template       string        `yaml:"template"`
	CleanWorkDir   bool          `yaml:"clean_work_dir"`
	CleanupScope   string        `yaml:"cleanup_scope"`
	Editor         string        `yaml:"editor"`
	RasterTool     string        `yaml:"raster_tool"`
	DraftExt       string        `yaml:"draft_ext"`
	RasterExt      string        `yaml:"raster_ext"`
	Background     string        `yaml:"background"`
	Fuzz           string        `yaml:"fuzz"`
	EditorTimeout  time.Duration `yaml:"editor_timeout"`
	ConvertTimeout time.Duration `yaml:"convert_timeout"`
	Ignore         []string      `yaml:"ignore"`
}

var extRule = validation.By(func(v any) error {
	if s, _ := v.(string); !strings.HasPrefix(s, ".") || len(s) < 2 {
		return fmt.Errorf("must start with a dot")
	}
	return nil
})

// Validate validates the drawing configuration.
func (c *DrawingConfig) Validate() error {
	if c.CleanupScope == "" {
		c.CleanupScope = workspace.ScopeRun
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.WorkDir, validation.Required),
		validation.Field(&c.CleanupScope, validation.In(workspace.ScopeRun, workspace.ScopeAll)),
		validation.Field(&c.Editor, validation.Required),
		validation.Field(&c.RasterTool, validation.Required),
		validation.Field(&c.DraftExt, validation.Required, extRule),
		validation.Field(&c.RasterExt, validation.Required, extRule),
		validation.Field(&c.Background, validation.Required),
		validation.Field(&c.Fuzz, validation.Required),
		validation.Field(&c.EditorTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.ConvertTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Ignore, validation.By(func(any) error {
			_, err := workspace.NewIgnore(c.Ignore)
			return err
		})),
	)
}

// PipelineOptions returns the options for a pipeline run.
func (c *DrawingConfig) PipelineOptions() (pipeline.Options, error) {
	ignore, err := workspace.NewIgnore(c.Ignore)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		WorkDir:      c.WorkDir,
		Template:     c.Template,
		Clean:        c.CleanWorkDir,
		CleanupScope: c.CleanupScope,
		DraftExt:     c.DraftExt,
		RasterExt:    c.RasterExt,
		Ignore:       ignore,
	}, nil
}

// ConvertOptions returns the options for the conversion chain.
func (c *DrawingConfig) ConvertOptions() convert.Options {
	return convert.Options{
		Editor:     c.Editor,
		RasterTool: c.RasterTool,
		DraftExt:   c.DraftExt,
		RasterExt:  c.RasterExt,
		Background: c.Background,
		Fuzz:       c.Fuzz,
		Timeout:    c.ConvertTimeout,
	}
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
			Path: "./inkpad.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Drawing: DrawingConfig{
			WorkDir:        "~/Drawings",
			CleanupScope:   workspace.ScopeRun,
			Editor:         "xournalpp",
			RasterTool:     "convert",
			DraftExt:       ".xopp",
			RasterExt:      ".png",
			Background:     "white",
			Fuzz:           "1%",
			ConvertTimeout: time.Minute,
			Ignore:         []string{"*.autosave.xopp"},
		},
	}
}
