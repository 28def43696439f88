package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// projectConfigFile is read from the current directory and overrides the
// user configuration key by key.
const projectConfigFile = ".navtree.toml"

// Config holds configuration loaded from ~/.config/navtree/config.toml and
// .navtree.toml.
type Config struct {
	Check  CheckConfig  `toml:"check"`
	Render RenderConfig `toml:"render"`
	Store  StoreConfig  `toml:"store"`
}

// CheckConfig configures validation.
type CheckConfig struct {
	Links bool `toml:"links"`
}

// RenderConfig configures show and browse.
type RenderConfig struct {
	Format  string `toml:"format" validate:"oneof=text markdown html json yaml dot"`
	BaseURL string `toml:"base_url" validate:"omitempty,url"`
	Links   bool   `toml:"links"`
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path string `toml:"path" validate:"required"`
}

func defaultConfig() *Config {
	return &Config{
		Render: RenderConfig{Format: "text"},
		Store:  StoreConfig{Path: defaultStorePath()},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "navtree.db"
	}
	return filepath.Join(home, ".local", "state", "navtree", "navtree.db")
}

func userConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "navtree", "config.toml"), nil
}

// loadConfig reads the user file (userPath, or the default location when
// empty) and then the project file on top of it. Keys set in the project
// file win. Missing files are not an error.
func loadConfig(userPath, projectPath string) (*Config, error) {
	if userPath == "" {
		p, err := userConfigPath()
		if err != nil {
			return nil, err
		}
		userPath = p
	}

	cfg := defaultConfig()
	for _, path := range []string{userPath, projectPath} {
		if path == "" {
			continue
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Re-apply defaults for empty fields
	if cfg.Render.Format == "" {
		cfg.Render.Format = "text"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their TOML key
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateConfig returns an error naming the first invalid key.
func validateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return fmt.Errorf("config: %w", err)
	}
	fe := fields[0]
	key := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("config: %s: %q is not one of %s", key, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return fmt.Errorf("config: %s: %q is not an absolute URL", key, fe.Value())
	case "required":
		return fmt.Errorf("config: %s is required", key)
	}
	return fmt.Errorf("config: %s: failed %q check", key, fe.Tag())
}
