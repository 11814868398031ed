// Package config loads the projctx CLI settings.
//
// Precedence (highest to lowest):
//  1. Environment variables prefixed with PROJCTX_ (PROJCTX_CONCURRENCY -> concurrency)
//  2. The YAML file, by default <vault>/.projctx/config.yaml
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/aretw0/projctx/pkg/core"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PROJCTX_"
	// FileName is the name of the settings file inside the system dir.
	FileName = "config.yaml"

	DefaultSystemDir      = ".projctx"
	DefaultContentBackend = BackendFS
	DefaultConcurrency    = 4
	DefaultWatchPattern   = "**/*"

	BackendFS     = "fs"
	BackendSQLite = "sqlite"

	maxFileSize = 1024 * 1024 // 1MB
)

// Settings is the CLI configuration.
type Settings struct {
	SystemDir      string  `koanf:"system_dir" yaml:"system_dir"`
	ContentBackend string  `koanf:"content_backend" yaml:"content_backend"`
	Concurrency    int     `koanf:"concurrency" yaml:"concurrency"`
	RateLimit      float64 `koanf:"rate_limit" yaml:"rate_limit,omitempty"`
	WatchPattern   string  `koanf:"watch_pattern" yaml:"watch_pattern,omitempty"`
	MetricsAddr    string  `koanf:"metrics_addr" yaml:"metrics_addr,omitempty"`

	Projects []core.ProjectConfig `koanf:"projects" yaml:"projects"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// Path returns the default settings file of a vault.
func Path(vault, systemDir string) string {
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}
	return filepath.Join(vault, systemDir, FileName)
}

// Load reads the settings file at path, if it exists, then applies
// environment overrides, defaults and validation.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	content, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	s.applyDefaults()

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &s, nil
}

// Save writes the settings to path as YAML, creating parent directories.
func Save(path string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yamlv3.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings for values the CLI cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	switch s.ContentBackend {
	case BackendFS, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("content_backend must be %q or %q, got %q", BackendFS, BackendSQLite, s.ContentBackend))
	}
	if s.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", s.Concurrency))
	}
	if s.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %v", s.RateLimit))
	}
	if strings.ContainsAny(s.SystemDir, `/\`) {
		errs = append(errs, fmt.Errorf("system_dir must be a single directory name, got %q", s.SystemDir))
	}

	seen := make(map[string]bool, len(s.Projects))
	for i, p := range s.Projects {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("projects[%d]: %w", i, core.ErrInvalidProject))
			continue
		}
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("projects[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}
	return errors.Join(errs...)
}

func (s *Settings) applyDefaults() {
	if s.SystemDir == "" {
		s.SystemDir = DefaultSystemDir
	}
	if s.ContentBackend == "" {
		s.ContentBackend = DefaultContentBackend
	}
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.WatchPattern == "" {
		s.WatchPattern = DefaultWatchPattern
	}
}

// readFile returns nil, nil when path does not exist.
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
