// Package config provides the configuration loader for ebb.
package config

import (
	"os"
	"runtime"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Loader loads and validates an ebb.yaml file.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, defaults and validates the configuration at path.
// Any problem is a fatal configuration error: the batch never runs against
// an invalid configuration.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "failed to read config file"), "path", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, err.Error()), "path", path)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, zerr.Wrap(domain.ErrConfig, err.Error())
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, err.Error()), "path", path)
	}

	// Base directories must exist up front. The cache dir is created on
	// demand by the store, but a missing source dir means every entity
	// would fail and is treated as fatal instead.
	if info, err := os.Stat(cfg.SourceDir); err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "source directory missing"), "dir", cfg.SourceDir)
	}
	for tag, dir := range cfg.Sources {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrConfig, "source directory missing"), "dir", dir), "tag", tag)
		}
	}

	return &cfg, nil
}

// HasTier reports whether name is one of the configured tiers.
func (c *Config) HasTier(name string) bool {
	for _, t := range c.Tiers {
		if t == name {
			return true
		}
	}
	return false
}

// ParamSet returns the named parameter set.
func (c *Config) ParamSet(name string) (ParamSet, bool) {
	p, ok := c.ParameterSets[name]
	return p, ok
}

// SourceByTag returns the raw-series directory registered under tag.
func (c *Config) SourceByTag(tag string) (string, bool) {
	dir, ok := c.Sources[tag]
	return dir, ok
}

// Workers resolves WorkerCount against the available parallelism.
func (c *Config) Workers() int {
	n := c.WorkerCount
	if n <= 0 || n > runtime.NumCPU() {
		n = runtime.NumCPU()
	}
	return n
}
