// Package config loads and persists zaur's user configuration.
//
// The configuration lives at $XDG_CONFIG_HOME/zaur/config.toml (falling back
// to ~/.config). Runtime paths (cache and clone directories) are derived from
// the XDG cache directory on every load and never serialized.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zaurpkg/zaur/pkg/errors"
)

// appName is used for the config and cache directory names.
const appName = "zaur"

// Config holds user-tunable settings plus derived runtime paths.
type Config struct {
	// CacheDir is the root cache directory (derived, not serialized).
	CacheDir string `toml:"-"`

	// CloneDir holds one buildable tree per AUR package (derived).
	CloneDir string `toml:"-"`

	// UseGitClone prefers an incremental git fetch over snapshot download.
	UseGitClone bool `toml:"use_git_clone"`

	// MaxConcurrentRequests bounds outstanding AUR RPC requests.
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`

	// RequestDelayMs is the minimum delay between RPC requests.
	RequestDelayMs int `toml:"request_delay_ms"`

	// SearchCacheTTLMinutes bounds how long aggregated search results are
	// reused. Zero means the default of one hour.
	SearchCacheTTLMinutes int `toml:"search_cache_ttl_minutes"`

	// RemoveMakeDeps removes build-only dependencies after a successful
	// build without prompting.
	RemoveMakeDeps bool `toml:"remove_make_deps"`
}

// Default returns a Config with conservative defaults and derived paths set.
func Default() (*Config, error) {
	cfg := &Config{
		UseGitClone:           true,
		MaxConcurrentRequests: 10,
		RequestDelayMs:        100,
	}
	if err := cfg.derivePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the config file, falling back to defaults when it is absent.
func Load() (*Config, error) {
	path, err := FilePath()
	if err != nil {
		return nil, err
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "failed to read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// Save writes the config file, creating the config directory if needed.
func (c *Config) Save() error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "failed to create config directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "failed to write config %s", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeConfig, err, "failed to encode config")
	}
	return nil
}

// EnsureDirs creates the cache and clone directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.CacheDir, c.CloneDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "failed to create %s", dir)
		}
	}
	return nil
}

// SearchCacheTTL returns the configured TTL for search results.
func (c *Config) SearchCacheTTL() time.Duration {
	if c.SearchCacheTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.SearchCacheTTLMinutes) * time.Minute
}

// RequestDelay returns the minimum inter-request delay for the RPC client.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// FilePath returns the config file location following XDG conventions.
func FilePath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, err, "could not determine config directory")
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the root cache directory following XDG conventions.
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeConfig, err, "could not determine cache directory")
	}
	return filepath.Join(home, ".cache", appName), nil
}

func (c *Config) derivePaths() error {
	cacheDir, err := CacheDir()
	if err != nil {
		return err
	}
	c.CacheDir = cacheDir
	c.CloneDir = filepath.Join(cacheDir, "clone")
	return nil
}
