// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "BUILDPATCH_CONFIG"

// Config is the buildpatch configuration.
type Config struct {
	// ChunkBaseURL is the CDN prefix chunk URLs are built from, e.g.
	// "https://cdn.example.com/Builds/Org/App/CloudDir/". Empty
	// disables streaming.
	ChunkBaseURL string `yaml:"chunk_base_url"`

	// ChunkCacheDir is where downloaded chunks persist. Empty keeps
	// chunks in memory only.
	ChunkCacheDir string `yaml:"chunk_cache_dir"`

	// CacheChunksAsIs stores chunk blobs exactly as downloaded
	// instead of their decompressed windows.
	CacheChunksAsIs bool `yaml:"cache_chunks_as_is"`

	// ManifestCacheDir is where manifests downloaded through a
	// manifest-info document are kept.
	ManifestCacheDir string `yaml:"manifest_cache_dir"`

	// ChunkDownloadBufferSize is the initial capacity of a chunk
	// download buffer when the server sends no Content-Length.
	ChunkDownloadBufferSize int `yaml:"chunk_download_buffer_size"`

	// MemoryCacheChunks is the number of decompressed windows kept
	// in memory.
	MemoryCacheChunks int `yaml:"memory_cache_chunks"`

	// MaxConcurrency bounds parallel chunk fetches during extraction.
	MaxConcurrency int `yaml:"max_concurrency"`

	// HTTP configures the chunk and manifest HTTP client.
	HTTP HTTPConfig `yaml:"http"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	// Timeout bounds a single request, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout"`

	// RetryMax is the number of retries after a failed request.
	// Default: 4
	RetryMax int `yaml:"retry_max"`

	// UserAgent is sent with every request when set.
	UserAgent string `yaml:"user_agent"`
}

// Default returns the default configuration. Loading a file merges
// into these values.
func Default() *Config {
	return &Config{
		ChunkCacheDir:           filepath.Join(cacheRoot(), "chunks"),
		ManifestCacheDir:        filepath.Join(cacheRoot(), "manifests"),
		ChunkDownloadBufferSize: 2 << 20,
		MemoryCacheChunks:       32,
		MaxConcurrency:          8,
		HTTP: HTTPConfig{
			Timeout:  "30s",
			RetryMax: 4,
		},
		LogLevel: "info",
	}
}

func cacheRoot() string {
	if directory, err := os.UserCacheDir(); err == nil {
		return filepath.Join(directory, "buildpatch")
	}
	return filepath.Join(os.TempDir(), "buildpatch")
}

// Load loads configuration from the file named by BUILDPATCH_CONFIG.
// It fails when the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your buildpatch.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// Resolve loads path when it is set, then the file named by
// BUILDPATCH_CONFIG, and otherwise returns Default.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.ChunkBaseURL = expandVars(c.ChunkBaseURL, vars)
	c.ChunkCacheDir = expandVars(c.ChunkCacheDir, vars)
	c.ManifestCacheDir = expandVars(c.ManifestCacheDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Values in
// vars take precedence over the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.ChunkBaseURL != "" {
		parsed, err := url.Parse(c.ChunkBaseURL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("chunk_base_url: %w", err))
		case !parsed.IsAbs() || parsed.Host == "":
			errs = append(errs, fmt.Errorf("chunk_base_url must be an absolute URL, got %q", c.ChunkBaseURL))
		case parsed.Scheme != "http" && parsed.Scheme != "https":
			errs = append(errs, fmt.Errorf("chunk_base_url scheme must be http or https, got %q", parsed.Scheme))
		}
	}

	if c.ChunkDownloadBufferSize < 0 {
		errs = append(errs, fmt.Errorf("chunk_download_buffer_size must not be negative"))
	}
	if c.MemoryCacheChunks < 0 {
		errs = append(errs, fmt.Errorf("memory_cache_chunks must not be negative"))
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max_concurrency must not be negative"))
	}
	if c.HTTP.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("http.retry_max must not be negative"))
	}
	if _, err := c.HTTP.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// TimeoutDuration parses Timeout. Empty means no timeout.
func (h HTTPConfig) TimeoutDuration() (time.Duration, error) {
	if h.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0, fmt.Errorf("http.timeout: %w", err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("http.timeout must not be negative")
	}
	return timeout, nil
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the configured cache directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.ChunkCacheDir, c.ManifestCacheDir} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
