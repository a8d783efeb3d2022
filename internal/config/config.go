// Package config builds the effective redline configuration by merging
// defaults, the user config file, a project config file, environment
// variables, and CLI flag overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the per-repository config file name.
const ProjectFile = ".redline.yaml"

// Config represents the redline configuration.
type Config struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	GitLabURL       string        `yaml:"gitlabUrl"`
	Project         string        `yaml:"project"`
	ProximityWindow int           `yaml:"proximityWindow"`
	PassConcurrency int           `yaml:"passConcurrency"`
	EmitWorkers     int           `yaml:"emitWorkers"`
	Include         []string      `yaml:"include"`
	Exclude         []string      `yaml:"exclude"`
	FailOn          string        `yaml:"failOn"`
	RequestTimeout  int           `yaml:"requestTimeoutSeconds"`
	Cache           CacheConfig   `yaml:"cache"`
	Privacy         PrivacyConfig `yaml:"privacy"`
}

// CacheConfig controls pass-response caching.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// PrivacyConfig controls secret redaction.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:        "azure",
		Model:           "gpt-4o",
		GitLabURL:       "https://gitlab.com",
		ProximityWindow: 10,
		PassConcurrency: 4,
		EmitWorkers:     4,
		Include:         []string{"**/*"},
		Exclude:         []string{"vendor/**", "**/*.gen.go", "**/dist/**", "**/*.lock"},
		FailOn:          "never",
		RequestTimeout:  120,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
	}
}

// Timeout returns RequestTimeout as a duration for HTTP clients. Zero
// when unset, letting clients fall back to their own defaults.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Validate checks the effective config for values the engine cannot
// run with.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider must not be empty")
	}
	if c.ProximityWindow < 0 {
		return fmt.Errorf("proximityWindow must not be negative")
	}
	if c.PassConcurrency < 1 {
		return fmt.Errorf("passConcurrency must be at least 1")
	}
	if c.EmitWorkers < 1 {
		return fmt.Errorf("emitWorkers must be at least 1")
	}
	switch c.FailOn {
	case "never", "findings":
	default:
		return fmt.Errorf("failOn must be %q or %q, got %q", "never", "findings", c.FailOn)
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "redline"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "redline"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "redline"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "redline"), nil
	default:
		return filepath.Join(home, ".config", "redline"), nil
	}
}

// ConfigPath returns the full path to the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from path. A missing file yields a zero Config
// and nil error.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the user config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config:
// defaults <- user file <- project file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	userPath, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	userCfg, err := LoadFile(userPath)
	if err != nil {
		return Config{}, err
	}
	merge(&cfg, userCfg)

	projectCfg, err := LoadFile(ProjectFile)
	if err != nil {
		return Config{}, err
	}
	merge(&cfg, projectCfg)

	mergeEnv(&cfg)
	mergeOverrides(&cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func merge(dst *Config, src Config) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.GitLabURL != "" {
		dst.GitLabURL = src.GitLabURL
	}
	if src.Project != "" {
		dst.Project = src.Project
	}
	if src.ProximityWindow > 0 {
		dst.ProximityWindow = src.ProximityWindow
	}
	if src.PassConcurrency > 0 {
		dst.PassConcurrency = src.PassConcurrency
	}
	if src.EmitWorkers > 0 {
		dst.EmitWorkers = src.EmitWorkers
	}
	if len(src.Include) > 0 {
		dst.Include = src.Include
	}
	if len(src.Exclude) > 0 {
		dst.Exclude = src.Exclude
	}
	if src.FailOn != "" {
		dst.FailOn = src.FailOn
	}
	if src.RequestTimeout > 0 {
		dst.RequestTimeout = src.RequestTimeout
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.TTLSeconds > 0 {
		dst.Cache.TTLSeconds = src.Cache.TTLSeconds
	}
	if len(src.Privacy.RedactPaths) > 0 {
		dst.Privacy.RedactPaths = src.Privacy.RedactPaths
	}
}

func mergeEnv(cfg *Config) {
	if v := os.Getenv("REDLINE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("REDLINE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REDLINE_GITLAB_URL"); v != "" {
		cfg.GitLabURL = v
	}
	if v := os.Getenv("REDLINE_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("REDLINE_PROXIMITY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProximityWindow = n
		}
	}
	if v := os.Getenv("REDLINE_PASS_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PassConcurrency = n
		}
	}
	if v := os.Getenv("REDLINE_FAIL_ON"); v != "" {
		cfg.FailOn = v
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		// Flag overrides reuse the config key names; unknown keys were
		// rejected at flag definition time.
		_ = SetField(cfg, key, v)
	}
}

// SetField sets a single config field by key name. Returns an error if
// the key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "gitlabUrl":
		cfg.GitLabURL = value
	case "project":
		cfg.Project = value
	case "proximityWindow":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("proximityWindow must be an integer: %w", err)
		}
		cfg.ProximityWindow = n
	case "passConcurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("passConcurrency must be an integer: %w", err)
		}
		cfg.PassConcurrency = n
	case "emitWorkers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("emitWorkers must be an integer: %w", err)
		}
		cfg.EmitWorkers = n
	case "failOn":
		cfg.FailOn = value
	case "requestTimeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("requestTimeoutSeconds must be an integer: %w", err)
		}
		cfg.RequestTimeout = n
	case "cache.ttlSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("cache.ttlSeconds must be an integer: %w", err)
		}
		cfg.Cache.TTLSeconds = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
