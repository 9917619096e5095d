package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables that override file values.
const (
	EnvAPIURL   = "CHEFAI_API_URL"
	EnvLogLevel = "CHEFAI_LOG_LEVEL"
)

// Config holds application configuration.
type Config struct {
	// APIURL is the base URL of the recipe service.
	APIURL string `json:"api_url"`

	// RequestTimeoutSeconds bounds every request to the recipe service.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`

	// ExportsDir is where exported documents are saved.
	// Empty means <baseDir>/exports.
	ExportsDir string `json:"exports_dir,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `json:"log_format"`

	// WebBind and WebPort are the listen address of the local browser UI.
	WebBind string `json:"web_bind"`
	WebPort int    `json:"web_port"`

	// CheckSessionRemotely asks the service whether the stored credential is
	// still valid when deciding entry-page redirects, instead of trusting
	// local credential presence.
	CheckSessionRemotely bool `json:"check_session_remotely,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIURL:                "http://127.0.0.1:5000",
		RequestTimeoutSeconds: 30,
		LogLevel:              "info",
		LogFormat:             "console",
		WebBind:               "127.0.0.1",
		WebPort:               5173,
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.chefai.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if cfg.ExportsDir == "" {
		cfg.ExportsDir = filepath.Join(baseDir, "exports")
	}
	applyEnv(cfg)
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// applyEnv overrides file values with non-empty environment variables.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.APIURL = firstString(overlay.APIURL, base.APIURL)
	result.ExportsDir = firstString(overlay.ExportsDir, base.ExportsDir)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = firstString(overlay.LogFormat, base.LogFormat)
	result.WebBind = firstString(overlay.WebBind, base.WebBind)

	result.RequestTimeoutSeconds = overlay.RequestTimeoutSeconds
	if result.RequestTimeoutSeconds <= 0 {
		result.RequestTimeoutSeconds = base.RequestTimeoutSeconds
	}

	result.WebPort = overlay.WebPort
	if result.WebPort == 0 {
		result.WebPort = base.WebPort
	}

	// Booleans: overlay wins if true, else base
	result.CheckSessionRemotely = base.CheckSessionRemotely || overlay.CheckSessionRemotely

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
