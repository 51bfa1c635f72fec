package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix scopes the environment override namespace.
	envPrefix = "TAGMILL_"
)

// LoadWithFile loads configuration from a YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TAGMILL_SERVER_PORT, TAGMILL_RULES_PATH, ...)
//  2. YAML config file (~/.config/tagmill/config.yaml by default)
//  3. Hardcoded defaults
//
// # Security Considerations
//
// File permissions: the config file must be 0600 or 0400; the catalog
// token lives in it. Files with weaker permissions are rejected.
//
// Path validation: only files under ~/.config/tagmill/ or /etc/tagmill/
// can be loaded, and files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// After the TAGMILL_ prefix, the first underscore separates section
// from field:
//
//	TAGMILL_SERVER_PORT        -> server.port
//	TAGMILL_RULES_PATH         -> rules.path
//	TAGMILL_CATALOG_BASE_URL   -> catalog.base_url
//	TAGMILL_TAGGING_MIN_SCORE  -> tagging.min_score
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "tagmill", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Open once and validate via the file descriptor to avoid a
		// TOCTOU race between stat and read.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps TAGMILL_SECTION_FIELD_NAME to section.field_name.
// Only the first underscore after the prefix becomes a dot; field
// names keep theirs.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// EnsureConfigDir creates the tagmill config directory if it doesn't
// exist, with 0700 permissions.
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "tagmill")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks if path is in allowed directories. This
// runs even if the file doesn't exist.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Resolve symlinks so a link cannot escape the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Allows validation of paths that don't exist yet.
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "tagmill"),
		"/etc/tagmill",
	}

	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/tagmill/ or /etc/tagmill/")
}

// validateConfigFileProperties checks file permissions and size using
// FileInfo from an already-opened descriptor.
func validateConfigFileProperties(info os.FileInfo) error {
	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0o600 && perm != 0o400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults fills zero values that the koanf overlay may have
// cleared when a section was partially specified.
func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = def.Rules.Path
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = def.Rules.Debounce
	}
	if cfg.Catalog.Interval == 0 {
		cfg.Catalog.Interval = def.Catalog.Interval
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = def.Catalog.Timeout
	}
	if cfg.Catalog.MaxRetries == 0 {
		cfg.Catalog.MaxRetries = def.Catalog.MaxRetries
	}
	if cfg.Tagging.Mode == "" {
		cfg.Tagging.Mode = def.Tagging.Mode
	}
	if cfg.Tagging.MinScore == 0 {
		cfg.Tagging.MinScore = def.Tagging.MinScore
	}
	if cfg.Tagging.CacheTTL == 0 {
		cfg.Tagging.CacheTTL = def.Tagging.CacheTTL
	}
	if cfg.Tagging.CacheEntries == 0 {
		cfg.Tagging.CacheEntries = def.Tagging.CacheEntries
	}
}
