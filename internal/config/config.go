// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/listenupapp/bookpeer/internal/validation"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Library LibraryConfig
	Owner   OwnerConfig
	Scan    ScanConfig
	Watch   WatchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" validate:"required,oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" validate:"required,oneof=debug info warn error"`
}

// LibraryConfig locates the books this peer shares.
type LibraryConfig struct {
	Path      string `env:"LIBRARY_PATH" validate:"required"`
	Extension string `env:"FILE_EXTENSION" validate:"required,startswith=.,min=2,excludesall=/\\"`
}

// OwnerConfig identifies this peer to others.
type OwnerConfig struct {
	Host           string        `env:"OWNER_HOST" validate:"required"`
	Port           int           `env:"SHARE_PORT" validate:"min=1,max=65535"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" validate:"gt=0"`
}

// ScanConfig tunes discovery runs.
type ScanConfig struct {
	Workers      int  `env:"SCAN_WORKERS" validate:"min=1,max=256"`
	MetadataOnly bool `env:"METADATA_ONLY"`
}

// WatchConfig controls rebuilding the catalog when the library changes.
type WatchConfig struct {
	Enabled     bool          `env:"WATCH_LIBRARY"`
	Debounce    time.Duration `env:"WATCH_DEBOUNCE" validate:"gt=0"`
	SettleDelay time.Duration `env:"WATCH_SETTLE_DELAY" validate:"gt=0"`
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags in args (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// A single positional argument is accepted as the library path.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bookpeer", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	libraryPath := fs.String("library-path", "", "Directory holding the shared books")
	extension := fs.String("ext", "", "File extension of shared books (default: .wav)")
	ownerHost := fs.String("owner-host", "", "Host name announced as the books' owner (default: localhost)")
	sharePort := fs.String("port", "", "Port peers fetch books on (default: 5005)")
	resolveTimeout := fs.String("resolve-timeout", "", "Owner host lookup timeout (default: 2s)")
	workers := fs.String("workers", "", "Concurrent probe workers (default: number of CPUs)")
	var metadataOnly, watch boolFlag
	fs.Var(&metadataOnly, "metadata-only", "Close audio streams after probing (default: false)")
	fs.Var(&watch, "watch", "Rebuild the catalog when the library changes (default: false)")
	watchDebounce := fs.String("watch-debounce", "", "Quiet period before a rebuild (default: 2s)")
	settleDelay := fs.String("settle-delay", "", "How long a file must be unchanged before it counts (default: 500ms)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one library path, got %d arguments", fs.NArg())
	}
	if *libraryPath == "" {
		*libraryPath = fs.Arg(0)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
		},
		Library: LibraryConfig{
			Path:      getConfigValue(*libraryPath, "LIBRARY_PATH", ""),
			Extension: getConfigValue(*extension, "FILE_EXTENSION", ".wav"),
		},
		Owner: OwnerConfig{
			Host: getConfigValue(*ownerHost, "OWNER_HOST", "localhost"),
			Port: getIntConfigValue(*sharePort, "SHARE_PORT", 5005),
		},
		Scan: ScanConfig{
			Workers:      getIntConfigValue(*workers, "SCAN_WORKERS", runtime.NumCPU()),
			MetadataOnly: getBoolConfigValue(string(metadataOnly), "METADATA_ONLY", false),
		},
		Watch: WatchConfig{
			Enabled: getBoolConfigValue(string(watch), "WATCH_LIBRARY", false),
		},
	}

	var err error
	if cfg.Owner.ResolveTimeout, err = getDurationConfigValue(*resolveTimeout, "RESOLVE_TIMEOUT", "2s"); err != nil {
		return nil, err
	}
	if cfg.Watch.Debounce, err = getDurationConfigValue(*watchDebounce, "WATCH_DEBOUNCE", "2s"); err != nil {
		return nil, err
	}
	if cfg.Watch.SettleDelay, err = getDurationConfigValue(*settleDelay, "WATCH_SETTLE_DELAY", "500ms"); err != nil {
		return nil, err
	}

	if err := cfg.expandLibraryPath(); err != nil {
		return nil, fmt.Errorf("invalid library path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// boolFlag is a bool flag that remembers whether it was given, so an unset
// flag falls through to the environment. A bare -watch means true.
type boolFlag string

func (b *boolFlag) String() string { return string(*b) }

func (b *boolFlag) Set(v string) error {
	*b = boolFlag(v)
	return nil
}

func (b *boolFlag) IsBoolFlag() bool { return true }

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	return validation.New().Validate(c)
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandLibraryPath expands ~ and makes the path absolute. An empty path
// stays empty and is reported by Validate.
func (c *Config) expandLibraryPath() error {
	expanded, err := expandPath(c.Library.Path, "")
	if err != nil {
		return err
	}
	c.Library.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values become 0 so that validation reports them.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return 0
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
