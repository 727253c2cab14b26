// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Metadata  MetadataConfig
	Server    ServerConfig
	Entity    EntityConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// MetadataConfig holds on-disk storage configuration.
type MetadataConfig struct {
	// BasePath is the data directory; the database lives at {BasePath}/catalog.db.
	BasePath string
}

// DatabasePath returns the SQLite file path.
func (m MetadataConfig) DatabasePath() string {
	return filepath.Join(m.BasePath, "catalog.db")
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// EntityConfig holds entity resolution configuration.
type EntityConfig struct {
	// ValidationMode is "enforce" (block unresolved names) or "log" (warn only).
	ValidationMode     string
	AuthorThreshold    float64
	PublisherThreshold float64
	BinderThreshold    float64
	// CacheTTL bounds how stale the in-process entity cache may be.
	CacheTTL   time.Duration
	MaxResults int
}

// WorkerConfig holds analysis worker configuration.
type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

// RateLimitConfig holds per-client HTTP rate limiting.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with an explicit argument list.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("catalog-resolver", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	metadataPath := fs.String("metadata-path", "", "Base path for data storage")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	// Entity resolution flags
	validationMode := fs.String("validation-mode", "", "Entity validation mode: enforce or log (default: enforce)")
	authorThreshold := fs.String("author-threshold", "", "Fuzzy threshold for authors (default: 0.75)")
	publisherThreshold := fs.String("publisher-threshold", "", "Fuzzy threshold for publishers (default: 0.80)")
	binderThreshold := fs.String("binder-threshold", "", "Fuzzy threshold for binders (default: 0.80)")
	cacheTTL := fs.String("entity-cache-ttl", "", "Entity cache TTL (default: 300s)")
	maxResults := fs.String("max-results", "", "Maximum fuzzy suggestions (default: 5)")

	// Worker flags
	workerConcurrency := fs.String("worker-concurrency", "", "Analysis worker goroutines (default: 2)")
	workerQueueSize := fs.String("worker-queue-size", "", "Analysis job queue size (default: 64)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*metadataPath, "METADATA_PATH", ""),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Entity: EntityConfig{
			ValidationMode: strings.ToLower(getConfigValue(*validationMode, "ENTITY_VALIDATION_MODE", "enforce")),
			MaxResults:     getIntConfigValue(*maxResults, "ENTITY_MAX_RESULTS", 5),
		},
		Worker: WorkerConfig{
			Concurrency: getIntConfigValue(*workerConcurrency, "WORKER_CONCURRENCY", 2),
			QueueSize:   getIntConfigValue(*workerQueueSize, "WORKER_QUEUE_SIZE", 64),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue("", "RATE_LIMIT_ENABLED", true),
			Burst:   getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
	}

	var err error
	if cfg.RateLimit.RequestsPerSecond, err = getFloatConfigValue("", "RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.Entity.AuthorThreshold, err = getFloatConfigValue(*authorThreshold, "ENTITY_AUTHOR_THRESHOLD", 0.75); err != nil {
		return nil, err
	}
	if cfg.Entity.PublisherThreshold, err = getFloatConfigValue(*publisherThreshold, "ENTITY_PUBLISHER_THRESHOLD", 0.80); err != nil {
		return nil, err
	}
	if cfg.Entity.BinderThreshold, err = getFloatConfigValue(*binderThreshold, "ENTITY_BINDER_THRESHOLD", 0.80); err != nil {
		return nil, err
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		env      string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Entity.CacheTTL, *cacheTTL, "ENTITY_CACHE_TTL", "300s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dst = parsed
	}

	// Expand and validate metadata path.
	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	return c.Entity.validate()
}

func (e EntityConfig) validate() error {
	if e.ValidationMode != "enforce" && e.ValidationMode != "log" {
		return fmt.Errorf("invalid validation mode: %s (must be enforce or log)", e.ValidationMode)
	}

	for name, v := range map[string]float64{
		"author":    e.AuthorThreshold,
		"publisher": e.PublisherThreshold,
		"binder":    e.BinderThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("invalid %s threshold: %v (must be in (0, 1])", name, v)
		}
	}

	if e.CacheTTL <= 0 {
		return fmt.Errorf("invalid entity cache TTL: %s (must be positive)", e.CacheTTL)
	}
	if e.MaxResults <= 0 {
		return fmt.Errorf("invalid max results: %d (must be positive)", e.MaxResults)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandMetadataPath expands ~ and makes the path absolute.
// Defaults to ~/CatalogResolver/data.
func (c *Config) expandMetadataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "CatalogResolver", "data")

	expanded, err := expandPath(c.Metadata.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
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
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
// Unlike the int variant a malformed value is an error: a silently ignored
// threshold would change matching behaviour unnoticed.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return result, nil
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

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
