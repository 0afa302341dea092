package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "ENVIOS_CONFIG"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load builds the configuration from defaults, the environment and an optional YAML file.
// An empty configPath runs on defaults plus environment (the original deployment mode).
func Load(configPath string) (*Config, error) {
	var absPath string
	if configPath != "" {
		p, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", p)
		}
		if info.IsDir() {
			p = filepath.Join(p, "config.yaml")
			if _, err := os.Stat(p); err != nil {
				return nil, fmt.Errorf("directory provided but config.yaml not found: %s", p)
			}
		}
		absPath = p
	}

	dotenvDirs := []string{"."}
	if absPath != "" {
		dotenvDirs = append([]string{filepath.Dir(absPath)}, dotenvDirs...)
	}
	if err := loadDotEnv(dotenvDirs...); err != nil {
		return nil, err
	}

	cfg := Defaults()
	applyEnvDefaults(cfg)

	if absPath != "" {
		if err := VerifyChecksums(absPath); err != nil {
			return nil, err
		}
		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, err
		}
		cfg.SourcePath = absPath
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DiscoverConfigPath finds a config file by checking standard locations.
// Priority order: $ENVIOS_CONFIG, ./config.yaml. Returns "" when none exists.
func DiscoverConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("$%s points at %s: %w", EnvConfigPath, p, err)
		}
		return p, nil
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		return "./config.yaml", nil
	}
	return "", nil
}

// loadConfigFile parses a YAML file over cfg; keys absent from the file keep their current value.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	interpolated := interpolateEnv(string(data))
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads the first .env found in dirs. Variables already set in the
// process environment are never overridden.
func loadDotEnv(dirs ...string) error {
	for _, dir := range dirs {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
		return nil
	}
	return nil
}

// applyEnvDefaults seeds values from the environment before the file is applied,
// so an explicit file value always wins.
func applyEnvDefaults(cfg *Config) {
	if v := os.Getenv("HUBSPOT_API_KEY"); v != "" {
		cfg.HubSpot.APIKey = v
	}
	if v := os.Getenv("HUBSPOT_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Listen = ":" + v
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Leave the placeholder; validate rejects it for secrets.
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	switch strings.ToLower(cfg.Service.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}

	if cfg.HubSpot.SearchURL == "" {
		return errors.New("hubspot.search_url is required")
	}
	if cfg.HubSpot.LookupProperty == "" {
		return errors.New("hubspot.lookup_property is required")
	}
	if cfg.HubSpot.Timeout < 0 {
		return errors.New("hubspot.timeout must not be negative")
	}
	if err := checkResolved("hubspot.api_key", cfg.HubSpot.APIKey); err != nil {
		return err
	}

	if err := checkResolved("webhook.secret", cfg.Webhook.Secret); err != nil {
		return err
	}
	if cfg.Webhook.Secret != "" && cfg.Webhook.SignatureHeader == "" {
		return errors.New("webhook.signature_header is required when webhook.secret is set")
	}
	if _, err := ParseByteSize(cfg.Webhook.MaxBodySize); err != nil {
		return fmt.Errorf("webhook.max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	switch cfg.EventLog.Backend {
	case BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("event_log.backend must be %s or %s (got %q)", BackendJSONL, BackendSQLite, cfg.EventLog.Backend)
	}
	if cfg.EventLog.Path == "" {
		return errors.New("event_log.path is required")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / (got %q)", cfg.Metrics.Path)
	}
	return nil
}

func checkResolved(field, value string) error {
	if matches := envVarPattern.FindStringSubmatch(value); len(matches) > 1 {
		return fmt.Errorf("%s: environment variable ${%s} is not set", field, matches[1])
	}
	return nil
}

// MaxBodyBytes returns the parsed webhook body limit. Load has already validated it.
func (c *Config) MaxBodyBytes() int64 {
	n, err := ParseByteSize(c.Webhook.MaxBodySize)
	if err != nil {
		return DefaultMaxBodySize
	}
	return n
}
