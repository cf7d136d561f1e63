package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvSessionSecret = "SESSION_SECRET"
	EnvSessionExpiry = "SESSION_EXPIRY"
	EnvParserURL     = "INGREDIENT_PARSER_URL"
	EnvParserAPIKey  = "INGREDIENT_PARSER_API_KEY"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// SessionConfig holds session cookie signing settings.
type SessionConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// OAuthProviderConfig holds one provider's client credentials.
type OAuthProviderConfig struct {
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`
}

// OAuthConfig maps provider names to their client credentials plus the
// externally visible callback base URL.
type OAuthConfig struct {
	CallbackBaseURL string                         `yaml:"callback-base-url"`
	Providers       map[string]OAuthProviderConfig `yaml:"providers"`
}

// StorageConfig holds object storage settings for profile photos.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access-key"`
	SecretKey string `yaml:"secret-key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use-ssl"`
	PublicURL string `yaml:"public-url"`
}

// ParserConfig holds the external ingredient parser settings.
type ParserConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api-key"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultSessionExpiry is used when the config omits or invalidates session expiry.
const defaultSessionExpiry = 30 * 24 * time.Hour

// LoadSessionConfig loads session settings from the YAML config file.
func LoadSessionConfig(configPath string) (SessionConfig, error) {
	// fileConfig maps the YAML fields needed for session settings.
	type fileConfig struct {
		Session SessionConfig `yaml:"session"`
	}

	result := SessionConfig{Expiry: defaultSessionExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Session
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvSessionSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvSessionExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultSessionExpiry
	}
	return result, nil
}

// LoadOAuthConfig loads OAuth provider credentials from the YAML config file.
func LoadOAuthConfig(configPath string) (OAuthConfig, error) {
	// fileConfig maps the YAML fields needed for OAuth settings.
	type fileConfig struct {
		OAuth OAuthConfig `yaml:"oauth"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return OAuthConfig{}, nil
	}
	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return OAuthConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg.OAuth, nil
}

// LoadStorageConfig loads photo storage settings from the YAML config file.
func LoadStorageConfig(configPath string) (StorageConfig, error) {
	// fileConfig maps the YAML fields needed for storage settings.
	type fileConfig struct {
		Storage StorageConfig `yaml:"storage"`
	}

	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		return StorageConfig{}, nil
	}
	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return StorageConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg.Storage, nil
}

// LoadParserConfig loads ingredient parser settings from the YAML config
// file with env overrides.
func LoadParserConfig(configPath string) (ParserConfig, error) {
	// fileConfig maps the YAML fields needed for parser settings.
	type fileConfig struct {
		Parser ParserConfig `yaml:"parser"`
	}

	var result ParserConfig
	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Parser
		}
	}

	if url := strings.TrimSpace(os.Getenv(EnvParserURL)); url != "" {
		result.URL = url
	}
	if key := strings.TrimSpace(os.Getenv(EnvParserAPIKey)); key != "" {
		result.APIKey = key
	}
	return result, nil
}
