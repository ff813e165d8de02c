// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

// Package config loads server configuration. Values are layered: flag
// defaults, then the YAML file, then flags set on the command line.
// Secrets come only from the environment, optionally seeded from .env.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/quillhq/quill/internal/docstore"
)

// Environment variables holding secrets.
const (
	EnvAccessSecret  = "QUILL_JWT_SECRET_KEY"
	EnvRefreshSecret = "QUILL_JWT_REFRESH_SECRET_KEY"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvAWSAccessKey  = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey  = "AWS_SECRET_ACCESS_KEY"
)

const (
	defaultDotEnvFile  = ".env"
	defaultHTTPAddr    = ":8080"
	defaultMetricsAddr = "127.0.0.1:9100"
	defaultAccessTTL   = 30 * time.Minute
	defaultRefreshTTL  = 7 * 24 * time.Hour
	defaultBcryptCost  = 12
	defaultCacheTTL    = 10 * time.Second

	minCacheTTL   = time.Second
	maxCacheTTL   = time.Minute
	minBcryptCost = 4
	maxBcryptCost = 31
)

// Config is the complete server configuration.
type Config struct {
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`

	Store StoreConfig `koanf:"store"`
	Auth  AuthConfig  `koanf:"auth"`
	Cache CacheConfig `koanf:"cache"`
	CORS  CORSConfig  `koanf:"cors"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver      string       `koanf:"driver"`
	DatabaseURL string       `koanf:"-"`
	DynamoDB    DynamoConfig `koanf:"dynamodb"`
}

// DynamoConfig configures the DynamoDB backend.
type DynamoConfig struct {
	Region          string `koanf:"region"`
	Table           string `koanf:"table"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"-"`
	SecretAccessKey string `koanf:"-"`
}

// AuthConfig holds token and hashing settings.
type AuthConfig struct {
	AccessSecret  string        `koanf:"-"`
	RefreshSecret string        `koanf:"-"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	BcryptCost    int           `koanf:"bcrypt_cost"`
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// CORSConfig lists allowed origins. Entries may be glob patterns such as
// https://*.example.com.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":       "http_addr",
	"metrics-addr":    "metrics_addr",
	"log-format":      "log_format",
	"log-level":       "log_level",
	"store":           "store.driver",
	"dynamodb-region": "store.dynamodb.region",
	"dynamodb-table":  "store.dynamodb.table",
	"dynamodb-url":    "store.dynamodb.endpoint",
	"access-ttl":      "auth.access_ttl",
	"refresh-ttl":     "auth.refresh_ttl",
	"bcrypt-cost":     "auth.bcrypt_cost",
	"cache-ttl":       "cache.ttl",
	"cors-origin":     "cors.allowed_origins",
}

// RegisterFlags adds the server flags with their defaults to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("http-addr", defaultHTTPAddr, "HTTP API listen address")
	flags.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("log-format", "json", "log format (json or text)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("store", docstore.DriverMemory, "document store driver (memory, postgres, dynamodb)")
	flags.String("dynamodb-region", "us-east-1", "DynamoDB region")
	flags.String("dynamodb-table", "quill_documents", "DynamoDB table name")
	flags.String("dynamodb-url", "", "DynamoDB endpoint override")
	flags.Duration("access-ttl", defaultAccessTTL, "access token lifetime")
	flags.Duration("refresh-ttl", defaultRefreshTTL, "refresh token lifetime")
	flags.Int("bcrypt-cost", defaultBcryptCost, "bcrypt work factor for new password hashes")
	flags.Duration("cache-ttl", defaultCacheTTL, "read cache entry lifetime (1s-60s)")
	flags.StringSlice("cors-origin", nil, "allowed CORS origin pattern (repeatable)")
}

// Loader reads configuration from its sources.
type Loader struct {
	// ConfigFile is an optional YAML file.
	ConfigFile string
	// DotEnvFile is loaded into the environment when present. Defaults to .env.
	DotEnvFile string
	// Getenv defaults to os.Getenv after the dotenv file is applied.
	Getenv func(string) string
}

// Load builds a validated Config from flags and the loader's sources.
func (l Loader) Load(flags *pflag.FlagSet) (*Config, error) {
	getenv, err := l.env()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if l.ConfigFile != "" {
		if err := k.Load(file.Provider(l.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", l.ConfigFile).Wrap(err)
		}
	}
	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	cfg.Auth.AccessSecret = getenv(EnvAccessSecret)
	cfg.Auth.RefreshSecret = getenv(EnvRefreshSecret)
	cfg.Store.DatabaseURL = getenv(EnvDatabaseURL)
	cfg.Store.DynamoDB.AccessKeyID = getenv(EnvAWSAccessKey)
	cfg.Store.DynamoDB.SecretAccessKey = getenv(EnvAWSSecretKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseURL returns the Postgres URL for commands that need nothing else.
func (l Loader) DatabaseURL() (string, error) {
	getenv, err := l.env()
	if err != nil {
		return "", err
	}
	url := getenv(EnvDatabaseURL)
	if url == "" {
		return "", invalid("store.database_url", "%s is required", EnvDatabaseURL)
	}
	return url, nil
}

func (l Loader) env() (func(string) string, error) {
	if l.Getenv != nil {
		return l.Getenv, nil
	}
	if err := loadDotEnv(l.DotEnvFile); err != nil {
		return nil, err
	}
	return os.Getenv, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		path = defaultDotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return oops.Code("CONFIG_LOAD_FAILED").With("file", path).Wrap(err)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("field", field).Errorf(format, args...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return invalid("http_addr", "http address is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", "log format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Store.Driver {
	case docstore.DriverMemory:
	case docstore.DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return invalid("store.database_url", "%s is required for the postgres store", EnvDatabaseURL)
		}
	case docstore.DriverDynamoDB:
		if c.Store.DynamoDB.Region == "" || c.Store.DynamoDB.Table == "" {
			return invalid("store.dynamodb", "dynamodb region and table are required")
		}
	default:
		return invalid("store.driver", "unknown store driver %q", c.Store.Driver)
	}

	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return invalid("auth", "%s and %s must be set", EnvAccessSecret, EnvRefreshSecret)
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return invalid("auth", "access and refresh secrets must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return invalid("auth", "token lifetimes must be positive")
	}
	if c.Auth.BcryptCost < minBcryptCost || c.Auth.BcryptCost > maxBcryptCost {
		return invalid("auth.bcrypt_cost", "bcrypt cost must be between %d and %d", minBcryptCost, maxBcryptCost)
	}

	if c.Cache.TTL < minCacheTTL || c.Cache.TTL > maxCacheTTL {
		return invalid("cache.ttl", "cache ttl must be between %s and %s, got %s", minCacheTTL, maxCacheTTL, c.Cache.TTL)
	}

	for _, pattern := range c.CORS.AllowedOrigins {
		if _, err := glob.Compile(pattern); err != nil {
			return oops.Code("CONFIG_INVALID").With("field", "cors.allowed_origins").With("pattern", pattern).Wrap(err)
		}
	}
	return nil
}

// DocstoreOptions converts the store section for docstore.Open.
func (c *Config) DocstoreOptions() docstore.Options {
	return docstore.Options{
		Driver:      c.Store.Driver,
		DatabaseURL: c.Store.DatabaseURL,
		Dynamo: docstore.DynamoConfig{
			Region:          c.Store.DynamoDB.Region,
			Table:           c.Store.DynamoDB.Table,
			Endpoint:        c.Store.DynamoDB.Endpoint,
			AccessKeyID:     c.Store.DynamoDB.AccessKeyID,
			SecretAccessKey: c.Store.DynamoDB.SecretAccessKey,
		},
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, oops.Code("CONFIG_INVALID").With("field", "log_level").Wrap(err)
	}
	return level, nil
}
