// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

// Package config loads authcore settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/authcore/authcore/internal/logging"
	"github.com/authcore/authcore/internal/store"
	"github.com/authcore/authcore/internal/token"
	"github.com/authcore/authcore/internal/xdg"
)

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

// Config holds every authcore setting.
type Config struct {
	DatabaseURL        string        `koanf:"database_url"`
	AccessTokenSecret  string        `koanf:"access_token_secret"`
	RefreshTokenSecret string        `koanf:"refresh_token_secret"`
	TokenIssuer        string        `koanf:"token_issuer"`
	LogFormat          string        `koanf:"log_format"`
	LogLevel           string        `koanf:"log_level"`
	ConnectTimeout     time.Duration `koanf:"connect_timeout"`
}

// envKeys maps environment variables to config keys. Signing secrets and the
// database URL use their conventional unprefixed names.
var envKeys = map[string]string{
	"DATABASE_URL":             "database_url",
	"ACCESS_TOKEN_SECRET":      "access_token_secret",
	"REFRESH_TOKEN_SECRET":     "refresh_token_secret",
	"AUTHCORE_TOKEN_ISSUER":    "token_issuer",
	"AUTHCORE_LOG_FORMAT":      "log_format",
	"AUTHCORE_LOG_LEVEL":       "log_level",
	"AUTHCORE_CONNECT_TIMEOUT": "connect_timeout",
}

// Options controls Load.
type Options struct {
	// File is an explicit config path. When empty, the XDG default is used
	// if it exists.
	File string
	// Flags, when set, are applied last. Only flags the user changed
	// override lower layers; flag names use dashes for underscores.
	Flags *pflag.FlagSet
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		TokenIssuer:    token.DefaultIssuer,
		LogFormat:      logging.FormatJSON,
		LogLevel:       "info",
		ConnectTimeout: store.DefaultConnectTimeout,
	}
}

// Load builds a Config from every layer and checks it with Validate.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	defaults := Defaults()
	for key, val := range map[string]any{
		"token_issuer":    defaults.TokenIssuer,
		"log_format":      defaults.LogFormat,
		"log_level":       defaults.LogLevel,
		"connect_timeout": defaults.ConnectTimeout,
	} {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	path, err := configPath(opts.File)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load environment").Wrap(err)
	}

	if opts.Flags != nil {
		fs := opts.Flags
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isConfigKey(key) {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := xdg.ExistingConfigFile()
	if err != nil {
		return "", oops.Code("CONFIG_LOAD_FAILED").With("operation", "locate config file").Wrap(err)
	}
	return path, nil
}

// envValue keeps known, non-empty variables.
func envValue(key, value string) (string, any) {
	k, ok := envKeys[key]
	if !ok || value == "" {
		return "", nil
	}
	return k, value
}

func isConfigKey(key string) bool {
	for _, k := range envKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "log_level").Wrap(err)
	}
	switch strings.ToLower(c.LogFormat) {
	case logging.FormatJSON, logging.FormatText:
	default:
		return oops.Code("CONFIG_INVALID").
			With("field", "log_format").
			Errorf("log_format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.LogFormat)
	}
	if c.ConnectTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("field", "connect_timeout").
			Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// RequireDatabase checks that a database URL is configured.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database_url").
			Errorf("database URL is required: set DATABASE_URL, database_url or --database-url")
	}
	return nil
}

// TokenConfig checks the signing secrets and returns the codec configuration.
func (c *Config) TokenConfig() (token.Config, error) {
	secrets := []struct {
		field string
		value string
	}{
		{"access_token_secret", c.AccessTokenSecret},
		{"refresh_token_secret", c.RefreshTokenSecret},
	}
	for _, s := range secrets {
		if s.value == "" {
			return token.Config{}, oops.Code("CONFIG_INVALID").
				With("field", s.field).
				Errorf("%s is required", s.field)
		}
		if len(s.value) < MinSecretLength {
			return token.Config{}, oops.Code("CONFIG_INVALID").
				With("field", s.field).
				Errorf("%s must be at least %d bytes", s.field, MinSecretLength)
		}
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return token.Config{}, oops.Code("CONFIG_INVALID").
			Errorf("access_token_secret and refresh_token_secret must differ")
	}

	return token.Config{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		Issuer:        c.TokenIssuer,
	}, nil
}
