// Package config loads application settings with koanf. Sources are applied in
// increasing priority: built-in defaults, a YAML file, the environment specific
// YAML file next to it (config.<env>.yaml) and environment variables
// (HTTPCLIENT_TIMEOUT maps to httpclient.timeout).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the configuration file read by Load.
const DefaultFile = "config.yaml"

// Top-level sections populated from environment variables.
var envSections = []string{"app", "log", "observability", "httpclient"}

// Load loads configuration from config.yaml in the working directory.
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile loads configuration from path. A missing file is not an error; the
// defaults and environment still apply.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, path); err != nil {
		return nil, err
	}

	appEnv := k.String("app.env")
	if fromEnv := os.Getenv("APP_ENV"); fromEnv != "" {
		appEnv = fromEnv
	}
	if appEnv != "" {
		envFile := filepath.Join(filepath.Dir(path), fmt.Sprintf("config.%s.yaml", appEnv))
		if err := loadOptionalFile(k, envFile); err != nil {
			return nil, err
		}
	}

	return finish(k)
}

// LoadBytes loads configuration from inline YAML on top of the defaults.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return finish(k)
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// finish applies environment variables, unmarshals and validates.
func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: envKey}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts UPPER_CASE variables of known sections to lower.case keys and
// drops everything else.
func envKey(key, value string) (string, any) {
	key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
	section, _, nested := strings.Cut(key, ".")
	if !nested {
		return "", nil
	}
	for _, s := range envSections {
		if section == s {
			return key, value
		}
	}
	return "", nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "fnbricks",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":         false,
		"observability.endpoint":        "stdout",
		"observability.protocol":        "http",
		"observability.samplerate":      1.0,
		"observability.metricsinterval": "10s",

		"httpclient.timeout":            "30s",
		"httpclient.maxretries":         0,
		"httpclient.logpayloads":        false,
		"httpclient.maxpayloadlogbytes": 1024,
		"httpclient.traceidheader":      "X-Request-ID",
		"httpclient.w3ctrace":           false,

		"httpclient.breaker.enabled":             false,
		"httpclient.breaker.consecutivefailures": 5,
		"httpclient.breaker.maxrequests":         1,
		"httpclient.breaker.timeout":             "30s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
