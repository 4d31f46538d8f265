package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"sheetsync/domain/dataset"
	"sheetsync/internal"
	"sheetsync/internal/errors"
)

// EnvPrefix prefixes every environment override, e.g. SHEETSYNC_ENDPOINT_URL
const EnvPrefix = "SHEETSYNC_"

// ConfigFileEnv names an optional YAML config file
const ConfigFileEnv = EnvPrefix + "CONFIG"

// Source kinds
const (
	SourceHTTP  = "http"
	SourceExcel = "excel"
)

// Config represents the complete application configuration
type Config struct {
	Endpoint EndpointConfig `koanf:"endpoint"`
	Fetch    FetchConfig    `koanf:"fetch"`
	Datasets []string       `koanf:"datasets"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Source   SourceConfig   `koanf:"source"`
}

// EndpointConfig holds the spreadsheet script endpoint settings
type EndpointConfig struct {
	URL    string `koanf:"url"`
	Action string `koanf:"action"`
}

// FetchConfig bounds remote fetches
type FetchConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	RateLimit      int           `koanf:"rate_limit"`
	MaxConcurrency int           `koanf:"max_concurrency"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `koanf:"port"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `koanf:"level"`
}

// SourceConfig selects where datasets come from
type SourceConfig struct {
	Kind     string `koanf:"kind"`
	Workbook string `koanf:"workbook"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"endpoint.action":       "getData",
		"fetch.timeout":         "15s",
		"fetch.rate_limit":      60,
		"fetch.max_concurrency": 0,
		"datasets":              []string{"donate", "contact", "register"},
		"server.port":           "8080",
		"log.level":             "INFO",
		"source.kind":           SourceHTTP,
	}
}

// Load layers defaults, an optional YAML file and SHEETSYNC_* environment
// variables, then validates the result. An empty cfgFile falls back to
// SHEETSYNC_CONFIG.
func Load(cfgFile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if cfgFile == "" {
		cfgFile = os.Getenv(ConfigFileEnv)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid,
				fmt.Errorf("error reading config file %s: %w", cfgFile, err))
		}
	}

	// SHEETSYNC_FETCH_RATE_LIMIT -> fetch.rate_limit
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	config := &Config{}
	if err := k.Unmarshal("", config); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to decode config: %w", err))
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// envKey maps an environment variable onto a config key. The first
// underscore after the prefix separates the section from the field.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// normalize splits comma separated dataset lists that arrive as one element
func (c *Config) normalize() {
	var names []string
	for _, d := range c.Datasets {
		for _, part := range strings.Split(d, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	c.Datasets = names
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if c.Endpoint.URL == "" {
			return errors.ConfigInvalid("endpoint.url is required for the http source")
		}
		u, err := url.Parse(c.Endpoint.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigInvalid(fmt.Sprintf("endpoint.url %q is not an absolute URL", c.Endpoint.URL))
		}
	case SourceExcel:
		if c.Source.Workbook == "" {
			return errors.ConfigInvalid("source.workbook is required for the excel source")
		}
	default:
		return errors.ConfigInvalid(fmt.Sprintf("source.kind %q must be %s or %s", c.Source.Kind, SourceHTTP, SourceExcel))
	}

	if c.Fetch.Timeout <= 0 {
		return errors.ConfigInvalid("fetch.timeout must be positive")
	}
	if c.Fetch.RateLimit < 0 {
		return errors.ConfigInvalid("fetch.rate_limit must not be negative")
	}
	if c.Fetch.MaxConcurrency < 0 {
		return errors.ConfigInvalid("fetch.max_concurrency must not be negative")
	}
	if _, err := c.DatasetNames(); err != nil {
		return err
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("server.port is required")
	}
	return nil
}

// DatasetNames parses the configured dataset list
func (c *Config) DatasetNames() ([]dataset.Name, error) {
	if len(c.Datasets) == 0 {
		return nil, errors.ConfigInvalid("datasets must name at least one dataset")
	}
	names, err := dataset.ParseNames(c.Datasets)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return names, nil
}

// LogLevel returns the configured logging level
func (c *Config) LogLevel() internal.LogLevel {
	return internal.ParseLogLevel(c.Log.Level)
}
