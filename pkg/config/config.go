package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding configuration keys,
// e.g. TEMPLATEDELTA_LOG_LEVEL for log.level
const EnvPrefix = "TEMPLATEDELTA"

// Configuration keys
const (
	KeyLogLevel               = "log.level"
	KeyComparisonParallel     = "comparison.parallel"
	KeyDestructiveTypeChanges = "policy.destructive_type_changes"
	KeyOutputFormat           = "output.format"
	KeyOutputColor            = "output.color"
)

// Settings is the decoded configuration
type Settings struct {
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Comparison struct {
		Parallel int `mapstructure:"parallel"`
	} `mapstructure:"comparison"`
	Policy struct {
		DestructiveTypeChanges []string `mapstructure:"destructive_type_changes"`
	} `mapstructure:"policy"`
	Output struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
}

// Config manages service configuration
type Config struct {
	mu sync.RWMutex
	v  *viper.Viper
}

// New creates a configuration manager holding only the defaults
func New() *Config {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyComparisonParallel, 1)
	v.SetDefault(KeyDestructiveTypeChanges, []string{})
	v.SetDefault(KeyOutputFormat, "text")
	v.SetDefault(KeyOutputColor, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// Load reads the given file, or searches templatedelta.yaml in the working directory
// and $HOME/.templatedelta when path is empty. A missing searched file is not an error.
func Load(path string) (*Config, error) {
	c := New()
	if path != "" {
		c.v.SetConfigFile(path)
	} else {
		c.v.SetConfigName("templatedelta")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.templatedelta")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return c, nil
}

// File returns the configuration file in use, empty when running on defaults
func (c *Config) File() string {
	return c.v.ConfigFileUsed()
}

// GetInt retrieves an integer configuration value
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}

// GetStringSlice retrieves a list value; a comma separated env override is split
func (c *Config) GetStringSlice(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values := c.v.GetStringSlice(key)
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GetAll returns a copy of all configuration values rendered as strings
func (c *Config) GetAll() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values := make(map[string]string)
	for _, k := range c.v.AllKeys() {
		values[k] = fmt.Sprint(c.v.Get(k))
	}
	return values
}

// Settings decodes the whole configuration
func (c *Config) Settings() (*Settings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Settings
	if err := c.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &s, nil
}

// Update overrides configuration values, e.g. from command line flags
func (c *Config) Update(values map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range values {
		c.v.Set(k, v)
	}
}
