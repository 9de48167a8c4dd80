// Package config resolves clify settings from flags, environment variables
// and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys double as flag names and config file keys.
const (
	KeyOpenAPIFile = "openapi-file"
	KeyServer      = "server"
	KeyOutput      = "output"
	KeyTimeout     = "timeout"
	KeyRetries     = "retries"
	KeyDebug       = "debug"
	KeyTrace       = "trace"
	KeyStrictNames = "strict-names"
)

// EnvPrefix is prepended to upper-cased keys, so "server" reads CLIFY_SERVER.
const EnvPrefix = "CLIFY"

// Config layers flags over environment variables over the config file.
type Config struct {
	*viper.Viper
}

func New() *Config {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// OPENAPI_FILE_PATH is accepted for compatibility with existing setups.
	_ = v.BindEnv(KeyOpenAPIFile, EnvPrefix+"_OPENAPI_FILE", "OPENAPI_FILE_PATH")

	v.SetDefault(KeyOutput, "json")
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyRetries, 0)
	return &Config{Viper: v}
}

// ReadFile loads a YAML, JSON or TOML config file. An empty path is a no-op.
func (c *Config) ReadFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	c.SetConfigFile(path)
	if err := c.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	return nil
}

// BindFlags binds every known key that fs defines. Binding again with a
// different flag set replaces the earlier binding.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	for _, key := range []string{KeyOpenAPIFile, KeyServer, KeyOutput, KeyTimeout, KeyRetries, KeyDebug, KeyTrace, KeyStrictNames} {
		f := fs.Lookup(key)
		if f == nil {
			continue
		}
		if err := c.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", key, err)
		}
	}
	return nil
}

func (c *Config) OpenAPIFile() string { return strings.TrimSpace(c.GetString(KeyOpenAPIFile)) }
func (c *Config) Server() string      { return strings.TrimSpace(c.GetString(KeyServer)) }
func (c *Config) Output() string      { return c.GetString(KeyOutput) }
func (c *Config) Timeout() time.Duration {
	if d := c.GetDuration(KeyTimeout); d > 0 {
		return d
	}
	return 30 * time.Second
}
func (c *Config) Retries() int      { return c.GetInt(KeyRetries) }
func (c *Config) Debug() bool       { return c.GetBool(KeyDebug) }
func (c *Config) Trace() bool       { return c.GetBool(KeyTrace) }
func (c *Config) StrictNames() bool { return c.GetBool(KeyStrictNames) }
