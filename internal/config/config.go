// Package config loads the cbpro command configuration from an optional
// YAML file and CBPRO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/cbpro-client/pkg/cbpro"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. CBPRO_BASE_URL.
const EnvPrefix = "CBPRO"

// DefaultUserAgent identifies the command line client.
const DefaultUserAgent = "cbpro-client/0.1.0"

// Config is the complete command configuration.
type Config struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`

	// PageLimit is the default page size of paginated listings.
	PageLimit int `mapstructure:"page_limit" validate:"gte=0,lte=1000"`

	Log    LogConfig `mapstructure:"log"`
	Listen string    `mapstructure:"listen" validate:"required,hostname_port"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Pretty bool   `mapstructure:"pretty"`
}

var validate = validator.New()

// Load reads path (if not empty) and the environment on top of the
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", cbpro.SandboxURL)
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("page_limit", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("listen", ":8080")
}
