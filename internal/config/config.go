package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration read from the environment.
type Config struct {
	Env            string
	AppPort        string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	JWTTTL         time.Duration
	RabbitMQURL    string
	OwnerEmail     string
	OwnerPassword  string
}

// BrokerEnabled reports whether a RabbitMQ URL was configured.
func (c *Config) BrokerEnabled() bool {
	return c.RabbitMQURL != ""
}

// SetDefaults registers the default value of every optional key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "gamestore.db")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("OWNER_EMAIL", "owner@gamestore.local")
}

// Load reads the configuration from v, which falls back to environment variables.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	ttl, err := time.ParseDuration(v.GetString("JWT_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		AppPort:        v.GetString("APP_PORT"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         ttl,
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		OwnerEmail:     strings.TrimSpace(v.GetString("OWNER_EMAIL")),
		OwnerPassword:  v.GetString("OWNER_PASSWORD"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.OwnerPassword == "" {
		errs = append(errs, errors.New("OWNER_PASSWORD is required"))
	}
	if c.OwnerEmail == "" {
		errs = append(errs, errors.New("OWNER_EMAIL must not be empty"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
