package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds client configuration loaded from the environment.
type Config struct {
	APIBaseURL     string        `mapstructure:"API_BASE_URL" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"required,gt=0"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// RefreshSpec is the cron spec for periodic datasource refresh in
	// watch mode.
	RefreshSpec string `mapstructure:"REFRESH_SPEC" validate:"required"`

	// MockAddr is the listen address for the local mock API server.
	MockAddr string `mapstructure:"MOCK_ADDR" validate:"required,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env if present, binds environment variables with defaults,
// and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("REFRESH_SPEC", "@every 1m")
	v.SetDefault("MOCK_ADDR", "0.0.0.0:8080")

	// AutomaticEnv alone does not surface env vars through Unmarshal;
	// bind each key explicitly.
	for _, key := range []string{
		"API_BASE_URL", "REQUEST_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
		"REFRESH_SPEC", "MOCK_ADDR",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
