// Package config loads service settings from the environment.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	EligibilityCacheTTLSecs int    `mapstructure:"ELIGIBILITY_CACHE_TTL_SECONDS"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	LedgerEventsExchange    string `mapstructure:"LEDGER_EVENTS_EXCHANGE"`
	ReconcileSchedule       string `mapstructure:"RECONCILE_SCHEDULE"`
	CORSAllowedOriginsRaw   string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RiverMaxWorkers         int    `mapstructure:"RIVER_MAX_WORKERS"`
	SignupBonusCents        int64  `mapstructure:"SIGNUP_BONUS_CENTS"`
}

var keys = []string{
	"SERVER_PORT",
	"PORT",
	"DATABASE_URL",
	"JWT_SECRET",
	"REDIS_URL",
	"ELIGIBILITY_CACHE_TTL_SECONDS",
	"RABBITMQ_URL",
	"LEDGER_EVENTS_EXCHANGE",
	"RECONCILE_SCHEDULE",
	"CORS_ALLOWED_ORIGINS",
	"RIVER_MAX_WORKERS",
	"SIGNUP_BONUS_CENTS",
}

// LoadConfig reads configuration from environment variables. PORT, when set,
// overrides SERVER_PORT.
func LoadConfig() (*Config, error) {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ELIGIBILITY_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("LEDGER_EVENTS_EXCHANGE", "ledger_events")
	viper.SetDefault("RECONCILE_SCHEDULE", "@every 1h")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("RIVER_MAX_WORKERS", 10)
	viper.SetDefault("SIGNUP_BONUS_CENTS", 0)
	viper.AutomaticEnv()

	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if port := viper.GetString("PORT"); port != "" {
		cfg.ServerPort = port
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.RiverMaxWorkers <= 0 {
		cfg.RiverMaxWorkers = 10
	}
	if cfg.SignupBonusCents < 0 {
		return nil, errors.New("SIGNUP_BONUS_CENTS must not be negative")
	}
	return &cfg, nil
}

// EligibilityCacheTTL is zero when caching is disabled.
func (c *Config) EligibilityCacheTTL() time.Duration {
	if c.EligibilityCacheTTLSecs <= 0 {
		return 0
	}
	return time.Duration(c.EligibilityCacheTTLSecs) * time.Second
}

// CORSAllowedOrigins splits the comma separated origin list.
func (c *Config) CORSAllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOriginsRaw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
