package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type App struct {
	Name         string `mapstructure:"name"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

type Gateway struct {
	BaseURL        string `mapstructure:"base_url"`
	Token          string `mapstructure:"token"`
	SendDelaySec   int    `mapstructure:"send_delay_seconds"`
	RequestTimeout int    `mapstructure:"request_timeout_seconds"`
}

type Payment struct {
	BaseURL      string `mapstructure:"base_url"`
	MerchantSlug string `mapstructure:"merchant_slug"`
}

type Broadcast struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	BackoffBaseMS  int `mapstructure:"backoff_base_ms"`
	MessageDelayMS int `mapstructure:"message_delay_ms"`
	ResultTTLHours int `mapstructure:"result_ttl_hours"`
}

type Database struct {
	DSN string `mapstructure:"dsn"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Telemetry struct {
	Enabled    bool    `mapstructure:"enabled"`
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Gateway   Gateway   `mapstructure:"gateway"`
	Payment   Payment   `mapstructure:"payment"`
	Broadcast Broadcast `mapstructure:"broadcast"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	Telemetry Telemetry `mapstructure:"telemetry"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
