package config

import "time"

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type AuthConfig struct {
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
	SessionTokenTTL  time.Duration `mapstructure:"session_token_ttl"`
	ConfirmTokenTTL  time.Duration `mapstructure:"confirm_token_ttl"`
	TokenSweepPeriod time.Duration `mapstructure:"token_sweep_period"`
}

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
}
