package config

import (
	"fmt"
	"time"

	"github.com/avotaangi/multibank/internal/models"
)

// Config represents the complete application configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Integrator IntegratorConfig `yaml:"integrator"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Banks      []BankConfig     `yaml:"banks,omitempty"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// APIConfig contains facade API configuration.
type APIConfig struct {
	Enabled bool       `yaml:"enabled"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig contains API authentication configuration.
type AuthConfig struct {
	Enabled    bool     `yaml:"enabled"`
	APIKeys    []string `yaml:"api_keys"`
	HeaderName string   `yaml:"header_name"`
}

// IntegratorConfig identifies this system to the upstream banks. One set of
// credentials per process, never per request.
type IntegratorConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// UpstreamConfig controls how upstream banks are reached.
type UpstreamConfig struct {
	// BaseDomain builds per-bank base URLs as https://{bank}.{base_domain}
	// for banks without an explicit base_url.
	BaseDomain string        `yaml:"base_domain"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TelegramConfig contains the bot front-end configuration.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// BankConfig declares an upstream bank known at startup. Banks can also be
// registered at runtime through the provisioning flow.
type BankConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// Bank converts the config entry into a registration, deriving the base URL
// from the shared domain when no override is set.
func (bc BankConfig) Bank(baseDomain string) models.Bank {
	baseURL := bc.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.%s", bc.Name, baseDomain)
	}
	return models.Bank{Name: bc.Name, BaseURL: baseURL}
}

// Validate checks the configuration for fatal problems.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}
	if c.Integrator.ClientID == "" {
		return fmt.Errorf("integrator.client_id is required")
	}
	if c.Integrator.ClientSecret == "" {
		return fmt.Errorf("integrator.client_secret is required")
	}
	if c.Upstream.BaseDomain == "" {
		return fmt.Errorf("upstream.base_domain is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required when telegram is enabled")
	}
	seen := make(map[string]bool, len(c.Banks))
	for _, bc := range c.Banks {
		bank := bc.Bank(c.Upstream.BaseDomain)
		if err := bank.Validate(); err != nil {
			return err
		}
		if seen[bc.Name] {
			return fmt.Errorf("duplicate bank: %s", bc.Name)
		}
		seen[bc.Name] = true
	}
	return nil
}
