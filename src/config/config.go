// Package config provides configuration management for the cameio CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultDashURL   = "https://apps.cameio.io"
	DefaultAPIPrefix = "/api/v1/"
	DefaultGitHubOrg = "videogamearmy"
)

// Config holds the application configuration.
type Config struct {
	// DashURL is the base URL of the build service dashboard.
	DashURL   string `mapstructure:"dash_url"`
	APIPrefix string `mapstructure:"api_prefix"`

	// PrivateDir holds cookies, per-app signing keys, logs and history.
	PrivateDir string `mapstructure:"private_dir"`
	Proxy      string `mapstructure:"proxy"`

	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`

	RegistryURL string `mapstructure:"registry_url"`
	CodeHost    string `mapstructure:"code_host"`
	GitHubOrg   string `mapstructure:"github_org"`

	// EventBrokers enables publishing build events to Redpanda/Kafka.
	EventBrokers []string `mapstructure:"event_brokers"`
	// HistoryDSN selects the Postgres build history instead of the local file.
	HistoryDSN string `mapstructure:"history_dsn"`

	Trace bool `mapstructure:"trace"`
	Debug bool `mapstructure:"debug"`
}

// APIURL joins the dashboard URL, the API prefix and path.
func (c *Config) APIURL(path string) string {
	return strings.TrimRight(c.DashURL, "/") + "/" + strings.Trim(c.APIPrefix, "/") + "/" + strings.TrimLeft(path, "/")
}

// Load loads configuration from defaults, ~/.cameio/config.yaml and
// CAMEIO_* environment variables.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return LoadFrom(filepath.Join(home, ".cameio"))
}

// LoadFrom is Load with an explicit private directory, which is also the
// directory searched for config.yaml.
func LoadFrom(privateDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(privateDir)
	v.SetEnvPrefix("CAMEIO")
	v.AutomaticEnv()

	v.SetDefault("dash_url", DefaultDashURL)
	v.SetDefault("api_prefix", DefaultAPIPrefix)
	v.SetDefault("private_dir", privateDir)
	v.SetDefault("proxy", "")
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("registry_url", "https://registry.npmjs.org")
	v.SetDefault("code_host", "https://code.cameio.io/1.0")
	v.SetDefault("github_org", DefaultGitHubOrg)
	v.SetDefault("event_brokers", []string{})
	v.SetDefault("history_dsn", "")
	v.SetDefault("trace", false)
	v.SetDefault("debug", false)

	if err := v.BindEnv("proxy", "CAMEIO_PROXY", "PROXY"); err != nil {
		return nil, fmt.Errorf("bind proxy env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DashURL == "" {
		return nil, fmt.Errorf("dash_url must not be empty")
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
