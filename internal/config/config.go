package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultBackendURL is used when neither the file nor the environment set one.
const DefaultBackendURL = "http://localhost:8000"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Client  ClientConfig  `yaml:"client"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port           int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"` // 0 = no limit, downloads can be long
	PageTimeout    time.Duration `yaml:"page_timeout" envconfig:"SERVER_PAGE_TIMEOUT"`
	CORSOrigins    []string      `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
	ProcessRate    float64       `yaml:"process_rate" envconfig:"PROCESS_RATE"` // requests per second, negative disables
	ProcessBurst   int           `yaml:"process_burst" envconfig:"PROCESS_BURST"`
	RecentCapacity int           `yaml:"recent_capacity" envconfig:"RECENT_CAPACITY"`
}

// BackendConfig describes the external processing backend.
// URL is used server-side by the proxies; PublicURL is handed to clients
// that download directly. Both should reach the same backend.
type BackendConfig struct {
	URL       string        `yaml:"url" envconfig:"API_URL"`
	PublicURL string        `yaml:"public_url" envconfig:"PUBLIC_API_URL"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"BACKEND_TIMEOUT"` // 0 = none
	UserAgent string        `yaml:"user_agent" envconfig:"BACKEND_USER_AGENT"`
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL    string        `yaml:"server_url" envconfig:"FBGRAB_SERVER_URL"`
	OutputDir    string        `yaml:"output_dir" envconfig:"FBGRAB_OUTPUT_DIR"`
	MinFreeBytes int64         `yaml:"min_free_bytes" envconfig:"FBGRAB_MIN_FREE_BYTES"`
	RampInterval time.Duration `yaml:"ramp_interval" envconfig:"FBGRAB_RAMP_INTERVAL"`
	ResetDelay   time.Duration `yaml:"reset_delay" envconfig:"FBGRAB_RESET_DELAY"`
	LogFile      string        `yaml:"log_file" envconfig:"FBGRAB_LOG_FILE"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file and the environment, in that order of increasing precedence.
// Unset values fall back to defaults.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills zero values. envconfig default tags are not used
// because they would clobber values read from the YAML file.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9847
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.PageTimeout == 0 {
		c.Server.PageTimeout = 30 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:8000"}
	}
	// A negative rate turns the limit off; only unset falls back.
	if c.Server.ProcessRate == 0 {
		c.Server.ProcessRate = 2
	}
	if c.Server.ProcessBurst == 0 {
		c.Server.ProcessBurst = 10
	}
	if c.Server.RecentCapacity == 0 {
		c.Server.RecentCapacity = 10
	}

	if c.Backend.URL == "" {
		c.Backend.URL = DefaultBackendURL
	}
	if c.Backend.PublicURL == "" {
		c.Backend.PublicURL = DefaultBackendURL
	}
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = "fbgrab/1.0"
	}

	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "http://localhost:9847"
	}
	if c.Client.OutputDir == "" {
		c.Client.OutputDir = "."
	}
	if c.Client.MinFreeBytes == 0 {
		c.Client.MinFreeBytes = 64 << 20
	}
	if c.Client.RampInterval == 0 {
		c.Client.RampInterval = 500 * time.Millisecond
	}
	if c.Client.ResetDelay == 0 {
		c.Client.ResetDelay = 3 * time.Second
	}
}

// Validate checks that required configuration values are usable.
func (c *Config) Validate() error {
	if err := validateBaseURL("API_URL", c.Backend.URL); err != nil {
		return err
	}
	if err := validateBaseURL("PUBLIC_API_URL", c.Backend.PublicURL); err != nil {
		return err
	}
	if err := validateBaseURL("FBGRAB_SERVER_URL", c.Client.ServerURL); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must not be negative")
	}
	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host", name)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
