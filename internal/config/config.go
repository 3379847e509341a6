package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Carrier  CarrierConfig  `yaml:"carrier"`
	SES      SESConfig      `yaml:"ses"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Redis    RedisConfig    `yaml:"redis"`
	Links    LinksConfig    `yaml:"links"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CarrierConfig holds credentials for the SMS/WhatsApp messaging API.
type CarrierConfig struct {
	AccountSID     string `yaml:"account_sid"`
	AuthToken      string `yaml:"auth_token"`
	FromNumber     string `yaml:"from_number"`
	BaseURL        string `yaml:"base_url"`
	CountryCode    string `yaml:"country_code"` // prefix for bare 10-digit numbers
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the carrier HTTP timeout as a duration.
func (c CarrierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES credentials for the email channel.
type SESConfig struct {
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Region      string `yaml:"region"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
}

// OpenAIConfig holds settings for the text-generation collaborator.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the generation HTTP timeout as a duration.
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds the analytics cache settings. Leave Addr empty to run
// without a cache.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime.
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LinksConfig holds the base URLs embedded in outbound messages.
// FrontendURL hosts the customer-facing insight view (tracking links);
// BackendURL hosts the tracking-pixel endpoint.
type LinksConfig struct {
	FrontendURL string `yaml:"frontend_url"`
	BackendURL  string `yaml:"backend_url"`
}

// Load reads configuration from a YAML file and fills defaults.
// A missing file is not an error; defaults plus env overrides (see
// LoadFromEnv) are enough to boot in development.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Carrier.BaseURL == "" {
		cfg.Carrier.BaseURL = "https://api.twilio.com"
	}
	if cfg.Carrier.CountryCode == "" {
		cfg.Carrier.CountryCode = "+91"
	}
	if cfg.Carrier.TimeoutSeconds == 0 {
		cfg.Carrier.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com"
	}
	if cfg.OpenAI.TimeoutSeconds == 0 {
		cfg.OpenAI.TimeoutSeconds = 60
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 30
	}
	if cfg.Links.FrontendURL == "" {
		cfg.Links.FrontendURL = "http://localhost:5173"
	}
	if cfg.Links.BackendURL == "" {
		cfg.Links.BackendURL = "http://localhost:8080"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if sid := os.Getenv("CARRIER_ACCOUNT_SID"); sid != "" {
		cfg.Carrier.AccountSID = sid
	}
	if token := os.Getenv("CARRIER_AUTH_TOKEN"); token != "" {
		cfg.Carrier.AuthToken = token
	}
	if from := os.Getenv("CARRIER_FROM_NUMBER"); from != "" {
		cfg.Carrier.FromNumber = from
	}
	if base := os.Getenv("CARRIER_BASE_URL"); base != "" {
		cfg.Carrier.BaseURL = base
	}
	if key := os.Getenv("AWS_SES_ACCESS_KEY"); key != "" {
		cfg.SES.AccessKey = key
	}
	if secret := os.Getenv("AWS_SES_SECRET_KEY"); secret != "" {
		cfg.SES.SecretKey = secret
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("SES_FROM_ADDRESS"); from != "" {
		cfg.SES.FromAddress = from
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.OpenAI.Model = model
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if fe := os.Getenv("FRONTEND_URL"); fe != "" {
		cfg.Links.FrontendURL = fe
	}
	if be := os.Getenv("BACKEND_URL"); be != "" {
		cfg.Links.BackendURL = be
	}

	return cfg, nil
}
