// Package config loads server configuration from YAML with environment
// variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gitforged/server/internal/store"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	HTTP    HTTPConfig    `yaml:"http"`
	CORS    CORSConfig    `yaml:"cors"`
	Webhook WebhookConfig `yaml:"webhook"`
	GitHub  GitHubConfig  `yaml:"github"`
	Store   store.Config  `yaml:"store"`
	Tick    TickConfig    `yaml:"tick"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

// ReadTimeout returns the read timeout as a duration.
func (c *HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (c *HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// CORSConfig holds cross-origin settings for the browser-facing endpoints.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the API and connect to
	// the event feed. Empty enforces same-origin; "*" allows everything.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebhookConfig holds GitHub webhook intake settings.
type WebhookConfig struct {
	// Secret signs webhook deliveries. Override with GITFORGED_WEBHOOK_SECRET.
	Secret string `yaml:"secret"`

	// Repo is the repository players fork, as "owner/name". Deliveries for
	// other repositories are rejected.
	Repo string `yaml:"repo"`
}

// GitHubConfig holds the bot account's API settings.
type GitHubConfig struct {
	// APIBase is the REST API root. Defaults to the public API.
	APIBase string `yaml:"api_base"`

	// Token authenticates the bot. Override with GITFORGED_GITHUB_TOKEN.
	Token string `yaml:"token"`
}

// TickConfig holds the in-process quest scheduler settings.
type TickConfig struct {
	// Enabled starts the internal fast/full tick loop. When disabled, ticks
	// only arrive through the HTTP endpoint.
	Enabled bool `yaml:"enabled"`

	FastIntervalSeconds int `yaml:"fast_interval_seconds"`
	FullIntervalSeconds int `yaml:"full_interval_seconds"`

	// TokenHash is the bcrypt hash of the token required by the tick
	// endpoint. Blank leaves the endpoint open, for local development only.
	TokenHash string `yaml:"token_hash"`
}

// FastInterval returns the fast tick interval as a duration.
func (c *TickConfig) FastInterval() time.Duration {
	return time.Duration(c.FastIntervalSeconds) * time.Second
}

// FullInterval returns the full tick interval as a duration.
func (c *TickConfig) FullInterval() time.Duration {
	return time.Duration(c.FullIntervalSeconds) * time.Second
}

// DefaultConfig returns a ServerConfig with local-development defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		HTTP: HTTPConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{},
		},
		Webhook: WebhookConfig{
			Repo: "gitforged/forge",
		},
		GitHub: GitHubConfig{
			APIBase: "https://api.github.com",
		},
		Store: store.DefaultConfig("data/gitforged.db"),
		Tick: TickConfig{
			Enabled:             true,
			FastIntervalSeconds: 15,
			FullIntervalSeconds: 300,
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults
// when the file is absent, then applies environment overrides.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides lets deployments inject secrets without writing them to
// the config file.
func applyEnvOverrides(config *ServerConfig) {
	if v := os.Getenv("GITFORGED_HTTP_ADDR"); v != "" {
		config.HTTP.Addr = v
	}
	if v := os.Getenv("GITFORGED_WEBHOOK_SECRET"); v != "" {
		config.Webhook.Secret = v
	}
	if v := os.Getenv("GITFORGED_GITHUB_TOKEN"); v != "" {
		config.GitHub.Token = v
	}
	if v := os.Getenv("GITFORGED_TICK_TOKEN_HASH"); v != "" {
		config.Tick.TokenHash = v
	}
	if v := os.Getenv("GITFORGED_STORE_DRIVER"); v != "" {
		config.Store.Driver = v
	}
	if v := os.Getenv("GITFORGED_POSTGRES_PASSWORD"); v != "" {
		config.Store.Postgres.Password = v
	}
	if v := os.Getenv("GITFORGED_MONGO_URI"); v != "" {
		config.Store.Mongo.URI = v
	}
}

// IsOriginAllowed checks whether an origin may call the API. Returns true
// when AllowedOrigins contains "*" or the exact origin, or when it is empty
// and the origin matches the request host.
func (c *CORSConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		// No origin header means a non-browser client.
		return true
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
