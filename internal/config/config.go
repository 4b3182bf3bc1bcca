package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	AI        AIConfig        `yaml:"ai"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig selects the store. Driver "memory" keeps everything in
// process and ignores the connection fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	// APIKey guards the AI callback and the MCP endpoint.
	APIKey string `yaml:"api_key"`
	// DevPrincipal, if set, is "role:uuid" and replaces header identity.
	DevPrincipal string `yaml:"dev_principal"`
}

type AIConfig struct {
	WebhookURL    string        `yaml:"webhook_url"`
	APIKey        string        `yaml:"api_key"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerMinute int           `yaml:"rate_per_minute"`
}

type SweeperConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Schedule   string        `yaml:"schedule"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Renotify   bool          `yaml:"renotify"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix COACHPLAN_ and underscore-separated paths:
//
//	COACHPLAN_SERVER_HOST, COACHPLAN_SERVER_PORT,
//	COACHPLAN_DB_DRIVER, COACHPLAN_DB_HOST, COACHPLAN_DB_PORT, COACHPLAN_DB_NAME,
//	COACHPLAN_DB_USER, COACHPLAN_DB_PASSWORD, COACHPLAN_DB_SSLMODE,
//	COACHPLAN_AUTH_API_KEY, COACHPLAN_AUTH_DEV_PRINCIPAL,
//	COACHPLAN_AI_WEBHOOK_URL, COACHPLAN_AI_API_KEY,
//	COACHPLAN_SWEEPER_ENABLED, COACHPLAN_SWEEPER_RENOTIFY,
//	COACHPLAN_TS_ENABLED, COACHPLAN_TS_HOSTNAME
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverPostgres},
		AI:       AIConfig{Timeout: 10 * time.Second, RatePerMinute: 30},
		Sweeper: SweeperConfig{
			Schedule:   "@every 15m",
			StaleAfter: time.Hour,
		},
		Tailscale: TailscaleConfig{Hostname: "coachplan", StateDir: "tsnet-state"},
	}
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("COACHPLAN_SERVER_HOST", &cfg.Server.Host)
	num("COACHPLAN_SERVER_PORT", &cfg.Server.Port)
	str("COACHPLAN_DB_DRIVER", &cfg.Database.Driver)
	str("COACHPLAN_DB_HOST", &cfg.Database.Host)
	num("COACHPLAN_DB_PORT", &cfg.Database.Port)
	str("COACHPLAN_DB_NAME", &cfg.Database.Name)
	str("COACHPLAN_DB_USER", &cfg.Database.User)
	str("COACHPLAN_DB_PASSWORD", &cfg.Database.Password)
	str("COACHPLAN_DB_SSLMODE", &cfg.Database.SSLMode)
	str("COACHPLAN_AUTH_API_KEY", &cfg.Auth.APIKey)
	str("COACHPLAN_AUTH_DEV_PRINCIPAL", &cfg.Auth.DevPrincipal)
	str("COACHPLAN_AI_WEBHOOK_URL", &cfg.AI.WebhookURL)
	str("COACHPLAN_AI_API_KEY", &cfg.AI.APIKey)
	flag("COACHPLAN_SWEEPER_ENABLED", &cfg.Sweeper.Enabled)
	flag("COACHPLAN_SWEEPER_RENOTIFY", &cfg.Sweeper.Renotify)
	flag("COACHPLAN_TS_ENABLED", &cfg.Tailscale.Enabled)
	str("COACHPLAN_TS_HOSTNAME", &cfg.Tailscale.Hostname)
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Auth.DevPrincipal != "" {
		if _, _, err := ParsePrincipal(c.Auth.DevPrincipal); err != nil {
			return fmt.Errorf("auth.dev_principal: %w", err)
		}
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai.timeout must be positive")
	}
	if c.Sweeper.Enabled {
		if c.Sweeper.Schedule == "" {
			return fmt.Errorf("sweeper.schedule is required when the sweeper is enabled")
		}
		if c.Sweeper.StaleAfter <= 0 {
			return fmt.Errorf("sweeper.stale_after must be positive")
		}
	}
	return nil
}

// ParsePrincipal splits a "role:uuid" pair. The role is returned as given;
// callers check it against the known roles.
func ParsePrincipal(s string) (role string, id uuid.UUID, err error) {
	role, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("principal must be role:uuid, got %q", s)
	}
	if role == "" {
		return "", uuid.Nil, fmt.Errorf("principal role is empty")
	}
	id, err = uuid.Parse(rawID)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("parsing principal id: %w", err)
	}
	return role, id, nil
}
