package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Store backend names accepted in store.backend.
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Reporter ReporterConfig `yaml:"reporter"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UpstreamConfig holds the external automation service settings. BaseURL and
// Token may be left empty here and supplied through the N8N_BASE_URL and
// N8N_TOKEN environment variables; their absence is surfaced at call time,
// not at startup.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	WebhookPath string        `yaml:"webhook_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StoreConfig holds correlation store settings
type StoreConfig struct {
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	ProtectTerminal bool          `yaml:"protect_terminal"`
}

// DatabaseConfig holds PostgreSQL connection configuration, used when the
// store backend is "postgres"
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ReporterConfig holds the optional AMQP status-report consumer settings
type ReporterConfig struct {
	AMQPEnabled bool           `yaml:"amqp_enabled"`
	RabbitMQ    RabbitMQConfig `yaml:"rabbitmq"`
}

// RabbitMQConfig holds RabbitMQ connection and queue configuration
type RabbitMQConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	VHost         string        `yaml:"vhost"`
	Exchange      string        `yaml:"exchange"`
	Queue         string        `yaml:"queue"`
	RoutingKey    string        `yaml:"routing_key"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
	PrefetchCount int           `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file, then applies environment
// overrides and defaults.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	return &config, nil
}

// applyEnvOverrides lets the environment supply the upstream address and
// shared secret so the token never has to live in the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("N8N_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("N8N_TOKEN"); v != "" {
		c.Upstream.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = StoreBackendMemory
	}
	if c.Store.TTL <= 0 {
		c.Store.TTL = time.Hour
	}
	if c.Store.CleanupInterval <= 0 {
		c.Store.CleanupInterval = 10 * time.Minute
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = 10 * time.Second
	}
}

// Validate checks if the configuration is valid. The upstream base URL and
// token are deliberately not checked here; their absence is a call-time
// error so the gateway still starts and serves status reads.
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Store.Backend != StoreBackendMemory && c.Store.Backend != StoreBackendPostgres {
		return fmt.Errorf("invalid store backend: %q (must be %q or %q)", c.Store.Backend, StoreBackendMemory, StoreBackendPostgres)
	}

	if c.Store.Backend == StoreBackendPostgres {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres store backend")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required for the postgres store backend")
		}
	}

	if c.Reporter.AMQPEnabled {
		if c.Reporter.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required when the AMQP reporter is enabled")
		}
		if c.Reporter.RabbitMQ.Port < MinPort || c.Reporter.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.Reporter.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.Reporter.RabbitMQ.Queue == "" {
			return fmt.Errorf("rabbitmq queue name is required when the AMQP reporter is enabled")
		}
	}

	return nil
}
