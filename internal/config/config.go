package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/registry-indexer/internal/domain"
)

const serviceName = "registry-indexer"

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// EthereumConfig holds the chain endpoint configuration
type EthereumConfig struct {
	WebSocketURL string       `mapstructure:"websocket_url"`
	RPCURL       string       `mapstructure:"rpc_url"`
	ChainID      domain.Chain `mapstructure:"chain_id"`

	// RequestsPerSecond caps RPC round-trips of the whole process; 0 disables limiting
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`

	MaxBlockRange     uint64        `mapstructure:"max_block_range"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	BlockTimestampTTL time.Duration `mapstructure:"block_timestamp_ttl"`
	BlockCacheSize    int           `mapstructure:"block_cache_size"`
}

// Endpoint returns the URL to dial; push-capable endpoints are preferred
func (c *EthereumConfig) Endpoint() string {
	if c.WebSocketURL != "" {
		return c.WebSocketURL
	}
	return c.RPCURL
}

// ContractsConfig holds the deployed registry addresses
type ContractsConfig struct {
	AuthenticityAddress string `mapstructure:"authenticity_address"`
	OwnershipAddress    string `mapstructure:"ownership_address"`
}

// IndexerConfig holds the pass parameters of the domain supervisors
type IndexerConfig struct {
	BackfillWindow   uint64        `mapstructure:"backfill_window"`
	ChunkSize        uint64        `mapstructure:"chunk_size"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	ResumeFromCursor bool          `mapstructure:"resume_from_cursor"`
	CursorSaveFreq   uint64        `mapstructure:"cursor_save_freq"`
	CursorSaveDelay  time.Duration `mapstructure:"cursor_save_delay"`

	AuthenticityEnabled bool `mapstructure:"authenticity_enabled"`
	OwnershipEnabled    bool `mapstructure:"ownership_enabled"`
}

// NATSConfig holds NATS JetStream configuration.
// Projection notices are only published when URL is set.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// RegistryIndexerConfig holds configuration for registry-indexer
type RegistryIndexerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Contracts  ContractsConfig `mapstructure:"contracts"`
	Indexer    IndexerConfig   `mapstructure:"indexer"`
	NATS       NATSConfig      `mapstructure:"nats"`
	Server     ServerConfig    `mapstructure:"server"`
}

// LoadRegistryIndexerConfig loads and validates configuration for registry-indexer
func LoadRegistryIndexerConfig(configFile string, envPath string) (*RegistryIndexerConfig, error) {
	v := configureViper(serviceName, configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("ethereum.max_block_range", 2000)
	v.SetDefault("ethereum.poll_interval", "4s")
	v.SetDefault("ethereum.block_cache_size", 4096)
	v.SetDefault("indexer.backfill_window", domain.DefaultBackfillWindow)
	v.SetDefault("indexer.chunk_size", domain.DefaultChunkSize)
	v.SetDefault("indexer.retry_delay", domain.DefaultRetryDelay.String())
	v.SetDefault("indexer.resume_from_cursor", true)
	v.SetDefault("indexer.cursor_save_freq", 10)
	v.SetDefault("indexer.cursor_save_delay", "30s")
	v.SetDefault("indexer.authenticity_enabled", true)
	v.SetDefault("indexer.ownership_enabled", true)
	v.SetDefault("nats.stream_name", "REGISTRY_PROJECTIONS")
	v.SetDefault("nats.subject_prefix", "registry")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", serviceName)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}

	var cfg RegistryIndexerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields the indexer cannot start without
func (c *RegistryIndexerConfig) Validate() error {
	var errs []error

	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}
	if c.Ethereum.Endpoint() == "" {
		errs = append(errs, errors.New("ethereum.rpc_url or ethereum.websocket_url is required"))
	}
	if !c.Indexer.AuthenticityEnabled && !c.Indexer.OwnershipEnabled {
		errs = append(errs, errors.New("at least one of indexer.authenticity_enabled and indexer.ownership_enabled must be set"))
	}
	if c.Indexer.AuthenticityEnabled && !common.IsHexAddress(c.Contracts.AuthenticityAddress) {
		errs = append(errs, fmt.Errorf("contracts.authenticity_address %q is not a hex address", c.Contracts.AuthenticityAddress))
	}
	if c.Indexer.OwnershipEnabled && !common.IsHexAddress(c.Contracts.OwnershipAddress) {
		errs = append(errs, fmt.Errorf("contracts.ownership_address %q is not a hex address", c.Contracts.OwnershipAddress))
	}
	if c.Indexer.ChunkSize == 0 {
		errs = append(errs, errors.New("indexer.chunk_size must be positive"))
	} else if c.Indexer.BackfillWindow > 0 && c.Indexer.ChunkSize > c.Indexer.BackfillWindow {
		errs = append(errs, fmt.Errorf("indexer.chunk_size %d exceeds indexer.backfill_window %d",
			c.Indexer.ChunkSize, c.Indexer.BackfillWindow))
	}
	if c.Indexer.RetryDelay <= 0 {
		errs = append(errs, errors.New("indexer.retry_delay must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/registry-indexer/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("REGISTRY_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Ethereum
		"ethereum.websocket_url",
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.requests_per_second",
		"ethereum.burst",
		"ethereum.max_block_range",
		"ethereum.poll_interval",
		"ethereum.block_timestamp_ttl",
		"ethereum.block_cache_size",
		// Contracts
		"contracts.authenticity_address",
		"contracts.ownership_address",
		// Indexer
		"indexer.backfill_window",
		"indexer.chunk_size",
		"indexer.retry_delay",
		"indexer.resume_from_cursor",
		"indexer.cursor_save_freq",
		"indexer.cursor_save_delay",
		"indexer.authenticity_enabled",
		"indexer.ownership_enabled",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
