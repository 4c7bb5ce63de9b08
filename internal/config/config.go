package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Providers   ProvidersConfig   `json:"providers"`
	Oracle      OracleConfig      `json:"oracle"`
	Environment EnvironmentConfig `json:"environment"`
	Logging     LoggingConfig     `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	User         string        `json:"user"`
	Password     string        `json:"password"`
	DBName       string        `json:"db_name"`
	SSLMode      string        `json:"ssl_mode"`
	MaxConns     int           `json:"max_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	MaxLifetime  time.Duration `json:"max_lifetime"`
}

// ProvidersConfig holds the credentials for external environmental data APIs.
// A provider with an empty key is skipped and the aggregator falls back to
// synthetic observations for that domain.
type ProvidersConfig struct {
	OpenWeatherAPIKey string `json:"openweather_api_key"`
	SentinelHubToken  string `json:"sentinel_hub_token"`
	CopernicusAPIKey  string `json:"copernicus_api_key"`
	NASAFirmsAPIKey   string `json:"nasa_firms_api_key"`
}

// OracleConfig controls the oracle request coordinator.
type OracleConfig struct {
	ContractAddress string        `json:"contract_address"`
	FactoryAddress  string        `json:"factory_address"`
	SubscriptionID  uint64        `json:"subscription_id"`
	PollInterval    time.Duration `json:"poll_interval"`
	MaxWait         time.Duration `json:"max_wait"`
}

// EnvironmentConfig controls the data aggregation layer.
type EnvironmentConfig struct {
	CacheTTL        time.Duration `json:"cache_ttl"`
	RetryBudget     time.Duration `json:"retry_budget"`
	RefreshSchedule string        `json:"refresh_schedule"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "carbonlink",
			SSLMode: "disable",
		},
		Oracle: OracleConfig{
			PollInterval: 10 * time.Second,
			MaxWait:      5 * time.Minute,
		},
		Environment: EnvironmentConfig{
			CacheTTL:        5 * time.Minute,
			RetryBudget:     15 * time.Second,
			RefreshSchedule: "*/5 * * * *",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		config.Providers.OpenWeatherAPIKey = key
	}
	if key := os.Getenv("SENTINEL_HUB_TOKEN"); key != "" {
		config.Providers.SentinelHubToken = key
	}
	if key := os.Getenv("COPERNICUS_API_KEY"); key != "" {
		config.Providers.CopernicusAPIKey = key
	}
	if key := os.Getenv("NASA_FIRMS_API_KEY"); key != "" {
		config.Providers.NASAFirmsAPIKey = key
	}
	if addr := os.Getenv("ORACLE_CONTRACT_ADDRESS"); addr != "" {
		config.Oracle.ContractAddress = addr
	}
	if addr := os.Getenv("ORACLE_FACTORY_ADDRESS"); addr != "" {
		config.Oracle.FactoryAddress = addr
	}
	if sub := os.Getenv("ORACLE_SUBSCRIPTION_ID"); sub != "" {
		if id, err := strconv.ParseUint(sub, 10, 64); err == nil {
			config.Oracle.SubscriptionID = id
		}
	}
	if interval := os.Getenv("ORACLE_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Oracle.PollInterval = d
		}
	}
	if wait := os.Getenv("ORACLE_MAX_WAIT"); wait != "" {
		if d, err := time.ParseDuration(wait); err == nil {
			config.Oracle.MaxWait = d
		}
	}
	if ttl := os.Getenv("ENVIRONMENT_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Environment.CacheTTL = d
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
