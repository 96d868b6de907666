package config

import (
	"fmt"
	"os"
	"time"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// RESTConfig describes a PostgREST-compatible endpoint (Supabase).
type RESTConfig struct {
	BaseURL    string
	APIKey     string
	ServiceKey string
	Timeout    time.Duration
}

// GetDSN returns the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Missing lists the connection parameters that are required but empty.
func (c *DatabaseConfig) Missing() []string {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port == 0 {
		missing = append(missing, "porta")
	}
	if c.User == "" {
		missing = append(missing, "usuario")
	}
	if c.Database == "" {
		missing = append(missing, "database")
	}
	return missing
}

// LoadFromEnv overrides fields from <prefix>_URL, <prefix>_API_KEY, <prefix>_SERVICE_KEY.
func (c *RESTConfig) LoadFromEnv(prefix string) {
	if url := os.Getenv(prefix + "_URL"); url != "" {
		c.BaseURL = url
	}
	if key := os.Getenv(prefix + "_API_KEY"); key != "" {
		c.APIKey = key
	}
	if key := os.Getenv(prefix + "_SERVICE_KEY"); key != "" {
		c.ServiceKey = key
	}
}
