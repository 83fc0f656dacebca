package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Catalog CatalogConfig
	Cache   CacheConfig
	View    ViewConfig
	Notify  NotifyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"bayt-storefront"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key; empty disables them
}

// CatalogConfig holds the remote catalog API settings.
type CatalogConfig struct {
	BaseURL string        `envconfig:"CATALOG_BASE_URL" default:"https://bayt.onrender.com"`
	Timeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"15s"`
}

// CacheConfig holds page cache settings.
type CacheConfig struct {
	Storage       string        `envconfig:"CACHE_STORAGE" default:"sqlite"` // memory, sqlite, redis, postgres, mysql, mongodb
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"0"`

	SQLitePath string `envconfig:"CACHE_SQLITE_PATH" default:"./data/storefront.db"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_KEY_PREFIX" default:"storefront:cache:"`

	// PostgreSQL settings
	PostgresHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresName     string `envconfig:"POSTGRES_DB" default:"storefront"`
	PostgresUser     string `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string `envconfig:"POSTGRES_PASS" default:""`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	// MySQL settings
	MySQLHost     string `envconfig:"MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"MYSQL_DB" default:"storefront"`
	MySQLUser     string `envconfig:"MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"MYSQL_PASS" default:""`

	// MongoDB settings
	MongoURI        string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"storefront"`
	MongoCollection string `envconfig:"MONGODB_COLLECTION" default:"page_cache"`
}

// ViewConfig holds catalog view settings.
type ViewConfig struct {
	Placeholders        int           `envconfig:"VIEW_PLACEHOLDERS" default:"9"`
	AllowStaleResponses bool          `envconfig:"VIEW_ALLOW_STALE_RESPONSES" default:"false"`
	SessionIdleTimeout  time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SessionSweep        time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
	MaxSessions         int           `envconfig:"SESSION_MAX" default:"10000"`
}

// NotifyConfig holds notification queue settings.
type NotifyConfig struct {
	TTL time.Duration `envconfig:"NOTIFY_TTL" default:"5s"`
	Max int           `envconfig:"NOTIFY_MAX" default:"3"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *CacheConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresName, c.PostgresSSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (c *CacheConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.MySQLUser, c.MySQLPassword, c.MySQLHost, c.MySQLPort, c.MySQLName)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
