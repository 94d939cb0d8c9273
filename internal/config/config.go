package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Backends for the rate-limit counter store and the submission sink.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

// Config holds all configuration for the site
type Config struct {
	// Server Configuration
	Environment string `env:"ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`
	ContentFile string `env:"CONTENT_FILE"`

	// Logging Configuration
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7"`

	// Storage Configuration
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/site.db"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SinkBackend  string `env:"SINK_BACKEND" envDefault:"sqlite"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Firebase Configuration
	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`

	// Mail notification, disabled unless SMTP_USER and SMTP_PASS are set
	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	ToEmail  string `env:"TO_EMAIL"`

	// Admin Configuration
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin123"`

	// Salt for visitor IP hashes. A random salt is generated per process
	// when unset, so unique-visitor counts restart with the server.
	VisitorHashSalt string `env:"VISITOR_HASH_SALT"`
}

// Load loads the configuration from environment variables and .env files
func Load() (*Config, error) {
	envLocations := []string{".env"}
	if envName := os.Getenv("ENV"); envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}

	for _, loc := range envLocations {
		// godotenv.Load never overwrites variables that are already set
		if err := godotenv.Load(loc); err == nil {
			break
		}
	}

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.SinkBackend {
	case BackendMemory, BackendSQLite:
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore sink")
		}
	default:
		return fmt.Errorf("unknown SINK_BACKEND %q", c.SinkBackend)
	}

	return nil
}

// IsProduction reports whether the site runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailEnabled reports whether SMTP credentials are configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}
