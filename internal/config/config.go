package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"wedding-site/internal/models"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
	DriverMongoDB  = "mongodb"
)

// Config holds the document service configuration.
// Environment variables are parsed from the WEDDING_ prefix.
type Config struct {
	HTTPPort    int         `envconfig:"HTTP_PORT" default:"8080"`
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver     string `envconfig:"STORE_DRIVER" default:"file"`
	DataDir         string `envconfig:"DATA_DIR" default:"data"`
	SQLitePath      string `envconfig:"SQLITE_PATH" default:""`
	DocumentID      string `envconfig:"DOCUMENT_ID" default:"main"`
	DynamoTable     string `envconfig:"DYNAMO_TABLE" default:"wedding-site"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
	MongoURI        string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"wedding"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"site"`

	// Empty disables cross-instance fan-out.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	AdminEmail        string        `envconfig:"ADMIN_EMAIL" default:"admin@wedding.local"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH" default:""`
	JWTSecret         string        `envconfig:"JWT_SECRET" default:""`
	SessionTTL        time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	PublicRead        bool          `envconfig:"PUBLIC_READ" default:"true"`
	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"*"`

	S3Bucket      string `envconfig:"S3_BUCKET" default:""`
	MaxImageBytes int    `envconfig:"MAX_IMAGE_BYTES" default:"716800"`

	SeedDefaults bool `envconfig:"SEED_DEFAULTS" default:"true"`

	WhatsAppEnabled    bool   `envconfig:"WHATSAPP_ENABLED" default:"false"`
	WhatsAppDataDir    string `envconfig:"WHATSAPP_DATA_DIR" default:""`
	WhatsAppAdminPhone string `envconfig:"WHATSAPP_ADMIN_PHONE" default:""`

	WeddingDate     string `envconfig:"WEDDING_DATE" default:"Saturday, January 1, 2025"`
	WeddingLocation string `envconfig:"WEDDING_LOCATION" default:"Venue TBD"`
	BrideName       string `envconfig:"BRIDE_NAME" default:"Bride"`
	GroomName       string `envconfig:"GROOM_NAME" default:"Groom"`
}

// ResolveDefaults validates the driver and derives file locations from
// DataDir.
func (c *Config) ResolveDefaults() error {
	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case DriverFile, DriverSQLite, DriverDynamoDB, DriverMongoDB:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}

	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "wedding.db")
	}
	if c.WhatsAppDataDir == "" {
		c.WhatsAppDataDir = filepath.Join(c.DataDir, "whatsapp")
	}
	if c.WhatsAppEnabled && c.WhatsAppAdminPhone == "" {
		return fmt.Errorf("WHATSAPP_ADMIN_PHONE is required when WHATSAPP_ENABLED is set")
	}
	if c.AdminPasswordHash != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: WEDDING_HTTP_PORT, WEDDING_STORE_DRIVER
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("WEDDING", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("store_driver", cfg.StoreDriver).
		Str("document_id", cfg.DocumentID).
		Bool("redis", cfg.RedisAddr != "").
		Bool("admin_configured", cfg.AdminEnabled()).
		Bool("public_read", cfg.PublicRead).
		Bool("s3_uploads", cfg.S3Bucket != "").
		Bool("whatsapp", cfg.WhatsAppEnabled).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		HTTPPort:      0,
		Environment:   EnvTesting,
		LogLevel:      "debug",
		StoreDriver:   DriverFile,
		DocumentID:    "main",
		AdminEmail:    "admin@wedding.local",
		SessionTTL:    time.Hour,
		PublicRead:    true,
		CORSOrigins:   []string{"*"},
		MaxImageBytes: 716800,
		SeedDefaults:  true,
		BrideName:     "Bride",
		GroomName:     "Groom",
	}
}

// AdminEnabled reports whether an admin password has been configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Seed returns the wedding details the default document starts from.
func (c *Config) Seed() models.Seed {
	return models.Seed{
		BrideName:   c.BrideName,
		GroomName:   c.GroomName,
		WeddingDate: c.WeddingDate,
		Location:    c.WeddingLocation,
	}
}
