package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"

	BinaryS3       = "s3"
	BinaryFirebase = "firebase"
	BinaryMemory   = "memory"

	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

type Config struct {
	Debug                    bool   `envconfig:"debug"`
	Port                     int    `envconfig:"port" default:"8080"`
	Env                      string `envconfig:"env" default:"dev"`
	LogLevel                 string `envconfig:"log_level" default:"info"`
	BaseUrl                  string `envconfig:"base_url"`
	StoreBackend             string `envconfig:"store_backend" default:"memory"`
	BinaryBackend            string `envconfig:"binary_backend" default:"memory"`
	AuthProvider             string `envconfig:"auth_provider" default:"jwt"`
	PostgresHost             string `envconfig:"postgres_host"`
	PostgresUser             string `envconfig:"postgres_user"`
	PostgresDB               string `envconfig:"postgres_db"`
	PostgresPort             int    `envconfig:"postgres_port" default:"5432"`
	PostgresPassword         string `envconfig:"postgres_password"`
	FirebaseCredentialsFile  string `envconfig:"firebase_credentials_file"`
	FirebaseProjectID        string `envconfig:"firebase_project_id"`
	FirebaseStorageBucket    string `envconfig:"firebase_storage_bucket"`
	AwsRegion                string `envconfig:"aws_region"`
	AwsBucket                string `envconfig:"aws_bucket"`
	AwsAccessKeyID           string `envconfig:"aws_access_key_id"`
	AwsSecretAccessKey       string `envconfig:"aws_secret_access_key"`
	JWTSecret                string `envconfig:"jwt_secret"`
	TxMaxAttempts            int    `envconfig:"tx_max_attempts" default:"5"`
	MaxUploadBytes           int64  `envconfig:"max_upload_bytes" default:"10485760"`
	RateLimitPerMinute       uint   `envconfig:"rate_limit_per_minute" default:"60"`
	RedisAddr                string `envconfig:"redis_addr"`
	RedisPassword            string `envconfig:"redis_password"`
	AccessControlAllowOrigin string `envconfig:"access_control_allow_origin"`
}

func Load() (*Config, error) {
	env := os.Getenv("GIN_MODE")
	if env != "release" {
		if err := godotenv.Load("./.env"); err != nil {
			log.Printf("couldn't load env vars: %v", err)
		}
	}

	c := &Config{}
	err := envconfig.Process("gallery", c)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects unknown backends and missing settings the chosen
// backends need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreFirestore:
	case StorePostgres:
		if c.PostgresHost == "" || c.PostgresDB == "" {
			return fmt.Errorf("store backend %q needs postgres_host and postgres_db", c.StoreBackend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.BinaryBackend {
	case BinaryMemory:
	case BinaryS3:
		if c.AwsBucket == "" || c.AwsRegion == "" {
			return fmt.Errorf("binary backend %q needs aws_bucket and aws_region", c.BinaryBackend)
		}
	case BinaryFirebase:
		if c.FirebaseStorageBucket == "" {
			return fmt.Errorf("binary backend %q needs firebase_storage_bucket", c.BinaryBackend)
		}
	default:
		return fmt.Errorf("unknown binary backend %q", c.BinaryBackend)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("auth provider %q needs jwt_secret", c.AuthProvider)
		}
	case AuthFirebase:
	default:
		return fmt.Errorf("unknown auth provider %q", c.AuthProvider)
	}

	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("tx_max_attempts must be at least 1, got %d", c.TxMaxAttempts)
	}
	if c.RateLimitPerMinute == 0 {
		return fmt.Errorf("rate_limit_per_minute must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// UsesFirebase reports whether any configured backend needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.StoreBackend == StoreFirestore || c.BinaryBackend == BinaryFirebase || c.AuthProvider == AuthFirebase
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}
