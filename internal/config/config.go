package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	IMAPServer   string
	IMAPUsername string
	IMAPPassword string
	IMAPUseTLS   bool
	SMTPServer   string
	SMTPFrom     string
	DBHost       string
	DBPort       string
	DBUsername   string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DownloadDir  string
	Timezone     string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("HABITMAIL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:  env,
		IMAPServer:   getEnvOrDefault("HABITMAIL_IMAP_SERVER", "imap.gmail.com:993"),
		IMAPUsername: os.Getenv("HABITMAIL_IMAP_USER"),
		IMAPPassword: os.Getenv("HABITMAIL_IMAP_PASSWORD"),
		IMAPUseTLS:   getEnvOrDefault("HABITMAIL_IMAP_TLS", "true") == "true",
		SMTPServer:   getEnvOrDefault("HABITMAIL_SMTP_SERVER", "smtp.gmail.com:465"),
		SMTPFrom:     getEnvOrDefault("HABITMAIL_SMTP_FROM", os.Getenv("HABITMAIL_IMAP_USER")),
		DBHost:       getEnvOrDefault("HABITMAIL_DB_HOST", "localhost"),
		DBPort:       getEnvOrDefault("HABITMAIL_DB_PORT", "5432"),
		DBUsername:   getEnvOrDefault("HABITMAIL_DB_USER", "habitmail"),
		DBPassword:   os.Getenv("HABITMAIL_DB_PASSWORD"),
		DBName:       getEnvOrDefault("HABITMAIL_DB_NAME", "habitmail"),
		DBSSLMode:    getEnvOrDefault("HABITMAIL_DB_SSLMODE", "disable"),
		DownloadDir:  getEnvOrDefault("HABITMAIL_DOWNLOAD_DIR", "files/downloads"),
		Timezone:     getEnvOrDefault("HABITMAIL_TIMEZONE", "America/New_York"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.IMAPUsername == "" {
		return fmt.Errorf("HABITMAIL_IMAP_USER is required")
	}

	if c.IMAPPassword == "" {
		return fmt.Errorf("HABITMAIL_IMAP_PASSWORD is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("HABITMAIL_DB_PASSWORD is required")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("HABITMAIL_TIMEZONE is invalid: %w", err)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// Location resolves the configured timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
