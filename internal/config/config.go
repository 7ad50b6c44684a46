package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment     string
	MasterKey       string
	EncryptionSalt  string
	DBHost          string
	DBPort          string
	DBUsername      string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	Port            string
	SyncMaxMessages int
	Timezone        string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("EMAILREPORT_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:     env,
		MasterKey:       os.Getenv("EMAILREPORT_MASTER_KEY"),
		EncryptionSalt:  getEnvOrDefault("EMAILREPORT_ENCRYPTION_SALT", "email_encryption_salt"),
		DBHost:          getEnvOrDefault("EMAILREPORT_DB_HOST", "localhost"),
		DBPort:          getEnvOrDefault("EMAILREPORT_DB_PORT", "5432"),
		DBUsername:      getEnvOrDefault("EMAILREPORT_DB_USER", "emailreport"),
		DBPassword:      os.Getenv("EMAILREPORT_DB_PASSWORD"),
		DBName:          getEnvOrDefault("EMAILREPORT_DB_NAME", "emailreport"),
		DBSSLMode:       getEnvOrDefault("EMAILREPORT_DB_SSLMODE", "disable"),
		Port:            getEnvOrDefault("PORT", "8080"),
		SyncMaxMessages: 100,
		Timezone:        getEnvOrDefault("TZ", "UTC"),
	}

	if raw := os.Getenv("EMAILREPORT_SYNC_MAX_MESSAGES"); raw != "" {
		maxMessages, err := strconv.Atoi(raw)
		if err != nil || maxMessages <= 0 {
			return nil, fmt.Errorf("EMAILREPORT_SYNC_MAX_MESSAGES must be a positive integer")
		}
		config.SyncMaxMessages = maxMessages
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.MasterKey == "" {
		return fmt.Errorf("EMAILREPORT_MASTER_KEY is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("EMAILREPORT_DB_PASSWORD is required")
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("EMAILREPORT_DB_PORT is not a valid port number: %s", c.DBPort)
	}

	if !isValidPort(c.Port) {
		return fmt.Errorf("PORT is not a valid port number: %s", c.Port)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func isValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
