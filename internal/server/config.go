package server

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/VinMeld/campus-chat/internal/role"
	"github.com/VinMeld/campus-chat/internal/transport"
)

// Storage types for uploaded document content.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageMinio = "minio"
)

// Config is the simulated backend configuration.
type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"dataDir"`
	// PublicURL is the externally reachable base URL, used to build the
	// redirect target handed to login windows.
	PublicURL        string        `yaml:"publicURL"`
	LogLevel         string        `yaml:"logLevel"`
	AskRatePerMinute int           `yaml:"askRatePerMinute"`
	DemoPassword     string        `yaml:"demoPassword"`
	Storage          StorageConfig `yaml:"storage"`
	Accounts         []Account     `yaml:"accounts"`
}

type StorageConfig struct {
	Type   string      `yaml:"type"`
	Bucket string      `yaml:"bucket"`
	Region string      `yaml:"region"`
	Minio  MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Account is a directory entry the simulated identity provider can sign in.
type Account struct {
	Email  string `yaml:"email"`
	Name   string `yaml:"name"`
	RoleID int    `yaml:"roleId"`
}

// DefaultAccounts are the administrator and student the simulated provider
// alternates between.
func DefaultAccounts() []Account {
	return []Account{
		{Email: "estefany.perez@mail.utec.edu.sv", Name: "Estefany Perez", RoleID: role.IDAdministrator},
		{Email: "2715282023@mail.utec.edu.sv", Name: "Student 2715282023", RoleID: role.IDStudent},
	}
}

// DefaultConfig returns a config that runs locally with no external services.
func DefaultConfig() *Config {
	return &Config{
		Port:             transport.DefaultServerPort,
		DataDir:          "server_data",
		LogLevel:         "info",
		AskRatePerMinute: 30,
		DemoPassword:     "campus-chat",
		Storage:          StorageConfig{Type: StorageLocal},
		Accounts:         DefaultAccounts(),
	}
}

// LoadConfig layers defaults, the optional YAML file at path, a .env file and
// environment variables, then validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using defaults/env vars")
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		c.PublicURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DEMO_PASSWORD"); v != "" {
		c.DemoPassword = v
	}
	if v := os.Getenv("ASK_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: ASK_RATE_PER_MINUTE: %w", err)
		}
		c.AskRatePerMinute = n
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("AWS_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.Minio.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.Minio.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.Minio.SecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		c.Storage.Minio.Bucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.Minio.UseSSL = v == "true" || v == "1"
	}
	return nil
}

// Validate normalises the port and checks storage settings.
func (c *Config) Validate() error {
	if c.Port == "" {
		c.Port = transport.DefaultServerPort
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if c.DataDir == "" {
		return errors.New("config: dataDir is required")
	}
	if c.AskRatePerMinute < 0 {
		return errors.New("config: askRatePerMinute must not be negative")
	}
	if len(c.Accounts) == 0 {
		return errors.New("config: at least one account is required")
	}
	for _, a := range c.Accounts {
		if a.Email == "" {
			return errors.New("config: account email is required")
		}
	}
	switch c.Storage.Type {
	case "", StorageLocal:
		c.Storage.Type = StorageLocal
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("config: AWS_BUCKET required for s3 storage")
		}
	case StorageMinio:
		m := c.Storage.Minio
		if m.Endpoint == "" || m.Bucket == "" {
			return errors.New("config: MINIO_ENDPOINT and MINIO_BUCKET required for minio storage")
		}
	default:
		return fmt.Errorf("config: unknown storage type %q", c.Storage.Type)
	}
	return nil
}
