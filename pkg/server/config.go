package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/notedcloud/noted/pkg/pagestore/surrealdb"
	"gopkg.in/yaml.v3"
)

// Store backends selectable with NOTED_STORE.
const (
	StorePostgres  = "postgres"
	StoreSQLite    = "sqlite"
	StoreSurrealDB = "surrealdb"
	StoreMemory    = "memory"
)

// Config holds the page service configuration.
//
// Values are layered: defaults, then the YAML file given with --config, then
// a .env file in the working directory, then the environment, then flags.
type Config struct {
	Addr  string `yaml:"addr" validate:"required,hostname_port"`
	Store string `yaml:"store" validate:"oneof=postgres sqlite surrealdb memory"`

	// DatabaseURL is the PostgreSQL DSN, or the database file for sqlite.
	DatabaseURL string           `yaml:"database_url" validate:"required_if=Store postgres,required_if=Store sqlite"`
	SurrealDB   surrealdb.Config `yaml:"surrealdb" validate:"-"`

	ReadOnly    bool     `yaml:"read_only"`
	JWTSecret   string   `yaml:"jwt_secret" validate:"omitempty,min=16"`
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`

	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Addr:  ":8080",
		Store: StorePostgres,
		SurrealDB: surrealdb.Config{
			URL:       "ws://localhost:8000",
			Namespace: "noted",
			Database:  "noted",
			Username:  "root",
			Password:  "root",
		},
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadConfig builds the configuration from path (optional), .env and the
// environment, and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg, err := loadLayers(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLayers(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("NOTED_ADDR", &c.Addr)
	str("NOTED_STORE", &c.Store)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SURREALDB_URL", &c.SurrealDB.URL)
	str("SURREALDB_NS", &c.SurrealDB.Namespace)
	str("SURREALDB_DB", &c.SurrealDB.Database)
	str("SURREALDB_USER", &c.SurrealDB.Username)
	str("SURREALDB_PASS", &c.SurrealDB.Password)
	str("NOTED_JWT_SECRET", &c.JWTSecret)
	str("NOTED_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("NOTED_READ_ONLY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NOTED_READ_ONLY %q: %w", v, err)
		}
		c.ReadOnly = b
	}
	if v, ok := lookup("NOTED_CORS_ORIGINS"); ok && v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
	return nil
}

// Validate checks the configuration, including the SurrealDB settings when
// that backend is selected.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store == StoreSurrealDB {
		if err := validate.Struct(c.SurrealDB); err != nil {
			return fmt.Errorf("invalid surrealdb configuration: %w", err)
		}
	}
	return nil
}
