package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BackendKind string

const (
	BackendMemory   BackendKind = "memory"
	BackendMongo    BackendKind = "mongo"
	BackendPostgres BackendKind = "postgres"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrWeakSecret     = errors.New("admin.jwt_secret is missing or too short")
)

// minSecretLen is the shortest HMAC key accepted for admin tokens.
const minSecretLen = 16

func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BackendMemory, BackendMongo, BackendPostgres:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Backend BackendKind `yaml:"backend"`
	} `yaml:"storage"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Kafka struct {
		Addr  string `yaml:"addr"`
		Topic string `yaml:"topic"`
	} `yaml:"kafka"`
	Admin struct {
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		UID       string `yaml:"uid"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Storage.Backend = BackendMemory
	cfg.Mongo.Database = "menfess"
	cfg.Kafka.Topic = "menfess-push"
	cfg.Admin.Username = "admin"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the YAML file at path (a missing file is fine), then .env, then
// the process environment. Later sources win.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env is optional, production sets real env vars
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Server.Port, "PORT")
	if v, ok := os.LookupEnv("STORAGE_BACKEND"); ok {
		c.Storage.Backend = BackendKind(v)
	}
	setFromEnv(&c.Mongo.URI, "MONGO_URI")
	setFromEnv(&c.Mongo.Database, "MONGO_DATABASE")
	setFromEnv(&c.Postgres.DSN, "POSTGRES_DSN")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Kafka.Addr, "KAFKA_ADDR")
	setFromEnv(&c.Kafka.Topic, "KAFKA_TOPIC")
	setFromEnv(&c.Admin.Username, "ADMIN_USERNAME")
	setFromEnv(&c.Admin.Password, "ADMIN_PASSWORD")
	setFromEnv(&c.Admin.UID, "ADMIN_UID")
	setFromEnv(&c.Admin.JWTSecret, "JWT_SECRET")
	setFromEnv(&c.Log.Level, "LOG_LEVEL")

	if os.Getenv("DISABLE_DURABLE") == "1" {
		c.Storage.Backend = BackendMemory
	}
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) Validate() error {
	kind, err := ParseBackendKind(string(c.Storage.Backend))
	if err != nil {
		return err
	}
	c.Storage.Backend = kind

	switch kind {
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo backend requires mongo.uri")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres backend requires postgres.dsn")
		}
	}
	if len(c.Admin.JWTSecret) < minSecretLen {
		return ErrWeakSecret
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is empty")
	}
	return nil
}
