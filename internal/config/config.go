package config

import (
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable, e.g. REGISTER_HTTP_ADDR.
const EnvPrefix = "REGISTER"

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
)

type Config struct {
	HTTPAddr string `yaml:"httpAddr" split_words:"true"`
	GRPCAddr string `yaml:"grpcAddr" split_words:"true"` // "" disables the gRPC health server

	Env     string `yaml:"env"`     // "dev" | "prod"
	Backend string `yaml:"backend"` // memory | sqlite | postgres | badger | redis

	// Substrates
	DBPath           string `yaml:"dbPath"           split_words:"true"`
	BadgerDir        string `yaml:"badgerDir"        split_words:"true"` // "" = in-memory
	RedisAddr        string `yaml:"redisAddr"        split_words:"true"`
	RedisPassword    string `yaml:"redisPassword"    split_words:"true"`
	RedisDB          int    `yaml:"redisDB"          envconfig:"REDIS_DB"`
	PostgresDSN      string `yaml:"postgresDSN"      envconfig:"POSTGRES_DSN"`
	MemoryQuotaBytes int    `yaml:"memoryQuotaBytes" split_words:"true"`

	Namespace string `yaml:"namespace"`

	// Drafts
	DraftDebounce      time.Duration `yaml:"draftDebounce"      split_words:"true"`
	DraftRetentionDays int           `yaml:"draftRetentionDays" split_words:"true"` // 0 = keep forever
	PruneIntervalHours int           `yaml:"pruneIntervalHours" split_words:"true"`

	LogLevel  string `yaml:"logLevel"  split_words:"true"`
	LogFormat string `yaml:"logFormat" split_words:"true"` // json | console

	Timezone        string `yaml:"timezone"`
	DefaultResolver string `yaml:"defaultResolver" split_words:"true"`

	SignatureWidth  int `yaml:"signatureWidth"  split_words:"true"`
	SignatureHeight int `yaml:"signatureHeight" split_words:"true"`
}

func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		GRPCAddr:           ":9090",
		Env:                "dev",
		Backend:            BackendSQLite,
		DBPath:             "./data/registre.db",
		RedisAddr:          "localhost:6379",
		MemoryQuotaBytes:   5 << 20,
		Namespace:          "gpis",
		PruneIntervalHours: 6,
		LogLevel:           "info",
		LogFormat:          "json",
		Timezone:           "Local",
		DefaultResolver:    "Admin",
		SignatureWidth:     400,
		SignatureHeight:    150,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then REGISTER_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "parse config file")
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env")
	}

	cfg.normalize()
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) normalize() {
	d := Default()

	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendBadger, BackendRedis:
	default:
		c.Backend = d.Backend
	}

	if strings.TrimSpace(c.Namespace) == "" {
		c.Namespace = d.Namespace
	}
	if c.DraftDebounce < 0 {
		c.DraftDebounce = 0
	}
	if c.DraftRetentionDays < 0 {
		c.DraftRetentionDays = 0
	}
	if c.PruneIntervalHours <= 0 {
		c.PruneIntervalHours = d.PruneIntervalHours
	}
	if c.MemoryQuotaBytes < 0 {
		c.MemoryQuotaBytes = 0
	}
	if strings.TrimSpace(c.DefaultResolver) == "" {
		c.DefaultResolver = d.DefaultResolver
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c Config) Location() *time.Location {
	switch c.Timezone {
	case "", "Local":
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) IsDev() bool { return c.Env == "dev" }
