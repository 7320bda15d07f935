package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/labstack/gommon/random"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Minio    MinioConfig    `toml:"minio"`
	Auth     AuthConfig     `toml:"auth"`
	Jobs     JobsConfig     `toml:"jobs"`
}

type ServerConfig struct {
	Port      int    `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`
	BodyLimit string `toml:"body_limit"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory. The memory store loses everything on exit.
	Driver      string `toml:"driver"`
	URL         string `toml:"url"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// RedisConfig is optional; an empty Addr disables the item cache and keeps read
// markers in process memory.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MinioConfig is optional; an empty Endpoint disables photo uploads.
type MinioConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	JWKSURL   string `toml:"jwks_url"`
	// GeneratedSecret is set when no secret was configured and one was made up.
	GeneratedSecret bool `toml:"-"`
}

type JobsConfig struct {
	SweepInterval duration `toml:"sweep_interval"`
	EscalateAfter duration `toml:"escalate_after"`
}

// duration decodes TOML strings such as "15m".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			LogLevel:  "info",
			BodyLimit: "12M",
		},
		Database: DatabaseConfig{
			Driver:      StoreDriverPostgres,
			AutoMigrate: true,
		},
		Minio: MinioConfig{
			Bucket: "schoolprops",
		},
		Jobs: JobsConfig{
			SweepInterval: duration{15 * time.Minute},
			EscalateAfter: duration{48 * time.Hour},
		},
	}
}

// Load reads defaults, then the TOML file at path when path is not empty, then
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" && cfg.Auth.JWKSURL == "" {
		cfg.Auth.JWTSecret = random.String(32)
		cfg.Auth.GeneratedSecret = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var firstErr error
	fail := func(key string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(key, err)
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				fail(key, err)
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *duration) {
		if v := getenv(key); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				fail(key, err)
			}
		}
	}

	num("PORT", &c.Server.Port)
	str("LOG_LEVEL", &c.Server.LogLevel)
	flag("LOG_PRETTY", &c.Server.LogPretty)

	str("STORE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	flag("AUTO_MIGRATE", &c.Database.AutoMigrate)

	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)

	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Minio.Bucket)
	flag("MINIO_USE_SSL", &c.Minio.UseSSL)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWKS_URL", &c.Auth.JWKSURL)

	dur("SWEEP_INTERVAL", &c.Jobs.SweepInterval)
	dur("ESCALATE_AFTER", &c.Jobs.EscalateAfter)

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	return firstErr
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Jobs.SweepInterval.Duration <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if c.Jobs.EscalateAfter.Duration < 0 {
		return fmt.Errorf("escalate after cannot be negative")
	}
	if c.Minio.Endpoint != "" && c.Minio.Bucket == "" {
		return fmt.Errorf("MINIO_BUCKET is required when MINIO_ENDPOINT is set")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (j JobsConfig) Sweep() time.Duration {
	return j.SweepInterval.Duration
}

func (j JobsConfig) Escalation() time.Duration {
	return j.EscalateAfter.Duration
}
