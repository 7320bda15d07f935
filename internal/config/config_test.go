package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schoolprops.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_PRETTY", "STORE_DRIVER", "DATABASE_URL", "AUTO_MIGRATE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
		"JWT_SECRET", "JWKS_URL", "SWEEP_INTERVAL", "ESCALATE_AFTER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MemoryDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Jobs.Sweep())
	assert.Equal(t, 48*time.Hour, cfg.Jobs.Escalation())
	assert.True(t, cfg.Auth.GeneratedSecret)
	assert.Len(t, cfg.Auth.JWTSecret, 32)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
[server]
port = 9090
log_level = "debug"

[database]
driver = "postgres"
url = "postgres://file/db"

[redis]
addr = "cache:6379"
db = 2

[auth]
jwt_secret = "from-file"

[jobs]
sweep_interval = "5m"
escalate_after = "24h"
`)
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ESCALATE_AFTER", "72h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.False(t, cfg.Auth.GeneratedSecret)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.Sweep())
	assert.Equal(t, 72*time.Hour, cfg.Jobs.Escalation())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := Load("")
		assert.ErrorContains(t, err, "DATABASE_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown store driver")
	})

	t.Run("bad number", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("PORT", "eighty")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid PORT")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("SWEEP_INTERVAL", "often")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid SWEEP_INTERVAL")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, err, "failed to load config file")
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(writeFile(t, "[server\nport = 1"))
		assert.Error(t, err)
	})
}
