package config

import (
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 10, cfg.Paging.DefaultSize)
	assert.Equal(t, 50, cfg.Paging.MaxSize)
	assert.Equal(t, time.Minute, cfg.Activity.TouchInterval)
	assert.Equal(t, uint32(5), cfg.Storage.Breaker.MinRequests)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("JWT_SECRET", strings.Repeat("k", 64))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 6543, cfg.Database.Postgres.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.Equal(t, strings.Repeat("k", 64), cfg.Auth.JWTSecret)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Mode: "debug"},
		Auth:     AuthConfig{JWTSecret: defaultJWTSecret, TokenExpiry: 24 * time.Hour},
		Database: DatabaseConfig{Type: "sqlite"},
		Cache:    CacheConfig{Type: "memory"},
		Paging:   PagingConfig{DefaultSize: 10, MaxSize: 50},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown database", mutate: func(c *Config) { c.Database.Type = "mysql" }, wantErr: "unsupported database type"},
		{name: "unknown cache", mutate: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: "unsupported cache type"},
		{name: "empty secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "must be set"},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: "at least 64 bytes"},
		{name: "default secret in release", mutate: func(c *Config) { c.Server.Mode = "release" }, wantErr: "must be changed"},
		{name: "zero expiry", mutate: func(c *Config) { c.Auth.TokenExpiry = 0 }, wantErr: "token_expiry"},
		{name: "bad paging", mutate: func(c *Config) { c.Paging.MaxSize = 5 }, wantErr: "invalid paging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	pg := DatabaseConfig{Type: "postgres", Postgres: PostgresConfig{
		Host: "db", Port: 5432, Username: "u", Password: "p", Database: "dating", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=dating sslmode=disable", pg.GetDSN())

	lite := DatabaseConfig{Type: "sqlite", SQLite: SQLiteConfig{Path: "/tmp/x.db"}}
	assert.Equal(t, "/tmp/x.db?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on", lite.GetDSN())

	assert.Empty(t, (&DatabaseConfig{Type: "oracle"}).GetDSN())
}

func TestGetGINMode(t *testing.T) {
	cfg := validConfig()
	for mode, want := range map[string]string{
		"debug":      gin.DebugMode,
		"release":    gin.ReleaseMode,
		"production": gin.ReleaseMode,
		"test":       gin.TestMode,
		"weird":      gin.DebugMode,
	} {
		cfg.Server.Mode = mode
		assert.Equal(t, want, cfg.GetGINMode(), mode)
	}
}
