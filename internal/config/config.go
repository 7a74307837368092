package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// 默认签名密钥，仅用于本地开发
const defaultJWTSecret = "dev-secret-change-me-dev-secret-change-me-dev-secret-change-me!!"

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Activity ActivityConfig `mapstructure:"activity"`
	Paging   PagingConfig   `mapstructure:"paging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// StorageConfig 照片存储配置
type StorageConfig struct {
	MinIO          MinIOConfig   `mapstructure:"minio"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadSize  int64         `mapstructure:"max_upload_size"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	BucketName string `mapstructure:"bucket_name"`
	PublicURL  string `mapstructure:"public_url"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	Interval     time.Duration `mapstructure:"interval"`
	OpenTimeout  time.Duration `mapstructure:"open_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type         string         `mapstructure:"type"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	SQLite       SQLiteConfig   `mapstructure:"sqlite"`
	MaxOpenConns int            `mapstructure:"max_open_conns"`
}

// PostgresConfig PostgreSQL配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// SQLiteConfig SQLite配置
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig 缓存配置，用于用户级锁和活跃度节流
type CacheConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	GCInterval        time.Duration `mapstructure:"gc_interval"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ActivityConfig 用户活跃时间更新配置
type ActivityConfig struct {
	TouchInterval time.Duration `mapstructure:"touch_interval"`
}

// PagingConfig 分页配置
type PagingConfig struct {
	DefaultSize int `mapstructure:"default_size"`
	MaxSize     int `mapstructure:"max_size"`
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 优先从配置文件加载
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/dating-api")
	v.AddConfigPath("$HOME/.dating-api")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	setEnvOverrides(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.token_expiry", 24*time.Hour)
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.bucket_name", "dating-photos")
	v.SetDefault("storage.request_timeout", 10*time.Second)
	v.SetDefault("storage.max_upload_size", 10<<20)
	v.SetDefault("storage.breaker.min_requests", 5)
	v.SetDefault("storage.breaker.failure_ratio", 0.5)
	v.SetDefault("storage.breaker.interval", 60*time.Second)
	v.SetDefault("storage.breaker.open_timeout", 30*time.Second)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "./data/dating.db")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.timeout", 5*time.Second)
	v.SetDefault("cache.redis.lock_ttl", 30*time.Second)
	v.SetDefault("cache.memory.default_expiration", 1*time.Hour)
	v.SetDefault("cache.memory.gc_interval", 10*time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("activity.touch_interval", 1*time.Minute)
	v.SetDefault("paging.default_size", 10)
	v.SetDefault("paging.max_size", 50)
}

// setEnvOverrides 设置环境变量覆盖
func setEnvOverrides(v *viper.Viper) {
	strs := map[string]string{
		"SERVER_ADDRESS":    "server.address",
		"SERVER_MODE":       "server.mode",
		"JWT_SECRET":        "auth.jwt_secret",
		"DATABASE_TYPE":     "database.type",
		"SQLITE_PATH":       "database.sqlite.path",
		"POSTGRES_HOST":     "database.postgres.host",
		"POSTGRES_USERNAME": "database.postgres.username",
		"POSTGRES_PASSWORD": "database.postgres.password",
		"POSTGRES_DATABASE": "database.postgres.database",
		"POSTGRES_SSL_MODE": "database.postgres.ssl_mode",
		"MINIO_ENDPOINT":    "storage.minio.endpoint",
		"MINIO_ACCESS_KEY":  "storage.minio.access_key",
		"MINIO_SECRET_KEY":  "storage.minio.secret_key",
		"MINIO_BUCKET_NAME": "storage.minio.bucket_name",
		"MINIO_PUBLIC_URL":  "storage.minio.public_url",
		"CACHE_TYPE":        "cache.type",
		"REDIS_ADDRESS":     "cache.redis.address",
		"REDIS_PASSWORD":    "cache.redis.password",
		"LOG_LEVEL":         "logging.level",
	}
	for env, key := range strs {
		if val := os.Getenv(env); val != "" {
			v.Set(key, val)
		}
	}

	ints := map[string]string{
		"POSTGRES_PORT": "database.postgres.port",
		"REDIS_DB":      "cache.redis.db",
	}
	for env, key := range ints {
		if val := os.Getenv(env); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				v.Set(key, n)
			}
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}

	switch c.Cache.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache type %q", c.Cache.Type)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	// HS512 需要至少 64 字节的密钥
	if len(c.Auth.JWTSecret) < 64 {
		return errors.New("auth.jwt_secret must be at least 64 bytes")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("auth.jwt_secret must be changed in release mode")
	}
	if c.Auth.TokenExpiry <= 0 {
		return errors.New("auth.token_expiry must be positive")
	}

	if c.Paging.DefaultSize < 1 || c.Paging.MaxSize < c.Paging.DefaultSize {
		return fmt.Errorf("invalid paging sizes: default %d, max %d", c.Paging.DefaultSize, c.Paging.MaxSize)
	}

	return nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return buildPostgresDSN(c.Postgres)
	case "sqlite":
		return buildSQLiteDSN(c.SQLite)
	default:
		return ""
	}
}

// buildPostgresDSN 构建PostgreSQL DSN
func buildPostgresDSN(config PostgresConfig) string {
	dsn := "host=" + config.Host
	dsn += " port=" + strconv.Itoa(config.Port)
	dsn += " user=" + config.Username
	dsn += " password=" + config.Password
	dsn += " dbname=" + config.Database
	dsn += " sslmode=" + config.SSLMode
	return dsn
}

// buildSQLiteDSN 构建SQLite DSN，写事务使用 BEGIN IMMEDIATE 串行化
func buildSQLiteDSN(config SQLiteConfig) string {
	return config.Path + "?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production" || c.Server.Mode == "release"
}

// GetGINMode 获取Gin模式
func (c *Config) GetGINMode() string {
	switch c.Server.Mode {
	case "debug":
		return gin.DebugMode
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
