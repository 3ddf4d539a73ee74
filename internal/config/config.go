package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server needs, read from environment
// variables through Viper.
type Config struct {
	AppPort string

	DatabaseDriver string
	DatabaseDSN    string

	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool
	SessionStore  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	UploadDir         string
	AllowedExtensions []string
	MaxUploadMB       int

	StorageBackend string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string

	TryOnDir               string
	TryOnCommand           string
	TryOnArgs              []string
	TryOnWorkDir           string
	TryOnTimeout           time.Duration
	TryOnWorkers           int
	TryOnQueueSize         int
	TryOnAllowedExtensions []string

	RabbitMQURL string
	CORSOrigins string

	RateLimitRPS   float64
	RateLimitBurst int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "closet_organizer.db")
	v.SetDefault("SESSION_SECRET", "dev")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_COOKIE", "closet_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "closet")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("ALLOWED_EXTENSIONS", "png")
	v.SetDefault("MAX_UPLOAD_MB", 16)
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("TRYON_DIR", "")
	v.SetDefault("TRYON_COMMAND", "python")
	v.SetDefault("TRYON_ARGS", "test.py")
	v.SetDefault("TRYON_WORKDIR", "")
	v.SetDefault("TRYON_TIMEOUT", "10m")
	v.SetDefault("TRYON_WORKERS", 1)
	v.SetDefault("TRYON_QUEUE_SIZE", 16)
	v.SetDefault("TRYON_ALLOWED_EXTENSIONS", "png,jpg,jpeg")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// New returns a Viper instance with defaults set and environment lookup on.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return v
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:                v.GetString("APP_PORT"),
		DatabaseDriver:         strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:            v.GetString("DATABASE_DSN"),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		SessionTTL:             v.GetDuration("SESSION_TTL"),
		SessionCookie:          v.GetString("SESSION_COOKIE"),
		CookieSecure:           v.GetBool("SESSION_COOKIE_SECURE"),
		SessionStore:           strings.ToLower(v.GetString("SESSION_STORE")),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		RedisPrefix:            v.GetString("REDIS_PREFIX"),
		UploadDir:              v.GetString("UPLOAD_DIR"),
		AllowedExtensions:      splitList(v.GetString("ALLOWED_EXTENSIONS"), ","),
		MaxUploadMB:            v.GetInt("MAX_UPLOAD_MB"),
		StorageBackend:         strings.ToLower(v.GetString("STORAGE_BACKEND")),
		S3Bucket:               v.GetString("S3_BUCKET"),
		S3Region:               v.GetString("S3_REGION"),
		S3Endpoint:             v.GetString("S3_ENDPOINT"),
		S3AccessKey:            v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:            v.GetString("S3_SECRET_KEY"),
		TryOnDir:               v.GetString("TRYON_DIR"),
		TryOnCommand:           v.GetString("TRYON_COMMAND"),
		TryOnArgs:              tryOnArgs(v),
		TryOnWorkDir:           v.GetString("TRYON_WORKDIR"),
		TryOnTimeout:           v.GetDuration("TRYON_TIMEOUT"),
		TryOnWorkers:           v.GetInt("TRYON_WORKERS"),
		TryOnQueueSize:         v.GetInt("TRYON_QUEUE_SIZE"),
		TryOnAllowedExtensions: splitList(v.GetString("TRYON_ALLOWED_EXTENSIONS"), ","),
		RabbitMQURL:            v.GetString("RABBITMQ_URL"),
		CORSOrigins:            v.GetString("CORS_ORIGINS"),
		RateLimitRPS:           v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:         v.GetInt("RATE_LIMIT_BURST"),
	}

	if cfg.TryOnDir == "" {
		cfg.TryOnDir = filepath.Join(cfg.UploadDir, "tryon")
	}
	if cfg.TryOnWorkDir == "" {
		cfg.TryOnWorkDir = cfg.TryOnDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND is s3")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}
	if len(c.TryOnAllowedExtensions) == 0 {
		return fmt.Errorf("TRYON_ALLOWED_EXTENSIONS must list at least one extension")
	}
	if c.TryOnWorkers < 1 {
		return fmt.Errorf("TRYON_WORKERS must be at least 1")
	}
	if c.TryOnQueueSize < 0 {
		return fmt.Errorf("TRYON_QUEUE_SIZE must not be negative")
	}
	if c.TryOnTimeout <= 0 {
		return fmt.Errorf("TRYON_TIMEOUT must be positive")
	}
	// Session cookies need credentialed CORS, which rules out a wildcard.
	if strings.TrimSpace(c.CORSOrigins) == "*" {
		return fmt.Errorf("CORS_ORIGINS must list explicit origins")
	}
	return nil
}

// tryOnArgs accepts TRYON_ARGS either as a list (config file) or as a
// space separated string (environment).
func tryOnArgs(v *viper.Viper) []string {
	if raw, ok := v.Get("TRYON_ARGS").([]interface{}); ok {
		args := make([]string, 0, len(raw))
		for _, a := range raw {
			args = append(args, fmt.Sprint(a))
		}
		return args
	}
	if raw, ok := v.Get("TRYON_ARGS").([]string); ok {
		return raw
	}
	return strings.Fields(v.GetString("TRYON_ARGS"))
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "."))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
