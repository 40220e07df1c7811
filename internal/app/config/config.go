// Package config loads the immutable application configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"member_backend/internal/platform/db"
	"member_backend/internal/platform/logger"
	"member_backend/internal/platform/media"
	"member_backend/internal/platform/redis"
	"member_backend/internal/platform/tracing"
)

// Values accepted for APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devJWTSecret is only used outside production when JWT_SECRET is unset.
const devJWTSecret = "default_jwt_secret"

// Config is built once at startup and passed by value to the components that need it.
type Config struct {
	Env       string
	Server    ServerConfig
	Database  db.Config
	Auth      AuthConfig
	Redis     redis.Config
	RateLimit RateLimitConfig
	Storage   media.Config
	Log       logger.Config
	CORS      CORSConfig
	Tracing   tracing.Config
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is honoured.
	// Empty means the peer address is the client IP.
	TrustedProxies []string
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	// InsecureSecret is set when the development fallback secret is in use.
	InsecureSecret bool
}

// RateLimitConfig is the per-client fixed window applied to signup and login.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// CORSConfig lists the allowed origins; "*" allows any origin.
type CORSConfig struct {
	AllowOrigins []string
}

// IsDevelopment reports whether internal error details may be exposed.
func (c Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", EnvDevelopment)
	v.SetDefault("port", "5000")
	v.SetDefault("read_header_timeout", "10s")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("db_driver", "")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "data/members.db")
	v.SetDefault("db_connect_timeout", "60s")
	v.SetDefault("run_migrations", true)

	v.SetDefault("jwt_expires_in", "7d")
	v.SetDefault("bcrypt_cost", bcrypt.DefaultCost)

	v.SetDefault("redis_port", "6379")
	v.SetDefault("rate_limit_requests", 20)
	v.SetDefault("rate_limit_window", "15m")

	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_timeout", "30s")

	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("otel_service_name", "member-backend")
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config

	cfg.Env = strings.ToLower(v.GetString("app_env"))
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return Config{}, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}

	cfg.Server = ServerConfig{
		Addr:              ":" + v.GetString("port"),
		ReadHeaderTimeout: v.GetDuration("read_header_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		TrustedProxies:    splitList(v.GetString("trusted_proxies")),
	}

	cfg.Database = db.Config{
		Driver:         v.GetString("db_driver"),
		User:           v.GetString("db_user"),
		Password:       v.GetString("db_password"),
		Name:           v.GetString("db_name"),
		Host:           v.GetString("db_host"),
		Port:           v.GetString("db_port"),
		SSLMode:        v.GetString("db_sslmode"),
		InstanceName:   v.GetString("instance_connection_name"),
		Path:           v.GetString("db_path"),
		ConnectTimeout: v.GetDuration("db_connect_timeout"),
		AutoMigrate:    v.GetBool("run_migrations"),
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = db.DriverSQLite
		if cfg.Database.Host != "" || cfg.Database.InstanceName != "" {
			cfg.Database.Driver = db.DriverPostgres
		}
	}
	if cfg.Database.Driver != db.DriverPostgres && cfg.Database.Driver != db.DriverSQLite {
		return Config{}, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, cfg.Database.Driver)
	}

	ttl, err := ParseTTL(v.GetString("jwt_expires_in"))
	if err != nil {
		return Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	cfg.Auth = AuthConfig{
		JWTSecret:  v.GetString("jwt_secret"),
		TokenTTL:   ttl,
		BcryptCost: v.GetInt("bcrypt_cost"),
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Auth.JWTSecret == "" {
		if cfg.Env == EnvProduction {
			return Config{}, errors.New("JWT_SECRET is required in production")
		}
		cfg.Auth.JWTSecret = devJWTSecret
		cfg.Auth.InsecureSecret = true
	}

	cfg.Redis = redis.Config{
		Host:     v.GetString("redis_host"),
		Port:     v.GetString("redis_port"),
		Password: v.GetString("redis_password"),
		DB:       v.GetInt("redis_db"),
	}
	cfg.RateLimit = RateLimitConfig{
		Requests: v.GetInt("rate_limit_requests"),
		Window:   v.GetDuration("rate_limit_window"),
	}

	cfg.Storage = media.Config{
		Bucket:        v.GetString("s3_bucket"),
		Region:        v.GetString("s3_region"),
		Endpoint:      v.GetString("s3_endpoint"),
		AccessKey:     v.GetString("s3_access_key"),
		SecretKey:     v.GetString("s3_secret_key"),
		PublicBaseURL: v.GetString("s3_public_base_url"),
		Timeout:       v.GetDuration("s3_timeout"),
	}

	cfg.Log = logger.Config{
		Level: strings.ToLower(v.GetString("log_level")),
		Dev:   cfg.Env == EnvDevelopment,
	}
	if v.IsSet("log_dev") {
		cfg.Log.Dev = v.GetBool("log_dev")
	}

	cfg.CORS = CORSConfig{AllowOrigins: splitList(v.GetString("cors_allow_origins"))}

	cfg.Tracing = tracing.Config{
		Endpoint:    v.GetString("otel_exporter_otlp_endpoint"),
		ServiceName: v.GetString("otel_service_name"),
		Insecure:    v.GetBool("otel_exporter_otlp_insecure"),
	}

	return cfg, nil
}

// ParseTTL parses token lifetimes such as "7d", "12h", "90m" or a bare
// number of seconds.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count: %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
