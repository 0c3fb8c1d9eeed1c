package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevSecret is the development-only fallback for the session signing key.
// It must never be used in a real deployment; Load refuses to start without SECRET_KEY.
const DevSecret = "fallback-secret-key"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GRPC     GRPCConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Log      LogConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address     string // e.g. ":8080"
	Debug       bool
	CORSOrigins []string
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// GRPCConfig contains gRPC health server settings. An empty address disables it.
type GRPCConfig struct {
	Address string
}

// AuthConfig contains session and token settings.
type AuthConfig struct {
	SessionSecret string
	SessionMaxAge time.Duration
	JWTSecret     string
	TokenTTL      time.Duration
	CookieSecure  bool // Secure flag on the session cookie; enable behind HTTPS
}

// UploadConfig contains photo intake settings.
type UploadConfig struct {
	Dir               string
	AllowedExtensions []string
	MaxBytes          int64 // largest photo that is attached
	MaxRequestBytes   int64 // hard cap on the whole report request body
	UniqueNames       bool
	Backend           string // "disk" or "minio"
	Minio             MinioConfig
}

// MinioConfig configures the S3-compatible photo backend.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string
}

const (
	BackendDisk  = "disk"
	BackendMinio = "minio"
)

// Load loads configuration from the environment (and an optional .env file).
// SECRET_KEY and JWT_SECRET are required.
func Load() (*Config, error) {
	cfg, err := load("", "")
	if err != nil {
		return nil, err
	}
	if cfg.Auth.SessionSecret == "" {
		return nil, errors.New("SECRET_KEY environment variable is not set; required for production")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to DevSecret for both secrets.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load(DevSecret, DevSecret)
}

func load(sessionSecret, jwtSecret string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Address:     getEnv("HTTP_ADDRESS", ":8080"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "civic.db"),
		},
		GRPC: GRPCConfig{
			Address: getEnv("GRPC_ADDRESS", ""),
		},
		Auth: AuthConfig{
			SessionSecret: getEnv("SECRET_KEY", sessionSecret),
			JWTSecret:     getEnv("JWT_SECRET", jwtSecret),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "uploads"),
			AllowedExtensions: splitList(getEnv("UPLOAD_ALLOWED_EXTENSIONS", "png,jpg,jpeg,gif")),
			Backend:           strings.ToLower(getEnv("UPLOAD_BACKEND", BackendDisk)),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "civic-photos"),
			},
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	var err error
	if cfg.Server.Debug, err = getEnvBool("DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.Upload.UniqueNames, err = getEnvBool("UPLOAD_UNIQUE_NAMES", false); err != nil {
		return nil, err
	}
	if cfg.Upload.Minio.UseSSL, err = getEnvBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	maxBytes, err := getEnvInt("UPLOAD_MAX_BYTES", 16<<20)
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxBytes = int64(maxBytes)
	maxRequest, err := getEnvInt("UPLOAD_MAX_REQUEST_BYTES", 4*maxBytes)
	if err != nil {
		return nil, err
	}
	cfg.Upload.MaxRequestBytes = int64(maxRequest)
	if cfg.Auth.CookieSecure, err = getEnvBool("SESSION_COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.Auth.SessionMaxAge, err = getEnvDuration("SESSION_MAX_AGE", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Auth.TokenTTL, err = getEnvDuration("TOKEN_TTL", time.Hour); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Upload.Backend {
	case BackendDisk:
		if strings.TrimSpace(c.Upload.Dir) == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case BackendMinio:
		if c.Upload.Minio.AccessKey == "" || c.Upload.Minio.SecretKey == "" {
			return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown UPLOAD_BACKEND %q", c.Upload.Backend)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return errors.New("UPLOAD_ALLOWED_EXTENSIONS must list at least one extension")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Upload.MaxRequestBytes <= c.Upload.MaxBytes {
		return errors.New("UPLOAD_MAX_REQUEST_BYTES must be larger than UPLOAD_MAX_BYTES")
	}
	return nil
}

// UsesDevSecret reports whether the development fallback secret is in effect.
func (c *Config) UsesDevSecret() bool {
	return c.Auth.SessionSecret == DevSecret || c.Auth.JWTSecret == DevSecret
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		return b, nil
	}
	return defaultVal, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		return d, nil
	}
	return defaultVal, nil
}

// splitList parses a comma separated list, dropping blanks and leading dots.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{HTTP: %s, gRPC: %q, DB: %s, Upload: %s(%s), Auth: *** (masked) ***}",
		c.Server.Address, c.GRPC.Address, c.Database.Path, c.Upload.Backend, c.Upload.Dir)
}
