package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config validation errors
var (
	// ErrMissingJWTSecret is returned when no token signing secret is configured
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	// ErrMissingDatabaseURL is returned when the postgres driver is selected without a DSN
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
	// ErrInvalidStoreDriver is returned for an unknown STORE_DRIVER value
	ErrInvalidStoreDriver = errors.New("STORE_DRIVER must be \"postgres\" or \"memory\"")
	// ErrInvalidTokenTTL is returned when TokenTTL is not positive
	ErrInvalidTokenTTL = errors.New("TOKEN_TTL must be positive")
	// ErrInvalidAttachmentBounds is returned when attachment bounds are not positive
	ErrInvalidAttachmentBounds = errors.New("attachment max width and height must be positive")
	// ErrInvalidRateLimit is returned when rate limit settings are not positive
	ErrInvalidRateLimit = errors.New("rate limit rps and burst must be positive")
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the server configuration.
// Field tags name the keys accepted in the optional YAML file.
type Config struct {
	Port        string `yaml:"port"`
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`

	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	Cloudinary CloudinaryConfig `yaml:"cloudinary"`

	UploadTimeout       time.Duration `yaml:"upload_timeout"`
	AttachmentMaxWidth  int           `yaml:"attachment_max_width"`
	AttachmentMaxHeight int           `yaml:"attachment_max_height"`

	RequestTimeout     time.Duration `yaml:"request_timeout"`
	RateLimitRPS       float64       `yaml:"rate_limit_rps"`
	RateLimitBurst     int           `yaml:"rate_limit_burst"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// CloudinaryConfig holds the image host credentials.
// An empty CloudName disables attachment uploads.
type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	APIBase   string `yaml:"api_base"`
}

// Enabled reports whether enough credentials are set to sign uploads.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Port:                "8080",
		StoreDriver:         DriverPostgres,
		TokenTTL:            time.Hour,
		BcryptCost:          10,
		UploadTimeout:       30 * time.Second,
		AttachmentMaxWidth:  1000,
		AttachmentMaxHeight: 1000,
		RequestTimeout:      60 * time.Second,
		RateLimitRPS:        10,
		RateLimitBurst:      20,
		CORSAllowedOrigins:  []string{"*"},
		LogLevel:            "info",
		LogFormat:           "json",
		Cloudinary: CloudinaryConfig{
			APIBase: "https://api.cloudinary.com",
		},
	}
}

// Load builds the configuration from, in increasing precedence:
// defaults, a .env file in the working directory, the YAML file named by
// CONFIG_FILE, and the process environment.
func Load() (Config, error) {
	// .env is optional; existing environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[CONFIG] failed to load .env file", "error", err)
	}

	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile merges a YAML configuration file into cfg.
// Keys absent from the file keep their current values.
func LoadFile(path string, cfg *Config) error {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidStoreDriver, c.StoreDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTokenTTL, c.TokenTTL)
	}
	if c.AttachmentMaxWidth <= 0 || c.AttachmentMaxHeight <= 0 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidAttachmentBounds, c.AttachmentMaxWidth, c.AttachmentMaxHeight)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: got rps=%v burst=%d", ErrInvalidRateLimit, c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}

// applyEnv overrides cfg with any environment variables that are set.
// Unparseable numeric values are logged and ignored.
func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.StoreDriver, "STORE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setDuration(&cfg.TokenTTL, "TOKEN_TTL")
	setInt(&cfg.BcryptCost, "BCRYPT_COST")

	setString(&cfg.Cloudinary.CloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&cfg.Cloudinary.APIKey, "CLOUDINARY_API_KEY")
	setString(&cfg.Cloudinary.APISecret, "CLOUDINARY_API_SECRET")
	setString(&cfg.Cloudinary.APIBase, "CLOUDINARY_API_BASE")

	setDuration(&cfg.UploadTimeout, "UPLOAD_TIMEOUT")
	setInt(&cfg.AttachmentMaxWidth, "ATTACHMENT_MAX_WIDTH")
	setInt(&cfg.AttachmentMaxHeight, "ATTACHMENT_MAX_HEIGHT")

	setDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	setInt(&cfg.RateLimitBurst, "RATE_LIMIT_BURST")
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		} else {
			warnInvalid("RATE_LIMIT_RPS", v, err)
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSAllowedOrigins = origins
	}

	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			warnInvalid(key, v, err)
			return
		}
		*dst = n
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			warnInvalid(key, v, err)
			return
		}
		*dst = d
	}
}

func warnInvalid(key, value string, err error) {
	slog.Warn("[CONFIG] invalid value, using default",
		"key", key,
		"value", value,
		"error", err,
	)
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
