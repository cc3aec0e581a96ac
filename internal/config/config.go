package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAppName         = "PinWallet"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultAPIPrefix       = "/api/user"
	defaultCORSOrigins     = "*"
	defaultShutdownDelay   = 10 * time.Second
	defaultStoreTimeout    = 5 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultPinHashCost     = 10
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	storeTimeoutEnvVar     = "STORE_TIMEOUT"
)

// Store backends selectable through STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Identity token formats selectable through IDENTITY_TOKEN_FORMAT.
const (
	TokenFormatJWT    = "jwt"
	TokenFormatPASETO = "paseto"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	APIPrefix        string
	CORSAllowOrigins string
	StoreBackend     string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	StoreTimeout     time.Duration
	IdempotencyTTL   time.Duration
	PinHashCost      int
	PinVerifyPerMin  int
	Identity         IdentityConfig
}

// IdentityConfig describes how bearer identity tokens are verified.
type IdentityConfig struct {
	TokenFormat  string
	JWTSecret    string
	JWTPublicKey string
	Issuer       string
	Audience     string
	PasetoKey    string
}

// Load reads configuration values from the environment and populates a Config instance.
// A .env file in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:             getEnv("PORT", getEnv("PORT_NUMBER", defaultPort)),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		APIPrefix:        getEnv("API_PREFIX", defaultAPIPrefix),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", defaultCORSOrigins),
		StoreBackend:     strings.ToLower(os.Getenv("STORE_BACKEND")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		StoreTimeout:     defaultStoreTimeout,
		IdempotencyTTL:   defaultIdempotencyTTL,
		PinHashCost:      defaultPinHashCost,
		Identity: IdentityConfig{
			TokenFormat:  strings.ToLower(getEnv("IDENTITY_TOKEN_FORMAT", TokenFormatJWT)),
			JWTSecret:    os.Getenv("IDENTITY_JWT_SECRET"),
			JWTPublicKey: os.Getenv("IDENTITY_JWT_PUBLIC_KEY"),
			Issuer:       os.Getenv("IDENTITY_ISSUER"),
			Audience:     os.Getenv("IDENTITY_AUDIENCE"),
			PasetoKey:    os.Getenv("IDENTITY_PASETO_KEY"),
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(storeTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", storeTimeoutEnvVar, err)
		}
		cfg.StoreTimeout = d
	}

	if cfg.PinHashCost, err = intFromEnv("PIN_HASH_COST", defaultPinHashCost); err != nil {
		return Config{}, err
	}
	if cfg.PinHashCost < bcrypt.MinCost || cfg.PinHashCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("PIN_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.PinVerifyPerMin, err = intFromEnv("PIN_VERIFY_MAX_PER_MIN", 0); err != nil {
		return Config{}, err
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = defaultStoreBackend(cfg)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory:
		if !c.IsDev() {
			return fmt.Errorf("STORE_BACKEND=memory is only allowed when APP_ENV is a development environment")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for STORE_BACKEND=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set for STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Identity.TokenFormat {
	case TokenFormatJWT:
		if c.Identity.JWTSecret == "" && c.Identity.JWTPublicKey == "" {
			return fmt.Errorf("IDENTITY_JWT_SECRET or IDENTITY_JWT_PUBLIC_KEY must be set")
		}
	case TokenFormatPASETO:
		if c.Identity.PasetoKey == "" {
			return fmt.Errorf("IDENTITY_PASETO_KEY must be set")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_TOKEN_FORMAT %q", c.Identity.TokenFormat)
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func defaultStoreBackend(c Config) string {
	switch {
	case c.DatabaseURL != "":
		return StorePostgres
	case c.RedisURL != "":
		return StoreRedis
	default:
		return StoreMemory
	}
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
