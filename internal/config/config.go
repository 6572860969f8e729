package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Cron       CronConfig
	Stripe     StripeConfig
	Settlement SettlementConfig
	Scheduler  SchedulerConfig
	Store      StoreConfig
	LogLevel   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig holds the public crown cache configuration. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CrownTTL time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// AdminConfig lists the operator subjects allowed to use the admin routes
type AdminConfig struct {
	UIDs []string
}

// CronConfig holds the shared secret expected from the external scheduler
type CronConfig struct {
	Secret string
}

// StripeConfig holds payment gateway configuration
type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	MockAPI   bool
}

// SettlementConfig holds the nightly settlement rules
type SettlementConfig struct {
	Timezone           string
	Currency           string
	MinimumAmountCents int64
	CandidateLimit     int
	LockStaleAfter     time.Duration
	EventsPageSize     int
}

// SchedulerConfig controls the in-process nightly trigger
type SchedulerConfig struct {
	Enabled bool
	At      string
}

// StoreConfig selects the candidate store implementation ("mongo" or "memory")
type StoreConfig struct {
	Driver string
}

// Load loads configuration from environment variables and an optional
// config.yaml found in path or path/config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(path + "/config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("Stripe.SecretKey", "STRIPE_SECRET_KEY", "STRIPE_SECRETKEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Admin.UIDs = TrimList(cfg.Admin.UIDs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return errors.New("config: MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if !c.Stripe.MockAPI && c.Stripe.SecretKey == "" {
		return errors.New("config: STRIPE_SECRET_KEY is required unless STRIPE_MOCKAPI=true")
	}
	if c.Settlement.MinimumAmountCents <= 0 {
		return errors.New("config: SETTLEMENT_MINIMUMAMOUNTCENTS must be positive")
	}
	if c.Settlement.CandidateLimit <= 0 {
		return errors.New("config: SETTLEMENT_CANDIDATELIMIT must be positive")
	}
	if _, err := time.LoadLocation(c.Settlement.Timezone); err != nil {
		return fmt.Errorf("config: invalid settlement timezone %q: %w", c.Settlement.Timezone, err)
	}
	return nil
}

// setDefaults sets default values for configuration. Every key needs a
// default so that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "crownbid")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("Redis.Addr", "")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.CrownTTL", time.Minute)
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Admin.UIDs", []string{})
	v.SetDefault("Cron.Secret", "")
	v.SetDefault("Stripe.SecretKey", "")
	v.SetDefault("Stripe.BaseURL", "https://api.stripe.com")
	v.SetDefault("Stripe.Timeout", 30*time.Second)
	v.SetDefault("Stripe.MockAPI", false)
	v.SetDefault("Settlement.Timezone", "America/Chicago")
	v.SetDefault("Settlement.Currency", "usd")
	v.SetDefault("Settlement.MinimumAmountCents", 50)
	v.SetDefault("Settlement.CandidateLimit", 100)
	v.SetDefault("Settlement.LockStaleAfter", 10*time.Minute)
	v.SetDefault("Settlement.EventsPageSize", 50)
	v.SetDefault("Scheduler.Enabled", false)
	v.SetDefault("Scheduler.At", "00:05")
	v.SetDefault("Store.Driver", "mongo")
	v.SetDefault("LogLevel", "info")
}
