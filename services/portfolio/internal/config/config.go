// Package config holds the portfolio service settings layered on top of the
// shared platform config.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	platform "github.com/example/art-portfolio/internal/platform/config"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type CacheConfig struct {
	MaxEntries  int
	ArtworksTTL time.Duration
	PostsTTL    time.Duration
	SettingsTTL time.Duration
}

type Config struct {
	platform.AppConfig

	StoreBackend  string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	NATSURL       string
	RedisURL      string

	Cache CacheConfig

	JWTSecret          string
	AdminPasswordHash  string
	CORSAllowedOrigins string

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (Config, error) {
	app, err := platform.Load()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		AppConfig:     app,
		StoreBackend:  strings.ToLower(platform.String("STORE_BACKEND", "")),
		DatabaseURL:   platform.String("DATABASE_URL", ""),
		MongoURI:      platform.String("MONGO_URI", ""),
		MongoDatabase: platform.String("MONGO_DATABASE", "portfolio"),
		NATSURL:       platform.String("NATS_URL", ""),
		RedisURL:      platform.String("REDIS_URL", ""),
		Cache: CacheConfig{
			MaxEntries:  platform.Int("CACHE_MAX_ENTRIES", 1024),
			ArtworksTTL: platform.Duration("CACHE_TTL_ARTWORKS", time.Minute),
			PostsTTL:    platform.Duration("CACHE_TTL_POSTS", time.Minute),
			SettingsTTL: platform.Duration("CACHE_TTL_SETTINGS", 5*time.Minute),
		},
		JWTSecret:          platform.String("JWT_SECRET", ""),
		AdminPasswordHash:  platform.String("ADMIN_PASSWORD_HASH", ""),
		CORSAllowedOrigins: platform.String("CORS_ALLOWED_ORIGINS", ""),
		RateLimitRPS:       platform.Float("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     platform.Int("RATE_LIMIT_BURST", 10),
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = deriveBackend(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func deriveBackend(cfg Config) string {
	switch {
	case cfg.DatabaseURL != "":
		return BackendPostgres
	case cfg.MongoURI != "":
		return BackendMongo
	}
	return BackendMemory
}

// Validate rejects combinations that cannot run, and development-only
// settings when APP_ENV=production.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
		if c.IsProduction() {
			return errors.New("the memory store is not allowed in production")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}
