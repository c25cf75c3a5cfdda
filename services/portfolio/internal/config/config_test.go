package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	for _, k := range []string{"STORE_BACKEND", "DATABASE_URL", "MONGO_URI", "MONGO_DATABASE", "NATS_URL", "REDIS_URL",
		"CACHE_MAX_ENTRIES", "CACHE_TTL_ARTWORKS", "CACHE_TTL_POSTS", "CACHE_TTL_SETTINGS", "JWT_SECRET",
		"ADMIN_PASSWORD_HASH", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "APP_ENV"} {
		t.Setenv(k, "")
	}
	t.Setenv("SERVICE_NAME", "portfolio")
}

func TestLoad_Defaults(t *testing.T) {
	setBase(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreBackend != BackendMemory || cfg.MongoDatabase != "portfolio" {
		t.Fatalf("unexpected store config %+v", cfg)
	}
	if cfg.Cache.MaxEntries != 1024 || cfg.Cache.ArtworksTTL != time.Minute || cfg.Cache.SettingsTTL != 5*time.Minute {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
	if cfg.RateLimitRPS != 2 || cfg.RateLimitBurst != 10 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
}

func TestLoad_DerivesBackend(t *testing.T) {
	setBase(t)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load()
	if err != nil || cfg.StoreBackend != BackendMongo {
		t.Fatalf("expected mongo, got %q %v", cfg.StoreBackend, err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/portfolio")
	cfg, err = Load()
	if err != nil || cfg.StoreBackend != BackendPostgres {
		t.Fatalf("expected postgres, got %q %v", cfg.StoreBackend, err)
	}
}

func TestLoad_ProductionGuards(t *testing.T) {
	setBase(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "memory") {
		t.Fatalf("expected memory store refusal, got %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/portfolio")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET refusal, got %v", err)
	}

	t.Setenv("JWT_SECRET", "s")
	if _, err := Load(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}

func TestValidate_Backends(t *testing.T) {
	if err := (Config{StoreBackend: "sqlite"}).Validate(); err == nil {
		t.Fatal("expected unknown backend error")
	}
	if err := (Config{StoreBackend: BackendPostgres}).Validate(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}
	if err := (Config{StoreBackend: BackendMongo}).Validate(); err == nil {
		t.Fatal("expected missing MONGO_URI error")
	}
}
