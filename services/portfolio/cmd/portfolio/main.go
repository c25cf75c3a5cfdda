package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/art-portfolio/internal/changefeed"
	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/internal/platform/analytics"
	"github.com/example/art-portfolio/internal/platform/auth"
	"github.com/example/art-portfolio/internal/platform/db"
	"github.com/example/art-portfolio/internal/platform/httpserver"
	"github.com/example/art-portfolio/internal/platform/logging"
	"github.com/example/art-portfolio/internal/platform/natsconn"
	"github.com/example/art-portfolio/internal/platform/run"
	"github.com/example/art-portfolio/internal/ttlcache"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
	"github.com/example/art-portfolio/services/portfolio/internal/config"
	"github.com/example/art-portfolio/services/portfolio/internal/content"
	"github.com/example/art-portfolio/services/portfolio/internal/handlers"
	"github.com/example/art-portfolio/services/portfolio/internal/livecache"
)

type closer = func(context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	var closers []closer

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open document store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	nc := connectNATS(cfg, log)
	var bus changefeed.Bus = changefeed.NewLocalBus()
	events := analytics.New(nil, log)
	if nc != nil {
		bus = changefeed.NewNATSBus(nc, log)
		events = analytics.New(nc, log)
	}
	live := docstore.NewLive(store, bus, log)

	cache, closeCache := openCache(ctx, cfg, nc, log)

	commentSvc := comments.New(live, events, log)
	contentSvc := content.New(live, cache, content.TTLs{
		Artworks: cfg.Cache.ArtworksTTL,
		Posts:    cfg.Cache.PostsTTL,
		Settings: cfg.Cache.SettingsTTL,
	}, log)

	liveCache, err := livecache.Start(ctx, live, log)
	if err != nil {
		log.Error("subscribe to comments", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
		ReadyFunc: func() error {
			if liveCache.Loading() {
				if err := liveCache.Err(); err != nil {
					return fmt.Errorf("comments feed: %w", err)
				}
				return errors.New("comments feed not loaded")
			}
			return nil
		},
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, admin routes and admin login are disabled")
	}
	handlers.Register(r, handlers.Deps{
		Comments:       commentSvc,
		Live:           liveCache,
		Content:        contentSvc,
		Verifier:       auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)},
		Issuer:         auth.Issuer{Secret: []byte(cfg.JWTSecret), TTL: 12 * time.Hour},
		AdminPassword:  auth.AdminPassword{Hash: []byte(cfg.AdminPasswordHash)},
		Limiter:        handlers.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		SecureCookies:  cfg.IsProduction(),
		AllowedOrigins: httpserver.ParseOrigins(cfg.CORSAllowedOrigins),
		Log:            log,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Logger: log, Router: r})

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		_ = log.Sync()
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcSrv)

	runner := run.New(log)
	code := runner.WithSignals(
		func(context.Context) error { return srv.Start() },
		func(context.Context) error {
			log.Info("grpc server starting", zap.String("addr", cfg.GRPC.Addr))
			return grpcSrv.Serve(lis)
		},
	)

	healthSrv.Shutdown()
	closers = append(closers,
		srv.Shutdown,
		func(ctx context.Context) error { return stopGRPC(ctx, grpcSrv) },
		func(context.Context) error { liveCache.Close(); return nil },
	)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}
	if nc != nil {
		closers = append(closers, func(context.Context) error { return nc.Drain() })
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}
	runner.Graceful(closers...)

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

func stopGRPC(ctx context.Context, s *grpc.Server) error {
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}
}

// openStore builds the configured document store backend.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (docstore.Store, closer, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := docstore.NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("document store: postgres")
		return s, func(context.Context) error { pool.Close(); return nil }, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		s := docstore.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := s.EnsureIndexes(ctx, comments.Collection, content.CollectionArtworks, content.CollectionPosts); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		log.Info("document store: mongo", zap.String("database", cfg.MongoDatabase))
		return s, client.Disconnect, nil
	}

	log.Warn("using in-memory document store (development only)")
	return docstore.NewMemoryStore(), nil, nil
}

// connectNATS returns nil when NATS is not configured or unreachable; the
// service then runs single-instance with a process-local change feed.
func connectNATS(cfg config.Config, log *zap.Logger) *nats.Conn {
	if cfg.NATSURL == "" {
		log.Info("NATS_URL not set, using local change feed")
		return nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName, Logger: log})
	if err != nil {
		log.Warn("nats unavailable, using local change feed", zap.Error(err))
		return nil
	}
	return nc
}

// openCache prefers Redis, then a local LRU replicated over NATS, then a
// plain local LRU.
func openCache(ctx context.Context, cfg config.Config, nc *nats.Conn, log *zap.Logger) (ttlcache.Cache, closer) {
	if cfg.RedisURL != "" {
		rc, err := ttlcache.NewRedisCache(cfg.RedisURL, cfg.ServiceName+":", log)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = rc.Ping(pingCtx)
			cancel()
			if err == nil {
				log.Info("content cache: redis")
				return rc, func(context.Context) error { return rc.Close() }
			}
			_ = rc.Close()
		}
		log.Warn("redis unavailable, using local cache", zap.Error(err))
	}

	local := ttlcache.NewMemoryCache(cfg.Cache.MaxEntries)
	if nc == nil {
		log.Info("content cache: local")
		return local, nil
	}
	rep, err := ttlcache.NewReplicated(local, nc, ttlcache.DefaultInvalidationSubject, log)
	if err != nil {
		log.Warn("cache replication unavailable", zap.Error(err))
		return local, nil
	}
	log.Info("content cache: local, replicated over nats")
	return rep, func(context.Context) error { return rep.Close() }
}
