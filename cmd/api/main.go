package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"bookshelf/internal/config"
	"bookshelf/internal/ratelimit"
	"bookshelf/internal/server"
	"bookshelf/internal/util"
	"bookshelf/pkg/repo"
	"bookshelf/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	sessions, err := newSessionStore(cfg, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	httpServer := server.New(server.Config{
		Repo:          repo.New(st, repo.NewMemoryListCache()),
		Auth:          repo.NewAuth(st),
		Sessions:      sessions,
		LoginLimiter:  newLimiter(cfg, "bookshelf:ratelimit:login", cfg.LoginRateLimitPerMinute),
		SignupLimiter: newLimiter(cfg, "bookshelf:ratelimit:signup", cfg.SignupRateLimitPerMinute),
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("api server listening", "addr", addr, "sessions", cfg.SessionStrategy)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// newStore picks the backing store. "memory" keeps everything in-process,
// which is useful for local development without Postgres.
func newStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL == "memory" {
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func newSessionStore(cfg config.FileConfig, ttl time.Duration) (store.SessionStore, error) {
	switch cfg.SessionStrategy {
	case config.SessionStrategyJWT:
		var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
		if cfg.RedisAddr != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		}
		return store.NewJWTSessionStoreFromPEM(cfg.JWTPrivateKeyPath, ttl, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
	case config.SessionStrategyMemory:
		return store.NewMemorySessionStore(), nil
	default:
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, ttl), nil
	}
}

func newLimiter(cfg config.FileConfig, prefix string, perMinute int) *ratelimit.FixedWindowLimiter {
	if perMinute <= 0 {
		return nil
	}
	limiter, err := ratelimit.New(cfg.RedisAddr, cfg.RedisPassword, prefix, perMinute, time.Minute)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	return limiter
}
