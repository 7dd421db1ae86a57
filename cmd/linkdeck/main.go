package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	feedadapter "github.com/ericfisherdev/linkdeck/internal/adapter/driven/feed"
	githubadapter "github.com/ericfisherdev/linkdeck/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/linkdeck/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/linkdeck/internal/adapter/driving/http"
	"github.com/ericfisherdev/linkdeck/internal/application"
	"github.com/ericfisherdev/linkdeck/internal/config"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

const sessionSweepInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"redis", cfg.HasRedis(),
		"session_ttl", cfg.SessionTTL,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	bookmarkStore := sqliteadapter.NewBookmarkRepo(db)
	sessionStore := sqliteadapter.NewSessionRepo(db)
	authProvider := githubadapter.NewAuthProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.OAuthRedirectURL)

	// 6. Select the change feed: Redis fans out across instances, the
	// in-process feed suffices for a single one.
	var changeFeed driven.ChangeFeed
	var feedPinger application.Pinger
	if cfg.HasRedis() {
		redisFeed, err := feedadapter.NewRedis(ctx, cfg.RedisAddr, slog.Default())
		if err != nil {
			return err
		}
		defer redisFeed.Close()
		changeFeed = redisFeed
		feedPinger = redisFeed
		slog.Info("change feed connected", "kind", "redis", "addr", cfg.RedisAddr)
	} else {
		changeFeed = feedadapter.NewMemory()
		slog.Info("change feed created", "kind", "memory")
	}

	// 7. Wire application services.
	sessions := application.NewSessionManager(authProvider, sessionStore, cfg.SessionTTL, slog.Default())
	commands := application.NewCommandService(bookmarkStore, changeFeed, slog.Default())
	health := application.NewHealthService(map[string]application.Pinger{
		"database": db,
		"feed":     feedPinger,
	})

	// 8. Periodic expired-session sweep.
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sessions.SweepExpired(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	// 9. HTTP surface.
	handler := httphandler.NewHandler(
		sessions, commands, health,
		bookmarkStore, changeFeed,
		[]byte(cfg.SessionSecret), cfg.SessionTTL,
		slog.Default(),
	)
	router := httphandler.NewRouter(handler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: websocket streams outlive any fixed deadline.
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("linkdeck started", "listen_addr", cfg.ListenAddr)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
