package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diewo77/gestion-boutique/auth"
	"github.com/diewo77/gestion-boutique/internal/config"
	"github.com/diewo77/gestion-boutique/internal/db"
	"github.com/diewo77/gestion-boutique/internal/logging"
	"github.com/diewo77/gestion-boutique/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fallback := logging.New("production")
		fallback.Fatal().Err(err).Msg("configuration invalide")
	}
	log := logging.New(cfg.Env)

	conn, err := db.Connect(db.Options{
		DSN:           cfg.DatabaseDSN,
		RunMigrations: cfg.RunMigrations || *migrateOnlyFlag,
		Seed:          cfg.SeedDatabase,
		Debug:         cfg.DBDebug,
		Logger:        log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("erreur connexion DB")
	}
	if *migrateOnlyFlag {
		log.Info().Msg("migrations terminées")
		return
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	handler := server.New(conn, server.Options{
		Issuer:     issuer,
		RefreshTTL: cfg.RefreshTokenTTL,
		Logger:     log,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}
	go func() {
		log.Info().Str("env", cfg.Env).Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server gracefully stopped")
}
