// cmd/server/main.go
// This is the entry point for the court booking API server.
// Startup order: config → logger → database + migrations → feed hub → HTTP server.
// A database that cannot be reached stops the process before it accepts any request.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/courtside/court-booking/internal/auth"
	"github.com/courtside/court-booking/internal/config"
	"github.com/courtside/court-booking/internal/database"
	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg)

	db, err := database.Connect(cfg.DSN(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(cfg.MigrationsPath, cfg.DSN()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	var tokens *auth.Tokens
	if cfg.JWTSecret != "" {
		tokens = auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL, nil)
	}

	// The hub lives until shutdown; its goroutine serialises all subscriber bookkeeping.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub(log.Logger)
	go hub.Run(ctx)

	app := handlers.NewApp(handlers.Deps{
		DB: db,
		Calendar: handlers.Calendar{
			Clock:    clockwork.NewRealClock(),
			Location: cfg.Location(),
		},
		Tokens:      tokens,
		AuthMode:    cfg.AuthMode,
		Feed:        hub,
		Log:         log.Logger,
		AccessLog:   true,
		CORSOrigins: cfg.AllowedOrigins(),
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("auth_mode", cfg.AuthMode).
		Str("timezone", cfg.Timezone).
		Msg("starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// setupLogging configures the global zerolog logger: human-readable in development, JSON elsewhere.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
