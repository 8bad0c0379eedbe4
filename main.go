package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"drivepulse/internal/auth"
	"drivepulse/internal/config"
	"drivepulse/internal/db"
	"drivepulse/internal/http/server"
	"drivepulse/internal/logging"
	"drivepulse/internal/telemetry"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect database")
	}

	if err := db.EnsureBootstrapUser(sqlDB, cfg); err != nil {
		logging.Fatal().Err(err).Msg("failed to ensure bootstrap user")
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	store := db.NewStore(sqlDB, cfg.InsertBatchSize)
	authSvc := auth.NewService(store, tokens)
	telemetrySvc := telemetry.NewService(store)

	handler := server.New(cfg, telemetrySvc, authSvc)

	srv := &fasthttp.Server{
		Handler:            handler,
		Name:               "drivepulse",
		MaxRequestBodySize: 32 << 20,
	}

	logging.Info().Str("addr", cfg.ListenAddr).Msg("drivepulse listening")
	if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
}
