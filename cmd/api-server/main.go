package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/api"
	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/config"
	"github.com/medibook/hospital-booking/internal/db"
	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/logging"
	"github.com/medibook/hospital-booking/internal/prescription"
	redisclient "github.com/medibook/hospital-booking/internal/redis"
	"github.com/medibook/hospital-booking/internal/slot"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("api-server", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	dirRepo := directory.NewPgRepository(pgPool)
	slotStore := slot.NewStore(slot.NewPgRepository(pgPool), redisclient.NewRedisCache(rdb, cfg.SlotCacheTTL))
	bookingSvc := booking.NewService(booking.NewPgRepository(pgPool), dirRepo, slotStore)
	prescriptionRepo := prescription.NewPgRepository(pgPool)
	generator := prescription.NewGenerator(prescriptionRepo, bookingSvc, dirRepo, nil, nil)

	router := api.NewRouter(api.RouterConfig{
		Booking:       bookingSvc,
		Slots:         slotStore,
		Prescriptions: prescriptionRepo,
		Generator:     generator,
		PgPool:        pgPool,
		Redis:         rdb,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
