package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medibook/hospital-booking/internal/booking"
	"github.com/medibook/hospital-booking/internal/config"
	"github.com/medibook/hospital-booking/internal/db"
	"github.com/medibook/hospital-booking/internal/directory"
	"github.com/medibook/hospital-booking/internal/logging"
	"github.com/medibook/hospital-booking/internal/prescription"
	redisclient "github.com/medibook/hospital-booking/internal/redis"
	"github.com/medibook/hospital-booking/internal/slot"
	"github.com/medibook/hospital-booking/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("sweeper", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}

	logging.Init("sweeper", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.SweepInterval).Msg("sweeper starting up")

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
	bookingRepo := booking.NewPgRepository(pgPool)
	bookingSvc := booking.NewService(bookingRepo, dirRepo, slotStore)
	generator := prescription.NewGenerator(prescription.NewPgRepository(pgPool), bookingSvc, dirRepo, nil, nil)
	locker := redisclient.NewRedisJobLocker(rdb, cfg.SweepLockTTL)

	sw := sweeper.New(bookingRepo, bookingSvc, generator, locker, cfg.SweepInterval)
	sw.Run(rootCtx)

	log.Info().Msg("sweeper shut down")
}
