package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"trip_teaser/internal/adapters/itinerary"
	"trip_teaser/internal/adapters/observability"
	redisad "trip_teaser/internal/adapters/redis"
	"trip_teaser/internal/app"
	"trip_teaser/internal/shared"
	mysqlrepo "trip_teaser/internal/storage/mysql"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred closes happen before exit.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr, observability.InitRegistry())

	log.Info().
		Str("base", cfg.ItinBase).
		Int("workers", cfg.Workers).
		Int("trips", len(cfg.TripIDs)).
		Msg("ingestor starting")
	if len(cfg.TripIDs) == 0 {
		log.Warn().Msg("INGEST_TRIP_IDS is empty, nothing to do")
		return 0
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Error().Err(err).Msg("sql.Open failed")
		return 1
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("db.Ping failed")
		return 1
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := itinerary.New(cfg.ItinBase, cfg.ItinKey, cfg.ItinRPS)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize itinerary client")
		return 1
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "")
	defer cache.Close()

	ing := app.NewIngestionService(client, repo, cache)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	var failed atomic.Int64

	for _, id := range cfg.TripIDs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("stopping early")
			break
		}

		wg.Add(1)
		go func(tripID int64) {
			defer wg.Done()
			defer sem.Release(1)

			if err := ing.IngestTrip(ctx, tripID); err != nil {
				failed.Add(1)
				log.Warn().Int64("id", tripID).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Int64("id", tripID).Msg("ingest ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int64("failed", failed.Load()).Msg("ingestion completed")
	if failed.Load() > 0 {
		return 1
	}
	return 0
}
